package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/wippyai/hsa-runtime/bundle"
	"github.com/wippyai/hsa-runtime/hsa"
	"github.com/wippyai/hsa-runtime/image"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	tripleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	isaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type entryItem struct {
	triple string
	isa    hsa.ISA
	blob   []byte
	bundle int
}

type interactiveModel struct {
	err      error
	binPath  string
	section  string
	entries  []entryItem
	visible  []int
	filter   textinput.Model
	selected int
	state    modelState
}

type modelState int

const (
	stateList modelState = iota
	stateFilter
	stateDetail
)

func newInteractiveModel(binPath, section string) *interactiveModel {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "filter by triple"
	ti.Width = 40
	return &interactiveModel{
		binPath: binPath,
		section: section,
		filter:  ti,
		state:   stateList,
	}
}

type loadedMsg struct {
	err     error
	entries []entryItem
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadEntries
}

func (m *interactiveModel) loadEntries() tea.Msg {
	enum := image.NewStaticEnumerator(image.Module{Path: m.binPath})
	buffers, err := image.ScanSections(enum, m.section)
	if err != nil {
		return loadedMsg{err: err}
	}

	var entries []entryItem
	var nbundle int
	for _, buf := range buffers {
		for _, h := range bundle.ParseAll(buf) {
			for _, e := range h.Entries {
				entries = append(entries, entryItem{
					triple: e.Triple,
					isa:    hsa.ParseTriple(e.Triple),
					blob:   e.Blob,
					bundle: nbundle,
				})
			}
			nbundle++
		}
	}
	if len(entries) == 0 {
		return loadedMsg{err: fmt.Errorf("no bundle entries in section %s of %s", m.section, m.binPath)}
	}
	return loadedMsg{entries: entries}
}

func (m *interactiveModel) applyFilter() {
	m.visible = m.visible[:0]
	needle := strings.ToLower(m.filter.Value())
	for i, e := range m.entries {
		if needle == "" || strings.Contains(strings.ToLower(e.triple), needle) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = 0
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateFilter {
			switch msg.String() {
			case "enter", "esc":
				m.filter.Blur()
				m.state = stateList
			case "ctrl+c":
				return m, tea.Quit
			default:
				var cmd tea.Cmd
				m.filter, cmd = m.filter.Update(msg)
				m.applyFilter()
				return m, cmd
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateList && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateList && m.selected < len(m.visible)-1 {
				m.selected++
			}

		case "/":
			if m.state == stateList {
				m.state = stateFilter
				m.filter.Focus()
				return m, textinput.Blink
			}

		case "enter":
			if m.state == stateList && len(m.visible) > 0 {
				m.state = stateDetail
			}

		case "esc":
			if m.state == stateDetail {
				m.state = stateList
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.entries = msg.entries
		m.applyFilter()
	}

	return m, nil
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if len(m.entries) == 0 {
		return "Loading bundles..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Code Object Inspector"))
	b.WriteString(" ")
	b.WriteString(m.binPath)
	b.WriteString("\n\n")

	switch m.state {
	case stateList, stateFilter:
		if m.state == stateFilter || m.filter.Value() != "" {
			b.WriteString(m.filter.View())
			b.WriteString("\n\n")
		}
		for row, i := range m.visible {
			e := m.entries[i]
			line := m.formatEntry(e)
			if row == m.selected && m.state == stateList {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		if len(m.visible) == 0 {
			b.WriteString(dimStyle.Render("  no entries match"))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter inspect • / filter • q quit"))

	case stateDetail:
		e := m.entries[m.visible[m.selected]]
		b.WriteString(tripleStyle.Render(e.triple))
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "Bundle:  %d\n", e.bundle)
		fmt.Fprintf(&b, "Size:    %s\n", humanize.IBytes(uint64(len(e.blob))))
		if e.isa != "" {
			fmt.Fprintf(&b, "Target:  %s\n", isaStyle.Render(string(e.isa)))
		} else {
			fmt.Fprintf(&b, "Target:  %s\n", dimStyle.Render("host (not loadable)"))
		}

		info := describeBlob(e.blob)
		if info.parseErr != nil {
			b.WriteString("\n")
			b.WriteString(dimStyle.Render(fmt.Sprintf("not an ELF object: %v", info.parseErr)))
			b.WriteString("\n")
		} else {
			fmt.Fprintf(&b, "Machine: %s\n", info.machine)
			fmt.Fprintf(&b, "Type:    %s\n", info.fileType)
			if len(info.kernels) > 0 {
				b.WriteString("\nKernels:\n")
				for _, k := range info.kernels {
					b.WriteString("  " + tripleStyle.Render(k) + "\n")
				}
			}
			if len(info.globals) > 0 {
				b.WriteString("\nHost globals referenced:\n")
				for _, g := range info.globals {
					b.WriteString("  " + isaStyle.Render(g) + "\n")
				}
			}
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("esc back • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatEntry(e entryItem) string {
	size := humanize.IBytes(uint64(len(e.blob)))
	if e.isa != "" {
		return tripleStyle.Render(e.triple) + " " + dimStyle.Render("("+size+")")
	}
	return dimStyle.Render(e.triple + " (" + size + ")")
}

func runInteractive(binPath, section string) error {
	p := tea.NewProgram(newInteractiveModel(binPath, section), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
