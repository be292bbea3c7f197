package program

import (
	"go.uber.org/zap"

	"github.com/wippyai/hsa-runtime/errors"
	"github.com/wippyai/hsa-runtime/hostsym"
	"github.com/wippyai/hsa-runtime/hsa"
)

// Executables returns the per-agent table of frozen executables, building
// it on first use. A binary that fails to build aborts only itself: the
// table still carries every executable that froze, and the error is a
// *errors.BuildError describing the failures. Both are cached, so later
// calls see the same partial table and the same error.
func (p *Program) Executables() (ExecutableTable, error) {
	p.execOnce.Do(func() {
		p.execVal, p.execErr = p.buildExecutables()
	})
	return p.execVal, p.execErr
}

func (p *Program) buildExecutables() (ExecutableTable, error) {
	objects, err := p.CodeObjects()
	if err != nil {
		return nil, err
	}
	hosts, err := p.HostSymbols()
	if err != nil {
		return nil, err
	}
	agents, err := p.agents()
	if err != nil {
		return nil, err
	}

	table := make(ExecutableTable)
	var failures []errors.BinaryFailure
	for _, agent := range agents {
		for i, entry := range objects[agent.ISA()] {
			if len(entry.Blob) == 0 {
				p.logger.Debug("skipping empty code object",
					zap.String("isa", string(agent.ISA())),
					zap.Int("index", i))
				continue
			}
			exec, err := p.buildOne(agent, entry.Blob, hosts)
			if err != nil {
				p.logger.Warn("device binary failed to build",
					zap.String("agent", agent.Name()),
					zap.String("isa", string(agent.ISA())),
					zap.Int("index", i),
					zap.Error(err))
				failures = append(failures, errors.BinaryFailure{
					Agent: agent.Name(),
					ISA:   string(agent.ISA()),
					Index: i,
					Err:   err,
				})
				continue
			}
			table[agent] = append(table[agent], exec)
		}
	}

	p.logger.Info("executable table built",
		zap.Int("agents", len(table)),
		zap.Int("failures", len(failures)))
	if len(failures) > 0 {
		return table, &errors.BuildError{Failures: failures}
	}
	return table, nil
}

// buildOne takes a single device binary through the full pipeline for one
// agent: create, bind globals, load, validate, freeze. On any failure the
// executable handle is released before returning.
func (p *Program) buildOne(agent hsa.Agent, blob []byte, hosts *hostsym.Table) (exec hsa.Executable, err error) {
	exec, err = p.loader.NewExecutable(hsa.ProfileFull, hsa.RoundingDefault)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			exec.Close()
			exec = nil
		}
	}()

	if err = p.bindGlobals(agent, exec, blob, hosts); err != nil {
		return nil, err
	}

	reader, err := p.loader.NewCodeReader(blob)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	if err = exec.LoadCode(agent, reader); err != nil {
		return nil, err
	}
	count, err := exec.Validate()
	if err != nil {
		return nil, err
	}
	if count != 0 {
		return nil, errors.Validation(count)
	}
	if err = exec.Freeze(); err != nil {
		return nil, err
	}
	return exec, nil
}
