package program

import "go.uber.org/zap"

// Kernels returns the per-agent table of kernel entry points, building it
// on first use. If some device binaries failed to build, the table covers
// the executables that succeeded and the cached build error is returned
// alongside it; callers that can run with a partial kernel set may inspect
// it with errors.As against *errors.BuildError.
func (p *Program) Kernels() (KernelTable, error) {
	p.kernOnce.Do(func() {
		p.kernVal, p.kernErr = p.buildKernels()
	})
	return p.kernVal, p.kernErr
}

func (p *Program) buildKernels() (KernelTable, error) {
	execs, buildErr := p.Executables()
	if execs == nil {
		return nil, buildErr
	}

	table := make(KernelTable)
	var kernels int
	for agent, list := range execs {
		for _, exec := range list {
			syms, err := exec.Symbols(agent)
			if err != nil {
				return nil, err
			}
			for _, s := range syms {
				if !s.IsKernel() {
					continue
				}
				table[agent] = append(table[agent], s)
				kernels++
			}
		}
	}
	p.logger.Debug("kernel table built", zap.Int("kernels", kernels))
	return table, buildErr
}
