// Package hsaruntime provides device code-object discovery, linking, and
// executable materialization for an HSA-class heterogeneous-compute runtime.
//
// The library finds GPU kernel binaries embedded in the running process
// image and its loaded shared objects, resolves their host-side global
// variable references, and turns them into frozen, dispatch-ready device
// executables with an enumerable kernel symbol table.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	hsaruntime/          Root package with core device pointer and handle types
//	├── program/         High-level API: the Program pipeline and its cached tables
//	├── bundle/          Offload-bundle binary format parsing
//	├── image/           Loaded-module enumeration and device-code section extraction
//	├── hostsym/         Host global-variable symbol table across loaded modules
//	├── hsa/             Loader and agent boundary interfaces (native HSA surface)
//	├── errors/          Structured error types for debugging
//	└── cmd/koinfo/      CLI and TUI inspector for embedded device code
//
// # Quick Start
//
// Build the pipeline against the running process and enumerate kernels:
//
//	prog := program.New(loader, agents, image.NewProcessEnumerator())
//
//	kernels, err := prog.Kernels()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for agent, syms := range kernels {
//	    fmt.Println(agent.Name(), len(syms))
//	}
//
// # Pipeline
//
// The stages run lazily, in order, each cached after its first use:
//
//  1. Scan every loaded module for the device-code section.
//  2. Parse each section into offload bundles of (triple, blob) entries.
//  3. Group blobs by instruction-set architecture, dropping unknown triples.
//  4. For each agent and matching blob: resolve undefined globals against
//     the host symbol table, lock their host memory for device access, load
//     the code object, validate, and freeze the executable.
//  5. Collect kernel entry points from every frozen executable.
//
// # Thread Safety
//
// Program and all of its table accessors are safe for concurrent use. Each
// table is constructed exactly once; concurrent first callers block until
// the single construction finishes, and every later call observes the same
// completed table. Tables are never rebuilt: shared objects loaded after
// first access are not discovered.
package hsaruntime
