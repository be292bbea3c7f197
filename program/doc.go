// Package program turns the device code embedded in a process image into
// frozen, launchable GPU executables.
//
// A Program is an explicit service object: it is handed the pieces it
// needs (an hsa.Loader for the native runtime, an hsa.AgentSource for
// device discovery, an image.Enumerator for the process image) and owns
// every table the pipeline produces. Stages run lazily and exactly once:
//
//	sections   scan loaded modules for device-code sections, parse bundles
//	objects    group bundle entries by architecture key (CodeObjects)
//	hosts      index host global variables with load bias (HostSymbols)
//	execs      link, load, validate, freeze per agent (Executables)
//	kernels    enumerate kernel entry points (Kernels)
//
// Each stage caches its result and its error under a sync.Once, so a
// stage that fails stays failed and repeated calls are cheap. All methods
// are safe for concurrent use.
//
// A binary that cannot be built (an undefined host global, a loader
// rejection, validation findings) fails alone: Executables still returns
// every executable that froze, together with a *errors.BuildError naming
// the casualties.
package program
