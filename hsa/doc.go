// Package hsa defines the native loader and agent boundary the runtime
// builds executables against.
//
// The real implementation of these interfaces is the platform's HSA core
// runtime reached over cgo; this package deliberately contains no cgo so
// the pipeline can be exercised against any conforming implementation,
// including the in-memory fake in hsa/hsatest.
//
// The interfaces mirror the native call surface one to one:
//
//	Loader.NewExecutable     hsa_executable_create_alt
//	Loader.NewCodeReader     hsa_code_object_reader_create_from_memory
//	Loader.LockMemory        hsa_amd_memory_lock
//	Executable.LoadCode      hsa_executable_load_agent_code_object
//	Executable.DefineGlobal  hsa_executable_agent_global_variable_define
//	Executable.Validate      hsa_executable_validate_alt
//	Executable.Freeze        hsa_executable_freeze
//	Executable.Symbols       hsa_executable_iterate_agent_symbols
//	Close methods            the matching *_destroy calls
//
// Handle discipline is the caller's: every Executable and CodeReader must
// be closed exactly once, on success and failure paths alike.
package hsa
