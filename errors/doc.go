// Package errors provides structured error types for the hsa-runtime library.
//
// Errors are categorized by Phase (where in the pipeline the error occurred)
// and Kind (error category). The Error type includes rich context: the native
// boundary operation, the module or ISA involved, the offending symbol name,
// and a numeric loader status.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLoad, errors.KindLoaderFailure).
//		Op("hsa_executable_load_agent_code_object").
//		Module("gfx906").
//		Status(0x1000).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UndefinedSymbol("g_lookup_table")
//	err := errors.Loader(errors.PhaseFreeze, "hsa_executable_freeze", 0x1001)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
