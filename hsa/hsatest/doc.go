// Package hsatest provides an in-memory hsa.Loader and agent fixtures for
// testing the pipeline without a native HSA runtime.
//
// The fake loader honors the boundary contracts the pipeline relies on:
// freeze is terminal, handles fail on double release, the same host address
// locks to the same device pointer, and loaded blobs are real ELF objects
// whose defined function symbols surface as kernel symbols. Failures of any
// native operation can be scripted by name:
//
//	loader := hsatest.NewLoader()
//	loader.SetFailure(hsatest.OpFreeze, 0x1001)
//
// Counters (ExecutablesCreated, LockCount, OpenHandles) let tests assert
// exactly-once construction and release discipline.
package hsatest
