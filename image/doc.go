// Package image enumerates the binary modules mapped into the current
// process and extracts the named ELF sections that carry embedded device
// code.
//
// The platform side is confined to the Enumerator interface; on Linux,
// ProcessEnumerator reads the main executable through its self-referential
// /proc/self/exe path and discovers shared objects and their load biases
// from /proc/self/maps. Tests and tooling use StaticEnumerator with
// in-memory images instead.
//
// Section contents are always copied out: the mapped section image of a
// live module is not assumed to stay stable behind the scanner's back.
package image
