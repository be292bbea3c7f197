// Package bundle parses the offload-bundle container format.
//
// A bundle is a tagged sequence of (target-triple, device-binary) pairs the
// offload compiler embeds inside a well-known ELF section of host binaries.
// Several bundles may sit back-to-back in one section; each starts with the
// magic string and declares the byte range of every blob it carries.
//
// Parse one bundle:
//
//	h, err := bundle.Parse(section)
//	for _, e := range h.Entries {
//	    fmt.Println(e.Triple, len(e.Blob))
//	}
//
// Walk a whole section:
//
//	for _, h := range bundle.ParseAll(section) {
//	    ...
//	}
//
// Parse failures on a walk are not errors in themselves: a bad magic or a
// truncated remainder simply ends the stream, mirroring how the runtime
// treats trailing padding in the section.
package bundle
