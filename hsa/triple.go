package hsa

import "strings"

// Offload kinds whose entries this runtime can load. Anything else in the
// bundle (host fallbacks, foreign targets) maps to the empty ISA and is
// filtered out by the code-object table builder.
var offloadKinds = map[string]bool{
	"hip": true,
	"hcc": true,
}

// ParseTriple derives the architecture key from a bundle entry's target
// triple, e.g. "hip-amdgcn-amd-amdhsa--gfx906" -> "amdgcn-amd-amdhsa--gfx906".
//
// The offload-kind prefix is normalized away, so hip- and hcc- triples for
// the same target share one key. Unrecognized kinds and non-amdgcn targets
// return the empty ISA.
func ParseTriple(triple string) ISA {
	kind, rest, ok := strings.Cut(triple, "-")
	if !ok || !offloadKinds[kind] {
		return ""
	}
	if !strings.HasPrefix(rest, "amdgcn-") {
		return ""
	}
	return ISA(rest)
}
