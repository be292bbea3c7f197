package hsa

import "testing"

func TestParseTriple(t *testing.T) {
	tests := []struct {
		triple string
		want   ISA
	}{
		{"hip-amdgcn-amd-amdhsa--gfx906", "amdgcn-amd-amdhsa--gfx906"},
		{"hcc-amdgcn-amd-amdhsa--gfx906", "amdgcn-amd-amdhsa--gfx906"},
		{"hip-amdgcn-amd-amdhsa--gfx90a:xnack+", "amdgcn-amd-amdhsa--gfx90a:xnack+"},
		{"host-x86_64-unknown-linux-gnu", ""},
		{"openmp-nvptx64-nvidia-cuda", ""},
		{"hip-x86_64-unknown-linux-gnu", ""},
		{"hip", ""},
		{"", ""},
		{"amdgcn-amd-amdhsa--gfx906", ""}, // no offload kind prefix
	}

	for _, tt := range tests {
		if got := ParseTriple(tt.triple); got != tt.want {
			t.Errorf("ParseTriple(%q) = %q, want %q", tt.triple, got, tt.want)
		}
	}
}

func TestParseTripleSharedKey(t *testing.T) {
	a := ParseTriple("hip-amdgcn-amd-amdhsa--gfx906")
	b := ParseTriple("hcc-amdgcn-amd-amdhsa--gfx906")
	if a == "" || a != b {
		t.Errorf("hip and hcc triples should share a key: %q vs %q", a, b)
	}
}
