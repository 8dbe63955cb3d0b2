package libgl_test

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"postfx-gl/libgl"

	"github.com/go-gl/gl/v4.5-core/gl"
)

const testShader = `#version 450 core
//meta:name Bloom Prefilter
#define SAMPLES 4
//#define BLOOM_HQ
#define _USE_ALPHA

void main() {}
`

func TestExpand(t *testing.T) {
	src, err := libgl.ParseSource("prefilter", testShader, gl.FRAGMENT_SHADER)
	if err != nil {
		t.Fatal(err)
	}
	if src.Name != "Bloom Prefilter" {
		t.Errorf("name = %q", src.Name)
	}

	tests := []struct {
		defs     map[string]string
		contains []string
		excludes []string
	}{
		{
			defs:     nil,
			contains: []string{"#define SAMPLES 4", "// #define BLOOM_HQ", "#define _USE_ALPHA"},
		},
		{
			defs:     map[string]string{"bloom_hq": "true", "_USE_ALPHA": "false"},
			contains: []string{"\n#define BLOOM_HQ", "// #define _USE_ALPHA"},
			excludes: []string{"// #define BLOOM_HQ"},
		},
		{
			defs:     map[string]string{"SAMPLES": "9"},
			contains: []string{"#define SAMPLES 9"},
			excludes: []string{"#define SAMPLES 4"},
		},
		{
			defs:     map[string]string{"TONEMAP_ACES": "true", "DITHER": "true"},
			contains: []string{"#version 450 core\n#define DITHER true\n#define TONEMAP_ACES true\n"},
		},
	}

	for i, test := range tests {
		out := src.Expand(test.defs)
		if strings.Contains(out, "$def_") {
			t.Errorf("[spec %d] unreplaced marker in\n%s", i, out)
		}
		for _, s := range test.contains {
			if !strings.Contains(out, s) {
				t.Errorf("[spec %d] expected %q in\n%s", i, s, out)
			}
		}
		for _, s := range test.excludes {
			if strings.Contains(out, s) {
				t.Errorf("[spec %d] did not expect %q in\n%s", i, s, out)
			}
		}
	}
}

func TestUses(t *testing.T) {
	src, err := libgl.ParseSource("prefilter", testShader+"#ifdef DITHER\n#endif\n", gl.FRAGMENT_SHADER)
	if err != nil {
		t.Fatal(err)
	}
	for kw, want := range map[string]bool{"bloom_hq": true, "DITHER": true, "FXAA": false} {
		if got := src.Uses(kw); got != want {
			t.Errorf("Uses(%q) = %v, want %v", kw, got, want)
		}
	}
}

func TestMissingVersion(t *testing.T) {
	if _, err := libgl.ParseSource("broken", "void main() {}", gl.FRAGMENT_SHADER); err == nil {
		t.Error("expected an error for a source without #version")
	}
}

func TestLoadLibrary(t *testing.T) {
	fsys := fstest.MapFS{
		"postfx/00_blit.frag":       {Data: []byte("#version 450\n")},
		"postfx/02_final.frag":      {Data: []byte("#version 450\n")},
		"postfx/01_resolve.comp":    {Data: []byte("#version 450\n")},
		"postfx/README.md":          {Data: []byte("shaders")},
		"postfx/common/noise.glsl":  {Data: []byte("")},
		"duplicate/00_a.frag":       {Data: []byte("#version 450\n")},
		"duplicate/00_b.frag":       {Data: []byte("#version 450\n")},
		"broken/00_no_version.frag": {Data: []byte("void main() {}")},
		"empty/notes.txt":           {Data: []byte("")},
	}

	lib, err := libgl.LoadLibraryFS(fsys, "postfx")
	if err != nil {
		t.Fatal(err)
	}
	if got := lib.Indices(); len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("indices = %v", got)
	}
	if src := lib.Sources[1]; src.Name != "resolve" || src.Stage != gl.COMPUTE_SHADER {
		t.Errorf("source 1 = %s stage 0x%X", src.Name, src.Stage)
	}
	if src := lib.Sources[2]; src.Name != "final" || src.Stage != gl.FRAGMENT_SHADER {
		t.Errorf("source 2 = %s stage 0x%X", src.Name, src.Stage)
	}

	for _, name := range []string{"duplicate", "broken", "empty"} {
		if _, err := libgl.LoadLibraryFS(fsys, name); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
	if _, err := libgl.LoadLibraryFS(fsys, "missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing: got %v, want fs.ErrNotExist", err)
	}
}
