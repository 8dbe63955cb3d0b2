package libgl

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strconv"

	"github.com/go-gl/gl/v4.5-core/gl"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var libraryFilePattern = regexp.MustCompile(`^(\d+)_(\w+)\.(frag|comp)$`)

// Library holds the sources of one program library, indexed like libgpu.Program.Index.
// Files are named `NN_name.frag` for passes and `NN_name.comp` for kernels.
type Library struct {
	Name    string
	Sources map[int]*Source
}

func LoadLibrary(dir, name string) (*Library, error) {
	return LoadLibraryFS(os.DirFS(dir), name)
}

// LoadLibraryFS reads the library from the directory name inside fsys.
func LoadLibraryFS(fsys fs.FS, name string) (*Library, error) {
	entries, err := fs.ReadDir(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("library %s: %w", name, err)
	}

	lib := &Library{Name: name, Sources: map[int]*Source{}}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := libraryFilePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		index, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, fmt.Errorf("library %s: %s: %w", name, entry.Name(), err)
		}
		if prev, ok := lib.Sources[index]; ok {
			return nil, fmt.Errorf("library %s: index %d used by %s and %s", name, index, prev.Name, match[2])
		}

		text, err := fs.ReadFile(fsys, path.Join(name, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("library %s: %w", name, err)
		}
		stage := uint32(gl.FRAGMENT_SHADER)
		if match[3] == "comp" {
			stage = gl.COMPUTE_SHADER
		}
		src, err := ParseSource(match[2], string(text), stage)
		if err != nil {
			return nil, fmt.Errorf("library %s: %w", name, err)
		}
		lib.Sources[index] = src
	}

	if len(lib.Sources) == 0 {
		return nil, fmt.Errorf("library %s: no shader sources", name)
	}
	return lib, nil
}

// Indices returns the program indices in ascending order.
func (lib *Library) Indices() []int {
	indices := maps.Keys(lib.Sources)
	slices.Sort(indices)
	return indices
}
