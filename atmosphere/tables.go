package atmosphere

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"postfx-gl/libio"
)

const (
	DensityFile  = "particle-density.f32"
	SunColorFile = "sun-color.f32"
	AmbientFile  = "ambient.f32"
)

// Tables holds the lookup tables on the CPU, as exported or baked.
type Tables struct {
	Density  *libio.FloatImage
	SunColor *libio.FloatImage
	Ambient  *libio.FloatImage
}

func (t *Tables) files() []struct {
	name string
	img  **libio.FloatImage
} {
	return []struct {
		name string
		img  **libio.FloatImage
	}{
		{DensityFile, &t.Density},
		{SunColorFile, &t.SunColor},
		{AmbientFile, &t.Ambient},
	}
}

// Save writes every table into dir, which is created if needed.
func (t *Tables) Save(dir string, compression libio.FloatImageCompression) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, f := range t.files() {
		if *f.img == nil {
			return fmt.Errorf("save %s: table missing", f.name)
		}
		if err := saveImage(filepath.Join(dir, f.name), *f.img, compression); err != nil {
			return err
		}
	}
	return nil
}

func saveImage(name string, img *libio.FloatImage, compression libio.FloatImageCompression) (err error) {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(file)
	if err := libio.EncodeFloatImage(w, img, compression); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return w.Flush()
}

// LoadTables reads tables written by Save.
func LoadTables(dir string) (*Tables, error) {
	t := &Tables{}
	for _, f := range t.files() {
		img, err := loadImage(filepath.Join(dir, f.name))
		if err != nil {
			return nil, err
		}
		*f.img = img
	}
	return t, nil
}

func loadImage(name string) (*libio.FloatImage, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, err := libio.DecodeFloatImage(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return img, nil
}
