package libgpu

import (
	"fmt"
	"strings"
)

// SurfaceId names a logical surface slot. Ids are stable across frames.
type SurfaceId int32

// CameraTarget is the frame's output target. It is never requested or released.
const CameraTarget SurfaceId = -1

type Format uint8

const (
	FormatDefault Format = iota
	FormatDefaultHDR
	FormatRGFloat
	FormatRGBAHalf
)

func (f Format) String() string {
	switch f {
	case FormatDefault:
		return "Default"
	case FormatDefaultHDR:
		return "DefaultHDR"
	case FormatRGFloat:
		return "RGFloat"
	case FormatRGBAHalf:
		return "RGBAHalf"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// Channels is the number of float values per pixel for Upload and ReadPixels.
func (f Format) Channels() int {
	if f == FormatRGFloat {
		return 2
	}
	return 4
}

type FilterMode uint8

const (
	FilterPoint FilterMode = iota
	FilterBilinear
)

func (f FilterMode) String() string {
	if f == FilterBilinear {
		return "Bilinear"
	}
	return "Point"
}

type SurfaceDesc struct {
	Width, Height int
	Format        Format
	Filter        FilterMode
	// RandomWrite surfaces can be bound as storage images by compute kernels.
	RandomWrite bool
	Label       string
}

// Values returns how many floats Upload and ReadPixels move for this surface.
func (d SurfaceDesc) Values() int {
	return d.Width * d.Height * d.Format.Channels()
}

func (d SurfaceDesc) String() string {
	rw := ""
	if d.RandomWrite {
		rw = " rw"
	}
	return fmt.Sprintf("%dx%d %v %v%s", d.Width, d.Height, d.Format, d.Filter, rw)
}

type Size struct {
	Width, Height int
}

func (s Size) Half() Size {
	return Size{s.Width / 2, s.Height / 2}
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

type Rect struct {
	X, Y, Width, Height int
}

func (r Rect) Size() Size {
	return Size{r.Width, r.Height}
}

// Empty reports whether r has no area. An empty Target viewport means the whole target,
// an empty camera pixel rect is invalid.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

type BlendFactor uint8

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcColor
	BlendOneMinusSrcColor
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstColor
	BlendOneMinusDstColor
	BlendDstAlpha
	BlendOneMinusDstAlpha
)

var blendFactorNames = []string{
	"zero", "one",
	"src-color", "one-minus-src-color",
	"src-alpha", "one-minus-src-alpha",
	"dst-color", "one-minus-dst-color",
	"dst-alpha", "one-minus-dst-alpha",
}

func (f BlendFactor) String() string {
	if int(f) < len(blendFactorNames) {
		return blendFactorNames[f]
	}
	return fmt.Sprintf("BlendFactor(%d)", uint8(f))
}

func (f BlendFactor) MarshalText() ([]byte, error) {
	if int(f) >= len(blendFactorNames) {
		return nil, fmt.Errorf("invalid blend factor %d", uint8(f))
	}
	return []byte(blendFactorNames[f]), nil
}

func (f *BlendFactor) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for i, n := range blendFactorNames {
		if n == name {
			*f = BlendFactor(i)
			return nil
		}
	}
	return fmt.Errorf("unknown blend factor %q", text)
}

type BlendMode struct {
	Source      BlendFactor `json:"source"`
	Destination BlendFactor `json:"destination"`
}

var BlendOpaque = BlendMode{Source: BlendOne, Destination: BlendZero}

func (b BlendMode) String() string {
	return b.Source.String() + "/" + b.Destination.String()
}

type LoadAction uint8

const (
	LoadDontCare LoadAction = iota
	LoadLoad
	LoadClear
)

func (l LoadAction) String() string {
	switch l {
	case LoadLoad:
		return "load"
	case LoadClear:
		return "clear"
	}
	return "dont-care"
}

// Target describes where a draw writes.
type Target struct {
	Surface  SurfaceId
	Load     LoadAction
	Viewport Rect
	Blend    BlendMode
}

// Program identifies one GPU program, either a fragment pass or a compute kernel,
// by its library and index within it. Name is informational.
type Program struct {
	Library string
	Index   int
	Name    string
}

func (p Program) String() string {
	if p.Name != "" {
		return p.Library + "/" + p.Name
	}
	return fmt.Sprintf("%s/%d", p.Library, p.Index)
}

// Binding is a uniform slot handed out by Device.Declare.
type Binding int32
