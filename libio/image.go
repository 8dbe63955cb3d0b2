package libio

import (
	"fmt"
	"unsafe"

	"github.com/chewxy/math32"
)

const MagicNumberF32 = 0x6d16837d

type FloatImageVersion uint32

const (
	F32Version1_001_000 = FloatImageVersion(1_001_000)
)

type FloatImageCompression uint32

const (
	FloatImageCompressionNone = FloatImageCompression(iota)
	FloatImageCompressionFixedPoint16Lz4
)

func (c FloatImageCompression) String() string {
	switch c {
	case FloatImageCompressionNone:
		return "none"
	case FloatImageCompressionFixedPoint16Lz4:
		return "fp16lz4"
	}
	return fmt.Sprintf("FloatImageCompression(%d)", uint32(c))
}

func ParseFloatImageCompression(s string) (FloatImageCompression, error) {
	switch s {
	case "none", "":
		return FloatImageCompressionNone, nil
	case "fp16lz4", "lz4":
		return FloatImageCompressionFixedPoint16Lz4, nil
	}
	return 0, fmt.Errorf("unknown f32 compression %q", s)
}

type FloatImageHeader struct {
	Check         uint32
	Version       FloatImageVersion
	Width, Height uint32
	Channels      uint8
	Compression   FloatImageCompression
	Unused        [14]uint8
}

// FloatImage is a tightly packed float32 image.
//
// Note that the origin (0,0) is in the bottom left, as opposed to Go's top left origin
type FloatImage struct {
	Channels      int
	Width, Height int
	Pix           []float32
}

func NewFloatImage(pix []float32, channels int, width, height int) *FloatImage {
	if pix == nil {
		pix = make([]float32, channels*width*height)
	}
	return &FloatImage{
		Pix:      pix,
		Channels: channels,
		Width:    width,
		Height:   height,
	}
}

// Index returns the offset of the first channel of pixel (x, y).
func (img *FloatImage) Index(x, y int) int {
	return x*img.Channels + y*img.Channels*img.Width
}

func (img *FloatImage) Count() int {
	return img.Width * img.Height
}

func (img *FloatImage) Pointer() unsafe.Pointer {
	return unsafe.Pointer(&img.Pix[0])
}

func (img *FloatImage) Bytes() int {
	return img.Width * img.Height * img.Channels * 4
}

// At returns the pixel at (x, y) widened to four channels, with coordinates clamped to the image.
// Missing color channels are 0 and a missing alpha is 1.
func (img *FloatImage) At(x, y int) [4]float32 {
	x = clampInt(x, 0, img.Width-1)
	y = clampInt(y, 0, img.Height-1)
	res := [4]float32{0, 0, 0, 1}
	i := img.Index(x, y)
	for c := 0; c < img.Channels && c < 4; c++ {
		res[c] = img.Pix[i+c]
	}
	return res
}

func (img *FloatImage) Set(x, y int, px ...float32) {
	i := img.Index(x, y)
	for c := 0; c < img.Channels && c < len(px); c++ {
		img.Pix[i+c] = px[c]
	}
}

func (img *FloatImage) ToChannels(nr int, defaults ...float32) *FloatImage {
	dst := toChannels(img.Channels, nr, img.Count(), img.Pix, defaults...)

	return NewFloatImage(dst, nr, img.Width, img.Height)
}

func toChannels[P ~[]E, E any](srcCh, dstCh int, count int, pix P, defaults ...E) P {
	if srcCh == dstCh {
		return pix
	}

	if len(defaults) < dstCh {
		missing := dstCh - len(defaults)
		defaults = append(defaults, make([]E, missing)...)
	}

	dst := make([]E, count*dstCh)

	for i := 0; i < count; i++ {
		for c := 0; c < dstCh; c++ {
			if c < srcCh {
				dst[i*dstCh+c] = pix[i*srcCh+c]
			} else {
				dst[i*dstCh+c] = defaults[c]
			}
		}
	}

	return dst
}

// Resize returns a nearest neighbor resampled copy, or img itself if the size matches.
func (img *FloatImage) Resize(width, height int) *FloatImage {
	if img.Width == width && img.Height == height {
		return img
	}
	dst := NewFloatImage(nil, img.Channels, width, height)
	for y := 0; y < height; y++ {
		sy := (2*y + 1) * img.Height / (2 * height)
		for x := 0; x < width; x++ {
			sx := (2*x + 1) * img.Width / (2 * width)
			copy(dst.Pix[dst.Index(x, y):dst.Index(x, y)+img.Channels], img.Pix[img.Index(sx, sy):])
		}
	}
	return dst
}

// Gradient fills a test image with a horizontal hue ramp scaled by intensity.
func Gradient(width, height int, intensity float32) *FloatImage {
	img := NewFloatImage(nil, 4, width, height)
	for y := 0; y < height; y++ {
		v := float32(y) / math32.Max(float32(height-1), 1)
		for x := 0; x < width; x++ {
			u := float32(x) / math32.Max(float32(width-1), 1)
			r := math32.Abs(u*6-3) - 1
			g := 2 - math32.Abs(u*6-2)
			b := 2 - math32.Abs(u*6-4)
			img.Set(x, y, saturate(r)*v*intensity, saturate(g)*v*intensity, saturate(b)*v*intensity, 1)
		}
	}
	return img
}

func saturate(v float32) float32 {
	return math32.Min(math32.Max(v, 0), 1)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
