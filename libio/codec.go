package libio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/chewxy/math32"
	"github.com/pierrec/lz4/v4"
)

// EncodeFloatImage writes img as a header followed by the raw or compressed pixels.
func EncodeFloatImage(w io.Writer, img *FloatImage, compression FloatImageCompression) error {
	if len(img.Pix) != img.Count()*img.Channels {
		return fmt.Errorf("f32 image has %d values, expected %d", len(img.Pix), img.Count()*img.Channels)
	}

	var payload []byte
	switch compression {
	case FloatImageCompressionNone:
		buf := bytes.NewBuffer(make([]byte, 0, img.Bytes()))
		sw := &stickyWriter{w: buf}
		sw.put(img.Pix)
		if sw.err != nil {
			return fmt.Errorf("could not encode f32 pixels: %w", sw.err)
		}
		payload = buf.Bytes()
	case FloatImageCompressionFixedPoint16Lz4:
		var err error
		if payload, err = packFixedPoint16(img); err != nil {
			return fmt.Errorf("could not compress f32 pixels: %w", err)
		}
	default:
		return fmt.Errorf("unsupported compression %v", compression)
	}

	sw := &stickyWriter{w: w}
	sw.put(FloatImageHeader{
		Check:       MagicNumberF32,
		Version:     F32Version1_001_000,
		Width:       uint32(img.Width),
		Height:      uint32(img.Height),
		Channels:    uint8(img.Channels),
		Compression: compression,
	})
	sw.put(payload)
	if sw.err != nil {
		return fmt.Errorf("could not write f32 image: %w", sw.err)
	}
	return nil
}

// packFixedPoint16 stores every channel as its float range followed by the values quantized
// to 16 bits within that range, then lz4 compresses the result.
func packFixedPoint16(img *FloatImage) ([]byte, error) {
	count := img.Count()
	raw := bytes.NewBuffer(make([]byte, 0, img.Channels*(8+2*count)))
	sw := &stickyWriter{w: raw}
	fix := make([]uint16, count)
	for ch := 0; ch < img.Channels; ch++ {
		lo, hi := math32.Inf(1), math32.Inf(-1)
		for i := 0; i < count; i++ {
			v := img.Pix[i*img.Channels+ch]
			lo = math32.Min(lo, v)
			hi = math32.Max(hi, v)
		}
		span := hi - lo
		for i := range fix {
			fix[i] = 0
			if span > 0 {
				fix[i] = uint16(math32.Round((img.Pix[i*img.Channels+ch] - lo) / span * 0xffff))
			}
		}
		sw.put([2]float32{lo, hi})
		sw.put(fix)
	}
	if sw.err != nil {
		return nil, sw.err
	}

	out := bytes.NewBuffer(nil)
	lzw := lz4.NewWriter(out)
	if err := lzw.Apply(lz4.CompressionLevelOption(lz4.Fast)); err != nil {
		return nil, err
	}
	if _, err := lzw.Write(raw.Bytes()); err != nil {
		return nil, err
	}
	if err := lzw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func DecodeFloatImage(r io.Reader) (*FloatImage, error) {
	sr := &stickyReader{r: r}
	var header FloatImageHeader
	if !sr.get(&header) {
		return nil, fmt.Errorf("expected f32 header; byte 0x%08x: %w", sr.last, sr.err)
	}
	if header.Check != MagicNumberF32 {
		return nil, fmt.Errorf("f32 header is corrupt; byte 0x%08x", sr.last)
	}
	if header.Version != F32Version1_001_000 {
		return nil, fmt.Errorf("f32 version %d unsupported; byte 0x%08x", header.Version, sr.last)
	}

	channels := int(header.Channels)
	count := int(header.Width * header.Height)
	var pix []float32
	switch header.Compression {
	case FloatImageCompressionNone:
		pix = make([]float32, count*channels)
		if !sr.get(pix) {
			return nil, fmt.Errorf("could not read f32 pixels; byte 0x%08x: %w", sr.last, sr.err)
		}
	case FloatImageCompressionFixedPoint16Lz4:
		raw := make([]byte, channels*(8+2*count))
		if _, err := io.ReadFull(lz4.NewReader(r), raw); err != nil {
			return nil, fmt.Errorf("could not decompress f32 pixels: %w", err)
		}
		var err error
		if pix, err = unpackFixedPoint16(channels, count, raw); err != nil {
			return nil, fmt.Errorf("could not decompress f32 pixels: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported compression %v", header.Compression)
	}

	return NewFloatImage(pix, channels, int(header.Width), int(header.Height)), nil
}

func unpackFixedPoint16(channels, count int, raw []byte) ([]float32, error) {
	pix := make([]float32, count*channels)
	sr := &stickyReader{r: bytes.NewReader(raw)}
	fix := make([]uint16, count)
	for ch := 0; ch < channels; ch++ {
		var bounds [2]float32
		sr.get(&bounds)
		if !sr.get(fix) {
			return nil, sr.err
		}
		lo, span := bounds[0], bounds[1]-bounds[0]
		for i, v := range fix {
			pix[i*channels+ch] = float32(v)/0xffff*span + lo
		}
	}
	return pix, nil
}
