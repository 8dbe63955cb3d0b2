package libgl

import (
	"fmt"

	"postfx-gl/libgpu"

	"github.com/go-gl/gl/v4.5-core/gl"
)

type formatInfo struct {
	internal uint32
	// pixel transfer format for float data
	transfer uint32
}

var formats = map[libgpu.Format]formatInfo{
	libgpu.FormatDefault:    {gl.RGBA8, gl.RGBA},
	libgpu.FormatDefaultHDR: {gl.RGBA16F, gl.RGBA},
	libgpu.FormatRGFloat:    {gl.RG32F, gl.RG},
	libgpu.FormatRGBAHalf:   {gl.RGBA16F, gl.RGBA},
}

type texture struct {
	glId uint32
	desc libgpu.SurfaceDesc
	info formatInfo
}

func newTexture(desc libgpu.SurfaceDesc) (*texture, error) {
	info, ok := formats[desc.Format]
	if !ok {
		return nil, fmt.Errorf("unsupported surface format %v", desc.Format)
	}
	var id uint32
	gl.CreateTextures(gl.TEXTURE_2D, 1, &id)
	gl.TextureStorage2D(id, 1, info.internal, int32(desc.Width), int32(desc.Height))
	if desc.Label != "" {
		setObjectLabel(gl.TEXTURE, id, desc.Label)
	}
	return &texture{glId: id, desc: desc, info: info}, nil
}

func (tex *texture) upload(pix []float32) {
	gl.TextureSubImage2D(tex.glId, 0, 0, 0, int32(tex.desc.Width), int32(tex.desc.Height), tex.info.transfer, gl.FLOAT, Pointer(pix))
}

func (tex *texture) read(dst []float32) {
	gl.GetTextureImage(tex.glId, 0, tex.info.transfer, gl.FLOAT, int32(len(dst)*4), Pointer(dst))
}

func (tex *texture) delete() {
	gl.DeleteTextures(1, &tex.glId)
	tex.glId = 0
}

// samplers holds one clamped sampler per filter mode.
type samplers [2]uint32

func newSamplers() samplers {
	var s samplers
	gl.CreateSamplers(int32(len(s)), &s[0])
	for mode, id := range s {
		filter := int32(gl.NEAREST)
		if libgpu.FilterMode(mode) == libgpu.FilterBilinear {
			filter = gl.LINEAR
		}
		gl.SamplerParameteri(id, gl.TEXTURE_MIN_FILTER, filter)
		gl.SamplerParameteri(id, gl.TEXTURE_MAG_FILTER, filter)
		gl.SamplerParameteri(id, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.SamplerParameteri(id, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	}
	return s
}

func (s samplers) get(mode libgpu.FilterMode) uint32 {
	if int(mode) < len(s) {
		return s[mode]
	}
	return s[libgpu.FilterPoint]
}

func (s *samplers) delete() {
	gl.DeleteSamplers(int32(len(s)), &s[0])
}
