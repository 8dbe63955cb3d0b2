package libgl

import (
	"github.com/go-gl/gl/v4.5-core/gl"
)

// StateManager caches the GL state the device touches and skips redundant calls.
// It assumes nothing else changes that state behind its back.
type StateManager struct {
	blendEnabled       bool
	blendSrc, blendDst uint32
	scissorEnabled     bool
	scissor            [4]int
	drawFramebuffer    uint32
	readFramebuffer    uint32
	pipeline           uint32
	vertexArray        uint32
	viewport           [4]int
	textureUnits       []uint32
	samplerUnits       []uint32
	imageUnits         []uint32
}

func NewStateManager() *StateManager {
	var textureUnits, imageUnits int32
	gl.GetIntegerv(gl.MAX_COMBINED_TEXTURE_IMAGE_UNITS, &textureUnits)
	gl.GetIntegerv(gl.MAX_IMAGE_UNITS, &imageUnits)
	return &StateManager{
		blendSrc:     gl.ONE,
		blendDst:     gl.ZERO,
		textureUnits: make([]uint32, textureUnits),
		samplerUnits: make([]uint32, textureUnits),
		imageUnits:   make([]uint32, imageUnits),
	}
}

func (s *StateManager) SetBlend(enabled bool) {
	if s.blendEnabled == enabled {
		return
	}
	if enabled {
		gl.Enable(gl.BLEND)
	} else {
		gl.Disable(gl.BLEND)
	}
	s.blendEnabled = enabled
}

func (s *StateManager) BlendFunc(src, dst uint32) {
	if s.blendSrc == src && s.blendDst == dst {
		return
	}
	gl.BlendFunc(src, dst)
	s.blendSrc = src
	s.blendDst = dst
}

func (s *StateManager) SetScissorTest(enabled bool) {
	if s.scissorEnabled == enabled {
		return
	}
	if enabled {
		gl.Enable(gl.SCISSOR_TEST)
	} else {
		gl.Disable(gl.SCISSOR_TEST)
	}
	s.scissorEnabled = enabled
}

func (s *StateManager) Scissor(x, y, w, h int) {
	if s.scissor == [4]int{x, y, w, h} {
		return
	}
	gl.Scissor(int32(x), int32(y), int32(w), int32(h))
	s.scissor = [4]int{x, y, w, h}
}

func (s *StateManager) BindDrawFramebuffer(framebuffer uint32) {
	if s.drawFramebuffer == framebuffer {
		return
	}
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, framebuffer)
	s.drawFramebuffer = framebuffer
}

func (s *StateManager) BindReadFramebuffer(framebuffer uint32) {
	if s.readFramebuffer == framebuffer {
		return
	}
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, framebuffer)
	s.readFramebuffer = framebuffer
}

func (s *StateManager) BindProgramPipeline(pipeline uint32) {
	if s.pipeline == pipeline {
		return
	}
	gl.BindProgramPipeline(pipeline)
	s.pipeline = pipeline
}

func (s *StateManager) BindVertexArray(array uint32) {
	if s.vertexArray == array {
		return
	}
	gl.BindVertexArray(array)
	s.vertexArray = array
}

func (s *StateManager) Viewport(x, y, w, h int) {
	if s.viewport == [4]int{x, y, w, h} {
		return
	}
	gl.Viewport(int32(x), int32(y), int32(w), int32(h))
	s.viewport = [4]int{x, y, w, h}
}

func (s *StateManager) BindTextureUnit(unit int, texture uint32) {
	if s.textureUnits[unit] == texture {
		return
	}
	gl.BindTextureUnit(uint32(unit), texture)
	s.textureUnits[unit] = texture
}

func (s *StateManager) BindSampler(unit int, sampler uint32) {
	if s.samplerUnits[unit] == sampler {
		return
	}
	gl.BindSampler(uint32(unit), sampler)
	s.samplerUnits[unit] = sampler
}

// BindImageTexture binds level 0 of texture for read and write access.
func (s *StateManager) BindImageTexture(unit int, texture uint32, internalFormat uint32) {
	if s.imageUnits[unit] == texture {
		return
	}
	gl.BindImageTexture(uint32(unit), texture, 0, false, 0, gl.READ_WRITE, internalFormat)
	s.imageUnits[unit] = texture
}

// Forget drops every cached binding of texture, used when it is deleted since GL may reuse the name.
func (s *StateManager) Forget(texture uint32) {
	for i, t := range s.textureUnits {
		if t == texture {
			s.textureUnits[i] = 0
		}
	}
	for i, t := range s.imageUnits {
		if t == texture {
			s.imageUnits[i] = 0
		}
	}
}

// Units reports how many texture and image units are available.
func (s *StateManager) Units() (textures, images int) {
	return len(s.textureUnits), len(s.imageUnits)
}
