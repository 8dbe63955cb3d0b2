package libgl

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.5-core/gl"
)

var ErrFramebufferIncomplete = errors.New("libgl: framebuffer incomplete")

// framebuffer is the one draw framebuffer every pass renders through. The color attachment is
// swapped per draw.
type framebuffer struct {
	glId     uint32
	attached uint32
}

func newFramebuffer() *framebuffer {
	var id uint32
	gl.CreateFramebuffers(1, &id)
	setObjectLabel(gl.FRAMEBUFFER, id, "postfx")
	return &framebuffer{glId: id}
}

func (fb *framebuffer) attach(tex *texture) error {
	if fb.attached == tex.glId {
		return nil
	}
	gl.NamedFramebufferTexture(fb.glId, gl.COLOR_ATTACHMENT0, tex.glId, 0)
	fb.attached = tex.glId
	return fb.check(gl.DRAW_FRAMEBUFFER)
}

// detach drops tex if it is attached, the texture is about to be deleted.
func (fb *framebuffer) detach(tex *texture) {
	if fb.attached != tex.glId {
		return
	}
	gl.NamedFramebufferTexture(fb.glId, gl.COLOR_ATTACHMENT0, 0, 0)
	fb.attached = 0
}

func (fb *framebuffer) check(target uint32) error {
	status := gl.CheckNamedFramebufferStatus(fb.glId, target)
	var reason string
	switch status {
	case gl.FRAMEBUFFER_COMPLETE:
		return nil
	case gl.FRAMEBUFFER_INCOMPLETE_ATTACHMENT:
		reason = "an attachment is framebuffer incomplete"
	case gl.FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT:
		reason = "no attachments"
	case gl.FRAMEBUFFER_INCOMPLETE_DRAW_BUFFER:
		reason = "the object type of a draw attachment is none"
	case gl.FRAMEBUFFER_UNSUPPORTED:
		reason = "the attachment format is not renderable"
	default:
		reason = fmt.Sprintf("status 0x%X", status)
	}
	return fmt.Errorf("%w: %s", ErrFramebufferIncomplete, reason)
}

func (fb *framebuffer) delete() {
	gl.DeleteFramebuffers(1, &fb.glId)
	fb.glId = 0
}
