package libgl

import (
	"fmt"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// Pipeline pairs a vertex and a fragment program for drawing outside the Device, like an
// overlay on the default framebuffer.
type Pipeline struct {
	glId     uint32
	vertex   *program
	fragment *program
}

func NewPipeline(name, vertexSource, fragmentSource string) (*Pipeline, error) {
	vertex, err := compileProgram(name+"/vertex", vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return nil, err
	}
	fragment, err := compileProgram(name+"/fragment", fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		vertex.delete()
		return nil, err
	}

	p := &Pipeline{vertex: vertex, fragment: fragment}
	gl.CreateProgramPipelines(1, &p.glId)
	gl.UseProgramStages(p.glId, gl.VERTEX_SHADER_BIT, vertex.glId)
	gl.UseProgramStages(p.glId, gl.FRAGMENT_SHADER_BIT, fragment.glId)
	setObjectLabel(gl.PROGRAM_PIPELINE, p.glId, name)
	return p, nil
}

func (p *Pipeline) Bind(state *StateManager) {
	state.BindProgramPipeline(p.glId)
}

// SetMatrix sets a mat4 uniform of the given stage, gl.VERTEX_SHADER or gl.FRAGMENT_SHADER.
func (p *Pipeline) SetMatrix(stage uint32, name string, m mgl32.Mat4) error {
	prog := p.fragment
	if stage == gl.VERTEX_SHADER {
		prog = p.vertex
	}
	u, ok := prog.uniforms[name]
	if !ok {
		return fmt.Errorf("uniform %s not found in %s", name, prog.name)
	}
	gl.ProgramUniformMatrix4fv(prog.glId, u.location, 1, false, &m[0])
	return nil
}

func (p *Pipeline) Delete() {
	gl.DeleteProgramPipelines(1, &p.glId)
	p.vertex.delete()
	p.fragment.delete()
}
