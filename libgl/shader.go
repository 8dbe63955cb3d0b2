package libgl

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-gl/gl/v4.5-core/gl"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	shaderMetaPattern    = regexp.MustCompile(`(?m)^//meta:(\w+)(.+)$`)
	shaderDefinePattern  = regexp.MustCompile(`(?m)^\s*(//)?\s*#define (\w+) ?(.*)$`)
	shaderVersionPattern = regexp.MustCompile(`(?m)^\s*#version.+$`)
)

type define struct {
	marker  string
	name    string
	value   string
	boolean bool
}

// Source is a GLSL source with its #define lines turned into substitution markers.
// A commented out boolean define (`//#define NAME`) is off by default.
type Source struct {
	Name  string
	Stage uint32

	template   string
	defines    map[string]define
	versionEnd int
}

// ParseSource prepares text for Expand. The name is overridden by a `//meta:name` line.
func ParseSource(name, text string, stage uint32) (*Source, error) {
	for _, match := range shaderMetaPattern.FindAllStringSubmatch(text, -1) {
		if strings.EqualFold(match[1], "name") {
			name = strings.TrimSpace(match[2])
		}
	}

	defines := map[string]define{}
	markers := map[string]string{}
	for i, match := range shaderDefinePattern.FindAllStringSubmatch(text, -1) {
		value := strings.TrimSpace(match[3])
		boolean := value == ""
		if boolean && match[1] == "//" {
			value = "false"
		}
		marker := fmt.Sprintf("$def_%d$", i)
		defines[strings.ToLower(match[2])] = define{
			marker:  marker,
			name:    match[2],
			value:   value,
			boolean: boolean,
		}
		markers[match[0]] = marker
	}
	template := shaderDefinePattern.ReplaceAllStringFunc(text, func(s string) string {
		return markers[s]
	})

	version := shaderVersionPattern.FindStringIndex(template)
	if version == nil {
		return nil, fmt.Errorf("shader %s: missing #version", name)
	}

	return &Source{
		Name:       name,
		Stage:      stage,
		template:   template,
		defines:    defines,
		versionEnd: version[1],
	}, nil
}

// Uses reports whether the source declares or mentions keyword.
func (src *Source) Uses(keyword string) bool {
	if _, ok := src.defines[strings.ToLower(keyword)]; ok {
		return true
	}
	return strings.Contains(src.template, keyword)
}

func defineLine(d define, value string) string {
	if !d.boolean {
		return fmt.Sprintf("#define %s %s", d.name, value)
	}
	line := "#define " + d.name
	if value == "false" {
		return "// " + line
	}
	return line
}

// Expand produces the final source. defs override declared defines by name, case insensitive;
// undeclared ones are inserted after the #version line in name order.
func (src *Source) Expand(defs map[string]string) string {
	source := src.template
	var inserted []string

	names := maps.Keys(defs)
	slices.Sort(names)
	for _, n := range names {
		v := defs[n]
		if d, ok := src.defines[strings.ToLower(n)]; ok {
			source = strings.Replace(source, d.marker, defineLine(d, v), 1)
		} else {
			inserted = append(inserted, fmt.Sprintf("#define %s %s", n, v))
		}
	}
	for _, d := range src.defines {
		source = strings.Replace(source, d.marker, defineLine(d, d.value), 1)
	}

	if len(inserted) > 0 {
		end := src.versionEnd
		source = source[:end] + "\n" + strings.Join(inserted, "\n") + source[end:]
	}
	return source
}

type activeUniform struct {
	location int32
	glType   uint32
}

func (u activeUniform) isImage() bool {
	switch u.glType {
	case gl.IMAGE_2D, gl.INT_IMAGE_2D, gl.UNSIGNED_INT_IMAGE_2D:
		return true
	}
	return false
}

func (u activeUniform) isSampler() bool {
	switch u.glType {
	case gl.SAMPLER_2D, gl.INT_SAMPLER_2D, gl.UNSIGNED_INT_SAMPLER_2D:
		return true
	}
	return false
}

// program is one linked separable stage program.
type program struct {
	glId     uint32
	name     string
	uniforms map[string]activeUniform
	// uniform names in location order
	order []string
}

func compileProgram(name, source string, stage uint32) (*program, error) {
	cStrs, free := gl.Strs(source + "\x00")
	id := gl.CreateShaderProgramv(stage, 1, cStrs)
	free()

	var ok int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &ok)
	if ok == gl.FALSE {
		info := readProgramInfoLog(id)
		gl.DeleteProgram(id)
		return nil, fmt.Errorf("failed to link %s shader, log: %s", name, info)
	}
	setObjectLabel(gl.PROGRAM, id, name)

	prog := &program{glId: id, name: name, uniforms: map[string]activeUniform{}}
	prog.queryUniforms()
	return prog, nil
}

func (prog *program) queryUniforms() {
	var count, maxLength int32
	gl.GetProgramiv(prog.glId, gl.ACTIVE_UNIFORMS, &count)
	gl.GetProgramiv(prog.glId, gl.ACTIVE_UNIFORM_MAX_LENGTH, &maxLength)
	buf := make([]uint8, maxLength+1)

	for i := int32(0); i < count; i++ {
		var length, size int32
		var glType uint32
		gl.GetActiveUniform(prog.glId, uint32(i), int32(len(buf)), &length, &size, &glType, &buf[0])
		name := string(buf[:length])
		location := gl.GetUniformLocation(prog.glId, gl.Str(name+"\x00"))
		if location < 0 {
			// block members and built ins
			continue
		}
		prog.uniforms[name] = activeUniform{location: location, glType: glType}
		prog.order = append(prog.order, name)
	}
	slices.SortFunc(prog.order, func(a, b string) int {
		return int(prog.uniforms[a].location - prog.uniforms[b].location)
	})
}

func (prog *program) delete() {
	gl.DeleteProgram(prog.glId)
	prog.glId = 0
}

func readProgramInfoLog(id uint32) string {
	var logLength int32
	gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)

	log := strings.Repeat("\x00", int(logLength+1))
	gl.GetProgramInfoLog(id, logLength, nil, gl.Str(log))
	return strings.TrimRight(log, "\x00")
}

// fullscreenVertexSource draws one triangle covering the viewport, uv in 0..1.
const fullscreenVertexSource = `#version 450 core
out gl_PerVertex {
    vec4 gl_Position;
};
layout(location = 0) out vec2 v_uv;
void main() {
    vec2 pos = vec2((gl_VertexID << 1) & 2, gl_VertexID & 2);
    v_uv = pos;
    gl_Position = vec4(pos * 2.0 - 1.0, 0.0, 1.0);
}
`
