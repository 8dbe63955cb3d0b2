package libgl

import (
	"errors"
	"fmt"
	"strings"

	"postfx-gl/libgpu"
	"postfx-gl/libutil"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	ErrOutOfUnits = errors.New("libgl: out of texture or image units")
	ErrWrongStage = errors.New("libgl: program stage does not match call")
	ErrGL         = errors.New("libgl: gl error")
)

type uniformKind uint8

const (
	uniformUnset uniformKind = iota
	uniformFloat
	uniformInt
	uniformVector
	uniformMatrix
	uniformTexture
)

type uniformValue struct {
	kind    uniformKind
	float   float32
	int     int32
	vector  mgl32.Vec4
	matrix  mgl32.Mat4
	surface libgpu.SurfaceId
}

type variantKey struct {
	library  string
	index    int
	keywords string
}

type variant struct {
	prog     *program
	stage    uint32
	pipeline uint32
}

// Device executes libgpu commands immediately on the current OpenGL 4.5 context.
// It must only be used from the thread owning that context.
type Device struct {
	logger hclog.Logger
	state  *StateManager

	libraries map[string]*Library
	vertex    *program
	variants  map[variantKey]*variant

	names    []string
	bindings map[string]libgpu.Binding
	values   []uniformValue
	keywords map[string]bool

	textures    map[libgpu.SurfaceId]*texture
	framebuffer *framebuffer
	samplers    samplers
	emptyVao    uint32
	defaultSize libgpu.Size
	depth       int
}

var _ libgpu.Device = (*Device)(nil)

func NewDevice(logger hclog.Logger, libraries ...*Library) (*Device, error) {
	logger = libutil.OrNull(logger).Named("libgl")

	vertex, err := compileProgram("fullscreen", fullscreenVertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return nil, err
	}

	d := &Device{
		logger:      logger,
		state:       NewStateManager(),
		libraries:   map[string]*Library{},
		vertex:      vertex,
		variants:    map[variantKey]*variant{},
		bindings:    map[string]libgpu.Binding{},
		keywords:    map[string]bool{},
		textures:    map[libgpu.SurfaceId]*texture{},
		framebuffer: newFramebuffer(),
		samplers:    newSamplers(),
	}
	gl.CreateVertexArrays(1, &d.emptyVao)
	for _, lib := range libraries {
		d.libraries[lib.Name] = lib
	}
	return d, nil
}

// State returns the state cache. Code drawing on the same context between device calls must
// change state through it.
func (d *Device) State() *StateManager {
	return d.state
}

// SetDefaultFramebufferSize sets the size used for draws into libgpu.CameraTarget.
func (d *Device) SetDefaultFramebufferSize(width, height int) {
	d.defaultSize = libgpu.Size{Width: width, Height: height}
}

// Preload compiles the keyword free variant of every program so shader errors surface early.
func (d *Device) Preload() error {
	var errs []error
	for _, name := range maps.Keys(d.libraries) {
		lib := d.libraries[name]
		for _, index := range lib.Indices() {
			key := variantKey{library: name, index: index}
			if _, err := d.compileVariant(key, lib.Sources[index], nil); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (d *Device) Declare(name string) libgpu.Binding {
	if b, ok := d.bindings[name]; ok {
		return b
	}
	b := libgpu.Binding(len(d.names))
	d.names = append(d.names, name)
	d.values = append(d.values, uniformValue{})
	d.bindings[name] = b
	return b
}

func (d *Device) Allocate(id libgpu.SurfaceId, desc libgpu.SurfaceDesc) error {
	if _, ok := d.textures[id]; ok {
		return fmt.Errorf("%w: %d", libgpu.ErrAllocated, id)
	}
	tex, err := newTexture(desc)
	if err != nil {
		return err
	}
	d.textures[id] = tex
	return nil
}

func (d *Device) Free(id libgpu.SurfaceId) error {
	tex, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("%w: %d", libgpu.ErrNotAllocated, id)
	}
	d.framebuffer.detach(tex)
	d.state.Forget(tex.glId)
	tex.delete()
	delete(d.textures, id)
	return nil
}

func (d *Device) texture(id libgpu.SurfaceId, values int) (*texture, error) {
	tex, ok := d.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", libgpu.ErrNotAllocated, id)
	}
	if values >= 0 && values != tex.desc.Values() {
		return nil, fmt.Errorf("%w: got %d values, %v needs %d", libgpu.ErrSizeMismatch, values, tex.desc, tex.desc.Values())
	}
	return tex, nil
}

func (d *Device) Upload(id libgpu.SurfaceId, pix []float32) error {
	tex, err := d.texture(id, len(pix))
	if err != nil {
		return err
	}
	tex.upload(pix)
	return nil
}

func (d *Device) ReadPixels(id libgpu.SurfaceId, dst []float32) error {
	tex, err := d.texture(id, len(dst))
	if err != nil {
		return err
	}
	gl.MemoryBarrier(gl.TEXTURE_UPDATE_BARRIER_BIT)
	tex.read(dst)
	return nil
}

func (d *Device) set(b libgpu.Binding, v uniformValue) {
	if int(b) < 0 || int(b) >= len(d.values) {
		d.logger.Warn("Uniform binding was not declared", "binding", b)
		return
	}
	d.values[b] = v
}

func (d *Device) SetFloat(b libgpu.Binding, v float32) {
	d.set(b, uniformValue{kind: uniformFloat, float: v})
}

func (d *Device) SetInt(b libgpu.Binding, v int32) {
	d.set(b, uniformValue{kind: uniformInt, int: v})
}

func (d *Device) SetVector(b libgpu.Binding, v mgl32.Vec4) {
	d.set(b, uniformValue{kind: uniformVector, vector: v})
}

func (d *Device) SetMatrix(b libgpu.Binding, m mgl32.Mat4) {
	d.set(b, uniformValue{kind: uniformMatrix, matrix: m})
}

func (d *Device) SetTexture(b libgpu.Binding, id libgpu.SurfaceId) {
	d.set(b, uniformValue{kind: uniformTexture, surface: id})
}

func (d *Device) SetKeyword(name string, enabled bool) {
	d.keywords[name] = enabled
}

// definitions returns the keyword defines relevant to src and a key naming the variant.
func (d *Device) definitions(src *Source) (map[string]string, string) {
	names := maps.Keys(d.keywords)
	slices.Sort(names)

	defs := map[string]string{}
	var key []string
	for _, name := range names {
		if !src.Uses(name) {
			continue
		}
		enabled := d.keywords[name]
		if enabled {
			defs[name] = "true"
			key = append(key, name)
		} else if _, declared := src.defines[strings.ToLower(name)]; declared {
			defs[name] = "false"
			key = append(key, "!"+name)
		}
	}
	return defs, strings.Join(key, ",")
}

func (d *Device) variant(p libgpu.Program) (*variant, error) {
	lib, ok := d.libraries[p.Library]
	if !ok {
		return nil, fmt.Errorf("%w: %v", libgpu.ErrUnknownProgram, p)
	}
	src, ok := lib.Sources[p.Index]
	if !ok {
		return nil, fmt.Errorf("%w: %v", libgpu.ErrUnknownProgram, p)
	}
	defs, keywords := d.definitions(src)
	key := variantKey{library: p.Library, index: p.Index, keywords: keywords}
	if v, ok := d.variants[key]; ok {
		return v, nil
	}
	return d.compileVariant(key, src, defs)
}

func (d *Device) compileVariant(key variantKey, src *Source, defs map[string]string) (*variant, error) {
	if v, ok := d.variants[key]; ok {
		return v, nil
	}
	label := fmt.Sprintf("%s/%s", key.library, src.Name)
	if key.keywords != "" {
		label += "[" + key.keywords + "]"
	}
	prog, err := compileProgram(label, src.Expand(defs), src.Stage)
	if err != nil {
		return nil, err
	}

	v := &variant{prog: prog, stage: src.Stage}
	gl.CreateProgramPipelines(1, &v.pipeline)
	if src.Stage == gl.COMPUTE_SHADER {
		gl.UseProgramStages(v.pipeline, gl.COMPUTE_SHADER_BIT, prog.glId)
	} else {
		gl.UseProgramStages(v.pipeline, gl.VERTEX_SHADER_BIT, d.vertex.glId)
		gl.UseProgramStages(v.pipeline, gl.FRAGMENT_SHADER_BIT, prog.glId)
	}
	setObjectLabel(gl.PROGRAM_PIPELINE, v.pipeline, label)
	d.variants[key] = v
	d.logger.Debug("Compiled program variant", "program", label, "uniforms", len(prog.order))
	return v, nil
}

// applyUniforms uploads every declared value the program uses. Samplers and images get
// consecutive units in uniform location order.
func (d *Device) applyUniforms(prog *program) error {
	maxTextures, maxImages := d.state.Units()
	textureUnit, imageUnit := 0, 0

	for _, name := range prog.order {
		u := prog.uniforms[name]
		b, ok := d.bindings[strings.TrimSuffix(name, "[0]")]
		if !ok {
			continue
		}
		v := d.values[b]

		switch v.kind {
		case uniformFloat:
			if u.glType == gl.INT {
				gl.ProgramUniform1i(prog.glId, u.location, int32(v.float))
			} else {
				gl.ProgramUniform1f(prog.glId, u.location, v.float)
			}
		case uniformInt:
			if u.glType == gl.FLOAT {
				gl.ProgramUniform1f(prog.glId, u.location, float32(v.int))
			} else {
				gl.ProgramUniform1i(prog.glId, u.location, v.int)
			}
		case uniformVector:
			switch u.glType {
			case gl.FLOAT_VEC2:
				gl.ProgramUniform2f(prog.glId, u.location, v.vector[0], v.vector[1])
			case gl.FLOAT_VEC3:
				gl.ProgramUniform3f(prog.glId, u.location, v.vector[0], v.vector[1], v.vector[2])
			default:
				gl.ProgramUniform4f(prog.glId, u.location, v.vector[0], v.vector[1], v.vector[2], v.vector[3])
			}
		case uniformMatrix:
			gl.ProgramUniformMatrix4fv(prog.glId, u.location, 1, false, &v.matrix[0])
		case uniformTexture:
			tex, err := d.texture(v.surface, -1)
			if err != nil {
				return fmt.Errorf("uniform %s: %w", name, err)
			}
			switch {
			case u.isImage():
				if !tex.desc.RandomWrite {
					return fmt.Errorf("uniform %s: surface %d is not random write", name, v.surface)
				}
				if imageUnit >= maxImages {
					return ErrOutOfUnits
				}
				d.state.BindImageTexture(imageUnit, tex.glId, tex.info.internal)
				gl.ProgramUniform1i(prog.glId, u.location, int32(imageUnit))
				imageUnit++
			case u.isSampler():
				if textureUnit >= maxTextures {
					return ErrOutOfUnits
				}
				d.state.BindTextureUnit(textureUnit, tex.glId)
				d.state.BindSampler(textureUnit, d.samplers.get(tex.desc.Filter))
				gl.ProgramUniform1i(prog.glId, u.location, int32(textureUnit))
				textureUnit++
			}
		}
	}
	return nil
}

var blendFactors = [...]uint32{
	libgpu.BlendZero:             gl.ZERO,
	libgpu.BlendOne:              gl.ONE,
	libgpu.BlendSrcColor:         gl.SRC_COLOR,
	libgpu.BlendOneMinusSrcColor: gl.ONE_MINUS_SRC_COLOR,
	libgpu.BlendSrcAlpha:         gl.SRC_ALPHA,
	libgpu.BlendOneMinusSrcAlpha: gl.ONE_MINUS_SRC_ALPHA,
	libgpu.BlendDstColor:         gl.DST_COLOR,
	libgpu.BlendOneMinusDstColor: gl.ONE_MINUS_DST_COLOR,
	libgpu.BlendDstAlpha:         gl.DST_ALPHA,
	libgpu.BlendOneMinusDstAlpha: gl.ONE_MINUS_DST_ALPHA,
}

func (d *Device) bindTarget(target libgpu.Target) error {
	var fbo, attachment uint32
	var size libgpu.Size
	if target.Surface == libgpu.CameraTarget {
		fbo, attachment, size = 0, gl.COLOR, d.defaultSize
	} else {
		tex, err := d.texture(target.Surface, -1)
		if err != nil {
			return err
		}
		if err := d.framebuffer.attach(tex); err != nil {
			return err
		}
		fbo, attachment = d.framebuffer.glId, gl.COLOR_ATTACHMENT0
		size = libgpu.Size{Width: tex.desc.Width, Height: tex.desc.Height}
	}
	d.state.BindDrawFramebuffer(fbo)

	if target.Viewport.Empty() {
		d.state.Viewport(0, 0, size.Width, size.Height)
	} else {
		vp := target.Viewport
		d.state.Viewport(vp.X, vp.Y, vp.Width, vp.Height)
	}

	// clear and invalidate stay inside the viewport, other cameras may share the target
	region := loadRegion(target.Viewport, size)
	switch target.Load {
	case libgpu.LoadClear:
		d.state.SetScissorTest(true)
		d.state.Scissor(region.X, region.Y, region.Width, region.Height)
		black := [4]float32{}
		gl.ClearNamedFramebufferfv(fbo, gl.COLOR, 0, &black[0])
	case libgpu.LoadDontCare:
		if !region.Empty() {
			gl.InvalidateNamedFramebufferSubData(fbo, 1, &attachment,
				int32(region.X), int32(region.Y), int32(region.Width), int32(region.Height))
		}
	}
	d.state.SetScissorTest(false)

	if target.Blend == libgpu.BlendOpaque {
		d.state.SetBlend(false)
	} else {
		d.state.SetBlend(true)
		d.state.BlendFunc(blendFactors[target.Blend.Source], blendFactors[target.Blend.Destination])
	}
	return nil
}

// loadRegion is the part of a target of the given size that a load action touches: the
// viewport clipped to the target, or the whole target for an empty viewport.
func loadRegion(viewport libgpu.Rect, size libgpu.Size) libgpu.Rect {
	if viewport.Empty() {
		return libgpu.Rect{Width: size.Width, Height: size.Height}
	}
	x0, y0 := max(viewport.X, 0), max(viewport.Y, 0)
	x1 := min(viewport.X+viewport.Width, size.Width)
	y1 := min(viewport.Y+viewport.Height, size.Height)
	if x1 <= x0 || y1 <= y0 {
		return libgpu.Rect{}
	}
	return libgpu.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func (d *Device) Draw(p libgpu.Program, target libgpu.Target) error {
	v, err := d.variant(p)
	if err != nil {
		return err
	}
	if v.stage != gl.FRAGMENT_SHADER {
		return fmt.Errorf("%w: draw with %v", ErrWrongStage, p)
	}
	if err := d.bindTarget(target); err != nil {
		return fmt.Errorf("draw %v: %w", p, err)
	}
	if err := d.applyUniforms(v.prog); err != nil {
		return fmt.Errorf("draw %v: %w", p, err)
	}
	d.state.BindProgramPipeline(v.pipeline)
	d.state.BindVertexArray(d.emptyVao)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	return nil
}

func (d *Device) Dispatch(kernel libgpu.Program, groups [3]int) error {
	v, err := d.variant(kernel)
	if err != nil {
		return err
	}
	if v.stage != gl.COMPUTE_SHADER {
		return fmt.Errorf("%w: dispatch with %v", ErrWrongStage, kernel)
	}
	if err := d.applyUniforms(v.prog); err != nil {
		return fmt.Errorf("dispatch %v: %w", kernel, err)
	}
	d.state.BindProgramPipeline(v.pipeline)
	gl.DispatchCompute(uint32(groups[0]), uint32(groups[1]), uint32(groups[2]))
	gl.MemoryBarrier(gl.SHADER_IMAGE_ACCESS_BARRIER_BIT | gl.TEXTURE_FETCH_BARRIER_BIT)
	return nil
}

func (d *Device) BeginSample(name string) {
	pushGroup(name)
	d.depth++
}

func (d *Device) EndSample() {
	if d.depth == 0 {
		d.logger.Warn("EndSample without BeginSample")
		return
	}
	popGroup()
	d.depth--
}

func (d *Device) Submit() error {
	gl.Flush()
	var errs []error
	for code := gl.GetError(); code != gl.NO_ERROR; code = gl.GetError() {
		errs = append(errs, fmt.Errorf("%w: 0x%X", ErrGL, code))
	}
	return errors.Join(errs...)
}

// Close deletes every GL object owned by the device, including surfaces still allocated.
func (d *Device) Close() {
	for id := range d.textures {
		_ = d.Free(id)
	}
	for _, v := range d.variants {
		gl.DeleteProgramPipelines(1, &v.pipeline)
		v.prog.delete()
	}
	d.variants = map[variantKey]*variant{}
	d.vertex.delete()
	d.framebuffer.delete()
	d.samplers.delete()
	gl.DeleteVertexArrays(1, &d.emptyVao)
}
