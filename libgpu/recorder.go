package libgpu

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var ErrUnbalancedSample = errors.New("libgpu: unbalanced sample markers")

type Op uint8

const (
	OpAllocate Op = iota
	OpFree
	OpUpload
	OpReadPixels
	OpSetFloat
	OpSetInt
	OpSetVector
	OpSetMatrix
	OpSetTexture
	OpSetKeyword
	OpDraw
	OpDispatch
	OpBeginSample
	OpEndSample
	OpSubmit
)

var opNames = [...]string{
	"allocate", "free", "upload", "read-pixels",
	"float", "int", "vector", "matrix", "texture", "keyword",
	"draw", "dispatch", "begin-sample", "end-sample", "submit",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "Op(" + strconv.Itoa(int(op)) + ")"
}

// Command is one recorded Device call. Only the fields relevant to Op are set.
type Command struct {
	Op      Op
	Surface SurfaceId
	Desc    SurfaceDesc
	Binding Binding
	// Name is the uniform, keyword or sample name.
	Name    string
	Float   float32
	Int     int32
	Vector  mgl32.Vec4
	Matrix  mgl32.Mat4
	Enabled bool
	Program Program
	Target  Target
	Groups  [3]int
}

// Recorder is a Device that keeps every call in order instead of executing it.
// It validates surface lifetimes like a real device would.
type Recorder struct {
	// FailOn is consulted before every fallible command. A non nil result aborts the
	// command and is returned to the caller.
	FailOn func(Command) error

	names     []string
	bindings  map[string]Binding
	allocated map[SurfaceId]SurfaceDesc
	pixels    map[SurfaceId][]float32
	commands  []Command
	depth     int
}

func NewRecorder() *Recorder {
	return &Recorder{
		bindings:  map[string]Binding{},
		allocated: map[SurfaceId]SurfaceDesc{},
		pixels:    map[SurfaceId][]float32{},
	}
}

func (r *Recorder) fail(cmd Command) error {
	if r.FailOn == nil {
		return nil
	}
	return r.FailOn(cmd)
}

func (r *Recorder) Declare(name string) Binding {
	if b, ok := r.bindings[name]; ok {
		return b
	}
	b := Binding(len(r.names))
	r.names = append(r.names, name)
	r.bindings[name] = b
	return b
}

// BindingName returns the uniform name of a declared binding.
func (r *Recorder) BindingName(b Binding) string {
	if b >= 0 && int(b) < len(r.names) {
		return r.names[b]
	}
	return fmt.Sprintf("binding#%d", b)
}

func (r *Recorder) Allocate(id SurfaceId, desc SurfaceDesc) error {
	cmd := Command{Op: OpAllocate, Surface: id, Desc: desc}
	if err := r.fail(cmd); err != nil {
		return err
	}
	if _, ok := r.allocated[id]; ok {
		return fmt.Errorf("allocate %d: %w", id, ErrAllocated)
	}
	r.allocated[id] = desc
	r.commands = append(r.commands, cmd)
	return nil
}

func (r *Recorder) Free(id SurfaceId) error {
	cmd := Command{Op: OpFree, Surface: id}
	if err := r.fail(cmd); err != nil {
		return err
	}
	if _, ok := r.allocated[id]; !ok {
		return fmt.Errorf("free %d: %w", id, ErrNotAllocated)
	}
	delete(r.allocated, id)
	delete(r.pixels, id)
	r.commands = append(r.commands, cmd)
	return nil
}

func (r *Recorder) Upload(id SurfaceId, pix []float32) error {
	desc, ok := r.allocated[id]
	cmd := Command{Op: OpUpload, Surface: id, Desc: desc, Int: int32(len(pix))}
	if err := r.fail(cmd); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("upload %d: %w", id, ErrNotAllocated)
	}
	if len(pix) != desc.Values() {
		return fmt.Errorf("upload %d: %d values for %v: %w", id, len(pix), desc, ErrSizeMismatch)
	}
	r.pixels[id] = slices.Clone(pix)
	r.commands = append(r.commands, cmd)
	return nil
}

// ReadPixels returns what was last uploaded or set with SetPixels, zeros otherwise.
func (r *Recorder) ReadPixels(id SurfaceId, dst []float32) error {
	desc, ok := r.allocated[id]
	cmd := Command{Op: OpReadPixels, Surface: id, Desc: desc, Int: int32(len(dst))}
	if err := r.fail(cmd); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("read pixels %d: %w", id, ErrNotAllocated)
	}
	if len(dst) != desc.Values() {
		return fmt.Errorf("read pixels %d: %d values for %v: %w", id, len(dst), desc, ErrSizeMismatch)
	}
	if pix, ok := r.pixels[id]; ok {
		copy(dst, pix)
	} else {
		for i := range dst {
			dst[i] = 0
		}
	}
	r.commands = append(r.commands, cmd)
	return nil
}

// SetPixels stands in for GPU output, ReadPixels will return pix for id.
func (r *Recorder) SetPixels(id SurfaceId, pix []float32) {
	r.pixels[id] = slices.Clone(pix)
}

func (r *Recorder) SetFloat(b Binding, v float32) {
	r.commands = append(r.commands, Command{Op: OpSetFloat, Binding: b, Name: r.BindingName(b), Float: v})
}

func (r *Recorder) SetInt(b Binding, v int32) {
	r.commands = append(r.commands, Command{Op: OpSetInt, Binding: b, Name: r.BindingName(b), Int: v})
}

func (r *Recorder) SetVector(b Binding, v mgl32.Vec4) {
	r.commands = append(r.commands, Command{Op: OpSetVector, Binding: b, Name: r.BindingName(b), Vector: v})
}

func (r *Recorder) SetMatrix(b Binding, m mgl32.Mat4) {
	r.commands = append(r.commands, Command{Op: OpSetMatrix, Binding: b, Name: r.BindingName(b), Matrix: m})
}

func (r *Recorder) SetTexture(b Binding, id SurfaceId) {
	r.commands = append(r.commands, Command{Op: OpSetTexture, Binding: b, Name: r.BindingName(b), Surface: id})
}

func (r *Recorder) SetKeyword(name string, enabled bool) {
	r.commands = append(r.commands, Command{Op: OpSetKeyword, Name: name, Enabled: enabled})
}

func (r *Recorder) Draw(program Program, target Target) error {
	cmd := Command{Op: OpDraw, Program: program, Target: target, Surface: target.Surface}
	if err := r.fail(cmd); err != nil {
		return err
	}
	if target.Surface != CameraTarget {
		if _, ok := r.allocated[target.Surface]; !ok {
			return fmt.Errorf("draw %v into %d: %w", program, target.Surface, ErrNotAllocated)
		}
	}
	r.commands = append(r.commands, cmd)
	return nil
}

func (r *Recorder) Dispatch(kernel Program, groups [3]int) error {
	cmd := Command{Op: OpDispatch, Program: kernel, Groups: groups}
	if err := r.fail(cmd); err != nil {
		return err
	}
	r.commands = append(r.commands, cmd)
	return nil
}

func (r *Recorder) BeginSample(name string) {
	r.depth++
	r.commands = append(r.commands, Command{Op: OpBeginSample, Name: name})
}

func (r *Recorder) EndSample() {
	r.depth--
	r.commands = append(r.commands, Command{Op: OpEndSample})
}

func (r *Recorder) Submit() error {
	cmd := Command{Op: OpSubmit}
	if err := r.fail(cmd); err != nil {
		return err
	}
	if r.depth != 0 {
		return fmt.Errorf("submit with sample depth %d: %w", r.depth, ErrUnbalancedSample)
	}
	r.commands = append(r.commands, cmd)
	return nil
}

// Commands returns the recorded stream. The slice is owned by the recorder.
func (r *Recorder) Commands() []Command {
	return r.commands
}

// Reset drops the recorded stream but keeps surfaces and bindings.
func (r *Recorder) Reset() {
	r.commands = nil
}

// Filter returns the recorded commands with the given op.
func (r *Recorder) Filter(op Op) []Command {
	var res []Command
	for _, c := range r.commands {
		if c.Op == op {
			res = append(res, c)
		}
	}
	return res
}

// Allocated returns the currently allocated surfaces in id order.
func (r *Recorder) Allocated() []SurfaceId {
	ids := maps.Keys(r.allocated)
	slices.Sort(ids)
	return ids
}

// WriteTable renders the stream as a table. name resolves surface ids, it may be nil.
func (r *Recorder) WriteTable(w io.Writer, name func(SurfaceId) string) {
	if name == nil {
		name = func(id SurfaceId) string {
			if id == CameraTarget {
				return "camera-target"
			}
			return "#" + strconv.Itoa(int(id))
		}
	}

	table := tablewriter.NewWriter(w)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"#", "Op", "Surface", "Program", "Detail"})

	for i, c := range r.commands {
		row := []string{strconv.Itoa(i), c.Op.String(), "", "", ""}
		switch c.Op {
		case OpAllocate:
			row[2] = name(c.Surface)
			row[4] = c.Desc.String()
		case OpFree, OpUpload, OpReadPixels:
			row[2] = name(c.Surface)
		case OpSetFloat:
			row[4] = fmt.Sprintf("%s = %.5g", c.Name, c.Float)
		case OpSetInt:
			row[4] = fmt.Sprintf("%s = %d", c.Name, c.Int)
		case OpSetVector:
			row[4] = fmt.Sprintf("%s = (%.4g, %.4g, %.4g, %.4g)", c.Name, c.Vector[0], c.Vector[1], c.Vector[2], c.Vector[3])
		case OpSetMatrix:
			row[4] = c.Name
		case OpSetTexture:
			row[2] = name(c.Surface)
			row[4] = c.Name
		case OpSetKeyword:
			row[4] = fmt.Sprintf("%s = %t", c.Name, c.Enabled)
		case OpDraw:
			row[2] = name(c.Target.Surface)
			row[3] = c.Program.String()
			row[4] = "load " + c.Target.Load.String()
			if !c.Target.Viewport.Empty() {
				vp := c.Target.Viewport
				row[4] += fmt.Sprintf(", viewport %d,%d %dx%d, blend %v", vp.X, vp.Y, vp.Width, vp.Height, c.Target.Blend)
			}
		case OpDispatch:
			row[3] = c.Program.String()
			row[4] = fmt.Sprintf("groups %dx%dx%d", c.Groups[0], c.Groups[1], c.Groups[2])
		case OpBeginSample:
			row[4] = c.Name
		}
		table.Append(row)
	}

	table.Render()
}
