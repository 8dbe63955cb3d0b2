package main

import (
	_ "embed"

	"postfx-gl/libgl"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/inkyblackness/imgui-go/v4"
)

//go:embed shaders/imgui.vert
var imguiVertexSource string

//go:embed shaders/imgui.frag
var imguiFragmentSource string

// ImGui draws the imgui overlay onto the default framebuffer. It changes GL state only through
// the device's state cache.
type ImGui struct {
	io        imgui.IO
	context   *imgui.Context
	frameTime float32
	state     *libgl.StateManager
	pipeline  *libgl.Pipeline
	atlas     uint32
	vao       uint32
	vbo       uint32
	vboSize   int
	ebo       uint32
	eboSize   int
}

func NewImGui(win *glfw.Window, state *libgl.StateManager) (*ImGui, error) {
	pipeline, err := libgl.NewPipeline("imgui", imguiVertexSource, imguiFragmentSource)
	if err != nil {
		return nil, err
	}

	context := imgui.CreateContext(nil)
	io := imgui.CurrentIO()
	dispWidth, dispHeight := win.GetSize()
	io.SetDisplaySize(imgui.Vec2{X: float32(dispWidth), Y: float32(dispHeight)})
	imgui.StyleColorsDark()

	var vao uint32
	gl.CreateVertexArrays(1, &vao)
	_, vertexOffsetPos, vertexOffsetUv, vertexOffsetCol := imgui.VertexBufferLayout()
	gl.EnableVertexArrayAttrib(vao, 0)
	gl.VertexArrayAttribFormat(vao, 0, 2, gl.FLOAT, false, uint32(vertexOffsetPos))
	gl.VertexArrayAttribBinding(vao, 0, 0)
	gl.EnableVertexArrayAttrib(vao, 1)
	gl.VertexArrayAttribFormat(vao, 1, 2, gl.FLOAT, false, uint32(vertexOffsetUv))
	gl.VertexArrayAttribBinding(vao, 1, 0)
	gl.EnableVertexArrayAttrib(vao, 2)
	gl.VertexArrayAttribFormat(vao, 2, 4, gl.UNSIGNED_BYTE, true, uint32(vertexOffsetCol))
	gl.VertexArrayAttribBinding(vao, 2, 0)

	image := io.Fonts().TextureDataRGBA32()
	var atlas uint32
	gl.CreateTextures(gl.TEXTURE_2D, 1, &atlas)
	gl.TextureStorage2D(atlas, 1, gl.RGBA8, int32(image.Width), int32(image.Height))
	gl.TextureSubImage2D(atlas, 0, 0, 0, int32(image.Width), int32(image.Height), gl.RGBA, gl.UNSIGNED_BYTE, image.Pixels)
	gl.TextureParameteri(atlas, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TextureParameteri(atlas, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	io.Fonts().SetTextureID(imgui.TextureID(atlas))

	win.SetCursorPosCallback(func(w *glfw.Window, mx, my float64) {
		io.SetMousePosition(imgui.Vec2{X: float32(mx), Y: float32(my)})
	})
	win.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		io.SetMouseButtonDown(int(button), action == glfw.Press)
	})
	win.SetScrollCallback(func(w *glfw.Window, x, y float64) {
		io.AddMouseWheelDelta(float32(x), float32(y))
	})
	win.SetCharCallback(func(w *glfw.Window, char rune) {
		io.AddInputCharacters(string(char))
	})
	win.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Press {
			io.KeyPress(int(key))
		}
		if action == glfw.Release {
			io.KeyRelease(int(key))
		}
		io.KeyCtrl(int(glfw.KeyLeftControl), int(glfw.KeyRightControl))
		io.KeyShift(int(glfw.KeyLeftShift), int(glfw.KeyRightShift))
		io.KeyAlt(int(glfw.KeyLeftAlt), int(glfw.KeyRightAlt))
		io.KeySuper(int(glfw.KeyLeftSuper), int(glfw.KeyRightSuper))
	})

	io.KeyMap(imgui.KeyTab, int(glfw.KeyTab))
	io.KeyMap(imgui.KeyLeftArrow, int(glfw.KeyLeft))
	io.KeyMap(imgui.KeyRightArrow, int(glfw.KeyRight))
	io.KeyMap(imgui.KeyUpArrow, int(glfw.KeyUp))
	io.KeyMap(imgui.KeyDownArrow, int(glfw.KeyDown))
	io.KeyMap(imgui.KeyHome, int(glfw.KeyHome))
	io.KeyMap(imgui.KeyEnd, int(glfw.KeyEnd))
	io.KeyMap(imgui.KeyDelete, int(glfw.KeyDelete))
	io.KeyMap(imgui.KeyBackspace, int(glfw.KeyBackspace))
	io.KeyMap(imgui.KeyEnter, int(glfw.KeyEnter))
	io.KeyMap(imgui.KeyEscape, int(glfw.KeyEscape))
	io.KeyMap(imgui.KeyA, int(glfw.KeyA))
	io.KeyMap(imgui.KeyC, int(glfw.KeyC))
	io.KeyMap(imgui.KeyV, int(glfw.KeyV))
	io.KeyMap(imgui.KeyX, int(glfw.KeyX))
	io.KeyMap(imgui.KeyZ, int(glfw.KeyZ))

	return &ImGui{
		io:        io,
		context:   context,
		frameTime: float32(glfw.GetTime()),
		state:     state,
		pipeline:  pipeline,
		atlas:     atlas,
		vao:       vao,
	}, nil
}

// WantsMouse reports whether the overlay captures the mouse this frame.
func (gui *ImGui) WantsMouse() bool {
	return gui.io.WantCaptureMouse()
}

func (gui *ImGui) Draw(win *glfw.Window) {
	dispWidth, dispHeight := win.GetSize()
	fbWidth, fbHeight := win.GetFramebufferSize()
	gui.io.SetDisplaySize(imgui.Vec2{X: float32(dispWidth), Y: float32(dispHeight)})
	ortho := mgl32.Ortho2D(0, float32(dispWidth), float32(dispHeight), 0)

	time := float32(glfw.GetTime())
	gui.io.SetDeltaTime(time - gui.frameTime)
	gui.frameTime = time

	imgui.Render()
	drawData := imgui.RenderedDrawData()
	drawData.ScaleClipRects(imgui.Vec2{
		X: float32(fbWidth) / float32(dispWidth),
		Y: float32(fbHeight) / float32(dispHeight),
	})

	state := gui.state
	state.BindDrawFramebuffer(0)
	state.Viewport(0, 0, fbWidth, fbHeight)
	state.SetBlend(true)
	state.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	state.SetScissorTest(true)
	state.BindVertexArray(gui.vao)
	state.BindSampler(0, 0)
	gui.pipeline.Bind(state)
	_ = gui.pipeline.SetMatrix(gl.VERTEX_SHADER, "u_projection", ortho)

	vertexSize, _, _, _ := imgui.VertexBufferLayout()
	indexSize := imgui.IndexBufferLayout()
	indexType := uint32(gl.UNSIGNED_SHORT)
	if indexSize == 4 {
		indexType = gl.UNSIGNED_INT
	}

	for _, list := range drawData.CommandLists() {
		vertexBuffer, vertexBufferSize := list.VertexBuffer()
		if vertexBufferSize > gui.vboSize {
			gl.DeleteBuffers(1, &gui.vbo)
			gui.vboSize = vertexBufferSize
			gl.CreateBuffers(1, &gui.vbo)
			gl.NamedBufferStorage(gui.vbo, gui.vboSize, nil, gl.DYNAMIC_STORAGE_BIT)
			gl.VertexArrayVertexBuffer(gui.vao, 0, gui.vbo, 0, int32(vertexSize))
		}
		if vertexBufferSize > 0 {
			gl.NamedBufferSubData(gui.vbo, 0, vertexBufferSize, vertexBuffer)
		}

		indexBuffer, indexBufferSize := list.IndexBuffer()
		if indexBufferSize > gui.eboSize {
			gl.DeleteBuffers(1, &gui.ebo)
			gui.eboSize = indexBufferSize
			gl.CreateBuffers(1, &gui.ebo)
			gl.NamedBufferStorage(gui.ebo, gui.eboSize, nil, gl.DYNAMIC_STORAGE_BIT)
			gl.VertexArrayElementBuffer(gui.vao, gui.ebo)
		}
		if indexBufferSize > 0 {
			gl.NamedBufferSubData(gui.ebo, 0, indexBufferSize, indexBuffer)
		}

		for _, cmd := range list.Commands() {
			if cmd.HasUserCallback() {
				cmd.CallUserCallback(list)
				continue
			}
			state.BindTextureUnit(0, uint32(cmd.TextureID()))
			clip := cmd.ClipRect()
			x, y := int(clip.X), fbHeight-int(clip.W)
			if y < 0 {
				y = 0
			}
			state.Scissor(x, y, int(clip.Z-clip.X), int(clip.W-clip.Y))
			gl.DrawElementsBaseVertexWithOffset(gl.TRIANGLES, int32(cmd.ElementCount()), indexType,
				uintptr(cmd.IndexOffset()*indexSize), int32(cmd.VertexOffset()))
		}
	}
}

func (gui *ImGui) Delete() {
	gl.DeleteBuffers(1, &gui.vbo)
	gl.DeleteBuffers(1, &gui.ebo)
	gl.DeleteVertexArrays(1, &gui.vao)
	gl.DeleteTextures(1, &gui.atlas)
	gui.pipeline.Delete()
	gui.context.Destroy()
}
