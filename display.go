package blackhole

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Window is what the swapchain and the frame loop need from the window system.
type Window interface {
	// FramebufferSize is the drawable size in pixels.
	FramebufferSize() (width, height int)
	ShouldClose() bool
	PollEvents()
	// WaitEvents blocks until at least one event arrived.
	WaitEvents()
	// Resized reports a framebuffer size change since the last ClearResized.
	Resized() bool
	ClearResized()
}

// Display is a glfw window without a client API, ready for a Vulkan surface.
type Display struct {
	window  *glfw.Window
	resized bool
}

// NewDisplay opens a resizable window. glfw.Init must have been called.
func NewDisplay(width, height int, title string) (*Display, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.Visible, glfw.True)
	window, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, errors.Wrap(classify(err, ErrSetup), "create window")
	}
	d := &Display{window: window}
	window.SetFramebufferSizeCallback(func(_ *glfw.Window, _, _ int) {
		d.resized = true
	})
	return d, nil
}

// RequiredExtensions lists the instance extensions glfw needs for surfaces.
func (d *Display) RequiredExtensions() []string {
	return d.window.GetRequiredInstanceExtensions()
}

func (d *Display) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	ptr, err := d.window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, errors.Wrap(classify(err, ErrSetup), "create window surface")
	}
	return vk.SurfaceFromPointer(ptr), nil
}

func (d *Display) FramebufferSize() (int, int) {
	return d.window.GetFramebufferSize()
}

func (d *Display) ShouldClose() bool {
	return d.window.ShouldClose()
}

func (d *Display) PollEvents() {
	glfw.PollEvents()
}

func (d *Display) WaitEvents() {
	glfw.WaitEvents()
}

func (d *Display) Resized() bool {
	return d.resized
}

func (d *Display) ClearResized() {
	d.resized = false
}

func (d *Display) Destroy() {
	if d.window == nil {
		return
	}
	d.window.Destroy()
	d.window = nil
}
