package blackhole

import vk "github.com/vulkan-go/vulkan"

// Context owns the logical device, its queues and the window surface.
// Everything else borrows these handles from it.
type Context struct {
	instance *Instance
	surface  vk.Surface

	gpu     vk.PhysicalDevice
	gpuName string
	device  vk.Device

	graphicsQueue vk.Queue
	presentQueue  vk.Queue
	families      QueueFamilyIndices

	memoryProperties vk.PhysicalDeviceMemoryProperties
}

func (c *Context) Instance() vk.Instance { return c.instance.Handle() }

func (c *Context) Surface() vk.Surface { return c.surface }

func (c *Context) PhysicalDevice() vk.PhysicalDevice { return c.gpu }

// DeviceName is the selected GPU's name as the driver reports it.
func (c *Context) DeviceName() string { return c.gpuName }

func (c *Context) Device() vk.Device { return c.device }

func (c *Context) GraphicsQueue() vk.Queue { return c.graphicsQueue }

// PresentQueue is the graphics queue when both share a family.
func (c *Context) PresentQueue() vk.Queue { return c.presentQueue }

func (c *Context) Families() QueueFamilyIndices { return c.families }

func (c *Context) MemoryProperties() vk.PhysicalDeviceMemoryProperties {
	return c.memoryProperties
}

// WaitIdle blocks until the device finished all submitted work.
func (c *Context) WaitIdle() error {
	if c.device == nil {
		return nil
	}
	return setupErr(vk.DeviceWaitIdle(c.device), "wait for device idle")
}

// Destroy releases the device and then the surface. Every resource created
// from the device must already be gone.
func (c *Context) Destroy() {
	if c.device != nil {
		vk.DestroyDevice(c.device, nil)
		c.device = nil
	}
	if c.surface != vk.NullSurface {
		vk.DestroySurface(c.instance.Handle(), c.surface, nil)
		c.surface = vk.NullSurface
	}
}
