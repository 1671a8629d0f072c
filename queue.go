package blackhole

import (
	vk "github.com/vulkan-go/vulkan"
)

// QueueFamilyIndices records which queue families serve graphics and
// presentation. Both may name the same family.
type QueueFamilyIndices struct {
	GraphicsFamily uint32
	PresentFamily  uint32
	HasGraphics    bool
	HasPresent     bool
}

// Complete reports whether both a graphics and a present family were found.
func (q QueueFamilyIndices) Complete() bool {
	return q.HasGraphics && q.HasPresent
}

// Shared reports whether graphics and presentation use one family.
func (q QueueFamilyIndices) Shared() bool {
	return q.Complete() && q.GraphicsFamily == q.PresentFamily
}

// Unique lists the distinct family indices, graphics first.
func (q QueueFamilyIndices) Unique() []uint32 {
	var out []uint32
	if q.HasGraphics {
		out = append(out, q.GraphicsFamily)
	}
	if q.HasPresent && !(q.HasGraphics && q.PresentFamily == q.GraphicsFamily) {
		out = append(out, q.PresentFamily)
	}
	return out
}

// findQueueFamilies scans families in order and keeps the first graphics
// capable and the first present capable one, stopping once both are known.
func findQueueFamilies(flags []vk.QueueFlags, supportsPresent func(index uint32) bool) QueueFamilyIndices {
	var q QueueFamilyIndices
	for i, f := range flags {
		index := uint32(i)
		if !q.HasGraphics && f&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			q.GraphicsFamily, q.HasGraphics = index, true
		}
		if !q.HasPresent && supportsPresent(index) {
			q.PresentFamily, q.HasPresent = index, true
		}
		if q.Complete() {
			break
		}
	}
	return q
}

// queueFamilyFlags lists the capability flags of every queue family of gpu.
func queueFamilyFlags(gpu vk.PhysicalDevice) []vk.QueueFlags {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	if count == 0 {
		return nil
	}
	properties := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, properties)
	flags := make([]vk.QueueFlags, count)
	for i := range properties {
		properties[i].Deref()
		flags[i] = properties[i].QueueFlags
	}
	return flags
}

// queryQueueFamilies runs findQueueFamilies against a real device and surface.
func queryQueueFamilies(gpu vk.PhysicalDevice, surface vk.Surface) QueueFamilyIndices {
	return findQueueFamilies(queueFamilyFlags(gpu), func(index uint32) bool {
		var supported vk.Bool32
		if ret := vk.GetPhysicalDeviceSurfaceSupport(gpu, index, surface, &supported); isError(ret) {
			return false
		}
		return supported.B()
	})
}

// buildQueueCreateInfos requests one queue per distinct family.
func buildQueueCreateInfos(q QueueFamilyIndices) []vk.DeviceQueueCreateInfo {
	families := q.Unique()
	infos := make([]vk.DeviceQueueCreateInfo, 0, len(families))
	for _, family := range families {
		infos = append(infos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}
	return infos
}
