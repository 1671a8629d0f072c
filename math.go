package blackhole

import vk "github.com/vulkan-go/vulkan"

func clamp(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampExtent clamps e componentwise into [lo, hi].
func clampExtent(e, lo, hi vk.Extent2D) vk.Extent2D {
	return vk.Extent2D{
		Width:  clamp(e.Width, lo.Width, hi.Width),
		Height: clamp(e.Height, lo.Height, hi.Height),
	}
}

// fullViewport covers extent with the standard [0,1] depth range.
func fullViewport(extent vk.Extent2D) vk.Viewport {
	return vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
}

func fullScissor(extent vk.Extent2D) vk.Rect2D {
	return vk.Rect2D{Offset: vk.Offset2D{}, Extent: extent}
}
