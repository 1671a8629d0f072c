package blackhole

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

type Vec2 [2]float32
type Vec3 [3]float32

// Vertex is the shader input: a 2D position and an RGB color.
type Vertex struct {
	Pos   Vec2
	Color Vec3
}

const (
	// VertexStride is the byte size of one Vertex.
	VertexStride = int(unsafe.Sizeof(Vertex{}))
	// IndexStride is the byte size of one index; indices are 32-bit.
	IndexStride = int(unsafe.Sizeof(uint32(0)))
)

func vertexBindingDescription() vk.VertexInputBindingDescription {
	return vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    uint32(VertexStride),
		InputRate: vk.VertexInputRateVertex,
	}
}

func vertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Pos)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Color)),
		},
	}
}
