package blackhole

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSphereFan(t *testing.T) {
	for _, n := range []int{3, 4, 10, 100} {
		s := NewSphere(0.2, -0.1, 0.5, Vec3{1, 0, 0}, n)
		require.Len(t, s.Vertices, n+1)
		require.Len(t, s.Indices, 3*n)

		assert.Equal(t, Vec2{0.2, -0.1}, s.Vertices[0].Pos)
		for i := 0; i < n; i++ {
			tri := s.Indices[3*i : 3*i+3]
			assert.Equal(t, uint32(0), tri[0])
			assert.Equal(t, uint32(i+1), tri[1])
		}
		last := s.Indices[3*n-3:]
		assert.Equal(t, []uint32{0, uint32(n), 1}, last)

		for _, v := range s.Vertices[1:] {
			dx, dy := v.Pos[0]-0.2, v.Pos[1]+0.1
			assert.InDelta(t, 0.5, math32.Sqrt(dx*dx+dy*dy), 1e-5)
			assert.Equal(t, Vec3{1, 0, 0}, v.Color)
		}
	}
}

func TestSphereLowResolution(t *testing.T) {
	s := NewSphere(0, 0, 1, Vec3{}, 2)
	assert.Len(t, s.Vertices, 3)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 1}, s.Indices)

	for _, n := range []int{0, -4} {
		s = NewSphere(0, 0, 1, Vec3{}, n)
		assert.Len(t, s.Vertices, 1)
		assert.Empty(t, s.Indices)
		assert.Error(t, NewBatcher().RegisterBody("dot", s))
	}
}

func TestSquare(t *testing.T) {
	s := NewSquare(0, 0, 0.5, Vec3{1, 0, 0})
	require.Len(t, s.Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 2, 3, 0}, s.Indices)
	assert.Equal(t, Vec2{-0.5, -0.5}, s.Vertices[0].Pos)
	assert.Equal(t, Vec2{0.5, 0.5}, s.Vertices[2].Pos)
}

func TestVertexLayout(t *testing.T) {
	assert.Equal(t, 20, VertexStride)
	assert.Equal(t, 4, IndexStride)

	binding := vertexBindingDescription()
	assert.Equal(t, uint32(VertexStride), binding.Stride)

	attrs := vertexAttributeDescriptions()
	require.Len(t, attrs, 2)
	assert.Equal(t, uint32(0), attrs[0].Offset)
	assert.Equal(t, uint32(8), attrs[1].Offset)
}
