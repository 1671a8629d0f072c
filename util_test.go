package blackhole

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReleaserRunsNewestFirst(t *testing.T) {
	var order []int
	var r releaser
	for i := 0; i < 3; i++ {
		i := i
		r.push(func() { order = append(order, i) })
	}
	r.release()
	assert.Equal(t, []int{2, 1, 0}, order)

	r.release()
	assert.Len(t, order, 3, "release runs each function once")
}

func TestSafeString(t *testing.T) {
	assert.Equal(t, "\x00", safeString(""))
	assert.Equal(t, "VK_KHR_swapchain\x00", safeString("VK_KHR_swapchain"))
	assert.Equal(t, "abc\x00", safeString("abc\x00"))
	assert.Equal(t, []string{"a\x00", "b\x00"}, safeStrings([]string{"a", "b\x00"}))
}

func TestCheckExisting(t *testing.T) {
	existing, missing := checkExisting(
		[]string{"VK_KHR_surface", "VK_KHR_swapchain"},
		[]string{"VK_KHR_swapchain", "VK_EXT_debug_report"},
	)
	assert.Equal(t, []string{"VK_KHR_swapchain"}, existing)
	assert.Equal(t, []string{"VK_EXT_debug_report"}, missing)
}

func TestSliceUint32(t *testing.T) {
	assert.Nil(t, sliceUint32([]byte{1, 2, 3}))
	words := sliceUint32([]byte{0x03, 0x02, 0x23, 0x07, 1, 0, 0, 0, 0xff})
	assert.Equal(t, []uint32{spirvMagic, 1}, words)
}

func TestVertexBytes(t *testing.T) {
	assert.Nil(t, vertexBytes(nil))
	assert.Len(t, vertexBytes(make([]Vertex, 3)), 3*VertexStride)
	assert.Equal(t, []byte{1, 0, 0, 0}, indexBytes([]uint32{1}))
}
