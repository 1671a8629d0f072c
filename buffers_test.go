package blackhole

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func memoryProperties(flags ...vk.MemoryPropertyFlagBits) vk.PhysicalDeviceMemoryProperties {
	var props vk.PhysicalDeviceMemoryProperties
	props.MemoryTypeCount = uint32(len(flags))
	for i, f := range flags {
		props.MemoryTypes[i].PropertyFlags = vk.MemoryPropertyFlags(f)
	}
	return props
}

func TestFindRequiredMemoryType(t *testing.T) {
	props := memoryProperties(
		vk.MemoryPropertyDeviceLocalBit,
		vk.MemoryPropertyHostVisibleBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit,
	)
	hostCoherent := vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit

	i, ok := FindRequiredMemoryType(props, 0x7, hostCoherent)
	assert.True(t, ok)
	assert.Equal(t, uint32(2), i)

	i, ok = FindRequiredMemoryType(props, 0x7, vk.MemoryPropertyDeviceLocalBit)
	assert.True(t, ok)
	assert.Equal(t, uint32(0), i)

	i, ok = FindRequiredMemoryType(props, 0x7, vk.MemoryPropertyHostVisibleBit)
	assert.True(t, ok)
	assert.Equal(t, uint32(1), i, "first match wins")

	_, ok = FindRequiredMemoryType(props, 0x3, hostCoherent)
	assert.False(t, ok, "type 2 is excluded by the type bits")

	_, ok = FindRequiredMemoryType(props, 0x7, vk.MemoryPropertyLazilyAllocatedBit)
	assert.False(t, ok)
}

func TestBufferDestroyOnce(t *testing.T) {
	calls := 0
	b := &Buffer{destroy: func() { calls++ }}
	b.Destroy()
	b.Destroy()
	assert.Equal(t, 1, calls)

	var none *Buffer
	none.Destroy()
}
