package blackhole

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func suitableCandidate(name string, discrete bool, maxDim uint32) PhysicalDeviceCandidate {
	c := PhysicalDeviceCandidate{
		Name:                name,
		Type:                vk.PhysicalDeviceTypeIntegratedGpu,
		MaxImageDimension2D: maxDim,
		GeometryShader:      true,
		Families: QueueFamilyIndices{
			GraphicsFamily: 0, HasGraphics: true,
			PresentFamily: 0, HasPresent: true,
		},
		Support: SwapchainSupport{
			Formats:      []vk.SurfaceFormat{{Format: vk.FormatB8g8r8a8Srgb}},
			PresentModes: []vk.PresentMode{vk.PresentModeFifo},
		},
	}
	if discrete {
		c.Type = vk.PhysicalDeviceTypeDiscreteGpu
	}
	return c
}

func TestScoreSuitable(t *testing.T) {
	assert.Equal(t, 1000+16384, suitableCandidate("d", true, 16384).Score())
	assert.Equal(t, 8192, suitableCandidate("i", false, 8192).Score())
}

func TestScoreDisqualification(t *testing.T) {
	cases := map[string]func(*PhysicalDeviceCandidate){
		"no geometry shader": func(c *PhysicalDeviceCandidate) { c.GeometryShader = false },
		"no graphics family": func(c *PhysicalDeviceCandidate) { c.Families.HasGraphics = false },
		"no present family":  func(c *PhysicalDeviceCandidate) { c.Families.HasPresent = false },
		"no queue families":  func(c *PhysicalDeviceCandidate) { c.Families = QueueFamilyIndices{} },
		"missing swapchain":  func(c *PhysicalDeviceCandidate) { c.MissingExtensions = []string{"VK_KHR_swapchain"} },
		"no formats":         func(c *PhysicalDeviceCandidate) { c.Support.Formats = nil },
		"no present modes":   func(c *PhysicalDeviceCandidate) { c.Support.PresentModes = nil },
	}
	for name, breakIt := range cases {
		t.Run(name, func(t *testing.T) {
			c := suitableCandidate("gpu", true, 32768)
			breakIt(&c)
			assert.Equal(t, 0, c.Score())
		})
	}
}

func TestRankCandidates(t *testing.T) {
	broken := suitableCandidate("broken", true, 65536)
	broken.GeometryShader = false
	candidates := []PhysicalDeviceCandidate{
		suitableCandidate("integrated", false, 16384),
		broken,
		suitableCandidate("discrete-a", true, 8192),
		suitableCandidate("discrete-b", true, 8192),
	}

	var names []string
	for _, c := range rankCandidates(candidates) {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"integrated", "discrete-a", "discrete-b", "broken"}, names)

	best, err := pickCandidate(candidates)
	require.NoError(t, err)
	assert.Equal(t, "integrated", best.Name)
}

func TestPickCandidateNone(t *testing.T) {
	_, err := pickCandidate(nil)
	assert.True(t, errors.Is(err, ErrDeviceNotFound))

	broken := suitableCandidate("broken", true, 4096)
	broken.Support = SwapchainSupport{}
	_, err = pickCandidate([]PhysicalDeviceCandidate{broken})
	assert.True(t, errors.Is(err, ErrDeviceNotFound))
}

func TestRequiredExtensionsAlwaysIncludeSwapchain(t *testing.T) {
	assert.Equal(t, []string{"VK_KHR_swapchain"}, requiredExtensions(DeviceConfig{}))

	cfg := DeviceConfig{Extensions: []string{"VK_KHR_device_group"}}
	assert.Equal(t, []string{"VK_KHR_device_group", "VK_KHR_swapchain"}, requiredExtensions(cfg))
	assert.Equal(t, []string{"VK_KHR_device_group"}, cfg.Extensions, "config left untouched")

	cfg = DeviceConfig{Extensions: []string{"VK_KHR_swapchain"}}
	assert.Equal(t, cfg.Extensions, requiredExtensions(cfg))
}

func TestDeviceWithoutExtensionsScoresZero(t *testing.T) {
	c := suitableCandidate("bare", true, 4096)
	c.checkExtensions(nil, requiredExtensions(DeviceConfig{}))
	assert.Equal(t, []string{"VK_KHR_swapchain"}, c.MissingExtensions)
	assert.Equal(t, 0, c.Score())

	c = suitableCandidate("moltenvk", false, 4096)
	c.checkExtensions([]string{"VK_KHR_swapchain", "VK_KHR_portability_subset"}, requiredExtensions(DeviceConfig{}))
	assert.Empty(t, c.MissingExtensions)
	assert.True(t, c.PortabilitySubset)
	assert.Equal(t, 4096, c.Score())
}
