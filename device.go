package blackhole

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

const (
	swapchainExtension = "VK_KHR_swapchain"
	portabilitySubset  = "VK_KHR_portability_subset"
)

// DeviceConfig is handed to the device selector at call time.
type DeviceConfig struct {
	// Extensions every selected device must support.
	Extensions []string
	// ValidationLayers enabled on the logical device, empty when validation is off.
	ValidationLayers []string
}

// PhysicalDeviceCandidate is what device selection learned about one GPU.
type PhysicalDeviceCandidate struct {
	Handle              vk.PhysicalDevice
	Name                string
	Type                vk.PhysicalDeviceType
	MaxImageDimension2D uint32
	GeometryShader      bool
	Families            QueueFamilyIndices
	MissingExtensions   []string
	Support             SwapchainSupport
	// PortabilitySubset is set on non-conformant implementations such as
	// MoltenVK, which require the extension to be enabled when offered.
	PortabilitySubset bool
}

// Suitable reports whether the device meets every hard requirement.
func (c PhysicalDeviceCandidate) Suitable() bool {
	return c.GeometryShader &&
		c.Families.Complete() &&
		len(c.MissingExtensions) == 0 &&
		c.Support.Adequate()
}

// Score ranks suitable devices: discrete GPUs first, then by the largest
// supported 2D image. Unsuitable devices score 0 whatever else they offer.
func (c PhysicalDeviceCandidate) Score() int {
	if !c.Suitable() {
		return 0
	}
	score := 0
	if c.Type == vk.PhysicalDeviceTypeDiscreteGpu {
		score += 1000
	}
	score += int(c.MaxImageDimension2D)
	return score
}

// rankCandidates orders candidates by descending score. Ties keep
// enumeration order.
func rankCandidates(candidates []PhysicalDeviceCandidate) []PhysicalDeviceCandidate {
	ranked := append([]PhysicalDeviceCandidate(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score() > ranked[j].Score()
	})
	return ranked
}

// pickCandidate returns the best ranked candidate or ErrDeviceNotFound.
func pickCandidate(candidates []PhysicalDeviceCandidate) (PhysicalDeviceCandidate, error) {
	ranked := rankCandidates(candidates)
	if len(ranked) == 0 || ranked[0].Score() <= 0 {
		return PhysicalDeviceCandidate{}, errors.Wrapf(ErrDeviceNotFound, "%d devices inspected", len(candidates))
	}
	return ranked[0], nil
}

// requiredExtensions is cfg's extension list with the swapchain extension
// added when absent. Presentation is impossible without it.
func requiredExtensions(cfg DeviceConfig) []string {
	if found, _ := checkExisting(cfg.Extensions, []string{swapchainExtension}); len(found) > 0 {
		return cfg.Extensions
	}
	return append(append([]string(nil), cfg.Extensions...), swapchainExtension)
}

// checkExtensions records which of required gpu lacks among available.
func (c *PhysicalDeviceCandidate) checkExtensions(available, required []string) {
	_, c.MissingExtensions = checkExisting(available, required)
	found, _ := checkExisting(available, []string{portabilitySubset})
	c.PortabilitySubset = len(found) > 0
}

// inspectDevice gathers everything Score needs about gpu.
func inspectDevice(gpu vk.PhysicalDevice, surface vk.Surface, required []string, log *Logger) PhysicalDeviceCandidate {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(gpu, &props)
	props.Deref()
	props.Limits.Deref()

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(gpu, &features)
	features.Deref()

	c := PhysicalDeviceCandidate{
		Handle:              gpu,
		Name:                vk.ToString(props.DeviceName[:]),
		Type:                props.DeviceType,
		MaxImageDimension2D: props.Limits.MaxImageDimension2D,
		GeometryShader:      features.GeometryShader.B(),
		Families:            queryQueueFamilies(gpu, surface),
	}

	available, err := DeviceExtensions(gpu)
	if err != nil {
		log.Infof("device %q: %v", c.Name, err)
		c.MissingExtensions = required
	} else {
		c.checkExtensions(available, required)
	}
	if len(c.MissingExtensions) == 0 {
		// Only devices with every required extension get their surface support queried.
		if c.Support, err = querySwapchainSupport(gpu, surface); err != nil {
			log.Infof("device %q: surface support: %v", c.Name, err)
		}
	}
	return c
}

// SelectDevice picks the best GPU for surface and creates the logical device
// with one queue per distinct family. It takes ownership of surface: the
// returned Context destroys it, and it is destroyed right away on failure.
func SelectDevice(inst *Instance, surface vk.Surface, cfg DeviceConfig, log *Logger) (ctx *Context, err error) {
	defer func() {
		if err != nil {
			vk.DestroySurface(inst.Handle(), surface, nil)
		}
	}()

	gpus, err := inst.PhysicalDevices()
	if err != nil {
		return nil, err
	}
	required := requiredExtensions(cfg)
	candidates := make([]PhysicalDeviceCandidate, 0, len(gpus))
	for _, gpu := range gpus {
		c := inspectDevice(gpu, surface, required, log)
		if len(c.MissingExtensions) > 0 {
			log.Infof("device %q lacks extensions: %s", c.Name, strings.Join(c.MissingExtensions, ", "))
		}
		candidates = append(candidates, c)
	}
	best, err := pickCandidate(candidates)
	if err != nil {
		return nil, err
	}
	log.Infof("selected device %q (score %d)", best.Name, best.Score())

	extensions := required
	if best.PortabilitySubset {
		extensions = append(append([]string(nil), extensions...), portabilitySubset)
	}

	var device vk.Device
	queueInfos := buildQueueCreateInfos(best.Families)
	ret := vk.CreateDevice(best.Handle, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		EnabledLayerCount:       uint32(len(cfg.ValidationLayers)),
		PpEnabledLayerNames:     safeStrings(cfg.ValidationLayers),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
	}, nil, &device)
	if err := setupErr(ret, "create logical device"); err != nil {
		return nil, err
	}

	ctx = &Context{
		instance: inst,
		surface:  surface,
		gpu:      best.Handle,
		gpuName:  best.Name,
		device:   device,
		families: best.Families,
	}
	vk.GetDeviceQueue(device, best.Families.GraphicsFamily, 0, &ctx.graphicsQueue)
	vk.GetDeviceQueue(device, best.Families.PresentFamily, 0, &ctx.presentQueue)
	vk.GetPhysicalDeviceMemoryProperties(best.Handle, &ctx.memoryProperties)
	ctx.memoryProperties.Deref()
	return ctx, nil
}
