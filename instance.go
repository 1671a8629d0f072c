package blackhole

import (
	"runtime"
	"strings"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

const (
	debugReportExtension    = "VK_EXT_debug_report"
	portabilityEnumeration  = "VK_KHR_portability_enumeration"
	enumeratePortabilityBit = 0x00000001 // VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
)

// InstanceConfig is what the Vulkan instance is created with.
type InstanceConfig struct {
	AppName string
	// Extensions are required; usually the window system's list.
	Extensions []string
	// Layers are required when non-empty and enable the debug report callback.
	Layers []string
}

// Instance is the Vulkan instance plus the optional debug report callback.
type Instance struct {
	handle vk.Instance
	dbg    vk.DebugReportCallback
	log    *Logger
	layers []string
}

func NewInstance(cfg InstanceConfig, log *Logger) (*Instance, error) {
	inst := &Instance{dbg: vk.NullDebugReportCallback, log: log}

	extensions := append([]string(nil), cfg.Extensions...)
	if len(cfg.Layers) > 0 {
		available, err := ValidationLayers()
		if err != nil {
			return nil, classify(err, ErrSetup)
		}
		if _, missing := checkExisting(available, cfg.Layers); len(missing) > 0 {
			return nil, errors.Wrapf(ErrSetup, "validation layers requested, but not available: %s",
				strings.Join(missing, ", "))
		}
		inst.layers = cfg.Layers
		extensions = append(extensions, debugReportExtension)
	}

	available, err := InstanceExtensions()
	if err != nil {
		return nil, classify(err, ErrSetup)
	}
	if _, missing := checkExisting(available, extensions); len(missing) > 0 {
		return nil, errors.Wrapf(ErrSetup, "missing instance extensions: %s", strings.Join(missing, ", "))
	}
	// MoltenVK devices are only listed with portability enumeration enabled.
	var flags vk.InstanceCreateFlags
	if found, _ := checkExisting(available, []string{portabilityEnumeration}); runtime.GOOS == "darwin" && len(found) > 0 {
		extensions = append(extensions, portabilityEnumeration)
		flags = vk.InstanceCreateFlags(enumeratePortabilityBit)
	}

	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		Flags: flags,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			PApplicationName:   safeString(cfg.AppName),
			ApplicationVersion: vk.MakeVersion(1, 0, 0),
			PEngineName:        safeString("No Engine"),
			EngineVersion:      vk.MakeVersion(1, 0, 0),
			ApiVersion:         vk.ApiVersion10,
		},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		EnabledLayerCount:       uint32(len(inst.layers)),
		PpEnabledLayerNames:     safeStrings(inst.layers),
	}, nil, &inst.handle)
	if err := setupErr(ret, "create instance"); err != nil {
		return nil, err
	}
	if err := vk.InitInstance(inst.handle); err != nil {
		vk.DestroyInstance(inst.handle, nil)
		return nil, errors.Wrap(classify(err, ErrSetup), "load instance functions")
	}

	if len(inst.layers) > 0 {
		ret := vk.CreateDebugReportCallback(inst.handle, &vk.DebugReportCallbackCreateInfo{
			SType: vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
				vk.DebugReportPerformanceWarningBit),
			PfnCallback: inst.debugReport,
		}, nil, &inst.dbg)
		if err := setupErr(ret, "create debug report callback"); err != nil {
			inst.Destroy()
			return nil, err
		}
	}
	return inst, nil
}

func (i *Instance) Handle() vk.Instance { return i.handle }

// Layers are the validation layers enabled on the instance; devices enable the same.
func (i *Instance) Layers() []string { return i.layers }

// PhysicalDevices lists every GPU the instance can see.
func (i *Instance) PhysicalDevices() ([]vk.PhysicalDevice, error) {
	var count uint32
	ret := vk.EnumeratePhysicalDevices(i.handle, &count, nil)
	if isError(ret) {
		return nil, setupErr(ret, "count physical devices")
	}
	if count == 0 {
		return nil, nil
	}
	gpus := make([]vk.PhysicalDevice, count)
	ret = vk.EnumeratePhysicalDevices(i.handle, &count, gpus)
	if isError(ret) {
		return nil, setupErr(ret, "enumerate physical devices")
	}
	return gpus[:count], nil
}

func (i *Instance) Destroy() {
	if i.handle == nil {
		return
	}
	if i.dbg != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(i.handle, i.dbg, nil)
		i.dbg = vk.NullDebugReportCallback
	}
	vk.DestroyInstance(i.handle, nil)
	i.handle = nil
}

func (i *Instance) debugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		i.log.Errorf("[%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		i.log.Warnf("[%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		i.log.Warnf("performance [%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	default:
		i.log.Infof("[%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
