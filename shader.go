package blackhole

//go:generate glslc shaders/shader.vert -o shaders/vert.spv
//go:generate glslc shaders/shader.frag -o shaders/frag.spv

import (
	"encoding/binary"
	"os"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

const spirvMagic = 0x07230203

// ShaderSource is one precompiled SPIR-V stage.
type ShaderSource struct {
	Stage vk.ShaderStageFlagBits
	Code  []byte
}

// LoadShader reads a SPIR-V blob from disk and checks its framing.
func LoadShader(path string, stage vk.ShaderStageFlagBits) (ShaderSource, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return ShaderSource{}, errors.Wrap(classify(err, ErrSetup), "read shader")
	}
	if err := checkSPIRV(code); err != nil {
		return ShaderSource{}, errors.Wrapf(err, "shader %s", path)
	}
	return ShaderSource{Stage: stage, Code: code}, nil
}

// checkSPIRV rejects blobs that cannot be SPIR-V: empty, not word aligned or
// missing the magic number.
func checkSPIRV(code []byte) error {
	switch {
	case len(code) == 0:
		return errors.Wrap(ErrSetup, "empty SPIR-V")
	case len(code)%4 != 0:
		return errors.Wrapf(ErrSetup, "SPIR-V size %d is not a multiple of 4", len(code))
	case binary.LittleEndian.Uint32(code) != spirvMagic:
		return errors.Wrapf(ErrSetup, "bad SPIR-V magic %#08x", binary.LittleEndian.Uint32(code))
	}
	return nil
}

func newShaderModule(device vk.Device, code []byte) (vk.ShaderModule, error) {
	var module vk.ShaderModule
	ret := vk.CreateShaderModule(device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}, nil, &module)
	if err := setupErr(ret, "create shader module"); err != nil {
		return vk.NullShaderModule, err
	}
	return module, nil
}
