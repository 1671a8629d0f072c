package blackhole

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func spirvHeader(words ...uint32) []byte {
	code := make([]byte, 4*(len(words)+1))
	binary.LittleEndian.PutUint32(code, spirvMagic)
	for i, w := range words {
		binary.LittleEndian.PutUint32(code[4*(i+1):], w)
	}
	return code
}

func TestCheckSPIRV(t *testing.T) {
	assert.NoError(t, checkSPIRV(spirvHeader(0x00010000, 0)))

	for name, code := range map[string][]byte{
		"empty":     nil,
		"unaligned": append(spirvHeader(), 0),
		"bad magic": {0xde, 0xad, 0xbe, 0xef},
	} {
		err := checkSPIRV(code)
		assert.True(t, errors.Is(err, ErrSetup), name)
	}
}

func TestLoadShader(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "vert.spv")
	require.NoError(t, os.WriteFile(good, spirvHeader(0x00010000), 0644))

	src, err := LoadShader(good, vk.ShaderStageVertexBit)
	require.NoError(t, err)
	assert.Equal(t, vk.ShaderStageVertexBit, src.Stage)
	assert.Len(t, src.Code, 8)

	_, err = LoadShader(filepath.Join(dir, "frag.spv"), vk.ShaderStageFragmentBit)
	assert.True(t, errors.Is(err, ErrSetup))

	bad := filepath.Join(dir, "bad.spv")
	require.NoError(t, os.WriteFile(bad, []byte("not spirv"), 0644))
	_, err = LoadShader(bad, vk.ShaderStageFragmentBit)
	assert.True(t, errors.Is(err, ErrSetup))
}
