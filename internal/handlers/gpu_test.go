package handlers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostmend/hostmend/internal/autofix"
	"github.com/hostmend/hostmend/internal/variant"
)

func withProcModules(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modules")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	orig := procModulesPath
	procModulesPath = path
	t.Cleanup(func() { procModulesPath = orig })
}

func TestDetectGPUVariantNvidia(t *testing.T) {
	withProcModules(t, "nvidia_uvm 1994752 2 - Live 0x0000000000000000\n"+
		"nvidia 56717312 120 nvidia_uvm, Live 0x0000000000000000\n"+
		"ext4 917504 1 - Live 0x0000000000000000\n")

	got, err := DetectGPUVariant(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "nvidia", got)
}

func TestDetectGPUVariantAMD(t *testing.T) {
	withProcModules(t, "amdgpu 12693504 35 - Live 0x0000000000000000\n"+
		"drm 659456 10 amdgpu, Live 0x0000000000000000\n")

	got, err := DetectGPUVariant(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "amdgpu", got)
}

func TestDetectGPUVariantNoDriver(t *testing.T) {
	withProcModules(t, "ext4 917504 1 - Live 0x0000000000000000\n")

	_, err := DetectGPUVariant(context.Background())
	assert.Error(t, err)
}

func TestRegisterGPUHandlers(t *testing.T) {
	reg := variant.NewRegistry()
	require.NoError(t, RegisterGPUHandlers(reg))

	assert.Equal(t, []string{"amdgpu", "nvidia"}, reg.Variants(GPURestartFamily))

	handler, name, err := reg.Resolve(context.Background(), GPURestartFamily, "nvidia")
	require.NoError(t, err)
	assert.Equal(t, "nvidia", name)

	result, err := handler(context.Background(), &autofix.Run{DryRun: true}, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Detail, "nvidia_uvm")
}
