package handlers

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hostmend/hostmend/internal/autofix"
	"github.com/hostmend/hostmend/internal/variant"
)

// GPURestartFamily is the action family for chipset-specific driver resets.
const GPURestartFamily = "gpu-restart"

// procModulesPath lists loaded kernel modules; overridable for tests.
var procModulesPath = "/proc/modules"

// gpuVariants maps variant names to the kernel modules they reload.
var gpuVariants = map[string][]string{
	"nvidia": {"nvidia_uvm"},
	"amdgpu": {"amdgpu"},
}

// RegisterGPUHandlers populates the registry with the gpu-restart family and
// its auto-detector.
func RegisterGPUHandlers(reg *variant.Registry) error {
	for name, modules := range gpuVariants {
		if err := reg.Register(GPURestartFamily, name, moduleReloadHandler(name, modules)); err != nil {
			return err
		}
	}
	return reg.SetDetector(GPURestartFamily, DetectGPUVariant)
}

// DetectGPUVariant probes loaded kernel modules to pick the GPU variant.
func DetectGPUVariant(ctx context.Context) (string, error) {
	data, err := os.ReadFile(procModulesPath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", procModulesPath, err)
	}

	loaded := make(map[string]bool)
	for _, line := range strings.Split(string(data), "\n") {
		if name, _, ok := strings.Cut(line, " "); ok && name != "" {
			loaded[name] = true
		}
	}

	switch {
	case loaded["nvidia"]:
		return "nvidia", nil
	case loaded["amdgpu"]:
		return "amdgpu", nil
	}
	return "", fmt.Errorf("no known GPU driver module loaded")
}

// moduleReloadHandler builds the handler that unloads and reloads the given
// kernel modules via modprobe.
func moduleReloadHandler(variantName string, modules []string) autofix.Handler {
	return func(ctx context.Context, run *autofix.Run, args []string) (autofix.Result, error) {
		if run.DryRun {
			return autofix.Result{
				Success: true,
				Detail: fmt.Sprintf("would reload %s modules: %s",
					variantName, strings.Join(modules, " ")),
			}, nil
		}

		for _, module := range modules {
			if out, err := runCommand(ctx, "modprobe", "-r", module); err != nil {
				return autofix.Result{}, fmt.Errorf("unload %s: %w (%s)", module, err, out)
			}
			if out, err := runCommand(ctx, "modprobe", module); err != nil {
				return autofix.Result{}, fmt.Errorf("reload %s: %w (%s)", module, err, out)
			}
			log.Info().Str("module", module).Str("variant", variantName).Msg("Kernel module reloaded")
		}
		return autofix.Result{
			Success: true,
			Detail:  fmt.Sprintf("reloaded %s modules: %s", variantName, strings.Join(modules, " ")),
		}, nil
	}
}

// runCommand executes a system command with a bounded lifetime and returns
// its combined output trimmed for error messages.
func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}
