package checks

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/disk"

	"github.com/hostmend/hostmend/internal/autofix"
	"github.com/hostmend/hostmend/internal/handlers"
	"github.com/hostmend/hostmend/internal/metrics"
)

func init() {
	Register(&DiskCheck{})
}

// DiskCheck watches filesystem usage and dispatches disk-cleanup when the
// configured threshold is breached.
type DiskCheck struct{}

func (c *DiskCheck) Name() string { return "disk" }

func (c *DiskCheck) Run(ctx context.Context, rt *Runtime) (*autofix.Outcome, error) {
	cfg := rt.Resolver.Resolve(c.Name())
	path := cfg.GetString("DISK_CHECK_PATH", "/")
	threshold := cfg.GetFloat("DISK_WARNING_PERCENT", 90)

	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		metrics.RecordCheckRun(c.Name(), "error")
		return nil, fmt.Errorf("read disk usage for %s: %w", path, err)
	}

	if usage.UsedPercent < threshold {
		log.Debug().Str("path", path).Float64("usedPercent", usage.UsedPercent).
			Float64("threshold", threshold).Msg("Disk usage within threshold")
		metrics.RecordCheckRun(c.Name(), "ok")
		return nil, nil
	}

	log.Warn().Str("path", path).
		Float64("usedPercent", usage.UsedPercent).
		Float64("threshold", threshold).
		Uint64("freeBytes", usage.Free).
		Msg("Disk usage over threshold, requesting cleanup")
	metrics.RecordCheckRun(c.Name(), "breach")

	outcome, err := rt.Dispatcher.Dispatch(ctx, autofix.Request{
		Action:          "disk-cleanup",
		RequestedBy:     c.Name(),
		CooldownSeconds: cfg.GetInt("DISK_CLEANUP_COOLDOWN", 300),
	}, handlers.DiskCleanup)
	if err != nil {
		return nil, err
	}
	log.Info().Str("outcome", string(outcome.Kind)).Msg(outcome.String())
	return &outcome, nil
}
