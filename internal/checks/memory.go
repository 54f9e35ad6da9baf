package checks

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/hostmend/hostmend/internal/autofix"
	"github.com/hostmend/hostmend/internal/handlers"
	"github.com/hostmend/hostmend/internal/metrics"
)

func init() {
	Register(&MemoryCheck{})
}

// MemoryCheck watches memory pressure and dispatches an emergency process
// kill when usage crosses the critical threshold.
type MemoryCheck struct{}

func (c *MemoryCheck) Name() string { return "memory" }

func (c *MemoryCheck) Run(ctx context.Context, rt *Runtime) (*autofix.Outcome, error) {
	cfg := rt.Resolver.Resolve(c.Name())
	threshold := cfg.GetFloat("MEM_CRITICAL_PERCENT", 95)

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		metrics.RecordCheckRun(c.Name(), "error")
		return nil, fmt.Errorf("read memory stats: %w", err)
	}

	if vm.UsedPercent < threshold {
		log.Debug().Float64("usedPercent", vm.UsedPercent).
			Float64("threshold", threshold).Msg("Memory usage within threshold")
		metrics.RecordCheckRun(c.Name(), "ok")
		return nil, nil
	}

	log.Warn().
		Float64("usedPercent", vm.UsedPercent).
		Float64("threshold", threshold).
		Uint64("availableBytes", vm.Available).
		Msg("Memory pressure critical, requesting emergency process kill")
	metrics.RecordCheckRun(c.Name(), "breach")

	outcome, err := rt.Dispatcher.Dispatch(ctx, autofix.Request{
		Action:          "emergency-process-kill",
		RequestedBy:     c.Name(),
		CooldownSeconds: cfg.GetInt("MEM_KILL_COOLDOWN", 600),
	}, handlers.ProcessKill)
	if err != nil {
		return nil, err
	}
	log.Info().Str("outcome", string(outcome.Kind)).Msg(outcome.String())
	return &outcome, nil
}
