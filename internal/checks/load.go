package checks

import (
	"context"
	"fmt"
	"runtime"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/load"

	"github.com/hostmend/hostmend/internal/autofix"
	"github.com/hostmend/hostmend/internal/metrics"
)

func init() {
	Register(&LoadCheck{})
}

// LoadCheck is observe-only: it flags a load average far above the CPU count
// but has no remediation to dispatch. Killing work because the host is busy
// causes more trouble than it cures.
type LoadCheck struct{}

func (c *LoadCheck) Name() string { return "load" }

func (c *LoadCheck) Run(ctx context.Context, rt *Runtime) (*autofix.Outcome, error) {
	cfg := rt.Resolver.Resolve(c.Name())
	mult := cfg.GetFloat("LOAD_WARNING_MULT", 4)

	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		metrics.RecordCheckRun(c.Name(), "error")
		return nil, fmt.Errorf("read load average: %w", err)
	}

	limit := mult * float64(runtime.NumCPU())
	if avg.Load1 >= limit {
		log.Warn().Float64("load1", avg.Load1).Float64("limit", limit).
			Msg("Load average far above CPU count")
		metrics.RecordCheckRun(c.Name(), "breach")
		return nil, nil
	}

	log.Debug().Float64("load1", avg.Load1).Float64("limit", limit).
		Msg("Load average within limits")
	metrics.RecordCheckRun(c.Name(), "ok")
	return nil, nil
}
