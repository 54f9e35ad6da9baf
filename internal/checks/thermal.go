package checks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/sensors"

	"github.com/hostmend/hostmend/internal/autofix"
	hosterrors "github.com/hostmend/hostmend/internal/errors"
	"github.com/hostmend/hostmend/internal/handlers"
	"github.com/hostmend/hostmend/internal/metrics"
)

func init() {
	Register(&ThermalCheck{})
}

// ThermalCheck watches sensor temperatures. Warnings are logged; a GPU
// sensor over the warning threshold asks for a chipset-specific driver
// restart, and any sensor over the critical threshold requests a host
// shutdown.
type ThermalCheck struct{}

func (c *ThermalCheck) Name() string { return "thermal" }

func (c *ThermalCheck) Run(ctx context.Context, rt *Runtime) (*autofix.Outcome, error) {
	cfg := rt.Resolver.Resolve(c.Name())
	warning := cfg.GetFloat("TEMP_WARNING", 80)
	critical := cfg.GetFloat("TEMP_CRITICAL", 95)

	temps, err := sensors.TemperaturesWithContext(ctx)
	if err != nil {
		// Partial sensor data still comes back alongside the error on many
		// platforms; only give up when there is nothing at all.
		if len(temps) == 0 {
			metrics.RecordCheckRun(c.Name(), "error")
			return nil, fmt.Errorf("read temperature sensors: %w", err)
		}
		log.Debug().Err(err).Msg("Partial sensor read, continuing with available data")
	}

	var hottest sensors.TemperatureStat
	var gpuHot *sensors.TemperatureStat
	for i, t := range temps {
		if t.Temperature > hottest.Temperature {
			hottest = t
		}
		if t.Temperature >= warning && isGPUSensor(t.SensorKey) && gpuHot == nil {
			gpuHot = &temps[i]
		}
	}

	switch {
	case hottest.Temperature >= critical:
		log.Error().Str("sensor", hottest.SensorKey).
			Float64("temperature", hottest.Temperature).
			Float64("critical", critical).
			Msg("Temperature critical, requesting host shutdown")
		metrics.RecordCheckRun(c.Name(), "breach")

		outcome, err := rt.Dispatcher.Dispatch(ctx, autofix.Request{
			Action:          "thermal-shutdown",
			RequestedBy:     c.Name(),
			CooldownSeconds: cfg.GetInt("THERMAL_SHUTDOWN_COOLDOWN", 900),
			Args:            []string{fmt.Sprintf("%s=%.1fC", hottest.SensorKey, hottest.Temperature)},
		}, handlers.ThermalShutdown)
		if err != nil {
			return nil, err
		}
		log.Info().Str("outcome", string(outcome.Kind)).Msg(outcome.String())
		return &outcome, nil

	case gpuHot != nil:
		log.Warn().Str("sensor", gpuHot.SensorKey).
			Float64("temperature", gpuHot.Temperature).
			Float64("warning", warning).
			Msg("GPU running hot, requesting driver restart")
		metrics.RecordCheckRun(c.Name(), "breach")
		return c.dispatchGPURestart(ctx, rt, cfg.GetString("GPU_VARIANT", "auto"),
			cfg.GetInt("GPU_RESTART_COOLDOWN", 600))

	case hottest.Temperature >= warning:
		log.Warn().Str("sensor", hottest.SensorKey).
			Float64("temperature", hottest.Temperature).
			Float64("warning", warning).
			Msg("Temperature over warning threshold")
		metrics.RecordCheckRun(c.Name(), "breach")
		return nil, nil
	}

	log.Debug().Float64("hottest", hottest.Temperature).Msg("Temperatures within thresholds")
	metrics.RecordCheckRun(c.Name(), "ok")
	return nil, nil
}

func (c *ThermalCheck) dispatchGPURestart(ctx context.Context, rt *Runtime, configured string, cooldown int) (*autofix.Outcome, error) {
	handler, variantName, err := rt.Variants.Resolve(ctx, handlers.GPURestartFamily, configured)
	if err != nil {
		if errors.Is(err, hosterrors.ErrNoHandler) {
			// No autofix for this hardware; keep monitoring.
			log.Warn().Err(err).Msg("No GPU restart handler available")
			return nil, nil
		}
		return nil, err
	}

	outcome, err := rt.Dispatcher.Dispatch(ctx, autofix.Request{
		Action:          handlers.GPURestartFamily + "-" + variantName,
		RequestedBy:     c.Name(),
		CooldownSeconds: cooldown,
	}, handler)
	if err != nil {
		return nil, err
	}
	log.Info().Str("outcome", string(outcome.Kind)).Msg(outcome.String())
	return &outcome, nil
}

func isGPUSensor(key string) bool {
	key = strings.ToLower(key)
	return strings.Contains(key, "gpu") || strings.Contains(key, "edge") ||
		strings.Contains(key, "junction")
}
