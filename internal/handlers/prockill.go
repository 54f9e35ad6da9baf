package handlers

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/hostmend/hostmend/internal/autofix"
)

// termGraceWait bounds how long ProcessKill waits for a process to honor
// SIGTERM before escalating to SIGKILL. The engine enforces no timeout of
// its own, so the handler must.
const termGraceWait = 10 * time.Second

// ProcessKill terminates a runaway process: SIGTERM, bounded wait, SIGKILL.
// With a PID argument it targets that process; otherwise it picks the
// largest-RSS process on the host. PID 1 and hostmend itself are off limits.
func ProcessKill(ctx context.Context, run *autofix.Run, args []string) (autofix.Result, error) {
	var target *process.Process
	var err error

	if len(args) > 0 {
		pid, convErr := strconv.ParseInt(args[0], 10, 32)
		if convErr != nil {
			return autofix.Result{}, fmt.Errorf("invalid pid argument %q: %w", args[0], convErr)
		}
		target, err = process.NewProcessWithContext(ctx, int32(pid))
		if err != nil {
			return autofix.Result{}, fmt.Errorf("look up pid %d: %w", pid, err)
		}
	} else {
		target, err = topMemoryProcess(ctx)
		if err != nil {
			return autofix.Result{}, fmt.Errorf("find top memory process: %w", err)
		}
	}

	if target.Pid == 1 || int(target.Pid) == os.Getpid() {
		return autofix.Result{Success: false,
			Detail: fmt.Sprintf("refusing to kill pid %d", target.Pid)}, nil
	}

	name, _ := target.NameWithContext(ctx)
	rss := uint64(0)
	if mem, memErr := target.MemoryInfoWithContext(ctx); memErr == nil && mem != nil {
		rss = mem.RSS
	}

	if run.DryRun {
		return autofix.Result{
			Success: true,
			Detail:  fmt.Sprintf("would terminate pid %d (%s, rss %d bytes)", target.Pid, name, rss),
		}, nil
	}

	log.Info().Int32("pid", target.Pid).Str("name", name).Uint64("rss", rss).
		Msg("Sending SIGTERM")
	if err := target.TerminateWithContext(ctx); err != nil {
		return autofix.Result{}, fmt.Errorf("terminate pid %d: %w", target.Pid, err)
	}

	if waitForExit(ctx, target, termGraceWait) {
		return autofix.Result{Success: true,
			Detail: fmt.Sprintf("pid %d (%s) exited after SIGTERM", target.Pid, name)}, nil
	}

	log.Warn().Int32("pid", target.Pid).Str("name", name).
		Msg("Process ignored SIGTERM, escalating to SIGKILL")
	if err := target.KillWithContext(ctx); err != nil {
		return autofix.Result{}, fmt.Errorf("kill pid %d: %w", target.Pid, err)
	}
	return autofix.Result{Success: true,
		Detail: fmt.Sprintf("pid %d (%s) killed after SIGTERM timeout", target.Pid, name)}, nil
}

// topMemoryProcess returns the process with the largest resident set.
func topMemoryProcess(ctx context.Context) (*process.Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	var best *process.Process
	var bestRSS uint64
	for _, p := range procs {
		if p.Pid == 1 || int(p.Pid) == os.Getpid() {
			continue
		}
		mem, err := p.MemoryInfoWithContext(ctx)
		if err != nil || mem == nil {
			continue
		}
		if mem.RSS > bestRSS {
			best, bestRSS = p, mem.RSS
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no candidate process found")
	}
	return best, nil
}

func waitForExit(ctx context.Context, p *process.Process, limit time.Duration) bool {
	deadline := time.Now().Add(limit)
	for time.Now().Before(deadline) {
		running, err := p.IsRunningWithContext(ctx)
		if err != nil || !running {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(250 * time.Millisecond):
		}
	}
	return false
}
