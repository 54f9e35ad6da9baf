package autofix

import (
	"strings"

	wildcard "github.com/IGLOU-EU/go-wildcard/v2"

	"github.com/hostmend/hostmend/internal/config"
)

// legacyHandlerExt is the handler extension older deployments carried in
// their disable lists. It is ignored on both sides of the membership test so
// "disk-cleanup.sh" still disables "disk-cleanup".
const legacyHandlerExt = ".sh"

// Enablement is the derived enable/disable view of one config snapshot.
// It holds no state of its own and is recomputed on every dispatch.
type Enablement struct {
	GlobalEnabled   bool
	DisabledActions []string
}

// ComputeEnablement evaluates the enablement keys of cfg. Absence of
// configuration means enabled; only an explicit false disables remediation.
func ComputeEnablement(cfg *config.EffectiveConfig) Enablement {
	return Enablement{
		GlobalEnabled:   cfg.GetBool(config.KeyAutofixEnabled, true),
		DisabledActions: strings.Fields(cfg.GetString(config.KeyDisabledActions, "")),
	}
}

// IsEnabled reports whether action may run, and if not, which scope blocked
// it. An empty action checks only the global flag. Matching is case-sensitive
// and suffix-normalized; entries containing glob metacharacters are treated
// as patterns, so "gpu-*" disables a whole family.
func (e Enablement) IsEnabled(action string) (bool, DisabledScope) {
	if !e.GlobalEnabled {
		return false, ScopeGlobal
	}
	if action == "" {
		return true, ""
	}

	name := trimHandlerExt(action)
	for _, entry := range e.DisabledActions {
		entry = trimHandlerExt(entry)
		if strings.ContainsAny(entry, "*?") {
			if wildcard.Match(entry, name) {
				return false, ScopeSelective
			}
			continue
		}
		if entry == name {
			return false, ScopeSelective
		}
	}
	return true, ""
}

func trimHandlerExt(name string) string {
	return strings.TrimSuffix(name, legacyHandlerExt)
}
