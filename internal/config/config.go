// Package config resolves hostmend configuration from four layers of
// ascending precedence:
//
//   - shipped defaults (built in, plus /etc/hostmend/defaults.env)
//   - per-component defaults (/etc/hostmend/components/<name>.env)
//   - machine overrides (/etc/hostmend/overrides.env)
//   - process environment (highest; operator overrides always win)
//
// Layer files are plain KEY=value text. Every check run resolves a fresh
// EffectiveConfig; nothing is cached across runs, so edits to the override
// file take effect on the next invocation without a restart.
package config

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Default filesystem locations. Overridable for tests via Resolver fields.
const (
	DefaultConfigDir = "/etc/hostmend"
	DefaultsFile     = "defaults.env"
	OverridesFile    = "overrides.env"
	ComponentsDir    = "components"
)

// EnvPrefix marks environment variables that are always recognized as
// overrides even when no lower layer defines the key.
const EnvPrefix = "HOSTMEND_"

// Engine configuration keys.
const (
	KeyAutofixEnabled  = "AUTOFIX_ENABLED"
	KeyDisabledActions = "AUTOFIX_DISABLED_ACTIONS"
	KeyDryRun          = "DRY_RUN"
	KeyCheckInterval   = "CHECK_INTERVAL"
	KeyGraceBackend    = "GRACE_BACKEND"
	KeyStateDir        = "STATE_DIR"
	KeyAuditLog        = "AUDIT_LOG"
	KeyLogLevel        = "LOG_LEVEL"
	KeyLogFormat       = "LOG_FORMAT"
	KeyMetricsAddr     = "METRICS_ADDR"
)

// engineKeys are always accepted from the environment, prefix or not.
var engineKeys = map[string]struct{}{
	KeyAutofixEnabled:  {},
	KeyDisabledActions: {},
	KeyDryRun:          {},
	KeyCheckInterval:   {},
	KeyGraceBackend:    {},
	KeyStateDir:        {},
	KeyAuditLog:        {},
	KeyLogLevel:        {},
	KeyLogFormat:       {},
	KeyMetricsAddr:     {},
}

// builtinDefaults is the shipped baseline; the defaults.env layer extends it.
var builtinDefaults = map[string]string{
	KeyAutofixEnabled: "true",
	KeyDryRun:         "false",
	KeyCheckInterval:  "120",
	KeyGraceBackend:   "file",
	KeyStateDir:       "/var/lib/hostmend",
	KeyLogLevel:       "info",
	KeyLogFormat:      "auto",

	"TEMP_WARNING":               "80",
	"TEMP_CRITICAL":              "95",
	"DISK_WARNING_PERCENT":       "90",
	"DISK_CHECK_PATH":            "/",
	"DISK_CLEANUP_PATHS":         "/tmp /var/tmp",
	"DISK_CLEANUP_MAX_AGE_HOURS": "72",
	"MEM_CRITICAL_PERCENT":       "95",
	"LOAD_WARNING_MULT":          "4",
	"GPU_VARIANT":                "auto",
}

// EffectiveConfig is the merged snapshot for one resolution context.
// It is a plain value object: mutating it affects nothing global.
type EffectiveConfig struct {
	component string
	values    map[string]string
}

// Component returns the component name the snapshot was resolved for.
func (c *EffectiveConfig) Component() string {
	return c.component
}

// Get returns the raw value for key and whether it is set.
func (c *EffectiveConfig) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Keys returns all configured keys in sorted order.
func (c *EffectiveConfig) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetString returns the value for key, or def when unset or blank.
func (c *EffectiveConfig) GetString(key, def string) string {
	if v, ok := c.values[key]; ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

// GetInt returns the integer value for key, or def when unset or unparsable.
func (c *EffectiveConfig) GetInt(key string, def int) int {
	v, ok := c.values[key]
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Config value is not an integer, using default")
		return def
	}
	return n
}

// GetFloat returns the float value for key, or def when unset or unparsable.
func (c *EffectiveConfig) GetFloat(key string, def float64) float64 {
	v, ok := c.values[key]
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Config value is not a number, using default")
		return def
	}
	return f
}

// GetBool returns the boolean value for key, or def when unset or unparsable.
// Accepts true/false, yes/no, on/off, 1/0.
func (c *EffectiveConfig) GetBool(key string, def bool) bool {
	v, ok := c.values[key]
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "on", "1":
		return true
	case "false", "no", "off", "0":
		return false
	case "":
		return def
	default:
		log.Warn().Str("key", key).Str("value", v).Msg("Config value is not a boolean, using default")
		return def
	}
}

// GetDurationSeconds reads key as a number of seconds.
func (c *EffectiveConfig) GetDurationSeconds(key string, def time.Duration) time.Duration {
	v, ok := c.values[key]
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		log.Warn().Str("key", key).Str("value", v).Msg("Config value is not a second count, using default")
		return def
	}
	return time.Duration(n) * time.Second
}

// DryRun reports whether the process-wide dry-run flag is set.
func (c *EffectiveConfig) DryRun() bool {
	return c.GetBool(KeyDryRun, false)
}

// NewEffectiveConfig builds a snapshot directly from a map. Test seam and
// entry point for callers that already hold resolved values.
func NewEffectiveConfig(component string, values map[string]string) *EffectiveConfig {
	merged := make(map[string]string, len(values))
	for k, v := range values {
		merged[k] = v
	}
	return &EffectiveConfig{component: component, values: merged}
}
