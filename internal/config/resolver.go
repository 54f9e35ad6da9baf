package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/hostmend/hostmend/internal/utils"
)

// Resolver merges the four configuration layers into an EffectiveConfig.
//
// The merge is a pure fold in precedence order into a fresh map; the process
// environment is overlaid last, so an operator-supplied variable always wins
// no matter how often the file layers are re-read. Resolve never fails: a
// missing layer is an empty layer, a malformed layer is logged and skipped,
// and the worst case result is the shipped defaults.
type Resolver struct {
	// Dir is the configuration root. Defaults to DefaultConfigDir.
	Dir string

	// environ overrides os.Environ for tests.
	environ func() []string
}

// NewResolver returns a Resolver rooted at dir (or DefaultConfigDir if empty).
func NewResolver(dir string) *Resolver {
	if dir == "" {
		dir = DefaultConfigDir
	}
	return &Resolver{Dir: dir, environ: os.Environ}
}

// Resolve builds the effective configuration for the given component.
// An empty component skips the per-component layer.
func (r *Resolver) Resolve(component string) *EffectiveConfig {
	merged := make(map[string]string, len(builtinDefaults)+16)
	for k, v := range builtinDefaults {
		merged[k] = v
	}

	r.applyLayer(merged, filepath.Join(r.Dir, DefaultsFile), "defaults")

	if component != "" {
		if err := utils.ValidateIdentifier("component", component); err != nil {
			// Never build a path from a bad name; resolve without the layer.
			log.Warn().Str("component", component).Err(err).
				Msg("Component name rejected, skipping component defaults layer")
		} else {
			r.applyLayer(merged, filepath.Join(r.Dir, ComponentsDir, component+".env"), "component")
		}
	}

	r.applyLayer(merged, filepath.Join(r.Dir, OverridesFile), "machine")

	r.applyEnvironment(merged)

	return &EffectiveConfig{component: component, values: merged}
}

// applyLayer reads one KEY=value file into the merge. Missing files are
// silently treated as empty; anything else degrades with a warning.
func (r *Resolver) applyLayer(merged map[string]string, path, layer string) {
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Str("layer", layer).Str("path", path).Err(err).
				Msg("Config layer unreadable, treating as empty")
		}
		return
	}

	values, err := godotenv.Read(path)
	if err != nil {
		log.Warn().Str("layer", layer).Str("path", path).Err(err).
			Msg("Config layer malformed, skipping")
		return
	}

	for k, v := range values {
		merged[k] = v
	}
	log.Debug().Str("layer", layer).Str("path", path).Int("keys", len(values)).
		Msg("Applied config layer")
}

// applyEnvironment overlays recognized process environment variables.
// Recognized means: the key already exists in a lower layer, the key is one
// of the engine's own keys, or the key carries the HOSTMEND_ prefix (which is
// stripped). Environment values are applied last and therefore always win.
func (r *Resolver) applyEnvironment(merged map[string]string) {
	environ := r.environ
	if environ == nil {
		environ = os.Environ
	}
	applied := 0
	for _, entry := range environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		if stripped, found := strings.CutPrefix(key, EnvPrefix); found && stripped != "" {
			merged[stripped] = value
			applied++
			continue
		}
		if _, known := merged[key]; known {
			merged[key] = value
			applied++
			continue
		}
		if _, engine := engineKeys[key]; engine {
			merged[key] = value
			applied++
		}
	}
	if applied > 0 {
		log.Debug().Int("keys", applied).Msg("Applied environment overrides")
	}
}
