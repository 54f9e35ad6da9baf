// Package variant routes an action family to the concrete handler for the
// hardware or software variant present on the host.
//
// The registry is populated at startup with validated identifiers mapping to
// handler values; nothing is ever resolved from a filesystem path at call
// time, which closes the injection surface the identifier grammar guards.
package variant

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hostmend/hostmend/internal/autofix"
	"github.com/hostmend/hostmend/internal/errors"
	"github.com/hostmend/hostmend/internal/utils"
)

// AutoSentinel asks the family's detector to probe the running system.
const AutoSentinel = "auto"

// Detector probes the host and returns the variant name to use for a family.
type Detector func(ctx context.Context) (string, error)

type family struct {
	variants map[string]autofix.Handler
	detector Detector
}

// Registry maps action families to their variant handlers.
type Registry struct {
	mu       sync.RWMutex
	families map[string]*family
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{families: make(map[string]*family)}
}

// Register adds a handler for one variant of a family. Family and variant
// names must satisfy the restricted identifier grammar.
func (r *Registry) Register(familyName, variantName string, handler autofix.Handler) error {
	if err := utils.ValidateIdentifier("family", familyName); err != nil {
		return err
	}
	if err := utils.ValidateIdentifier("variant", variantName); err != nil {
		return err
	}
	if variantName == AutoSentinel {
		return errors.WrapValidationError("register_variant", variantName,
			fmt.Errorf("%w: %q is reserved", errors.ErrInvalidIdentifier, AutoSentinel))
	}
	if handler == nil {
		return fmt.Errorf("nil handler for %s/%s", familyName, variantName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	fam, ok := r.families[familyName]
	if !ok {
		fam = &family{variants: make(map[string]autofix.Handler)}
		r.families[familyName] = fam
	}
	fam.variants[variantName] = handler
	return nil
}

// SetDetector installs the auto-detection probe for a family.
func (r *Registry) SetDetector(familyName string, detector Detector) error {
	if err := utils.ValidateIdentifier("family", familyName); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	fam, ok := r.families[familyName]
	if !ok {
		fam = &family{variants: make(map[string]autofix.Handler)}
		r.families[familyName] = fam
	}
	fam.detector = detector
	return nil
}

// Variants returns the registered variant names for a family, sorted.
func (r *Registry) Variants(familyName string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fam, ok := r.families[familyName]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(fam.variants))
	for name := range fam.variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the handler for the configured variant of a family. When
// configured is the "auto" sentinel the family's detector picks the variant.
// Unknown families, unknown variants, and failed detection all come back as
// ErrNoHandler so callers degrade to "no autofix for this condition".
func (r *Registry) Resolve(ctx context.Context, familyName, configured string) (autofix.Handler, string, error) {
	if err := utils.ValidateIdentifier("family", familyName); err != nil {
		return nil, "", err
	}
	if err := utils.ValidateIdentifier("variant", configured); err != nil {
		return nil, "", err
	}

	r.mu.RLock()
	fam, ok := r.families[familyName]
	r.mu.RUnlock()
	if !ok {
		return nil, "", errors.NewAutofixError(errors.ErrorTypeRouting, "resolve_handler",
			fmt.Errorf("%w: unknown action family %q", errors.ErrNoHandler, familyName)).WithAction(familyName)
	}

	variantName := configured
	if configured == AutoSentinel {
		if fam.detector == nil {
			return nil, "", errors.NewAutofixError(errors.ErrorTypeRouting, "resolve_handler",
				fmt.Errorf("%w: family %q has no detector for %q", errors.ErrNoHandler, familyName, AutoSentinel)).WithAction(familyName)
		}
		detected, err := fam.detector(ctx)
		if err != nil {
			return nil, "", errors.NewAutofixError(errors.ErrorTypeRouting, "resolve_handler",
				fmt.Errorf("%w: variant detection for %q failed: %v", errors.ErrNoHandler, familyName, err)).WithAction(familyName)
		}
		// Detector output crosses the same boundary as configured values.
		if err := utils.ValidateIdentifier("variant", detected); err != nil {
			return nil, "", err
		}
		variantName = detected
		log.Debug().Str("family", familyName).Str("variant", detected).Msg("Variant auto-detected")
	}

	r.mu.RLock()
	handler, ok := fam.variants[variantName]
	r.mu.RUnlock()
	if !ok {
		return nil, "", errors.NewAutofixError(errors.ErrorTypeRouting, "resolve_handler",
			fmt.Errorf("%w: family %q has no variant %q (have %v)", errors.ErrNoHandler, familyName, variantName, r.Variants(familyName))).WithAction(familyName)
	}
	return handler, variantName, nil
}
