// Package grace implements the shared grace-period store that rate-limits
// remediation actions across independently scheduled checks.
//
// The store is host-wide and collectively owned: every hostmend process may
// create, read, or age out records. The default backend is one human-readable
// JSON file per action so operators can inspect state with cat; a SQLite
// backend with an atomic upsert is available for stricter environments.
package grace

import (
	"time"
)

// DefaultRetention is the ceiling after which records are garbage-collected
// regardless of their own cooldown.
const DefaultRetention = 24 * time.Hour

// Record is one grace-period entry. One record exists per action identity;
// a new approved execution overwrites the previous record.
type Record struct {
	Action          string    `json:"action"`
	StartedAt       time.Time `json:"started_at"`
	RequestedBy     string    `json:"requested_by"`
	CooldownSeconds int       `json:"cooldown_seconds"`
}

// Status is the result of a grace-period check.
type Status struct {
	InGracePeriod bool
	Remaining     time.Duration // > 0 only when InGracePeriod
	Record        *Record       // nil when no readable record exists
}

// Store is the grace-period backend contract. Implementations must fail open:
// an unreadable or corrupt record is reported as expired (with a logged
// warning), because the grace mechanism is a rate limiter, not a correctness
// gate.
type Store interface {
	// Check reports whether action is still inside its grace period. The
	// effective cooldown is the record's cooldown plus monitorInterval, so an
	// action can never re-fire faster than the detection cycle that decides
	// whether it is still needed.
	Check(action string, monitorInterval time.Duration) (Status, error)

	// Start writes a new record for action, overwriting any previous one.
	// Last writer wins; the narrow check/start race between concurrent
	// processes is accepted (worst case one duplicate firing per cooldown).
	Start(action string, cooldown time.Duration, requestedBy string) error

	// Cleanup removes records older than retention. Invoked opportunistically
	// before dispatch rather than on its own schedule.
	Cleanup(retention time.Duration) error

	// List returns all readable records, for operator inspection.
	List() ([]Record, error)

	// Remove deletes the record for action, if present.
	Remove(action string) error

	// Close releases backend resources.
	Close() error
}

// remaining computes how much grace period is left for a record at now.
func remaining(rec *Record, monitorInterval time.Duration, now time.Time) time.Duration {
	effective := time.Duration(rec.CooldownSeconds)*time.Second + monitorInterval
	return rec.StartedAt.Add(effective).Sub(now)
}
