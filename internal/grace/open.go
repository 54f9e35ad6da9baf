package grace

import (
	"fmt"
	"path/filepath"
)

// Open returns the Store for the configured backend. The store lives in the
// grace/ subdirectory of the state dir so the flat files sit next to grace.db
// and operators find everything in one place.
func Open(backend, stateDir string) (Store, error) {
	dir := filepath.Join(stateDir, "grace")
	switch backend {
	case "", "file":
		return NewFileStore(dir)
	case "sqlite":
		return NewSQLiteStore(dir)
	default:
		return nil, fmt.Errorf("unknown grace backend %q (expected \"file\" or \"sqlite\")", backend)
	}
}
