package results

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/mayant15/railcar-bench/internal/cmn/fileutil"
)

// LockFileName is the lock file kept in the base results directory.
const LockFileName = ".railcar-bench.lock"

// ErrLocked is returned when another campaign holds the lock.
var ErrLocked = errors.New("results directory is in use by another campaign")

// Lock takes the campaign lock of base so that two campaigns never pick
// their baselines from, or write into, the same directory at once. The
// returned lock must be released with Unlock.
func Lock(base string) (*flock.Flock, error) {
	if err := fileutil.EnsureDirs(base); err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(base, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", base, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, base)
	}
	return lock, nil
}
