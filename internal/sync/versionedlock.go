// Package sync holds the low-level atomic primitives the engine builds on:
// the per-word versioned lock and the global version clock. Neither type
// enforces ownership or blocks a caller; callers decide what failure to
// acquire or a stale version means for their transaction.
package sync

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// versionBits is the width of the version counter. The lock bit occupies
// the top bit of the word, leaving 63 bits for the version -- wide enough
// that overflow is unreachable in any realistic run.
const versionBits = 63

var (
	// ErrStale is returned by TryAcquire when the sampled version is newer
	// than the caller's last-observed version.
	ErrStale = errors.New("versioned lock: version advanced past caller's snapshot")
	// ErrLocked is returned by TryAcquire when another holder already set
	// the lock bit.
	ErrLocked = errors.New("versioned lock: already locked")
	// ErrNotLocked is returned by Unlock when the lock bit is already clear.
	ErrNotLocked = errors.New("versioned lock: already unlocked")
	// errRaced is returned internally when a compare-and-swap lost to a
	// concurrent mutation; callers translate it into a retry or an abort.
	errRaced = errors.New("versioned lock: compare-and-swap lost a race")
)

// Snapshot is the decoded state of a VersionedLock at one instant: whether
// the lock bit was set and what version the word carried.
type Snapshot struct {
	Locked  bool
	Version uint64
}

// VersionedLock is a single atomic word packing a lock bit and a version
// counter, guarding one shared word of memory. The zero value is unlocked
// at version 0.
type VersionedLock uint64

// Sample performs an acquire load and decodes the lock bit and version.
func (vl *VersionedLock) Sample() Snapshot {
	return decode(atomic.LoadUint64((*uint64)(vl)))
}

// TryAcquire attempts to set the lock bit, failing if the word is already
// locked or its version is newer than lastSeen. Non-blocking: callers that
// lose the race retry or abort, they are never parked. Commit's lock phase
// calls it with the transaction's read version as lastSeen.
func (vl *VersionedLock) TryAcquire(lastSeen uint64) error {
	current := atomic.LoadUint64((*uint64)(vl))
	snap := decode(current)
	if snap.Locked {
		return ErrLocked
	}
	if snap.Version > lastSeen {
		return ErrStale
	}
	desired := encode(true, snap.Version)
	if !atomic.CompareAndSwapUint64((*uint64)(vl), current, desired) {
		return errRaced
	}
	return nil
}

// TryAcquireNow attempts to set the lock bit with no version check, failing
// only if the word is already locked. It gives mutual exclusion alone,
// with no staleness check.
func (vl *VersionedLock) TryAcquireNow() error {
	current := atomic.LoadUint64((*uint64)(vl))
	snap := decode(current)
	if snap.Locked {
		return ErrLocked
	}
	desired := encode(true, snap.Version)
	if !atomic.CompareAndSwapUint64((*uint64)(vl), current, desired) {
		return errRaced
	}
	return nil
}

// Unlock clears the lock bit, leaving the version unchanged. Used to roll
// back a partially acquired write set on a failed commit.
func (vl *VersionedLock) Unlock() error {
	current := atomic.LoadUint64((*uint64)(vl))
	snap := decode(current)
	if !snap.Locked {
		return ErrNotLocked
	}
	atomic.StoreUint64((*uint64)(vl), encode(false, snap.Version))
	return nil
}

// UnlockAt clears the lock bit and sets the version to newVersion in one
// release store, publishing the word's new commit timestamp.
func (vl *VersionedLock) UnlockAt(newVersion uint64) error {
	current := atomic.LoadUint64((*uint64)(vl))
	if !decode(current).Locked {
		return ErrNotLocked
	}
	atomic.StoreUint64((*uint64)(vl), encode(false, newVersion))
	return nil
}

func encode(locked bool, version uint64) uint64 {
	if version>>versionBits != 0 {
		panic(errors.Errorf("versioned lock: version %d overflows %d bits", version, versionBits))
	}
	if locked {
		return (uint64(1) << versionBits) | version
	}
	return version
}

func decode(word uint64) Snapshot {
	return Snapshot{
		Locked:  word>>versionBits == 1,
		Version: word & (uint64(1)<<versionBits - 1),
	}
}
