package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionedLockSampleZeroValue(t *testing.T) {
	var vl VersionedLock
	snap := vl.Sample()
	assert.False(t, snap.Locked)
	assert.Zero(t, snap.Version)
}

func TestVersionedLockTryAcquireRejectsStaleVersion(t *testing.T) {
	var vl VersionedLock
	require.NoError(t, vl.TryAcquireNow())
	require.NoError(t, vl.UnlockAt(5))

	err := vl.TryAcquire(4)
	assert.ErrorIs(t, err, ErrStale)
}

func TestVersionedLockTryAcquireRejectsAlreadyLocked(t *testing.T) {
	var vl VersionedLock
	require.NoError(t, vl.TryAcquire(0))
	assert.ErrorIs(t, vl.TryAcquire(0), ErrLocked)
}

func TestVersionedLockUnlockPreservesVersion(t *testing.T) {
	var vl VersionedLock
	require.NoError(t, vl.TryAcquireNow())
	require.NoError(t, vl.UnlockAt(7))
	require.NoError(t, vl.TryAcquireNow())
	require.NoError(t, vl.Unlock())

	snap := vl.Sample()
	assert.False(t, snap.Locked)
	assert.EqualValues(t, 7, snap.Version)
}

func TestVersionedLockUnlockAtPublishesVersion(t *testing.T) {
	var vl VersionedLock
	require.NoError(t, vl.TryAcquireNow())
	require.NoError(t, vl.UnlockAt(42))

	snap := vl.Sample()
	assert.False(t, snap.Locked)
	assert.EqualValues(t, 42, snap.Version)
}

func TestVersionedLockUnlockFailsWhenNotLocked(t *testing.T) {
	var vl VersionedLock
	assert.ErrorIs(t, vl.Unlock(), ErrNotLocked)
	assert.ErrorIs(t, vl.UnlockAt(1), ErrNotLocked)
}

func TestVersionedLockEncodeRejectsOverflow(t *testing.T) {
	assert.Panics(t, func() {
		encode(false, uint64(1)<<versionBits)
	})
}
