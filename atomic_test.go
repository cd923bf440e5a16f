package stm

import (
	"encoding/binary"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAtomicCommitsOnSuccess(t *testing.T) {
	r := mustCreate(t, 8, 4)
	start := r.Start()

	ok := Atomic(r, func(tx *Tx) bool {
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, 99)
		return r.Write(tx, buf, start)
	})
	require.True(t, ok)

	ro, err := r.Begin(true)
	require.NoError(t, err)
	require.EqualValues(t, 99, getU32(t, r, ro, start))
	require.True(t, r.End(ro))
}

func TestAtomicRetriesUntilCommit(t *testing.T) {
	r := mustCreate(t, 8, 4)
	start := r.Start()
	other := start.plus(4)

	attempts := 0
	ok := Atomic(r, func(tx *Tx) bool {
		attempts++

		buf := make([]byte, 4)
		require.True(t, r.Read(tx, start, buf)) // adds `start` to the read set

		if attempts == 1 {
			// Interleave a conflicting commit to `start` between this
			// attempt's read and its end, so the first attempt's
			// read-set validation is guaranteed to fail and Atomic must
			// retry with a fresh rv.
			interloper, err := r.Begin(false)
			require.NoError(t, err)
			putU32(t, r, interloper, start, 111)
			require.True(t, r.End(interloper))
		}

		binary.LittleEndian.PutUint32(buf, 222)
		return r.Write(tx, buf, other)
	})
	require.True(t, ok)
	require.Equal(t, 2, attempts)

	ro, err := r.Begin(true)
	require.NoError(t, err)
	require.EqualValues(t, 222, getU32(t, r, ro, other))
	require.True(t, r.End(ro))
}

func TestAtomicConcurrentIncrementsAreSerialized(t *testing.T) {
	r := mustCreate(t, 4, 4)
	start := r.Start()

	const goroutines, incrementsEach = 20, 50
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < incrementsEach; j++ {
				Atomic(r, func(tx *Tx) bool {
					buf := make([]byte, 4)
					if !r.Read(tx, start, buf) {
						// A contended read aborts tx; Atomic retries it.
						require.True(t, tx.state.ended)
						return false
					}
					v := binary.LittleEndian.Uint32(buf)
					binary.LittleEndian.PutUint32(buf, v+1)
					return r.Write(tx, buf, start)
				})
			}
		}()
	}
	wg.Wait()

	ro, err := r.Begin(true)
	require.NoError(t, err)
	require.EqualValues(t, goroutines*incrementsEach, getU32(t, r, ro, start))
	require.True(t, r.End(ro))
}
