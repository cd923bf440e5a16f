package stm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadWriteRejectSizeNotMultipleOfAlign(t *testing.T) {
	r := mustCreate(t, 8, 4)
	tx, err := r.Begin(false)
	require.NoError(t, err)

	require.Panics(t, func() {
		r.Read(tx, r.Start(), make([]byte, 3))
	})
	require.Panics(t, func() {
		r.Write(tx, make([]byte, 3), r.Start())
	})
}

func TestOperationsOnEndedTransactionPanic(t *testing.T) {
	r := mustCreate(t, 8, 4)
	tx, err := r.Begin(false)
	require.NoError(t, err)
	require.True(t, r.End(tx))

	require.Panics(t, func() { r.End(tx) })
	require.Panics(t, func() { r.Read(tx, r.Start(), make([]byte, 4)) })
	require.Panics(t, func() { r.Write(tx, make([]byte, 4), r.Start()) })
	require.Panics(t, func() { r.Alloc(tx, 4) })
	require.Panics(t, func() { r.Free(tx, r.Start()) })
}

func TestWriteOnReadOnlyTransactionPanics(t *testing.T) {
	r := mustCreate(t, 8, 4)
	tx, err := r.Begin(true)
	require.NoError(t, err)

	require.Panics(t, func() {
		r.Write(tx, make([]byte, 4), r.Start())
	})
}

func TestAllocReturnsNoMemWhenSegmentTableExhausted(t *testing.T) {
	r, err := Create(8, 4, WithMaxSegments(2))
	require.NoError(t, err)

	tx, err := r.Begin(false)
	require.NoError(t, err)

	_, status := r.Alloc(tx, 4)
	require.Equal(t, AllocSuccess, status)

	_, status = r.Alloc(tx, 4)
	require.Equal(t, AllocNoMem, status)

	require.True(t, r.End(tx))
}

func TestReadInvalidAddressAbortsTransaction(t *testing.T) {
	r := mustCreate(t, 8, 4)
	tx, err := r.Begin(false)
	require.NoError(t, err)

	bogus := newAddress(200, 0)
	ok := r.Read(tx, bogus, make([]byte, 4))
	require.False(t, ok)
	require.True(t, tx.state.ended)
}

func TestReadOnlyTransactionNeverRecordsReadSet(t *testing.T) {
	r := mustCreate(t, 8, 4)
	tx, err := r.Begin(true)
	require.NoError(t, err)
	_ = getU32(t, r, tx, r.Start())
	require.Empty(t, tx.state.readSet)
	require.True(t, r.End(tx))
}

func TestReadWriteTransactionRecordsReadSet(t *testing.T) {
	r := mustCreate(t, 8, 4)
	tx, err := r.Begin(false)
	require.NoError(t, err)
	_ = getU32(t, r, tx, r.Start())
	require.Len(t, tx.state.readSet, 1)
	require.True(t, r.End(tx))
}

func TestRepeatedWriteThenCommitPublishesOnce(t *testing.T) {
	r := mustCreate(t, 8, 4)
	start := r.Start()

	tx, err := r.Begin(false)
	require.NoError(t, err)
	putU32(t, r, tx, start, 1)
	putU32(t, r, tx, start, 2)
	putU32(t, r, tx, start, 3)
	require.Equal(t, 1, tx.state.writeSetSize())
	require.True(t, r.End(tx))

	ro, err := r.Begin(true)
	require.NoError(t, err)
	require.EqualValues(t, 3, getU32(t, r, ro, start))
	require.True(t, r.End(ro))
}
