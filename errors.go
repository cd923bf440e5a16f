package stm

import "github.com/pkg/errors"

// AllocStatus is the three-way outcome of Region.Alloc: a successful
// allocation, running out of segment slots, or the transaction having
// been aborted outright.
type AllocStatus int

const (
	AllocSuccess AllocStatus = iota
	AllocNoMem
	AllocAbort
)

func (s AllocStatus) String() string {
	switch s {
	case AllocSuccess:
		return "success"
	case AllocNoMem:
		return "no-memory"
	case AllocAbort:
		return "abort"
	default:
		return "unknown"
	}
}

var (
	// ErrRegionBusy is returned by Destroy when transactions are still
	// active against the region; callers are expected to end every
	// transaction first, so this reports the violation rather than
	// leaving it undefined.
	ErrRegionBusy = errors.New("stm: region still has active transactions")
	// ErrSegmentTableFull is returned by the region's internal allocate
	// when every slot of the fixed-capacity segment table is in use;
	// Region.Alloc reports it to callers as AllocNoMem.
	ErrSegmentTableFull = errors.New("stm: segment table exhausted")
	// ErrInvalidSize is the programmer-misuse signal for sizes that are
	// not a positive multiple of the region's alignment.
	ErrInvalidSize = errors.New("stm: size is not a positive multiple of alignment")
	// ErrInvalidAddress is the programmer-misuse signal for an address
	// that does not belong to the region or whose segment slot is empty.
	// A segment that is only marked for deletion still resolves.
	ErrInvalidAddress = errors.New("stm: address does not resolve to a live segment")
	// ErrTxConsumed is the programmer-misuse signal for operating on a
	// transaction handle that has already been ended.
	ErrTxConsumed = errors.New("stm: transaction has already ended")
)
