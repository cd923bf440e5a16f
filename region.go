package stm

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	stmsync "github.com/kashmir/stm/internal/sync"
)

// Region is the shared address space the engine manages: one initial
// segment plus a fixed-capacity table of dynamically allocated segments,
// a free-list of unused slots, and the global version clock every
// transaction against this region shares.
type Region struct {
	align       uint64
	maxSegments uint8

	tableMu  sync.Mutex
	table    []*segment // table[0] is the permanent initial segment
	freeList []uint8

	clock stmsync.Clock

	// gcMu guards activeRVs and pendingFrees together: reclamation reads
	// one to decide the other. activeRVs tracks every transaction
	// currently between Begin and End/abort, keyed by its *txState, so a
	// freed segment's slot is never handed back to the free list while a
	// transaction begun before the free's commit might still resolve an
	// Address into it.
	gcMu         sync.Mutex
	activeRVs    map[*txState]uint64
	pendingFrees []pendingFree

	logger  *zap.Logger
	metrics *Metrics
}

// pendingFree is a segment this region has committed to freeing, deferred
// until no active transaction's rv predates the freeing commit's wv.
type pendingFree struct {
	addr Address
	wv   uint64
}

// Create constructs a Region with a first segment of size bytes,
// addressable in units of align. size must be a positive multiple of
// align and align a power of two. Malformed size/align is programmer
// misuse, so Create asserts it via panic rather than returning a
// sentinel. The error result is always nil: an allocation failure while
// building the region is not reported through it.
func Create(size, align uint64, opts ...Option) (*Region, error) {
	if align == 0 || align&(align-1) != 0 {
		panic("stm: align must be a power of two")
	}
	if size == 0 || size%align != 0 {
		panic(errors.Wrapf(ErrInvalidSize, "size=%d align=%d", size, align))
	}

	cfg := defaultRegionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Region{
		align:       align,
		maxSegments: cfg.maxSegments,
		table:       make([]*segment, cfg.maxSegments),
		activeRVs:   make(map[*txState]uint64),
		logger:      cfg.logger,
		metrics:     cfg.metrics,
	}
	r.table[0] = newSegment(size, align)
	for slot := int(cfg.maxSegments) - 1; slot >= 1; slot-- {
		r.freeList = append(r.freeList, uint8(slot))
	}
	r.metrics.setSegmentsInUse(1)

	r.logger.Debug("region created", zap.Uint64("size", size), zap.Uint64("align", align), zap.Uint8("max_segments", cfg.maxSegments))
	return r, nil
}

// Destroy releases the region. The caller must ensure no transaction is
// active against it; Destroy reports ErrRegionBusy rather than leaving
// the violation undefined.
func (r *Region) Destroy() error {
	r.gcMu.Lock()
	active := len(r.activeRVs)
	r.gcMu.Unlock()
	if active != 0 {
		return ErrRegionBusy
	}
	r.logger.Debug("region destroyed")
	return nil
}

// Start returns the opaque address of segment 0, offset 0 -- the start of
// the region's first, non-deallocable segment.
func (r *Region) Start() Address {
	return newAddress(0, 0)
}

// Size returns the byte size of the first segment.
func (r *Region) Size() uint64 {
	return r.table[0].sizeBytes
}

// Align returns the region's word alignment in bytes.
func (r *Region) Align() uint64 {
	return r.align
}

// resolve decodes addr into its backing word, failing if the segment
// slot is empty or the address is otherwise malformed.
func (r *Region) resolve(addr Address) (*word, error) {
	if !addr.valid() {
		return nil, ErrInvalidAddress
	}
	idx := addr.segment()
	if int(idx) >= len(r.table) {
		return nil, ErrInvalidAddress
	}

	r.tableMu.Lock()
	seg := r.table[idx]
	r.tableMu.Unlock()

	if seg == nil {
		return nil, ErrInvalidAddress
	}
	wordIdx := addr.offset() / r.align
	if wordIdx >= uint64(len(seg.words)) {
		return nil, ErrInvalidAddress
	}
	return seg.words[wordIdx], nil
}

// allocate reserves a free segment-table slot under a short critical
// section and constructs a zeroed word array for it, returning the
// opaque start address of the new segment.
func (r *Region) allocate(size uint64) (Address, error) {
	if size == 0 || size%r.align != 0 {
		panic(errors.Wrapf(ErrInvalidSize, "size=%d align=%d", size, r.align))
	}

	r.tableMu.Lock()
	if len(r.freeList) == 0 {
		r.tableMu.Unlock()
		r.metrics.observeAllocFailure()
		r.logger.Warn("segment table exhausted", zap.Uint8("max_segments", r.maxSegments))
		return NullAddress, ErrSegmentTableFull
	}
	slot := r.freeList[len(r.freeList)-1]
	r.freeList = r.freeList[:len(r.freeList)-1]
	r.table[slot] = newSegment(size, r.align)
	inUse := len(r.table) - len(r.freeList)
	r.tableMu.Unlock()

	r.metrics.setSegmentsInUse(inUse)
	return newAddress(slot, 0), nil
}

// markForDeletion atomically flags addr's segment for deletion, returning
// true only to the first caller.
func (r *Region) markForDeletion(addr Address) (bool, error) {
	idx := addr.segment()
	if !addr.valid() || int(idx) >= len(r.table) {
		return false, ErrInvalidAddress
	}
	if idx == 0 {
		panic("stm: the initial segment can never be freed")
	}

	r.tableMu.Lock()
	seg := r.table[idx]
	r.tableMu.Unlock()
	if seg == nil {
		return false, ErrInvalidAddress
	}
	return seg.markForDeletion(), nil
}

// clearDeletionMark undoes a mark set by this transaction when it aborts.
func (r *Region) clearDeletionMark(addr Address) {
	idx := addr.segment()
	r.tableMu.Lock()
	seg := r.table[idx]
	r.tableMu.Unlock()
	if seg != nil {
		seg.clearDeletionMark()
	}
}

// finalizeFree releases addr's segment storage and returns its slot to
// the free list, making it available for reuse by a later allocate. Only
// deferFree's reclaim path calls this -- never commit directly -- so a
// slot is never handed to allocate while any transaction begun before
// this free's commit could still resolve an Address into it.
func (r *Region) finalizeFree(addr Address) {
	idx := addr.segment()

	r.tableMu.Lock()
	r.table[idx] = nil
	r.freeList = append(r.freeList, idx)
	inUse := len(r.table) - len(r.freeList)
	r.tableMu.Unlock()

	r.metrics.setSegmentsInUse(inUse)
}

// registerActive records tx as active so reclaim knows not to finalize
// any free committed after tx's rv until tx ends (Begin).
func (r *Region) registerActive(st *txState) {
	r.gcMu.Lock()
	r.activeRVs[st] = st.rv
	r.gcMu.Unlock()
}

// unregisterActive removes tx from the active set and attempts to
// reclaim any free that was only waiting on tx (End, abort).
func (r *Region) unregisterActive(st *txState) {
	r.gcMu.Lock()
	delete(r.activeRVs, st)
	r.reclaimLocked()
	r.gcMu.Unlock()
}

// deferFree queues addr's segment for finalization at commit version wv,
// reclaiming it immediately if no active transaction could still need it
// (commit, step 4).
func (r *Region) deferFree(addr Address, wv uint64) {
	r.gcMu.Lock()
	r.pendingFrees = append(r.pendingFrees, pendingFree{addr: addr, wv: wv})
	r.reclaimLocked()
	r.gcMu.Unlock()
}

// reclaimLocked finalizes every pending free whose committing wv is no
// greater than every currently active transaction's rv. Rather than keeping one
// reference count per freed segment, it takes the minimum rv across all
// active transactions and compares every pending free against it in one
// pass, which is cheap enough for how rarely frees happen relative to
// reads and writes. Callers must hold gcMu.
func (r *Region) reclaimLocked() {
	if len(r.pendingFrees) == 0 {
		return
	}

	minActiveRV := uint64(1<<64 - 1)
	for _, rv := range r.activeRVs {
		if rv < minActiveRV {
			minActiveRV = rv
		}
	}

	kept := r.pendingFrees[:0]
	for _, pf := range r.pendingFrees {
		if pf.wv <= minActiveRV {
			r.finalizeFree(pf.addr)
		} else {
			kept = append(kept, pf)
		}
	}
	r.pendingFrees = kept
}
