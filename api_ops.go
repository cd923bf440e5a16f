package stm

import "go.uber.org/zap"

// Read copies len(dst) bytes from src into dst, validating every word
// touched against tx's snapshot. len(dst) must be a positive multiple of
// the region's alignment. It returns false, having already aborted tx,
// if any word was found locked or newer than tx's read version.
func (r *Region) Read(tx *Tx, src Address, dst []byte) bool {
	st := tx.state
	if st.ended {
		panic(ErrTxConsumed)
	}
	if len(dst) == 0 || uint64(len(dst))%r.align != 0 {
		panic(ErrInvalidSize)
	}

	nb := uint64(len(dst)) / r.align
	for k := uint64(0); k < nb; k++ {
		addr := src.plus(k * r.align)
		slice := dst[k*r.align : (k+1)*r.align]

		if !st.isReadOnly {
			if value, ok := st.pendingWrite(addr); ok {
				copy(slice, value)
				continue
			}
		}

		w, err := r.resolve(addr)
		if err != nil {
			r.logger.Debug("read aborted: invalid address", zap.Error(err))
			return r.abort(tx)
		}

		pre := w.lock.Sample()
		if pre.Locked || pre.Version > st.rv {
			return r.abort(tx)
		}

		copy(slice, w.payload)

		post := w.lock.Sample()
		if post.Locked || post.Version != pre.Version || post.Version > st.rv {
			return r.abort(tx)
		}

		if !st.isReadOnly {
			st.recordRead(addr)
		}
	}
	return true
}

// Write buffers len(src) bytes from src into tx's private write set, to
// be published at target on a successful commit. len(src) must be a
// positive multiple of the region's alignment. Write never itself fails
// against shared state -- it only buffers -- but it still reports false
// (and aborts) on a malformed target address, so callers can treat every
// transactional operation uniformly.
func (r *Region) Write(tx *Tx, src []byte, target Address) bool {
	st := tx.state
	if st.ended {
		panic(ErrTxConsumed)
	}
	if st.isReadOnly {
		panic("stm: write on a read-only transaction")
	}
	if len(src) == 0 || uint64(len(src))%r.align != 0 {
		panic(ErrInvalidSize)
	}

	nb := uint64(len(src)) / r.align
	for k := uint64(0); k < nb; k++ {
		addr := target.plus(k * r.align)
		if _, err := r.resolve(addr); err != nil {
			return r.abort(tx)
		}

		private := make([]byte, r.align)
		copy(private, src[k*r.align:(k+1)*r.align])
		st.bufferWrite(addr, private)
	}
	return true
}

// Alloc reserves a new segment of size bytes, returning its opaque start
// address. Allocation is not rolled back on abort: an allocated-but-
// never-published segment keeps its segment-table slot for the rest of
// the region's lifetime, a deliberate tradeoff in exchange for a simpler
// protocol.
func (r *Region) Alloc(tx *Tx, size uint64) (Address, AllocStatus) {
	st := tx.state
	if st.ended {
		panic(ErrTxConsumed)
	}

	addr, err := r.allocate(size)
	if err != nil {
		return NullAddress, AllocNoMem
	}
	return addr, AllocSuccess
}

// Free marks addr's segment for deletion; the storage itself is released
// only after tx commits. It returns false, having already aborted tx, if
// addr does not resolve to a live segment this transaction is entitled
// to free.
func (r *Region) Free(tx *Tx, addr Address) bool {
	st := tx.state
	if st.ended {
		panic(ErrTxConsumed)
	}
	if st.isReadOnly {
		panic("stm: free on a read-only transaction")
	}

	firstToMark, err := r.markForDeletion(addr)
	if err != nil || !firstToMark {
		return r.abort(tx)
	}
	st.recordFree(addr)
	return true
}
