package stm

import "github.com/emirpasic/gods/maps/linkedhashmap"

// txState is the per-transaction machinery behind a Tx handle: a
// read-only flag fixed at begin, the read/write versions, and the
// read/write/free sets. It is created at Begin and discarded at End,
// whether by commit or abort -- nothing here outlives one transaction.
type txState struct {
	isReadOnly bool
	rv         uint64
	wv         uint64

	// readSet is a growable sequence, not a set: it only needs to be an
	// ordered record of addresses observed, and duplicates are harmless
	// to re-validate.
	readSet []Address

	// writeSet maps Address -> private value copy, read-your-own-writes
	// friendly and iterated in stable (insertion) order at commit so the
	// lock-acquisition order is reproducible. Backed by a linked hash map
	// for O(1) lookup with stable iteration order.
	writeSet *linkedhashmap.Map

	// freeSet records addresses this transaction has marked for deletion,
	// so a failed commit or explicit abort can clear those marks again.
	freeSet []Address

	ended bool
}

func newTxState(isReadOnly bool, rv uint64) *txState {
	return &txState{
		isReadOnly: isReadOnly,
		rv:         rv,
		writeSet:   linkedhashmap.New(),
	}
}

// pendingWrite returns the private value buffered for addr, if this
// transaction has already written to it -- the read-your-own-writes path.
func (tx *txState) pendingWrite(addr Address) ([]byte, bool) {
	v, found := tx.writeSet.Get(addr)
	if !found {
		return nil, false
	}
	return v.([]byte), true
}

// bufferWrite stores value under addr in the write set, replacing (and
// thereby freeing, in a GC'd runtime simply dropping the reference to)
// any prior private copy for the same address.
func (tx *txState) bufferWrite(addr Address, value []byte) {
	tx.writeSet.Put(addr, value)
}

func (tx *txState) recordRead(addr Address) {
	tx.readSet = append(tx.readSet, addr)
}

func (tx *txState) recordFree(addr Address) {
	tx.freeSet = append(tx.freeSet, addr)
}

// writeSetAddresses returns the write set's keys in stable insertion
// order.
func (tx *txState) writeSetAddresses() []Address {
	keys := tx.writeSet.Keys()
	addrs := make([]Address, len(keys))
	for i, k := range keys {
		addrs[i] = k.(Address)
	}
	return addrs
}

func (tx *txState) writeSetSize() int {
	return tx.writeSet.Size()
}
