package stm

// Tx is the opaque transaction handle callers receive from Region.Begin
// and must pass to every subsequent Read, Write, Alloc, Free and End call
// until it is consumed. A Tx is bound to the goroutine that began it and
// must be ended on that same goroutine; nothing here is safe to share
// across goroutines.
type Tx struct {
	state *txState
}

// ReadOnly reports whether the transaction was begun as read-only.
func (tx *Tx) ReadOnly() bool {
	return tx.state.isReadOnly
}
