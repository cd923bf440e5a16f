package stm

// Atomic runs fn inside a read-write transaction against region, retrying
// with a fresh transaction each time fn's transaction aborts, until it
// commits. fn reports whether its work completed (true) or should be
// abandoned and retried (false) -- it never sees a partially-applied
// write set either way, since a false End is always a full abort.
//
// This is not one of Region's literal begin/read/write/end entry points;
// it is the ergonomic retry loop every caller of Begin/End ends up
// hand-rolling, built on top of them rather than folded into them.
func Atomic(region *Region, fn func(tx *Tx) bool) bool {
	for {
		tx, err := region.Begin(false)
		if err != nil {
			return false
		}

		if !fn(tx) {
			// fn may have already aborted tx itself (e.g. via a failed
			// Read/Write). Abandoning it here is always modeled as an
			// abort, never as a trivial commit of an empty write set, so
			// a still-live tx is force-aborted rather than Ended.
			if !tx.state.ended {
				region.abort(tx)
			}
			continue
		}

		if region.End(tx) {
			return true
		}
	}
}
