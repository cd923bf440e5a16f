package stm

import stmsync "github.com/kashmir/stm/internal/sync"

// word is the smallest unit of shared memory the engine tracks: a payload
// of exactly align bytes, guarded by a single versioned lock. Every read
// and write to shared memory ultimately targets one word.
type word struct {
	lock    stmsync.VersionedLock
	payload []byte
}

func newWord(align uint64) *word {
	return &word{payload: make([]byte, align)}
}
