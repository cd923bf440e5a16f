// Package bench provides a small randomized conflict generator used by
// the engine's concurrency stress test. It is deliberately independent of
// the stm package's types so it can be reused against any callback that
// takes an integer "slot" index to mutate -- the stress test wires it to
// real transactions.
package bench

import "golang.org/x/exp/rand"

// ConflictPlan is one goroutine's worth of randomized work: which slots
// to touch, in which order, for a randomized concurrency test.
type ConflictPlan struct {
	Slots []int
}

// GeneratePlans builds workerCount independent plans, each touching
// opsPerWorker random slots in [0, slotCount). Using
// golang.org/x/exp/rand with an explicit source (rather than math/rand's
// global one) means a failing seed can be pinned and replayed exactly.
func GeneratePlans(seed uint64, workerCount, opsPerWorker, slotCount int) []ConflictPlan {
	src := rand.NewSource(seed)
	rng := rand.New(src)

	plans := make([]ConflictPlan, workerCount)
	for w := range plans {
		slots := make([]int, opsPerWorker)
		for i := range slots {
			slots[i] = rng.Intn(slotCount)
		}
		plans[w] = ConflictPlan{Slots: slots}
	}
	return plans
}
