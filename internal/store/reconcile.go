package store

import (
	"slices"

	"github.com/tasklight/tasklight/internal/task"
)

// reconcileOrdering assigns stable sort positions to tasks carrying the
// unassigned (negative) ordering sentinel. Pending tasks keep their relative
// import order (more-negative sorts earlier) and are placed, as a block,
// before every task that already has a resolved ordering. The assigned
// values live only in memory: nothing is persisted until the caller
// explicitly updates a task, so the special highlight survives repeated
// loads until the user acts.
func reconcileOrdering(tasks []*task.Task, nowTicks int64) {
	var pending []*task.Task

	floor := nowTicks
	haveResolved := false

	for _, t := range tasks {
		if t.OrderingUtc < 0 {
			pending = append(pending, t)

			continue
		}

		if !haveResolved || t.OrderingUtc < floor {
			floor = t.OrderingUtc
			haveResolved = true
		}
	}

	if len(pending) == 0 {
		return
	}

	// Existing negative values encode the import sequence.
	slices.SortStableFunc(pending, func(a, b *task.Task) int {
		switch {
		case a.OrderingUtc < b.OrderingUtc:
			return -1
		case a.OrderingUtc > b.OrderingUtc:
			return 1
		default:
			return 0
		}
	})

	// The block occupies floor-n .. floor-1, keeping the sorted order.
	n := int64(len(pending))
	for i, t := range pending {
		t.OrderingUtc = floor - n + int64(i)
		t.IsSpecial = true
	}
}
