package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tasklight/tasklight/internal/task"
)

func reconcileInput(orderings ...int64) []*task.Task {
	tasks := make([]*task.Task, len(orderings))

	for i, ordering := range orderings {
		tasks[i] = &task.Task{
			Guid:        guidForIndex(i),
			OrderingUtc: ordering,
			IsSpecial:   ordering < 0,
		}
	}

	return tasks
}

func guidForIndex(i int) string {
	return "00000000-0000-4000-8000-00000000000" + string(rune('0'+i))
}

func TestReconcilePreservesImportOrder(t *testing.T) {
	t.Parallel()

	tasks := reconcileInput(-50, -10, 5)

	reconcileOrdering(tasks, 1_000_000)

	// The resolved task keeps its value.
	require.Equal(t, int64(5), tasks[2].OrderingUtc)
	require.False(t, tasks[2].IsSpecial)

	// Both pending tasks land below the floor, -50 before -10.
	require.Less(t, tasks[0].OrderingUtc, tasks[1].OrderingUtc)
	require.Less(t, tasks[1].OrderingUtc, int64(5))
	require.True(t, tasks[0].IsSpecial)
	require.True(t, tasks[1].IsSpecial)
}

func TestReconcileNoPending(t *testing.T) {
	t.Parallel()

	tasks := reconcileInput(3, 1, 2)

	reconcileOrdering(tasks, 1_000_000)

	require.Equal(t, int64(3), tasks[0].OrderingUtc)
	require.Equal(t, int64(1), tasks[1].OrderingUtc)
	require.Equal(t, int64(2), tasks[2].OrderingUtc)
}

func TestReconcileAllPendingUsesClock(t *testing.T) {
	t.Parallel()

	tasks := reconcileInput(-3, -1, -2)

	const nowTicks = int64(500)

	reconcileOrdering(tasks, nowTicks)

	// Import order by ascending negative value: -3, -2, -1.
	require.Equal(t, nowTicks-3, tasks[0].OrderingUtc)
	require.Equal(t, nowTicks-1, tasks[1].OrderingUtc)
	require.Equal(t, nowTicks-2, tasks[2].OrderingUtc)

	for _, reconciled := range tasks {
		require.True(t, reconciled.IsSpecial)
		require.GreaterOrEqual(t, reconciled.OrderingUtc, int64(0))
	}
}

func TestReconcileEqualSentinelsKeepSliceOrder(t *testing.T) {
	t.Parallel()

	tasks := reconcileInput(-1, -1, -1)

	reconcileOrdering(tasks, 100)

	require.Equal(t, int64(97), tasks[0].OrderingUtc)
	require.Equal(t, int64(98), tasks[1].OrderingUtc)
	require.Equal(t, int64(99), tasks[2].OrderingUtc)
}

func TestReconcileThroughLoadAllIsNotPersisted(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	var ids []string

	for _, ordering := range []int64{-50, -10, 5} {
		created, err := s.NewTask("imported")
		require.NoError(t, err)

		created.OrderingUtc = ordering
		require.NoError(t, s.Create(created))

		ids = append(ids, created.Guid)
	}

	tasks, _, err := s.LoadAll(context.Background(), LoadOptions{})
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	// Final order: -50 import first, then -10, then the resolved 5.
	require.Equal(t, ids[0], tasks[0].Guid)
	require.Equal(t, ids[1], tasks[1].Guid)
	require.Equal(t, ids[2], tasks[2].Guid)
	require.True(t, tasks[0].IsSpecial)
	require.True(t, tasks[1].IsSpecial)
	require.False(t, tasks[2].IsSpecial)

	// The sentinel values stay on disk until the caller updates a task, so
	// the special highlight survives another load.
	require.Equal(t, int64(-50), *s.Overrides().ReadOrdering(ids[0]))
	require.Equal(t, int64(-10), *s.Overrides().ReadOrdering(ids[1]))

	again, _, err := s.LoadAll(context.Background(), LoadOptions{})
	require.NoError(t, err)
	require.True(t, again[0].IsSpecial)

	// An explicit update commits the reconciled value. The committed value
	// becomes the new floor, so the still-pending task now slots below it.
	_, err = s.SetOrdering(ids[0], tasks[0].OrderingUtc)
	require.NoError(t, err)
	require.Equal(t, tasks[0].OrderingUtc, *s.Overrides().ReadOrdering(ids[0]))

	final, _, err := s.LoadAll(context.Background(), LoadOptions{})
	require.NoError(t, err)
	require.Equal(t, ids[1], final[0].Guid)
	require.True(t, final[0].IsSpecial)
	require.Equal(t, ids[0], final[1].Guid)
	require.False(t, final[1].IsSpecial)
	require.Equal(t, ids[2], final[2].Guid)
}
