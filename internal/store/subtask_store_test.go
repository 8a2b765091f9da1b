package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/model"
	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/store"
)

func subtaskTitles(subs []model.Subtask) []string {
	out := make([]string, 0, len(subs))
	for _, sub := range subs {
		out = append(out, sub.Title)
	}
	return out
}

func TestCreateSubtask(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	list := mustList(t, s, "Work")
	task := mustTask(t, s, list.ID, "Report")

	sub, err := s.CreateSubtask(ctx, model.SubtaskInput{TaskID: task.ID, Title: "Outline"})
	require.NoError(t, err)
	assert.False(t, sub.Done)
	assert.Nil(t, sub.SortOrder)
	assert.EqualValues(t, 0, sub.Version)
	assert.True(t, sub.Dirty)

	got, err := s.GetSubtaskByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub, got)

	_, err = s.CreateSubtask(ctx, model.SubtaskInput{TaskID: "missing", Title: "x"})
	require.ErrorIs(t, err, store.ErrForeignKey)

	_, err = s.CreateSubtask(ctx, model.SubtaskInput{TaskID: task.ID, Title: ""})
	require.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestGetSubtasksByTask_Order(t *testing.T) {
	s, clock := newStore(t)
	ctx := context.Background()
	list := mustList(t, s, "Work")
	task := mustTask(t, s, list.ID, "Report")
	other := mustTask(t, s, list.ID, "Other")

	clock.Advance(time.Second)
	mustSubtask(t, s, task.ID, "unkeyed old", nil)
	clock.Advance(time.Second)
	mustSubtask(t, s, task.ID, "third", f64(3))
	clock.Advance(time.Second)
	mustSubtask(t, s, task.ID, "first", f64(-1.5))
	clock.Advance(time.Second)
	mustSubtask(t, s, task.ID, "unkeyed new", nil)
	clock.Advance(time.Second)
	mustSubtask(t, s, task.ID, "second", f64(2))
	mustSubtask(t, s, other.ID, "elsewhere", f64(0))

	subs, err := s.GetSubtasksByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"first", "second", "third", "unkeyed old", "unkeyed new"},
		subtaskTitles(subs))
}

func TestAddSubtask_AppendsAtTail(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	list := mustList(t, s, "Work")
	task := mustTask(t, s, list.ID, "Report")

	first, err := s.AddSubtask(ctx, task.ID, "first")
	require.NoError(t, err)
	require.NotNil(t, first.SortOrder)
	assert.InDelta(t, 1.0, *first.SortOrder, 0)

	mustSubtask(t, s, task.ID, "keyed", f64(10))

	next, err := s.AddSubtask(ctx, task.ID, "next")
	require.NoError(t, err)
	assert.InDelta(t, 11.0, *next.SortOrder, 0)

	_, err = s.AddSubtask(ctx, "missing", "x")
	require.ErrorIs(t, err, store.ErrForeignKey)
}

func TestToggleSubtaskDoneAndStats(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	list := mustList(t, s, "Work")
	task := mustTask(t, s, list.ID, "Report")

	a, err := s.AddSubtask(ctx, task.ID, "a")
	require.NoError(t, err)
	_, err = s.AddSubtask(ctx, task.ID, "b")
	require.NoError(t, err)
	_, err = s.AddSubtask(ctx, task.ID, "c")
	require.NoError(t, err)

	toggled, err := s.ToggleSubtaskDone(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Done)
	assert.EqualValues(t, 1, toggled.Version)

	st, err := s.GetSubtaskStats(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 1, st.Completed)
	assert.Equal(t, 2, st.Pending)
	assert.InDelta(t, 33.33, st.CompletionRate, 0.001)

	toggled, err = s.ToggleSubtaskDone(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Done)

	empty, err := s.GetSubtaskStats(ctx, "no-such-task")
	require.NoError(t, err)
	assert.Equal(t, model.SubtaskStats{}, empty)
}

func TestUpdateSubtask(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	list := mustList(t, s, "Work")
	task := mustTask(t, s, list.ID, "Report")
	sub := mustSubtask(t, s, task.ID, "draft", f64(1))

	updated, err := s.UpdateSubtask(ctx, sub.ID, model.SubtaskPatch{
		Title: model.Some("final"),
		Done:  model.Some(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Title)
	assert.True(t, updated.Done)
	assert.Equal(t, f64(1), updated.SortOrder)

	cleared, err := s.UpdateSubtask(ctx, sub.ID, model.SubtaskPatch{SortOrder: model.Clear[float64]()})
	require.NoError(t, err)
	assert.Nil(t, cleared.SortOrder)
	assert.EqualValues(t, 2, cleared.Version)
}

func TestDeleteSubtasksByTask(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	list := mustList(t, s, "Work")
	task := mustTask(t, s, list.ID, "Report")
	mustSubtask(t, s, task.ID, "a", nil)
	b := mustSubtask(t, s, task.ID, "b", nil)

	_, err := s.DeleteSubtask(ctx, b.ID)
	require.NoError(t, err)

	n, err := s.DeleteSubtasksByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "already deleted rows are skipped")

	subs, err := s.GetSubtasksByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)

	all, err := s.GetSubtasks(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRestoreSubtask_RequiresLiveTask(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	list := mustList(t, s, "Work")
	task := mustTask(t, s, list.ID, "Report")
	sub := mustSubtask(t, s, task.ID, "a", nil)

	_, err := s.DeleteSubtask(ctx, sub.ID)
	require.NoError(t, err)
	_, err = s.DeleteTask(ctx, task.ID)
	require.NoError(t, err)

	_, err = s.RestoreSubtask(ctx, sub.ID)
	require.ErrorIs(t, err, store.ErrForeignKey)

	_, err = s.RestoreTask(ctx, task.ID)
	require.NoError(t, err)
	ok, err := s.RestoreSubtask(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHardDeleteSubtask(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	list := mustList(t, s, "Work")
	task := mustTask(t, s, list.ID, "Report")
	sub := mustSubtask(t, s, task.ID, "a", nil)

	ok, err := s.HardDeleteSubtask(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := s.CountSubtasks(ctx, true)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDirtySubtasksAndMarkClean(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	list := mustList(t, s, "Work")
	task := mustTask(t, s, list.ID, "Report")
	sub := mustSubtask(t, s, task.ID, "a", nil)

	dirty, err := s.GetDirtySubtasks(ctx)
	require.NoError(t, err)
	require.Len(t, dirty, 1)

	ok, err := s.MarkSubtaskClean(ctx, sub.ID, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	dirty, err = s.GetDirtySubtasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, dirty)
}
