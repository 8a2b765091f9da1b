package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/model"
	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/store"
)

func labelIDs(labels []model.Label) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		out = append(out, l.ID)
	}
	return out
}

func TestAddLabelToTask_Twice(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	list := mustList(t, s, "Work")
	task := mustTask(t, s, list.ID, "Report")
	label := mustLabel(t, s, "urgent")

	added, err := s.AddLabelToTask(ctx, task.ID, label.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddLabelToTask(ctx, task.ID, label.ID)
	require.NoError(t, err)
	assert.False(t, added)

	labels, err := s.GetLabelsForTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{label.ID}, labelIDs(labels))
}

func TestAddLabelToTask_RequiresLiveEndpoints(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	list := mustList(t, s, "Work")
	task := mustTask(t, s, list.ID, "Report")
	label := mustLabel(t, s, "urgent")

	_, err := s.AddLabelToTask(ctx, "missing", label.ID)
	require.ErrorIs(t, err, store.ErrForeignKey)

	_, err = s.AddLabelToTask(ctx, task.ID, "missing")
	require.ErrorIs(t, err, store.ErrForeignKey)

	_, err = s.DeleteLabel(ctx, label.ID)
	require.NoError(t, err)
	_, err = s.AddLabelToTask(ctx, task.ID, label.ID)
	require.ErrorIs(t, err, store.ErrForeignKey)
}

func TestRemoveLabelFromTask(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	list := mustList(t, s, "Work")
	task := mustTask(t, s, list.ID, "Report")
	label := mustLabel(t, s, "urgent")

	_, err := s.AddLabelToTask(ctx, task.ID, label.ID)
	require.NoError(t, err)

	removed, err := s.RemoveLabelFromTask(ctx, task.ID, label.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.RemoveLabelFromTask(ctx, task.ID, label.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestSetTaskLabels_Idempotent(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	list := mustList(t, s, "Work")
	task := mustTask(t, s, list.ID, "Report")
	a := mustLabel(t, s, "a")
	b := mustLabel(t, s, "b")
	c := mustLabel(t, s, "c")

	require.NoError(t, s.SetTaskLabels(ctx, task.ID, []string{a.ID, b.ID}))
	require.NoError(t, s.SetTaskLabels(ctx, task.ID, []string{a.ID, b.ID}))

	labels, err := s.GetLabelsForTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, labelIDs(labels))

	// Duplicates collapse and the set is replaced, not merged.
	require.NoError(t, s.SetTaskLabels(ctx, task.ID, []string{c.ID, c.ID}))
	labels, err = s.GetLabelsForTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, labelIDs(labels))

	require.NoError(t, s.SetTaskLabels(ctx, task.ID, nil))
	labels, err = s.GetLabelsForTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestSetTaskLabels_InvalidIDLeavesStateUnchanged(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	list := mustList(t, s, "Work")
	task := mustTask(t, s, list.ID, "Report")
	a := mustLabel(t, s, "a")
	b := mustLabel(t, s, "b")

	require.NoError(t, s.SetTaskLabels(ctx, task.ID, []string{a.ID}))

	err := s.SetTaskLabels(ctx, task.ID, []string{b.ID, "missing"})
	require.ErrorIs(t, err, store.ErrForeignKey)

	labels, err := s.GetLabelsForTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, labelIDs(labels), "the failed replace must roll back")

	err = s.SetTaskLabels(ctx, "missing", []string{a.ID})
	require.ErrorIs(t, err, store.ErrForeignKey)
}

func TestLinks_DoNotBumpTaskVersion(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	list := mustList(t, s, "Work")
	task := mustTask(t, s, list.ID, "Report")
	label := mustLabel(t, s, "urgent")

	_, err := s.AddLabelToTask(ctx, task.ID, label.ID)
	require.NoError(t, err)

	got, err := s.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, got.Version)
}
