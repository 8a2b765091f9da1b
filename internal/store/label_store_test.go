package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/model"
	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/store"
)

func TestCreateLabel_UniqueAmongLive(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	first := mustLabel(t, s, "urgent")

	_, err := s.CreateLabel(ctx, model.LabelInput{Name: "urgent"})
	require.ErrorIs(t, err, store.ErrUniqueConstraint)

	// Once the holder is deleted the name is free again.
	_, err = s.DeleteLabel(ctx, first.ID)
	require.NoError(t, err)
	second, err := s.CreateLabel(ctx, model.LabelInput{Name: "urgent"})
	require.NoError(t, err)

	// Restoring the first would collide with the live second.
	_, err = s.RestoreLabel(ctx, first.ID)
	require.ErrorIs(t, err, store.ErrUniqueConstraint)

	got, err := s.GetLabelByName(ctx, "urgent")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
}

func TestUniqueIndex_BacksNameCheck(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	mustLabel(t, s, "urgent")

	_, err := s.Execute(ctx, `
		INSERT INTO labels (id, name, created_at, updated_at)
		VALUES ('raw', 'urgent', 1, 1)`)
	require.ErrorIs(t, err, store.ErrUniqueConstraint)
}

func TestUpdateLabel(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	urgent := mustLabel(t, s, "urgent")
	mustLabel(t, s, "later")

	_, err := s.UpdateLabel(ctx, urgent.ID, model.LabelPatch{Name: model.Some("later")})
	require.ErrorIs(t, err, store.ErrUniqueConstraint)

	// Renaming to its own name is fine.
	same, err := s.UpdateLabel(ctx, urgent.ID, model.LabelPatch{Name: model.Some("urgent")})
	require.NoError(t, err)
	assert.EqualValues(t, 1, same.Version)

	renamed, err := s.UpdateLabel(ctx, urgent.ID, model.LabelPatch{
		Name:  model.Some("asap"),
		Color: model.SomePtr("red"),
	})
	require.NoError(t, err)
	assert.Equal(t, "asap", renamed.Name)
	assert.Equal(t, "red", *renamed.Color)
	assert.EqualValues(t, 2, renamed.Version)
}

func TestGetLabels_ByName(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	mustLabel(t, s, "zeta")
	mustLabel(t, s, "alpha")
	mustLabel(t, s, "mid")

	labels, err := s.GetLabels(ctx, false)
	require.NoError(t, err)
	require.Len(t, labels, 3)
	assert.Equal(t, "alpha", labels[0].Name)
	assert.Equal(t, "zeta", labels[2].Name)

	n, err := s.CountLabels(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	found, err := s.SearchLabels(ctx, "ET")
	require.NoError(t, err)
	require.Len(t, found, 1, "LIKE is case-insensitive for ASCII")
	assert.Equal(t, "zeta", found[0].Name)

	_, err = s.GetLabelByName(ctx, "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestHardDeleteLabel_RemovesLinks(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	list := mustList(t, s, "Work")
	task := mustTask(t, s, list.ID, "Report")
	label := mustLabel(t, s, "urgent")

	_, err := s.AddLabelToTask(ctx, task.ID, label.ID)
	require.NoError(t, err)

	ok, err := s.HardDeleteLabel(ctx, label.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	labels, err := s.GetLabelsForTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, labels)

	db, err := s.Handle()
	require.NoError(t, err)
	var links int
	require.NoError(t, db.Get(&links, "SELECT COUNT(*) FROM task_labels WHERE label_id = ?", label.ID))
	assert.Zero(t, links)
}

func TestLabelUsage(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	list := mustList(t, s, "Work")
	a := mustTask(t, s, list.ID, "a")
	b := mustTask(t, s, list.ID, "b")
	used := mustLabel(t, s, "used")
	unused := mustLabel(t, s, "unused")
	orphaned := mustLabel(t, s, "orphaned")

	require.NoError(t, s.SetTaskLabels(ctx, a.ID, []string{used.ID}))
	require.NoError(t, s.SetTaskLabels(ctx, b.ID, []string{used.ID, orphaned.ID}))
	_, err := s.DeleteTask(ctx, b.ID)
	require.NoError(t, err)

	idle, err := s.GetUnusedLabels(ctx)
	require.NoError(t, err)
	var names []string
	for _, l := range idle {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{"orphaned", "unused"}, names)

	usage, err := s.GetLabelsWithTaskCounts(ctx)
	require.NoError(t, err)
	counts := map[string]int{}
	for _, u := range usage {
		counts[u.ID] = u.TaskCount
	}
	assert.Equal(t, 1, counts[used.ID])
	assert.Equal(t, 0, counts[unused.ID])
	assert.Equal(t, 0, counts[orphaned.ID])
}
