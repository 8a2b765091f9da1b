package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/model"
	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/store"
	"github.com/rftsngl/To-Do-List-Mobile-Application/tests/testutil"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// newStore opens an in-memory store driven by a fake clock.
func newStore(t *testing.T) (*store.SQLiteStore, *testutil.Clock) {
	t.Helper()
	clock := testutil.NewClock(epoch)
	return testutil.NewTestStore(t, store.WithClock(clock.Now)), clock
}

func mustList(t *testing.T, s *store.SQLiteStore, name string) *model.List {
	t.Helper()
	l, err := s.CreateList(context.Background(), model.ListInput{Name: name})
	require.NoError(t, err)
	return l
}

func mustTask(t *testing.T, s *store.SQLiteStore, listID, title string) *model.Task {
	t.Helper()
	task, err := s.CreateTask(context.Background(), model.TaskInput{ListID: listID, Title: title})
	require.NoError(t, err)
	return task
}

func mustLabel(t *testing.T, s *store.SQLiteStore, name string) *model.Label {
	t.Helper()
	l, err := s.CreateLabel(context.Background(), model.LabelInput{Name: name})
	require.NoError(t, err)
	return l
}

func mustSubtask(t *testing.T, s *store.SQLiteStore, taskID, title string, order *float64) *model.Subtask {
	t.Helper()
	sub, err := s.CreateSubtask(context.Background(), model.SubtaskInput{
		TaskID:    taskID,
		Title:     title,
		SortOrder: order,
	})
	require.NoError(t, err)
	return sub
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }
