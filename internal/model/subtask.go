package model

// Subtask is a checklist entry within a task. SortOrder is a fractional
// position key; rows without one sort after keyed rows.
type Subtask struct {
	SyncMeta
	TaskID    string   `json:"task_id" db:"task_id"`
	Title     string   `json:"title" db:"title"`
	Done      bool     `json:"done" db:"done"`
	SortOrder *float64 `json:"sort_order,omitempty" db:"sort_order"`
}

// SubtaskInput carries the caller-supplied fields for a new subtask.
type SubtaskInput struct {
	TaskID    string
	Title     string
	Done      bool
	SortOrder *float64
}

// SubtaskPatch is a partial update of a subtask.
type SubtaskPatch struct {
	Title     Opt[string]
	Done      Opt[bool]
	SortOrder Opt[*float64]
}

// IsEmpty reports whether the patch writes nothing.
func (p SubtaskPatch) IsEmpty() bool {
	return !p.Title.Set && !p.Done.Set && !p.SortOrder.Set
}

// SubtaskStats summarizes completion of a task's subtasks.
type SubtaskStats struct {
	Total          int     `json:"total" db:"total"`
	Completed      int     `json:"completed" db:"completed"`
	Pending        int     `json:"pending" db:"pending"`
	CompletionRate float64 `json:"completion_rate" db:"-"`
}

// SubtaskMove describes a reorder request. BeforeID is the sibling the
// subtask should land in front of, AfterID the one it should follow. Either
// or both may be empty.
type SubtaskMove struct {
	SubtaskID string
	BeforeID  string
	AfterID   string
}
