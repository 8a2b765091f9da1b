package model

// Label is a cross-cutting tag attached to tasks. Names are unique among
// non-deleted labels.
type Label struct {
	SyncMeta
	Name  string  `json:"name" db:"name"`
	Color *string `json:"color,omitempty" db:"color"`
}

// LabelInput carries the caller-supplied fields for a new label.
type LabelInput struct {
	Name  string
	Color *string
}

// LabelPatch is a partial update of a label.
type LabelPatch struct {
	Name  Opt[string]
	Color Opt[*string]
}

// IsEmpty reports whether the patch writes nothing.
func (p LabelPatch) IsEmpty() bool {
	return !p.Name.Set && !p.Color.Set
}

// LabelUsage is a label with the number of live tasks carrying it.
type LabelUsage struct {
	Label
	TaskCount int `json:"task_count" db:"task_count"`
}

// TaskLabel is one row of the task/label junction. It has no identity of its
// own and is never soft-deleted.
type TaskLabel struct {
	TaskID  string `json:"task_id" db:"task_id"`
	LabelID string `json:"label_id" db:"label_id"`
}
