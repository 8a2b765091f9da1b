package model

// List is a named container of tasks.
type List struct {
	SyncMeta
	Name  string  `json:"name" db:"name"`
	Color *string `json:"color,omitempty" db:"color"`
}

// ListInput carries the caller-supplied fields for a new list.
type ListInput struct {
	Name  string
	Color *string
}

// ListPatch is a partial update of a list.
type ListPatch struct {
	Name  Opt[string]
	Color Opt[*string]
}

// IsEmpty reports whether the patch writes nothing.
func (p ListPatch) IsEmpty() bool {
	return !p.Name.Set && !p.Color.Set
}

// ListSummary is a list with aggregate task counts for overview screens.
type ListSummary struct {
	List
	TaskCount      int `json:"task_count" db:"task_count"`
	CompletedCount int `json:"completed_count" db:"completed_count"`
}
