package model

import "fmt"

// TaskStatus is the workflow state of a task.
type TaskStatus string

// Task status constants.
const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusDone       TaskStatus = "done"
)

// Priority levels, lowest to highest.
const (
	PriorityNone   = 0
	PriorityLow    = 1
	PriorityMedium = 2
	PriorityHigh   = 3
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusBlocked, TaskStatusDone:
		return true
	}
	return false
}

// Active reports whether the task still needs work.
func (s TaskStatus) Active() bool {
	return s != TaskStatusDone
}

// ParseTaskStatus validates a raw status string.
func ParseTaskStatus(raw string) (TaskStatus, error) {
	s := TaskStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown task status %q", raw)
	}
	return s, nil
}

// ValidPriority reports whether p is within 0..3.
func ValidPriority(p int) bool {
	return p >= PriorityNone && p <= PriorityHigh
}

// Task is a unit of work inside a list. Dates are epoch milliseconds.
type Task struct {
	SyncMeta
	ListID      string     `json:"list_id" db:"list_id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description,omitempty" db:"description"`
	Status      TaskStatus `json:"status" db:"status"`
	Priority    int        `json:"priority" db:"priority"`
	StartDate   *int64     `json:"start_date,omitempty" db:"start_date"`
	DueDate     *int64     `json:"due_date,omitempty" db:"due_date"`
	CompletedAt *int64     `json:"completed_at,omitempty" db:"completed_at"`
}

// TaskInput carries the caller-supplied fields for a new task. An empty
// Status defaults to todo.
type TaskInput struct {
	ListID      string
	Title       string
	Description *string
	Status      TaskStatus
	Priority    int
	StartDate   *int64
	DueDate     *int64
	CompletedAt *int64
}

// TaskPatch is a partial update of a task.
type TaskPatch struct {
	ListID      Opt[string]
	Title       Opt[string]
	Description Opt[*string]
	Status      Opt[TaskStatus]
	Priority    Opt[int]
	StartDate   Opt[*int64]
	DueDate     Opt[*int64]
	CompletedAt Opt[*int64]
}

// IsEmpty reports whether the patch writes nothing.
func (p TaskPatch) IsEmpty() bool {
	return !p.ListID.Set && !p.Title.Set && !p.Description.Set &&
		!p.Status.Set && !p.Priority.Set && !p.StartDate.Set &&
		!p.DueDate.Set && !p.CompletedAt.Set
}
