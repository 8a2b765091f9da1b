package model

// SyncMeta holds the change-tracking columns shared by every primary entity.
// Timestamps are epoch milliseconds.
type SyncMeta struct {
	ID        string `json:"id" db:"id"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
	UpdatedAt int64  `json:"updated_at" db:"updated_at"`
	Version   int64  `json:"version" db:"version"`
	Dirty     bool   `json:"dirty" db:"dirty"`
	DeletedAt *int64 `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsDeleted reports whether the row is soft-deleted.
func (m SyncMeta) IsDeleted() bool {
	return m.DeletedAt != nil
}

// Opt is a single field in a partial update. A zero Opt leaves the column
// untouched; Set marks it for writing, even when Value is the zero value.
// For nullable columns use Opt[*T]: Set with a nil Value writes NULL.
type Opt[T any] struct {
	Value T
	Set   bool
}

// Some returns an Opt that writes v.
func Some[T any](v T) Opt[T] {
	return Opt[T]{Value: v, Set: true}
}

// SomePtr returns an Opt for a nullable column that writes v.
func SomePtr[T any](v T) Opt[*T] {
	return Opt[*T]{Value: &v, Set: true}
}

// Clear returns an Opt for a nullable column that writes NULL.
func Clear[T any]() Opt[*T] {
	return Opt[*T]{Set: true}
}
