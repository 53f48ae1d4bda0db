// Package history persists a durable audit trail of UiEvents to
// SQLite, independent of the bounded in-memory event bus, so an
// operator can review what happened after the fact.
package history

import "time"

// Record is a single audit-log row. Params carries a JSON encoding of
// whatever typed fields the source UiEvent had, since the event set is
// heterogeneous and the log is read-only from the API's perspective.
type Record struct {
	// Seq is the insertion order; Recent sorts by it alone, newest
	// first.
	Seq       uint64 `gorm:"primaryKey;autoIncrement"`
	ID        string `gorm:"uniqueIndex"`
	CreatedAt time.Time
	Kind      string `gorm:"index"`
	CueID     string
	Message   string
	Params    string
}

// TableName pins the table name so it doesn't follow GORM's default
// pluralization if Record is ever renamed.
func (Record) TableName() string { return "history_records" }
