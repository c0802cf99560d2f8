package models

import "time"

// Search outbox operations.
const (
	OutboxOpIndex  = "index"
	OutboxOpDelete = "delete"
)

// SearchOutboxEntry is one pending search-index update, written in the same
// transaction as the listing change it mirrors.
type SearchOutboxEntry struct {
	ID        int64     `db:"id" json:"id"`
	BookID    int64     `db:"book_id" json:"book_id"`
	Op        string    `db:"op" json:"op"`
	Attempts  int       `db:"attempts" json:"attempts"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
