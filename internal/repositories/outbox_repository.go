package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"bookmarket/internal/models"
)

// Entries that keep failing are abandoned after this many attempts so one
// poisoned row cannot wedge the drainer.
const maxOutboxAttempts = 5

// OutboxRepository drains pending search-index updates. Entries are written
// by BookRepo inside the listing transactions.
type OutboxRepository interface {
	PendingEntries(ctx context.Context, limit int) ([]models.SearchOutboxEntry, error)
	MarkProcessed(ctx context.Context, entryID int64) error
	MarkFailed(ctx context.Context, entryID int64) error
}

// OutboxRepo is a sqlx implementation of OutboxRepository.
type OutboxRepo struct {
	db *sqlx.DB
}

// NewOutboxRepo constructs an OutboxRepo.
func NewOutboxRepo(db *sqlx.DB) *OutboxRepo {
	return &OutboxRepo{db: db}
}

// PendingEntries returns unprocessed entries in insertion order.
func (r *OutboxRepo) PendingEntries(ctx context.Context, limit int) ([]models.SearchOutboxEntry, error) {
	var entries []models.SearchOutboxEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT id, book_id, op, attempts, created_at FROM search_outbox
         WHERE processed_at IS NULL AND attempts < $2 ORDER BY id ASC LIMIT $1`, limit, maxOutboxAttempts)
	return entries, err
}

// MarkProcessed stamps an entry as done.
func (r *OutboxRepo) MarkProcessed(ctx context.Context, entryID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE search_outbox SET processed_at = NOW() WHERE id=$1`, entryID)
	return err
}

// MarkFailed counts a failed attempt; the entry stays pending and is retried
// on the next drain pass.
func (r *OutboxRepo) MarkFailed(ctx context.Context, entryID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE search_outbox SET attempts = attempts + 1 WHERE id=$1`, entryID)
	return err
}
