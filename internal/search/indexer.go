package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bookmarket/internal/models"
	"bookmarket/internal/observability"
	"bookmarket/internal/repositories"
)

// Indexer drains the search outbox into the index. Listing writes never wait
// on it: indexing failures are counted and retried on later passes, and never
// roll back the listing.
type Indexer struct {
	outbox    repositories.OutboxRepository
	books     repositories.BookRepository
	index     Index
	interval  time.Duration
	batchSize int
}

// NewIndexer constructs an Indexer.
func NewIndexer(outbox repositories.OutboxRepository, books repositories.BookRepository, index Index, interval time.Duration, batchSize int) *Indexer {
	return &Indexer{
		outbox:    outbox,
		books:     books,
		index:     index,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run drains the outbox on a fixed interval until ctx is cancelled.
func (ix *Indexer) Run(ctx context.Context) {
	ticker := time.NewTicker(ix.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := ix.DrainOnce(ctx); err != nil {
			log.Printf("search indexer: drain pass failed: %v", err)
		}
	}
}

// DrainOnce processes at most one batch of pending outbox entries.
func (ix *Indexer) DrainOnce(ctx context.Context) error {
	entries, err := ix.outbox.PendingEntries(ctx, ix.batchSize)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := ix.apply(ctx, entry); err != nil {
			log.Printf("search indexer: entry %d (book %d, %s) failed: %v", entry.ID, entry.BookID, entry.Op, err)
			observability.IncOutboxFailure()
			if err := ix.outbox.MarkFailed(ctx, entry.ID); err != nil {
				return err
			}
			continue
		}
		observability.IncOutboxProcessed(entry.Op)
		if err := ix.outbox.MarkProcessed(ctx, entry.ID); err != nil {
			return err
		}
	}
	return nil
}

func (ix *Indexer) apply(ctx context.Context, entry models.SearchOutboxEntry) error {
	switch entry.Op {
	case models.OutboxOpIndex:
		book, err := ix.books.GetBook(ctx, entry.BookID)
		if errors.Is(err, repositories.ErrBookNotFound) {
			// Listing was deleted before this entry drained; drop it from
			// the index instead.
			return ix.index.DeleteBook(entry.BookID)
		}
		if err != nil {
			return err
		}
		return ix.index.IndexBook(book)
	case models.OutboxOpDelete:
		return ix.index.DeleteBook(entry.BookID)
	default:
		return fmt.Errorf("unknown outbox op %q", entry.Op)
	}
}
