package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"bookmarket/internal/models"
)

var ErrBookNotFound = errors.New("book not found")

const bookColumns = `id, title, author, price, description, major, status, seller_id, created_at, updated_at`

// BookRepository abstracts listing persistence. Creation and deletion also
// enqueue a search_outbox row in the same transaction so the search index
// can be brought up to date asynchronously.
type BookRepository interface {
	CreateBook(ctx context.Context, book models.Book, imageURLs []string) (models.Book, error)
	GetBook(ctx context.Context, bookID int64) (models.Book, error)
	GetBooksByIDs(ctx context.Context, bookIDs []int64) ([]models.Book, error)
	ListBooks(ctx context.Context) ([]models.Book, error)
	ListBooksBySeller(ctx context.Context, sellerID string) ([]models.Book, error)
	UpdateBook(ctx context.Context, bookID int64, patch models.BookPatch) (models.Book, error)
	DeleteBook(ctx context.Context, bookID int64) error
}

// BookRepo is a sqlx implementation of BookRepository.
type BookRepo struct {
	db *sqlx.DB
}

// NewBookRepo constructs a BookRepo.
func NewBookRepo(db *sqlx.DB) *BookRepo {
	return &BookRepo{db: db}
}

// CreateBook inserts the listing, its image references and an outbox entry
// atomically.
func (r *BookRepo) CreateBook(ctx context.Context, book models.Book, imageURLs []string) (models.Book, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Book{}, err
	}
	defer tx.Rollback()

	var created models.Book
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO books (title, author, price, description, major, status, seller_id)
         VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+bookColumns,
		book.Title, book.Author, book.Price, book.Description, book.Major, book.Status, book.SellerID,
	).StructScan(&created)
	if err != nil {
		return models.Book{}, err
	}

	for i, url := range imageURLs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO book_images (book_id, url, position) VALUES ($1, $2, $3)`,
			created.ID, url, i); err != nil {
			return models.Book{}, err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO search_outbox (book_id, op) VALUES ($1, $2)`,
		created.ID, models.OutboxOpIndex); err != nil {
		return models.Book{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Book{}, err
	}
	created.ImageURLs = append([]string{}, imageURLs...)
	return created, nil
}

// GetBook fetches one listing with its images.
func (r *BookRepo) GetBook(ctx context.Context, bookID int64) (models.Book, error) {
	var book models.Book
	err := r.db.GetContext(ctx, &book, `SELECT `+bookColumns+` FROM books WHERE id=$1`, bookID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Book{}, ErrBookNotFound
	}
	if err != nil {
		return models.Book{}, err
	}
	books := []models.Book{book}
	if err := r.attachImages(ctx, books); err != nil {
		return models.Book{}, err
	}
	return books[0], nil
}

// GetBooksByIDs hydrates listings by id, preserving the order of bookIDs.
// Missing ids are skipped.
func (r *BookRepo) GetBooksByIDs(ctx context.Context, bookIDs []int64) ([]models.Book, error) {
	if len(bookIDs) == 0 {
		return []models.Book{}, nil
	}

	query, args, err := sqlx.In(`SELECT `+bookColumns+` FROM books WHERE id IN (?)`, bookIDs)
	if err != nil {
		return nil, err
	}
	var books []models.Book
	if err := r.db.SelectContext(ctx, &books, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	if err := r.attachImages(ctx, books); err != nil {
		return nil, err
	}

	byID := make(map[int64]models.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	ordered := make([]models.Book, 0, len(books))
	for _, id := range bookIDs {
		if b, ok := byID[id]; ok {
			ordered = append(ordered, b)
		}
	}
	return ordered, nil
}

// ListBooks returns all listings, newest first.
func (r *BookRepo) ListBooks(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	if err := r.db.SelectContext(ctx, &books, `SELECT `+bookColumns+` FROM books ORDER BY created_at DESC`); err != nil {
		return nil, err
	}
	if err := r.attachImages(ctx, books); err != nil {
		return nil, err
	}
	return books, nil
}

// ListBooksBySeller returns one seller's listings, newest first.
func (r *BookRepo) ListBooksBySeller(ctx context.Context, sellerID string) ([]models.Book, error) {
	var books []models.Book
	if err := r.db.SelectContext(ctx, &books, `SELECT `+bookColumns+` FROM books WHERE seller_id=$1 ORDER BY created_at DESC`, sellerID); err != nil {
		return nil, err
	}
	if err := r.attachImages(ctx, books); err != nil {
		return nil, err
	}
	return books, nil
}

// UpdateBook applies a partial update and re-enqueues the listing for
// indexing. Untouched fields keep their values.
func (r *BookRepo) UpdateBook(ctx context.Context, bookID int64, patch models.BookPatch) (models.Book, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Author != nil {
		add("author", *patch.Author)
	}
	if patch.Price != nil {
		add("price", *patch.Price)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Major != nil {
		add("major", *patch.Major)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Book{}, err
	}
	defer tx.Rollback()

	args = append(args, bookID)
	query := fmt.Sprintf(`UPDATE books SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), bookColumns)

	var updated models.Book
	err = tx.QueryRowxContext(ctx, query, args...).StructScan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Book{}, ErrBookNotFound
	}
	if err != nil {
		return models.Book{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO search_outbox (book_id, op) VALUES ($1, $2)`,
		bookID, models.OutboxOpIndex); err != nil {
		return models.Book{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Book{}, err
	}
	books := []models.Book{updated}
	if err := r.attachImages(ctx, books); err != nil {
		return models.Book{}, err
	}
	return books[0], nil
}

// DeleteBook removes the listing and enqueues an index delete atomically.
func (r *BookRepo) DeleteBook(ctx context.Context, bookID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id=$1`, bookID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrBookNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO search_outbox (book_id, op) VALUES ($1, $2)`,
		bookID, models.OutboxOpDelete); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *BookRepo) attachImages(ctx context.Context, books []models.Book) error {
	if len(books) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}

	query, args, err := sqlx.In(`SELECT id, book_id, url, position FROM book_images WHERE book_id IN (?) ORDER BY book_id, position`, ids)
	if err != nil {
		return err
	}
	var images []models.BookImage
	if err := r.db.SelectContext(ctx, &images, r.db.Rebind(query), args...); err != nil {
		return err
	}

	urls := map[int64][]string{}
	for _, img := range images {
		urls[img.BookID] = append(urls[img.BookID], img.URL)
	}

	for i := range books {
		if imgs, ok := urls[books[i].ID]; ok {
			books[i].ImageURLs = imgs
		} else {
			books[i].ImageURLs = []string{}
		}
	}
	return nil
}
