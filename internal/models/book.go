package models

import "time"

// Listing lifecycle statuses. Advisory only: any status may follow any other.
const (
	StatusForSale    = "FOR_SALE"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// Book is a secondhand listing owned by its seller.
type Book struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Author      string    `db:"author" json:"author"`
	Price       int64     `db:"price" json:"price"`
	Description string    `db:"description" json:"description"`
	Major       string    `db:"major" json:"major"`
	Status      string    `db:"status" json:"status"`
	SellerID    string    `db:"seller_id" json:"seller_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	// Populated from book_images; upload itself is external.
	ImageURLs []string `db:"-" json:"image_urls"`
}

// BookImage is one image reference attached to a listing.
type BookImage struct {
	ID       int64  `db:"id" json:"id"`
	BookID   int64  `db:"book_id" json:"book_id"`
	URL      string `db:"url" json:"url"`
	Position int    `db:"position" json:"position"`
}

// BookPatch carries the mutable subset of a listing for partial updates.
// Nil fields are left untouched.
type BookPatch struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Price       *int64  `json:"price"`
	Description *string `json:"description"`
	Major       *string `json:"major"`
	Status      *string `json:"status"`
}
