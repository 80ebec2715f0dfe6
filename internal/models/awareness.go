package models

import "time"

// Flair is a categorisation tag applied to awareness articles.
type Flair struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// AwarenessResource is an educational article authored by a user. The author
// is immutable after creation.
type AwarenessResource struct {
	ID        int64     `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Synopsis  string    `db:"synopsis" json:"synopsis"`
	Content   string    `db:"content" json:"content,omitempty"`
	Image     *string   `db:"image" json:"image,omitempty"`
	AuthorID  int64     `db:"author_id" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	AuthorEmail string  `db:"author_email" json:"author"`
	Flairs      []Flair `json:"flair"`
}

// AwarenessResourceRequest is the create/update payload for articles.
type AwarenessResourceRequest struct {
	Title    string  `json:"title" validate:"required"`
	Synopsis string  `json:"synopsis" validate:"required"`
	Content  string  `json:"content" validate:"required"`
	Image    *string `json:"image"`
	FlairIDs []int64 `json:"flair_id"`
}
