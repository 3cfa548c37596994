// Package storage provides database models and repositories for the recommender.
package storage

import (
	"time"
)

// UploadedFile records a catalog file accepted through the upload endpoint.
type UploadedFile struct {
	ID         int64     `json:"id" db:"id"`
	Filename   string    `json:"filename" db:"filename"`
	Filetype   string    `json:"filetype" db:"filetype"`
	Filepath   string    `json:"filepath" db:"filepath"`
	UploadTime time.Time `json:"upload_time" db:"upload_time"`
}

// Product represents a catalog product row persisted by collaborators.
type Product struct {
	ID          int64    `json:"id" db:"id"`
	Name        string   `json:"name" db:"name"`
	Brand       *string  `json:"brand,omitempty" db:"brand"`
	Category    *string  `json:"category,omitempty" db:"category"`
	Price       *float64 `json:"price,omitempty" db:"price"`
	Description *string  `json:"description,omitempty" db:"description"`
	Rating      *float64 `json:"rating,omitempty" db:"rating"`
	SourceFile  *string  `json:"source_file,omitempty" db:"source_file"`
}

// Triple is a subject-predicate-object edge extracted from a catalog row.
// Rows are append-only: the extraction pipeline never updates or deletes them.
type Triple struct {
	ID         int64     `json:"id" db:"id"`
	Subject    string    `json:"subject" db:"subject"`
	Predicate  string    `json:"predicate" db:"predicate"`
	Object     string    `json:"object" db:"object"`
	Confidence float64   `json:"confidence" db:"confidence"`
	SourceFile string    `json:"source_file" db:"source_file"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	Raw        string    `json:"raw,omitempty" db:"raw"`
}
