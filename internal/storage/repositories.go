package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// TxDB is a DB that can also begin transactions.
type TxDB interface {
	DB
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// UploadedFileRepository handles uploaded file records.
type UploadedFileRepository struct {
	db DB
}

// NewUploadedFileRepository creates a new uploaded file repository.
func NewUploadedFileRepository(db DB) *UploadedFileRepository {
	return &UploadedFileRepository{db: db}
}

// Create records an uploaded file and fills in its generated ID.
func (r *UploadedFileRepository) Create(ctx context.Context, file *UploadedFile) error {
	if file.UploadTime.IsZero() {
		file.UploadTime = time.Now().UTC()
	}

	query := `
		INSERT INTO uploaded_files (filename, filetype, filepath, upload_time)
		VALUES ($1, $2, $3, $4)
	`
	result, err := r.db.ExecContext(ctx, query,
		file.Filename, file.Filetype, file.Filepath, file.UploadTime,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		// lib/pq does not support LastInsertId; fall back to a lookup.
		return r.db.QueryRowContext(ctx,
			`SELECT id FROM uploaded_files WHERE filepath = $1 ORDER BY id DESC LIMIT 1`,
			file.Filepath,
		).Scan(&file.ID)
	}
	file.ID = id
	return nil
}

// GetByID retrieves an uploaded file by ID.
func (r *UploadedFileRepository) GetByID(ctx context.Context, id int64) (*UploadedFile, error) {
	query := `
		SELECT id, filename, filetype, filepath, upload_time
		FROM uploaded_files WHERE id = $1
	`
	file := &UploadedFile{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&file.ID, &file.Filename, &file.Filetype, &file.Filepath, &file.UploadTime,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return file, err
}

// List returns uploaded files, newest first.
func (r *UploadedFileRepository) List(ctx context.Context, limit int) ([]*UploadedFile, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, filename, filetype, filepath, upload_time
		FROM uploaded_files
		ORDER BY upload_time DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*UploadedFile
	for rows.Next() {
		file := &UploadedFile{}
		if err := rows.Scan(
			&file.ID, &file.Filename, &file.Filetype, &file.Filepath, &file.UploadTime,
		); err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// ProductRepository handles product rows.
type ProductRepository struct {
	db DB
}

// NewProductRepository creates a new product repository.
func NewProductRepository(db DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a product row.
func (r *ProductRepository) Create(ctx context.Context, product *Product) error {
	query := `
		INSERT INTO products (name, brand, category, price, description, rating, source_file)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		product.Name, product.Brand, product.Category, product.Price,
		product.Description, product.Rating, product.SourceFile,
	)
	return err
}

// ListBySource returns products that came from a given catalog file.
func (r *ProductRepository) ListBySource(ctx context.Context, sourceFile string) ([]*Product, error) {
	query := `
		SELECT id, name, brand, category, price, description, rating, source_file
		FROM products
		WHERE source_file = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, sourceFile)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		product := &Product{}
		if err := rows.Scan(
			&product.ID, &product.Name, &product.Brand, &product.Category,
			&product.Price, &product.Description, &product.Rating, &product.SourceFile,
		); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

// TripleRepository handles knowledge triples.
type TripleRepository struct {
	db TxDB
}

// NewTripleRepository creates a new triple repository.
func NewTripleRepository(db TxDB) *TripleRepository {
	return &TripleRepository{db: db}
}

// InsertBatch appends all triples in a single transaction. If the commit
// fails, none of the triples from this call are durably stored.
func (r *TripleRepository) InsertBatch(ctx context.Context, triples []*Triple) error {
	if len(triples) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin triple batch: %w", err)
	}

	query := `
		INSERT INTO kg_triples (subject, predicate, object, confidence, source_file, created_at, raw)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, t := range triples {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, query,
			t.Subject, t.Predicate, t.Object, t.Confidence, t.SourceFile, t.CreatedAt, t.Raw,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert triple: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit triple batch: %w", err)
	}
	return nil
}

// ListBySubject retrieves triples for a subject.
func (r *TripleRepository) ListBySubject(ctx context.Context, subject string) ([]*Triple, error) {
	query := `
		SELECT id, subject, predicate, object, confidence, source_file, created_at, raw
		FROM kg_triples
		WHERE subject = $1
		ORDER BY id
	`
	return r.list(ctx, query, subject)
}

// ListBySource retrieves triples extracted from a given catalog file.
func (r *TripleRepository) ListBySource(ctx context.Context, sourceFile string) ([]*Triple, error) {
	query := `
		SELECT id, subject, predicate, object, confidence, source_file, created_at, raw
		FROM kg_triples
		WHERE source_file = $1
		ORDER BY id
	`
	return r.list(ctx, query, sourceFile)
}

func (r *TripleRepository) list(ctx context.Context, query string, args ...interface{}) ([]*Triple, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var triples []*Triple
	for rows.Next() {
		t := &Triple{}
		if err := rows.Scan(
			&t.ID, &t.Subject, &t.Predicate, &t.Object, &t.Confidence,
			&t.SourceFile, &t.CreatedAt, &t.Raw,
		); err != nil {
			return nil, err
		}
		triples = append(triples, t)
	}
	return triples, rows.Err()
}

// Repositories bundles all repositories together.
type Repositories struct {
	UploadedFiles *UploadedFileRepository
	Products      *ProductRepository
	Triples       *TripleRepository
}

// NewRepositories creates all repositories with the given database connection.
func NewRepositories(db TxDB) *Repositories {
	return &Repositories{
		UploadedFiles: NewUploadedFileRepository(db),
		Products:      NewProductRepository(db),
		Triples:       NewTripleRepository(db),
	}
}
