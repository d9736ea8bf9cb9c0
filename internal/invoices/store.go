// Package invoices persists uploaded bill documents keyed by a label. It
// shares nothing with the ledger.
package invoices

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	ErrEmptyLabel      = errors.New("invoice label is empty")
	ErrEmptyInvoice    = errors.New("invoice file is empty")
	ErrInvoiceExists   = errors.New("invoice label already exists")
	ErrInvoiceNotFound = errors.New("invoice not found")
)

// Invoice is a stored document. Content is only filled by GetInvoice.
type Invoice struct {
	Label       string
	ContentType string
	SizeBytes   int64
	UploadedAt  time.Time
	Content     []byte
}

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// brings its schema up to date.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// StoreInvoice saves data under label. It returns nil on success; any
// failure carries the reason. Labels are unique.
func (s *SQLiteStore) StoreInvoice(ctx context.Context, label string, data []byte) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return ErrEmptyLabel
	}
	if len(data) == 0 {
		return ErrEmptyInvoice
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO invoices (label, content, size_bytes, content_type, uploaded_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(label) DO NOTHING`,
		label, data, len(data), http.DetectContentType(data), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert invoice %q: %w", label, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert invoice %q: %w", label, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrInvoiceExists, label)
	}
	return nil
}

// GetInvoice loads the document stored under label.
func (s *SQLiteStore) GetInvoice(ctx context.Context, label string) (Invoice, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT label, content_type, size_bytes, uploaded_at, content FROM invoices WHERE label = ?`, label)

	var (
		inv        Invoice
		uploadedAt string
	)
	if err := row.Scan(&inv.Label, &inv.ContentType, &inv.SizeBytes, &uploadedAt, &inv.Content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Invoice{}, fmt.Errorf("%w: %q", ErrInvoiceNotFound, label)
		}
		return Invoice{}, fmt.Errorf("get invoice %q: %w", label, err)
	}
	t, err := time.Parse(time.RFC3339Nano, uploadedAt)
	if err != nil {
		return Invoice{}, fmt.Errorf("parse upload time of %q: %w", label, err)
	}
	inv.UploadedAt = t
	return inv, nil
}

// ListInvoices returns metadata for every stored invoice, oldest first.
func (s *SQLiteStore) ListInvoices(ctx context.Context) ([]Invoice, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label, content_type, size_bytes, uploaded_at FROM invoices ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		var (
			inv        Invoice
			uploadedAt string
		)
		if err := rows.Scan(&inv.Label, &inv.ContentType, &inv.SizeBytes, &uploadedAt); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		if inv.UploadedAt, err = time.Parse(time.RFC3339Nano, uploadedAt); err != nil {
			return nil, fmt.Errorf("parse upload time of %q: %w", inv.Label, err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return out, nil
}
