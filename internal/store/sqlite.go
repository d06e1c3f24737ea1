package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gpotter/worksheetbot/internal/domain"
	"github.com/gpotter/worksheetbot/internal/shared"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS worksheets (
		id TEXT PRIMARY KEY,
		child TEXT NOT NULL,
		title TEXT NOT NULL,
		html_path TEXT NOT NULL,
		pdf_path TEXT,
		question_count INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_worksheets_created ON worksheets(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertWorksheet records metadata for a newly generated worksheet.
func (s *SQLiteStore) InsertWorksheet(ctx context.Context, meta *domain.WorksheetMeta) error {
	query := `
	INSERT INTO worksheets (id, child, title, html_path, pdf_path, question_count, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	var pdfPath interface{}
	if meta.PDFPath != "" {
		pdfPath = meta.PDFPath
	}

	_, err := s.db.ExecContext(ctx, query,
		meta.ID, meta.Child, meta.Title, meta.HTMLPath,
		pdfPath, meta.QuestionCount, meta.CreatedAt.Unix(),
	)
	if shared.IsSQLiteConflictError(err) {
		// One retry after the busy timeout; writers are rare here.
		_, err = s.db.ExecContext(ctx, query,
			meta.ID, meta.Child, meta.Title, meta.HTMLPath,
			pdfPath, meta.QuestionCount, meta.CreatedAt.Unix(),
		)
	}
	if err != nil {
		return fmt.Errorf("insert worksheet: %w", err)
	}
	return nil
}

// GetWorksheet retrieves one worksheet by id.
func (s *SQLiteStore) GetWorksheet(ctx context.Context, id string) (*domain.WorksheetMeta, error) {
	query := `
		SELECT id, child, title, html_path, pdf_path, question_count, created_at
		FROM worksheets WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)
	meta, err := scanWorksheet(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan worksheet row: %w", err)
	}
	return meta, nil
}

// ListRecentWorksheets returns up to limit worksheets, newest first.
func (s *SQLiteStore) ListRecentWorksheets(ctx context.Context, limit int) ([]*domain.WorksheetMeta, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, child, title, html_path, pdf_path, question_count, created_at
		FROM worksheets ORDER BY created_at DESC, id LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query worksheets: %w", err)
	}
	defer rows.Close()

	var out []*domain.WorksheetMeta
	for rows.Next() {
		meta, err := scanWorksheet(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan worksheet row: %w", err)
		}
		out = append(out, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate worksheet rows: %w", err)
	}
	return out, nil
}

func scanWorksheet(scan func(dest ...interface{}) error) (*domain.WorksheetMeta, error) {
	var meta domain.WorksheetMeta
	var pdfPath sql.NullString
	var createdAt int64

	if err := scan(
		&meta.ID, &meta.Child, &meta.Title, &meta.HTMLPath,
		&pdfPath, &meta.QuestionCount, &createdAt,
	); err != nil {
		return nil, err
	}

	meta.PDFPath = pdfPath.String
	meta.CreatedAt = time.Unix(createdAt, 0)
	return &meta, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
