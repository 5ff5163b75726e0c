package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hyperjump/lostfound/internal/models"
)

// SQLiteStorage implements RecordStore using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string, logger *zap.Logger) (*SQLiteStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, logger: logger}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id TEXT NOT NULL UNIQUE,
		report_type TEXT NOT NULL,
		category TEXT,
		item_type TEXT,
		location TEXT,
		description TEXT,
		image_url TEXT,
		embedding TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_items_report_type ON items(report_type);
	CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

const itemColumns = `item_id, report_type, category, item_type, location, description, image_url, embedding, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanItem reads one row. An embedding column that does not decode is logged and
// dropped; the record is kept without it.
func (s *SQLiteStorage) scanItem(row rowScanner) (*models.ItemRecord, error) {
	var rec models.ItemRecord
	var category, itemType, location, description, imageURL, embeddingJSON sql.NullString
	if err := row.Scan(&rec.ItemID, &rec.ReportType, &category, &itemType, &location,
		&description, &imageURL, &embeddingJSON, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Category = category.String
	rec.ItemType = itemType.String
	rec.Location = location.String
	rec.Description = description.String
	rec.ImageURL = imageURL.String
	if embeddingJSON.Valid && embeddingJSON.String != "" {
		if err := json.Unmarshal([]byte(embeddingJSON.String), &rec.Embedding); err != nil {
			s.logger.Warn("ignoring malformed embedding", zap.String("item_id", rec.ItemID), zap.Error(err))
			rec.Embedding = nil
		}
	}
	return &rec, nil
}

func encodeEmbedding(embedding []float32) (sql.NullString, error) {
	if len(embedding) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(embedding)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal embedding: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// GetAll returns every record in insertion order.
func (s *SQLiteStorage) GetAll(ctx context.Context) ([]*models.ItemRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collect(rows)
}

func (s *SQLiteStorage) collect(rows *sql.Rows) ([]*models.ItemRecord, error) {
	items := make([]*models.ItemRecord, 0)
	for rows.Next() {
		rec, err := s.scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

// Get returns a record by item ID.
func (s *SQLiteStorage) Get(ctx context.Context, itemID string) (*models.ItemRecord, error) {
	rec, err := s.scanItem(s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE item_id = ?`, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, itemID)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Insert adds a record. CreatedAt is set when zero. Duplicate item IDs are rejected.
func (s *SQLiteStorage) Insert(ctx context.Context, rec *models.ItemRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	embedding, err := encodeEmbedding(rec.Embedding)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ItemID, string(rec.ReportType), rec.Category, rec.ItemType, rec.Location,
		rec.Description, rec.ImageURL, embedding, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert item %s: %w", rec.ItemID, err)
	}
	return nil
}

// UpdateEmbedding replaces the embedding of an existing record.
func (s *SQLiteStorage) UpdateEmbedding(ctx context.Context, itemID string, embedding []float32) error {
	encoded, err := encodeEmbedding(embedding)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `UPDATE items SET embedding = ? WHERE item_id = ?`, encoded, itemID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, itemID)
	}
	return nil
}

// List returns records matching filter. Category and location match case-insensitively
// as substrings.
func (s *SQLiteStorage) List(ctx context.Context, filter models.ItemFilter) ([]*models.ItemRecord, error) {
	var where []string
	var args []interface{}
	if filter.ReportType != "" {
		where = append(where, "report_type = ?")
		args = append(args, string(filter.ReportType))
	}
	if filter.Category != "" {
		where = append(where, "LOWER(category) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.Category)+"%")
	}
	if filter.Location != "" {
		where = append(where, "LOWER(location) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.Location)+"%")
	}

	query := `SELECT ` + itemColumns + ` FROM items`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if filter.Oldest {
		query += " ORDER BY created_at ASC, seq ASC"
	} else {
		query += " ORDER BY created_at DESC, seq DESC"
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collect(rows)
}

// Count returns the total number of records.
func (s *SQLiteStorage) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
