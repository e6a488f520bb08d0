package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xiaot623/novaflow/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task TEXT NOT NULL,
			status TEXT NOT NULL,
			plan_json TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			level TEXT NOT NULL,
			message TEXT NOT NULL,
			data TEXT NOT NULL DEFAULT '{}',
			FOREIGN KEY (run_id) REFERENCES runs(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_logs_run ON run_logs(run_id, ts)`,
		`CREATE TABLE IF NOT EXISTS brand_docs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'manual',
			content TEXT NOT NULL,
			tags TEXT NOT NULL DEFAULT '',
			embedding TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new run and fills in its assigned id.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *domain.Run) error {
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (task, status, plan_json, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		run.Task, run.Status, run.PlanJSON, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	run.ID = id
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID int64) (*domain.Run, error) {
	var run domain.Run
	err := s.db.QueryRowContext(ctx,
		`SELECT id, task, status, plan_json, created_at, updated_at FROM runs WHERE id = ?`,
		runID).Scan(&run.ID, &run.Task, &run.Status, &run.PlanJSON, &run.CreatedAt, &run.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// UpdateRunStatus updates the status of a run.
func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID int64, status domain.RunStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), runID)
	return err
}

// AppendRunLog appends one entry to a run's log and fills in its assigned id.
func (s *SQLiteStore) AppendRunLog(ctx context.Context, entry *domain.RunLog) error {
	if entry.Ts == 0 {
		entry.Ts = time.Now().UnixMicro()
	}
	data := "{}"
	if len(entry.Data) > 0 {
		data = string(entry.Data)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO run_logs (run_id, ts, level, message, data) VALUES (?, ?, ?, ?, ?)`,
		entry.RunID, entry.Ts, entry.Level, entry.Message, data)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = id
	return nil
}

// GetRunLogs retrieves the full log for a run, oldest first. Insertion order
// breaks timestamp ties so the scan order is stable.
func (s *SQLiteStore) GetRunLogs(ctx context.Context, runID int64) ([]domain.RunLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, ts, level, message, data FROM run_logs WHERE run_id = ? ORDER BY ts ASC, id ASC`,
		runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.RunLog
	for rows.Next() {
		var entry domain.RunLog
		var data sql.NullString
		if err := rows.Scan(&entry.ID, &entry.RunID, &entry.Ts, &entry.Level, &entry.Message, &data); err != nil {
			return nil, err
		}
		if data.Valid {
			entry.Data = json.RawMessage(data.String)
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// CreateBrandDoc inserts a brand kit document and fills in its assigned id.
func (s *SQLiteStore) CreateBrandDoc(ctx context.Context, doc *domain.BrandDoc) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if doc.Source == "" {
		doc.Source = "manual"
	}
	embedding, err := json.Marshal(doc.Embedding)
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO brand_docs (title, source, content, tags, embedding, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		doc.Title, doc.Source, doc.Content, doc.Tags, string(embedding), doc.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	doc.ID = id
	return nil
}

// ListBrandDocs lists all brand kit documents with their embeddings.
func (s *SQLiteStore) ListBrandDocs(ctx context.Context) ([]domain.BrandDoc, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, source, content, tags, embedding, created_at FROM brand_docs ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.BrandDoc
	for rows.Next() {
		var doc domain.BrandDoc
		var embedding string
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Source, &doc.Content, &doc.Tags, &embedding, &doc.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(embedding), &doc.Embedding); err != nil {
			// A doc with an unreadable embedding is useless for retrieval;
			// keep the row visible but vector-less.
			doc.Embedding = nil
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
