package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by a single SQLite database file. Every
// collection lives in one documents table with the body kept as JSON.
type SQLite struct {
	db     *sql.DB
	path   string
	logger *log.Logger

	mu      sync.Mutex
	subs    map[string]map[int]subscription
	nextSub int
}

type subscription struct {
	order []OrderBy
	fn    func([]Document)
}

// Open opens (creating if needed) the database at path and its schema.
//
// The caller must call Close when done.
func Open(path string, logger *log.Logger) (*SQLite, error) {
	if logger == nil {
		logger = log.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLite{
		db:     db,
		path:   path,
		logger: logger,
		subs:   make(map[string]map[int]subscription),
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);
	CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// DB exposes the underlying connection so other tables (visitor analytics)
// can share the database file.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, collection, id string) (Document, error) {
	var (
		doc     Document
		data    string
		updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, data, updated_at FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&doc.ID, &data, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	doc.Data = json.RawMessage(data)
	doc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return doc, nil
}

func (s *SQLite) List(ctx context.Context, collection string, order ...OrderBy) ([]Document, error) {
	if err := validateOrder(order); err != nil {
		return nil, err
	}

	var (
		query strings.Builder
		args  = []any{collection}
	)
	query.WriteString(`SELECT id, data, updated_at FROM documents WHERE collection = ? ORDER BY `)
	for _, o := range order {
		query.WriteString("json_extract(data, ?)")
		if o.Desc {
			query.WriteString(" DESC")
		}
		query.WriteString(", ")
		args = append(args, "$."+o.Field)
	}
	// Ties fall back to insertion order; upserts keep the original rowid.
	query.WriteString("rowid")

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var (
			doc     Document
			data    string
			updated string
		)
		if err := rows.Scan(&doc.ID, &data, &updated); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		doc.Data = json.RawMessage(data)
		doc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return docs, nil
}

func (s *SQLite) Add(ctx context.Context, collection string, data json.RawMessage) (string, error) {
	if err := validateData(data); err != nil {
		return "", err
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		collection, id, string(data), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("add to %s: %w", collection, err)
	}

	s.notify(ctx, collection)
	return id, nil
}

func (s *SQLite) Put(ctx context.Context, collection, id string, data json.RawMessage) error {
	if id == "" {
		return fmt.Errorf("put %s: empty id", collection)
	}
	if err := validateData(data); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, collection, id, string(data), now, now)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}

	s.notify(ctx, collection)
	return nil
}

func (s *SQLite) Update(ctx context.Context, collection, id string, data json.RawMessage) error {
	if err := validateData(data); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?`,
		string(data), now, collection, id,
	)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}

	s.notify(ctx, collection)
	return nil
}

func (s *SQLite) Delete(ctx context.Context, collection, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}

	s.notify(ctx, collection)
	return nil
}

func (s *SQLite) Subscribe(collection string, order []OrderBy, fn func([]Document)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	if s.subs[collection] == nil {
		s.subs[collection] = make(map[int]subscription)
	}
	s.subs[collection][id] = subscription{order: order, fn: fn}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs[collection], id)
			s.mu.Unlock()
		})
	}
}

// notify runs subscriber callbacks outside the lock so a callback may call
// back into the store.
func (s *SQLite) notify(ctx context.Context, collection string) {
	s.mu.Lock()
	subs := make([]subscription, 0, len(s.subs[collection]))
	for _, sub := range s.subs[collection] {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	for _, sub := range subs {
		docs, err := s.List(ctx, collection, sub.order...)
		if err != nil {
			s.logger.Printf("Error reading %s snapshot for subscriber: %v", collection, err)
			continue
		}
		sub.fn(docs)
	}
}
