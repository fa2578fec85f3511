package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dromero/tienda-server/internal/domain"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	chatMu sync.Mutex // Serializes chat appends to prevent SQLITE_BUSY
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
	CREATE TABLE IF NOT EXISTS categorias (
		id TEXT PRIMARY KEY,
		nombre TEXT NOT NULL,
		descripcion TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS productos (
		id TEXT PRIMARY KEY,
		nombre TEXT NOT NULL,
		precio REAL NOT NULL,
		categoria TEXT NOT NULL,
		imagen TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chat (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		texto TEXT NOT NULL,
		emisor TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_timestamp ON chat(timestamp);
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

// ListCategories returns the full category snapshot in insertion order.
func (s *SQLiteStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	query := `SELECT id, nombre, descripcion FROM categorias ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close category rows", "error", closeErr)
		}
	}()

	var cats []domain.Category
	for rows.Next() {
		var cat domain.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Description); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		cats = append(cats, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return cats, nil
}

// CreateCategory appends a category and returns it with its assigned id.
func (s *SQLiteStore) CreateCategory(ctx context.Context, cat domain.Category) (domain.Category, error) {
	cat.ID = uuid.NewString()
	query := `INSERT INTO categorias (id, nombre, descripcion) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, cat.ID, cat.Name, cat.Description); err != nil {
		return domain.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return cat, nil
}

// UpdateCategory overwrites both fields of the category with the given id.
func (s *SQLiteStore) UpdateCategory(ctx context.Context, cat domain.Category) error {
	query := `UPDATE categorias SET nombre = ?, descripcion = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, cat.Name, cat.Description, cat.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireRow(result, "category", cat.ID)
}

// DeleteCategory removes a category by id.
func (s *SQLiteStore) DeleteCategory(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM categorias WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireRow(result, "category", id)
}

// ListProducts returns the full product snapshot in insertion order.
func (s *SQLiteStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT id, nombre, precio, categoria, imagen FROM productos ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close product rows", "error", closeErr)
		}
	}()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.Image); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

// CreateProduct appends a product and returns it with its assigned id.
func (s *SQLiteStore) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.ID = uuid.NewString()
	query := `INSERT INTO productos (id, nombre, precio, categoria, imagen) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, p.ID, p.Name, p.Price, p.Category, p.Image); err != nil {
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

// UpdateProduct overwrites all fields of the product with the given id.
func (s *SQLiteStore) UpdateProduct(ctx context.Context, p domain.Product) error {
	query := `UPDATE productos SET nombre = ?, precio = ?, categoria = ?, imagen = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, p.Name, p.Price, p.Category, p.Image, p.ID)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return requireRow(result, "product", p.ID)
}

// DeleteProduct removes a product by id.
func (s *SQLiteStore) DeleteProduct(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM productos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return requireRow(result, "product", id)
}

// AppendMessage appends a chat message. The store assigns id, timestamp and
// sequence number; the seq column keeps same-millisecond messages ordered.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	s.chatMu.Lock()
	defer s.chatMu.Unlock()

	msg.ID = uuid.NewString()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	query := `INSERT INTO chat (id, texto, emisor, timestamp) VALUES (?, ?, ?, ?)`
	result, err := s.db.ExecContext(ctx, query, msg.ID, msg.Text, msg.Sender, msg.Timestamp.UnixMilli())
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("append chat message: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("chat message seq: %w", err)
	}
	msg.Seq = seq
	return msg, nil
}

// ListMessages returns all chat messages ordered by timestamp ascending.
func (s *SQLiteStore) ListMessages(ctx context.Context) ([]domain.ChatMessage, error) {
	query := `SELECT seq, id, texto, emisor, timestamp FROM chat ORDER BY timestamp ASC, seq ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close chat rows", "error", closeErr)
		}
	}()

	var msgs []domain.ChatMessage
	for rows.Next() {
		var msg domain.ChatMessage
		var ts int64
		if err := rows.Scan(&msg.Seq, &msg.ID, &msg.Text, &msg.Sender, &ts); err != nil {
			return nil, fmt.Errorf("scan chat row: %w", err)
		}
		msg.Timestamp = time.UnixMilli(ts).UTC()
		msgs = append(msgs, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}
	return msgs, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func requireRow(result sql.Result, kind, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("Mutation affected 0 rows", "kind", kind, "id", id)
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
