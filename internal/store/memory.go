package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dromero/tienda-server/internal/domain"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory Repository used by tests and by the dispatcher
// test harness. It mirrors SQLiteStore semantics: insertion-order snapshots,
// uuid ids, ErrNotFound on missing targets.
type MemoryStore struct {
	mu         sync.Mutex
	categories []domain.Category
	products   []domain.Product
	messages   []domain.ChatMessage
	nextSeq    int64
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryStore {
	return &MemoryStore{nextSeq: 1}
}

// ListCategories returns a copy of the category snapshot.
func (m *MemoryStore) ListCategories(_ context.Context) ([]domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Category(nil), m.categories...), nil
}

// CreateCategory appends a category with a fresh id.
func (m *MemoryStore) CreateCategory(_ context.Context, cat domain.Category) (domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cat.ID = uuid.NewString()
	m.categories = append(m.categories, cat)
	return cat, nil
}

// UpdateCategory overwrites the category with the given id.
func (m *MemoryStore) UpdateCategory(_ context.Context, cat domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.categories {
		if m.categories[i].ID == cat.ID {
			m.categories[i] = cat
			return nil
		}
	}
	return fmt.Errorf("category %s: %w", cat.ID, ErrNotFound)
}

// DeleteCategory removes the category with the given id.
func (m *MemoryStore) DeleteCategory(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.categories {
		if m.categories[i].ID == id {
			m.categories = append(m.categories[:i], m.categories[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("category %s: %w", id, ErrNotFound)
}

// ListProducts returns a copy of the product snapshot.
func (m *MemoryStore) ListProducts(_ context.Context) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Product(nil), m.products...), nil
}

// CreateProduct appends a product with a fresh id.
func (m *MemoryStore) CreateProduct(_ context.Context, p domain.Product) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.NewString()
	m.products = append(m.products, p)
	return p, nil
}

// UpdateProduct overwrites the product with the given id.
func (m *MemoryStore) UpdateProduct(_ context.Context, p domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == p.ID {
			m.products[i] = p
			return nil
		}
	}
	return fmt.Errorf("product %s: %w", p.ID, ErrNotFound)
}

// DeleteProduct removes the product with the given id.
func (m *MemoryStore) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("product %s: %w", id, ErrNotFound)
}

// AppendMessage appends a chat message with assigned id, timestamp and seq.
func (m *MemoryStore) AppendMessage(_ context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = uuid.NewString()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	msg.Seq = m.nextSeq
	m.nextSeq++
	m.messages = append(m.messages, msg)
	return msg, nil
}

// ListMessages returns messages ordered by (timestamp, seq) ascending.
// Appends already arrive in seq order, and timestamps are store-assigned
// monotonically with seq, so insertion order is the total order.
func (m *MemoryStore) ListMessages(_ context.Context) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ChatMessage(nil), m.messages...), nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
