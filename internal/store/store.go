// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/dromero/tienda-server/internal/domain"
)

// ErrNotFound is returned when an update or delete targets an id that does
// not exist in the collection.
var ErrNotFound = errors.New("document not found")

// Repository defines the interface for persisting catalog and chat data.
type Repository interface {
	// ListCategories returns the full category snapshot in insertion order.
	ListCategories(ctx context.Context) ([]domain.Category, error)

	// CreateCategory appends a category and returns it with its assigned id.
	CreateCategory(ctx context.Context, cat domain.Category) (domain.Category, error)

	// UpdateCategory overwrites both fields of the category with the given id.
	UpdateCategory(ctx context.Context, cat domain.Category) error

	// DeleteCategory removes a category by id.
	DeleteCategory(ctx context.Context, id string) error

	// ListProducts returns the full product snapshot in insertion order.
	ListProducts(ctx context.Context) ([]domain.Product, error)

	// CreateProduct appends a product and returns it with its assigned id.
	CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error)

	// UpdateProduct overwrites all fields of the product with the given id.
	UpdateProduct(ctx context.Context, p domain.Product) error

	// DeleteProduct removes a product by id.
	DeleteProduct(ctx context.Context, id string) error

	// AppendMessage appends a chat message, assigning id, timestamp and
	// sequence number. The conversation log is append-only.
	AppendMessage(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error)

	// ListMessages returns all chat messages ordered by timestamp ascending,
	// with insertion order breaking ties.
	ListMessages(ctx context.Context) ([]domain.ChatMessage, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
