package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dromero/tienda-server/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "tienda.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return repo
}

func TestCategoryCRUD(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	created, err := repo.CreateCategory(ctx, domain.Category{Name: "Bebidas", Description: "Drinks"})
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Expected store-assigned id")
	}

	cats, err := repo.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	if len(cats) != 1 || cats[0].Name != "Bebidas" || cats[0].Description != "Drinks" {
		t.Fatalf("Unexpected snapshot: %+v", cats)
	}

	created.Description = "Cold drinks"
	if err := repo.UpdateCategory(ctx, created); err != nil {
		t.Fatalf("UpdateCategory failed: %v", err)
	}
	cats, _ = repo.ListCategories(ctx)
	if cats[0].Description != "Cold drinks" {
		t.Errorf("Expected updated description, got %q", cats[0].Description)
	}

	if err := repo.DeleteCategory(ctx, created.ID); err != nil {
		t.Fatalf("DeleteCategory failed: %v", err)
	}
	cats, _ = repo.ListCategories(ctx)
	if len(cats) != 0 {
		t.Errorf("Expected empty snapshot after delete, got %+v", cats)
	}
}

func TestCategoriesKeepInsertionOrder(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	names := []string{"Bebidas", "Postres", "Lácteos", "Abarrotes"}
	for _, name := range names {
		if _, err := repo.CreateCategory(ctx, domain.Category{Name: name, Description: "d"}); err != nil {
			t.Fatalf("CreateCategory(%s) failed: %v", name, err)
		}
	}

	cats, err := repo.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	for i, name := range names {
		if cats[i].Name != name {
			t.Errorf("Position %d: expected %q, got %q", i, name, cats[i].Name)
		}
	}
}

func TestMutationsOnMissingIDReturnNotFound(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	if err := repo.DeleteCategory(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteCategory: expected ErrNotFound, got %v", err)
	}
	if err := repo.UpdateCategory(ctx, domain.Category{ID: "nope", Name: "x", Description: "y"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateCategory: expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteProduct(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteProduct: expected ErrNotFound, got %v", err)
	}
}

func TestDoubleDeleteReturnsNotFound(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	created, err := repo.CreateCategory(ctx, domain.Category{Name: "Postres", Description: "Desserts"})
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}

	if err := repo.DeleteCategory(ctx, created.ID); err != nil {
		t.Fatalf("first delete failed: %v", err)
	}
	if err := repo.DeleteCategory(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestProductCRUD(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	created, err := repo.CreateProduct(ctx, domain.Product{
		Name:     "Café",
		Price:    120.50,
		Category: "Bebidas",
		Image:    "data:image/png;base64,xyz",
	})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}

	products, err := repo.ListProducts(ctx)
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(products) != 1 || products[0].Price != 120.50 || products[0].Image != "data:image/png;base64,xyz" {
		t.Fatalf("Unexpected products: %+v", products)
	}

	created.Price = 99.99
	if err := repo.UpdateProduct(ctx, created); err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}
	products, _ = repo.ListProducts(ctx)
	if products[0].Price != 99.99 {
		t.Errorf("Expected updated price, got %v", products[0].Price)
	}

	if err := repo.DeleteProduct(ctx, created.ID); err != nil {
		t.Fatalf("DeleteProduct failed: %v", err)
	}
}

func TestChatMessagesOrderedByTimestampThenSeq(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	// Same explicit timestamp: seq must keep append order.
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	first, err := repo.AppendMessage(ctx, domain.ChatMessage{Text: "hola", Sender: domain.SenderUser, Timestamp: ts})
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	second, err := repo.AppendMessage(ctx, domain.ChatMessage{Text: "respuesta", Sender: domain.SenderAssistant, Timestamp: ts})
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("Expected distinct ids")
	}
	if second.Seq <= first.Seq {
		t.Fatalf("Expected increasing seq, got %d then %d", first.Seq, second.Seq)
	}

	// An earlier timestamp appended later still sorts first.
	if _, err := repo.AppendMessage(ctx, domain.ChatMessage{Text: "antes", Sender: domain.SenderUser, Timestamp: ts.Add(-time.Minute)}); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	msgs, err := repo.ListMessages(ctx)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Text != "antes" {
		t.Errorf("Expected earliest timestamp first, got %q", msgs[0].Text)
	}
	if msgs[1].Text != "hola" || msgs[2].Text != "respuesta" {
		t.Errorf("Expected seq to break the timestamp tie, got %q then %q", msgs[1].Text, msgs[2].Text)
	}
}

func TestAppendMessageAssignsTimestamp(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)

	msg, err := repo.AppendMessage(context.Background(), domain.ChatMessage{Text: "hola", Sender: domain.SenderUser})
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Expected store-assigned timestamp")
	}
}
