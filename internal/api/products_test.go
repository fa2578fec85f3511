package api

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/dromero/tienda-server/internal/domain"
	"github.com/dromero/tienda-server/internal/store"
)

func seedProducts(t *testing.T, repo *store.MemoryStore, products ...domain.Product) {
	t.Helper()
	for _, p := range products {
		if _, err := repo.CreateProduct(context.Background(), p); err != nil {
			t.Fatalf("seed product: %v", err)
		}
	}
}

func TestCreateProductAcceptsStringAndNumberPrice(t *testing.T) {
	t.Parallel()

	router, repo := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/productos", map[string]interface{}{
		"nombre":    "Café",
		"precio":    "120.50",
		"categoria": "Bebidas",
		"imagen":    "data:image/png;base64,xyz",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("String price: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/productos", map[string]interface{}{
		"nombre":    "Té",
		"precio":    45,
		"categoria": "Bebidas",
		"imagen":    "data:image/png;base64,abc",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Numeric price: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	products, _ := repo.ListProducts(context.Background())
	if len(products) != 2 || products[0].Price != 120.50 || products[1].Price != 45 {
		t.Errorf("Unexpected products: %+v", products)
	}
}

func TestCreateProductValidation(t *testing.T) {
	t.Parallel()

	router, _ := newTestServer(t)

	cases := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing name", map[string]interface{}{"precio": "10", "categoria": "Bebidas", "imagen": "img"}},
		{"missing price", map[string]interface{}{"nombre": "Café", "categoria": "Bebidas", "imagen": "img"}},
		{"missing category", map[string]interface{}{"nombre": "Café", "precio": "10", "imagen": "img"}},
		{"missing image", map[string]interface{}{"nombre": "Café", "precio": "10", "categoria": "Bebidas"}},
		{"non-numeric price", map[string]interface{}{"nombre": "Café", "precio": "caro", "categoria": "Bebidas", "imagen": "img"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/productos", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestListProductsSearchMatchesNamePriceCategory(t *testing.T) {
	t.Parallel()

	router, repo := newTestServer(t)
	seedProducts(t, repo,
		domain.Product{Name: "Café", Price: 120.5, Category: "Bebidas", Image: "i"},
		domain.Product{Name: "Flan", Price: 35, Category: "Postres", Image: "i"},
		domain.Product{Name: "Leche", Price: 28, Category: "Lácteos", Image: "i"},
	)

	cases := []struct {
		q    string
		want []string
	}{
		{"caf", []string{"Café"}},
		{"120.5", []string{"Café"}},
		{"postres", []string{"Flan"}},
		{"zzz", nil},
	}
	for _, tc := range cases {
		rec := doJSON(t, router, http.MethodGet, "/api/productos?q="+tc.q, nil)
		products := decodeBody[[]domain.Product](t, rec)
		if len(products) != len(tc.want) {
			t.Errorf("q=%q: expected %d results, got %+v", tc.q, len(tc.want), products)
			continue
		}
		for i, name := range tc.want {
			if products[i].Name != name {
				t.Errorf("q=%q position %d: expected %q, got %q", tc.q, i, name, products[i].Name)
			}
		}
	}
}

func TestUpdateProduct(t *testing.T) {
	t.Parallel()

	router, repo := newTestServer(t)

	created, err := repo.CreateProduct(context.Background(), domain.Product{Name: "Café", Price: 100, Category: "Bebidas", Image: "i"})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}

	rec := doJSON(t, router, http.MethodPut, "/api/productos/"+created.ID, map[string]interface{}{
		"nombre":    "Café premium",
		"precio":    "150",
		"categoria": "Bebidas",
		"imagen":    "i2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	products, _ := repo.ListProducts(context.Background())
	if products[0].Name != "Café premium" || products[0].Price != 150 {
		t.Errorf("Update not persisted: %+v", products[0])
	}
}

func TestUpdateProductNotFound(t *testing.T) {
	t.Parallel()

	router, _ := newTestServer(t)

	rec := doJSON(t, router, http.MethodPut, "/api/productos/missing", map[string]interface{}{
		"nombre":    "X",
		"precio":    "1",
		"categoria": "Y",
		"imagen":    "i",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestDeleteProductNotFound(t *testing.T) {
	t.Parallel()

	router, _ := newTestServer(t)

	rec := doJSON(t, router, http.MethodDelete, "/api/productos/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestCatalogCategoryFilter(t *testing.T) {
	t.Parallel()

	router, repo := newTestServer(t)
	seedProducts(t, repo,
		domain.Product{Name: "Café", Price: 120, Category: "Bebidas", Image: "i"},
		domain.Product{Name: "Flan", Price: 35, Category: "Postres", Image: "i"},
		domain.Product{Name: "Jugo", Price: 25, Category: "Bebidas", Image: "i"},
	)

	rec := doJSON(t, router, http.MethodGet, "/api/catalogo?categoria=Bebidas", nil)
	products := decodeBody[[]domain.Product](t, rec)
	if len(products) != 2 || products[0].Name != "Café" || products[1].Name != "Jugo" {
		t.Errorf("Unexpected filtered catalog: %+v", products)
	}

	for _, path := range []string{"/api/catalogo", "/api/catalogo?categoria=Todas"} {
		rec = doJSON(t, router, http.MethodGet, path, nil)
		products = decodeBody[[]domain.Product](t, rec)
		if len(products) != 3 {
			t.Errorf("%s: expected full catalog, got %+v", path, products)
		}
	}

	rec = doJSON(t, router, http.MethodGet, "/api/catalogo?categoria=Inexistente", nil)
	products = decodeBody[[]domain.Product](t, rec)
	if len(products) != 0 {
		t.Errorf("Expected empty catalog for unknown category, got %+v", products)
	}
}

func TestProductStatsCountsInCategoryOrder(t *testing.T) {
	t.Parallel()

	router, repo := newTestServer(t)
	ctx := context.Background()

	for _, name := range []string{"Bebidas", "Postres", "Lácteos"} {
		if _, err := repo.CreateCategory(ctx, domain.Category{Name: name, Description: "d"}); err != nil {
			t.Fatalf("seed category: %v", err)
		}
	}
	seedProducts(t, repo,
		domain.Product{Name: "Café", Price: 120, Category: "Bebidas", Image: "i"},
		domain.Product{Name: "Jugo", Price: 25, Category: "Bebidas", Image: "i"},
		domain.Product{Name: "Flan", Price: 35, Category: "Postres", Image: "i"},
		domain.Product{Name: "Huérfano", Price: 1, Category: "Eliminada", Image: "i"},
	)

	rec := doJSON(t, router, http.MethodGet, "/api/estadisticas/productos", nil)
	stats := decodeBody[[]categoryCount](t, rec)
	if len(stats) != 4 {
		t.Fatalf("Expected 4 entries, got %+v", stats)
	}

	want := []categoryCount{
		{Category: "Bebidas", Count: 2},
		{Category: "Postres", Count: 1},
		{Category: "Lácteos", Count: 0},
		{Category: "Eliminada", Count: 1},
	}
	for i, w := range want {
		if stats[i] != w {
			t.Errorf("Position %d: expected %+v, got %+v", i, w, stats[i])
		}
	}
}

func TestProductReportCSV(t *testing.T) {
	t.Parallel()

	router, repo := newTestServer(t)
	seedProducts(t, repo,
		domain.Product{Name: "Café", Price: 120.5, Category: "Bebidas", Image: "i"},
		domain.Product{Name: "Flan", Price: 35, Category: "Postres", Image: "i"},
	)

	rec := doJSON(t, router, http.MethodGet, "/api/reportes/productos.csv", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Expected text/csv content type, got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "productos.csv") {
		t.Errorf("Expected attachment disposition, got %q", cd)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %q", rec.Body.String())
	}
	if lines[0] != "nombre,precio,categoria" {
		t.Errorf("Unexpected header: %q", lines[0])
	}
	if lines[1] != "Café,120.50,Bebidas" {
		t.Errorf("Unexpected first row: %q", lines[1])
	}
	if lines[2] != "Flan,35.00,Postres" {
		t.Errorf("Unexpected second row: %q", lines[2])
	}
}
