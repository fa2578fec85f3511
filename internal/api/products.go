package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dromero/tienda-server/internal/domain"
	"github.com/dromero/tienda-server/internal/store"
	"github.com/go-chi/chi/v5"
)

// productRequest carries the SPA's product form. Price arrives as a JSON
// string or number depending on the form state, so it is parsed manually.
type productRequest struct {
	Name     string          `json:"nombre"`
	Price    json.RawMessage `json:"precio"`
	Category string          `json:"categoria"`
	Image    string          `json:"imagen"`
}

func (req *productRequest) parse() (domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	category := strings.TrimSpace(req.Category)
	if name == "" || category == "" || req.Image == "" || len(req.Price) == 0 {
		return domain.Product{}, fmt.Errorf("nombre, precio, categoria and imagen are required")
	}

	raw := strings.Trim(strings.TrimSpace(string(req.Price)), `"`)
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return domain.Product{}, fmt.Errorf("precio must be a number")
	}

	return domain.Product{
		Name:     name,
		Price:    price,
		Category: category,
		Image:    req.Image,
	}, nil
}

type pagedProducts struct {
	Items      []domain.Product `json:"items"`
	TotalItems int              `json:"total_items"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
}

// ListProducts handles GET /api/productos. q matches name, price (string
// form) and category, mirroring the SPA's search box.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.ListProducts(r.Context())
	if err != nil {
		slog.Error("Failed to list products", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load products")
		return
	}

	q := parseListQuery(r)
	if q.search != "" {
		filtered := products[:0:0]
		for _, p := range products {
			price := strconv.FormatFloat(p.Price, 'f', -1, 64)
			if strings.Contains(strings.ToLower(p.Name), q.search) ||
				strings.Contains(strings.ToLower(price), q.search) ||
				strings.Contains(strings.ToLower(p.Category), q.search) {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}
	if products == nil {
		products = []domain.Product{}
	}

	if !q.paginated() {
		JSON(w, http.StatusOK, products)
		return
	}

	start, end := q.slice(len(products))
	JSON(w, http.StatusOK, pagedProducts{
		Items:      products[start:end],
		TotalItems: len(products),
		Page:       q.page,
		PageSize:   q.pageSize,
	})
}

// CreateProduct handles POST /api/productos. All four fields are required,
// including the image.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := req.parse()
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.repo.CreateProduct(r.Context(), product)
	if err != nil {
		slog.Error("Failed to create product", "error", err)
		Error(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	slog.Info("Product created", "id", created.ID, "nombre", created.Name)
	JSON(w, http.StatusCreated, created)
}

// UpdateProduct handles PUT /api/productos/{id}.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := req.parse()
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	product.ID = id

	if err := h.repo.UpdateProduct(r.Context(), product); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			Error(w, http.StatusNotFound, "product not found")
			return
		}
		slog.Error("Failed to update product", "id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to update product")
		return
	}

	JSON(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/productos/{id}.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.repo.DeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			Error(w, http.StatusNotFound, "product not found")
			return
		}
		slog.Error("Failed to delete product", "id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to delete product")
		return
	}

	slog.Info("Product deleted", "id", id)
	JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Catalog handles GET /api/catalogo. An optional categoria parameter filters
// by exact category name; "Todas" or empty returns everything.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.ListProducts(r.Context())
	if err != nil {
		slog.Error("Failed to load catalog", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}

	category := strings.TrimSpace(r.URL.Query().Get("categoria"))
	if category != "" && category != "Todas" {
		filtered := products[:0:0]
		for _, p := range products {
			if p.Category == category {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}
	if products == nil {
		products = []domain.Product{}
	}

	JSON(w, http.StatusOK, products)
}

// categoryCount is one bar of the products-per-category chart.
type categoryCount struct {
	Category string `json:"categoria"`
	Count    int    `json:"cantidad"`
}

// ProductStats handles GET /api/estadisticas/productos: product counts per
// category in category snapshot order, with uncategorized leftovers last.
func (h *Handler) ProductStats(w http.ResponseWriter, r *http.Request) {
	cats, err := h.repo.ListCategories(r.Context())
	if err != nil {
		slog.Error("Failed to load categories for stats", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load statistics")
		return
	}
	products, err := h.repo.ListProducts(r.Context())
	if err != nil {
		slog.Error("Failed to load products for stats", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load statistics")
		return
	}

	counts := make(map[string]int, len(cats))
	for _, p := range products {
		counts[p.Category]++
	}

	stats := make([]categoryCount, 0, len(cats)+1)
	for _, cat := range cats {
		stats = append(stats, categoryCount{Category: cat.Name, Count: counts[cat.Name]})
		delete(counts, cat.Name)
	}
	// Products referencing a deleted category still show up.
	for name, n := range counts {
		stats = append(stats, categoryCount{Category: name, Count: n})
	}

	JSON(w, http.StatusOK, stats)
}

// ProductReportCSV handles GET /api/reportes/productos.csv, the server-side
// product report download.
func (h *Handler) ProductReportCSV(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.ListProducts(r.Context())
	if err != nil {
		slog.Error("Failed to load products for report", "error", err)
		Error(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="productos.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"nombre", "precio", "categoria"})
	for _, p := range products {
		if err := cw.Write([]string{p.Name, strconv.FormatFloat(p.Price, 'f', 2, 64), p.Category}); err != nil {
			slog.Warn("Failed to write report row", "error", err)
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.Warn("Failed to flush product report", "error", err)
	}
}
