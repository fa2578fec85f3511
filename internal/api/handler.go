// Package api provides HTTP handlers for the tienda catalog API.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/dromero/tienda-server/internal/store"
	"github.com/go-chi/chi/v5"
)

// defaultPageSize matches the item count the SPA renders per page.
const defaultPageSize = 5

// Handler serves the catalog CRUD endpoints.
type Handler struct {
	repo store.Repository
}

// NewHandler creates a new Handler.
func NewHandler(repo store.Repository) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes registers catalog routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/categorias", h.ListCategories)
		r.Post("/categorias", h.CreateCategory)
		r.Put("/categorias/{id}", h.UpdateCategory)
		r.Delete("/categorias/{id}", h.DeleteCategory)

		r.Get("/productos", h.ListProducts)
		r.Post("/productos", h.CreateProduct)
		r.Put("/productos/{id}", h.UpdateProduct)
		r.Delete("/productos/{id}", h.DeleteProduct)

		r.Get("/catalogo", h.Catalog)
		r.Get("/estadisticas/productos", h.ProductStats)
		r.Get("/reportes/productos.csv", h.ProductReportCSV)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// listQuery is the shared search/pagination query surface for list endpoints.
type listQuery struct {
	search   string
	page     int
	pageSize int
}

func parseListQuery(r *http.Request) listQuery {
	q := listQuery{
		search:   strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q"))),
		pageSize: defaultPageSize,
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v >= 1 {
		q.page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && v >= 1 && v <= 100 {
		q.pageSize = v
	}
	return q
}

// paginated reports whether the client asked for a page; without an explicit
// page the endpoint returns the full snapshot.
func (q listQuery) paginated() bool {
	return q.page >= 1
}

// slice returns the bounds of the requested page over n items.
func (q listQuery) slice(n int) (int, int) {
	start := (q.page - 1) * q.pageSize
	if start > n {
		start = n
	}
	end := start + q.pageSize
	if end > n {
		end = n
	}
	return start, end
}
