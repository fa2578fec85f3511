package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dromero/tienda-server/internal/domain"
	"github.com/dromero/tienda-server/internal/store"
	"github.com/go-chi/chi/v5"
)

type categoryRequest struct {
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
}

type pagedCategories struct {
	Items      []domain.Category `json:"items"`
	TotalItems int               `json:"total_items"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
}

// ListCategories handles GET /api/categorias. Without query parameters it
// returns the full snapshot; q filters by substring over name/description,
// page/page_size paginate the filtered result.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.repo.ListCategories(r.Context())
	if err != nil {
		slog.Error("Failed to list categories", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load categories")
		return
	}

	q := parseListQuery(r)
	if q.search != "" {
		filtered := cats[:0:0]
		for _, cat := range cats {
			if strings.Contains(strings.ToLower(cat.Name), q.search) ||
				strings.Contains(strings.ToLower(cat.Description), q.search) {
				filtered = append(filtered, cat)
			}
		}
		cats = filtered
	}
	if cats == nil {
		cats = []domain.Category{}
	}

	if !q.paginated() {
		JSON(w, http.StatusOK, cats)
		return
	}

	start, end := q.slice(len(cats))
	JSON(w, http.StatusOK, pagedCategories{
		Items:      cats[start:end],
		TotalItems: len(cats),
		Page:       q.page,
		PageSize:   q.pageSize,
	})
}

// CreateCategory handles POST /api/categorias. Both fields are required.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Description) == "" {
		Error(w, http.StatusBadRequest, "nombre and descripcion are required")
		return
	}

	cat, err := h.repo.CreateCategory(r.Context(), domain.Category{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		slog.Error("Failed to create category", "error", err)
		Error(w, http.StatusInternalServerError, "failed to create category")
		return
	}

	slog.Info("Category created", "id", cat.ID, "nombre", cat.Name)
	JSON(w, http.StatusCreated, cat)
}

// UpdateCategory handles PUT /api/categorias/{id}.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Description) == "" {
		Error(w, http.StatusBadRequest, "nombre and descripcion are required")
		return
	}

	cat := domain.Category{
		ID:          id,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
	}
	if err := h.repo.UpdateCategory(r.Context(), cat); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			Error(w, http.StatusNotFound, "category not found")
			return
		}
		slog.Error("Failed to update category", "id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to update category")
		return
	}

	JSON(w, http.StatusOK, cat)
}

// DeleteCategory handles DELETE /api/categorias/{id}.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.repo.DeleteCategory(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			Error(w, http.StatusNotFound, "category not found")
			return
		}
		slog.Error("Failed to delete category", "id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to delete category")
		return
	}

	slog.Info("Category deleted", "id", id)
	JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
