package server

import (
	"fmt"
	"net/http"

	"github.com/qoishaidar/uang/internal/models"
)

// handleCategories handles GET and POST /api/categories.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"categories": s.app.Ledger.Snapshot().Categories,
		})
	case http.MethodPost:
		var category models.Category
		if !DecodeJSON(w, r, &category) {
			return
		}
		if err := s.app.Ledger.AddCategory(r.Context(), category); err != nil {
			WriteError(w, http.StatusBadGateway, fmt.Sprintf("Error adding category: %v", err))
			return
		}
		WriteJSON(w, http.StatusCreated, map[string]interface{}{
			"categories": s.app.Ledger.Snapshot().Categories,
		})
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleCategoryItem handles PUT and DELETE /api/categories/{id}.
func (s *Server) handleCategoryItem(w http.ResponseWriter, r *http.Request) {
	id := PathParam(r, "/api/categories/", "")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Missing category id in path")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var category models.Category
		if !DecodeJSON(w, r, &category) {
			return
		}
		category.ID = id
		if err := s.app.Ledger.UpdateCategory(r.Context(), category); err != nil {
			WriteError(w, http.StatusBadGateway, fmt.Sprintf("Error updating category: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, category)
	case http.MethodDelete:
		if err := s.app.Ledger.DeleteCategory(r.Context(), id); err != nil {
			WriteError(w, http.StatusBadGateway, fmt.Sprintf("Error deleting category: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"categories": s.app.Ledger.Snapshot().Categories,
		})
	default:
		RequireMethod(w, r, http.MethodPut, http.MethodDelete)
	}
}

// handleCategoryReorder handles POST /api/categories/reorder. The new order
// is applied locally and pushed in the background; the response does not wait
// for the remote write.
func (s *Server) handleCategoryReorder(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		IDs []string `json:"ids"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		WriteError(w, http.StatusBadRequest, "ids is required")
		return
	}

	if err := s.app.Ledger.ReorderCategories(r.Context(), req.IDs); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Error reordering categories: %v", err))
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"categories": s.app.Ledger.Snapshot().Categories,
	})
}

// handleCategorySuggest handles POST /api/categories/suggest.
func (s *Server) handleCategorySuggest(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Title string                 `json:"title"`
		Type  models.TransactionType `json:"type"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Type == "" {
		req.Type = models.TransactionTypeExpense
	}

	name, err := s.app.Advisor.SuggestCategory(r.Context(), req.Title, req.Type)
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Error suggesting category: %v", err))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"category": name,
	})
}
