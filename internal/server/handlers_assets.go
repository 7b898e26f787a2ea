package server

import (
	"fmt"
	"net/http"

	"github.com/qoishaidar/uang/internal/models"
)

// handleAssets handles GET and POST /api/assets.
func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"assets": s.app.Ledger.Snapshot().Assets,
		})
	case http.MethodPost:
		var asset models.Asset
		if !DecodeJSON(w, r, &asset) {
			return
		}
		if asset.Name == "" {
			WriteError(w, http.StatusBadRequest, "Asset name is required")
			return
		}
		if err := s.app.Ledger.AddAsset(r.Context(), asset); err != nil {
			WriteError(w, http.StatusBadGateway, fmt.Sprintf("Error adding asset: %v", err))
			return
		}
		WriteJSON(w, http.StatusCreated, map[string]interface{}{
			"assets": s.app.Ledger.Snapshot().Assets,
		})
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleAssetItem handles PUT and DELETE /api/assets/{id}.
func (s *Server) handleAssetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(w, r, "/api/assets/")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPut:
		var asset models.Asset
		if !DecodeJSON(w, r, &asset) {
			return
		}
		asset.ID = &id
		if err := s.app.Ledger.UpdateAsset(r.Context(), asset); err != nil {
			WriteError(w, http.StatusBadGateway, fmt.Sprintf("Error updating asset: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, asset)
	case http.MethodDelete:
		if err := s.app.Ledger.DeleteAsset(r.Context(), id); err != nil {
			WriteError(w, http.StatusBadGateway, fmt.Sprintf("Error deleting asset: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"summary": s.app.Ledger.Summary(),
		})
	default:
		RequireMethod(w, r, http.MethodPut, http.MethodDelete)
	}
}

// handleAssetReorder handles POST /api/assets/reorder.
func (s *Server) handleAssetReorder(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		IDs []int64 `json:"ids"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		WriteError(w, http.StatusBadRequest, "ids is required")
		return
	}

	if err := s.app.Ledger.ReorderAssets(r.Context(), req.IDs); err != nil {
		WriteError(w, http.StatusBadGateway, fmt.Sprintf("Error reordering assets: %v", err))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"assets": s.app.Ledger.Snapshot().Assets,
	})
}
