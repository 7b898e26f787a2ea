package server

import (
	"fmt"
	"net/http"

	"github.com/qoishaidar/uang/internal/models"
)

// handleWallets handles GET and POST /api/wallets.
func (s *Server) handleWallets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"wallets": s.app.Ledger.Snapshot().Wallets,
		})
	case http.MethodPost:
		var wallet models.Wallet
		if !DecodeJSON(w, r, &wallet) {
			return
		}
		if wallet.Name == "" {
			WriteError(w, http.StatusBadRequest, "Wallet name is required")
			return
		}
		if err := s.app.Ledger.AddWallet(r.Context(), wallet); err != nil {
			WriteError(w, http.StatusBadGateway, fmt.Sprintf("Error adding wallet: %v", err))
			return
		}
		WriteJSON(w, http.StatusCreated, map[string]interface{}{
			"wallets": s.app.Ledger.Snapshot().Wallets,
		})
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleWalletItem handles PUT and DELETE /api/wallets/{id}.
func (s *Server) handleWalletItem(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(w, r, "/api/wallets/")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPut:
		var wallet models.Wallet
		if !DecodeJSON(w, r, &wallet) {
			return
		}
		wallet.ID = &id
		if err := s.app.Ledger.UpdateWallet(r.Context(), wallet); err != nil {
			WriteError(w, http.StatusBadGateway, fmt.Sprintf("Error updating wallet: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, wallet)
	case http.MethodDelete:
		if err := s.app.Ledger.DeleteWallet(r.Context(), id); err != nil {
			WriteError(w, http.StatusBadGateway, fmt.Sprintf("Error deleting wallet: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"summary": s.app.Ledger.Summary(),
		})
	default:
		RequireMethod(w, r, http.MethodPut, http.MethodDelete)
	}
}

// handleWalletReorder handles POST /api/wallets/reorder.
func (s *Server) handleWalletReorder(w http.ResponseWriter, r *http.Request) {
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

	if err := s.app.Ledger.ReorderWallets(r.Context(), req.IDs); err != nil {
		WriteError(w, http.StatusBadGateway, fmt.Sprintf("Error reordering wallets: %v", err))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"wallets": s.app.Ledger.Snapshot().Wallets,
	})
}
