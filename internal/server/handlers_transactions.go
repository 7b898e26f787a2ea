package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/qoishaidar/uang/internal/models"
)

// handleTransactions handles GET and POST /api/transactions.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"transactions": s.app.Ledger.Snapshot().Transactions,
		})
	case http.MethodPost:
		var t models.Transaction
		if !DecodeJSON(w, r, &t) {
			return
		}
		if err := s.app.Ledger.AddTransaction(r.Context(), t); err != nil {
			WriteError(w, http.StatusBadGateway, fmt.Sprintf("Error adding transaction: %v", err))
			return
		}
		WriteJSON(w, http.StatusCreated, map[string]interface{}{
			"summary": s.app.Ledger.Summary(),
		})
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleTransactionItem handles PUT and DELETE /api/transactions/{id}.
func (s *Server) handleTransactionItem(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(w, r, "/api/transactions/")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPut:
		var t models.Transaction
		if !DecodeJSON(w, r, &t) {
			return
		}
		t.ID = &id
		if err := s.app.Ledger.UpdateTransaction(r.Context(), t); err != nil {
			WriteError(w, http.StatusBadGateway, fmt.Sprintf("Error updating transaction: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"summary": s.app.Ledger.Summary(),
		})
	case http.MethodDelete:
		if err := s.app.Ledger.DeleteTransaction(r.Context(), id); err != nil {
			WriteError(w, http.StatusBadGateway, fmt.Sprintf("Error deleting transaction: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"summary": s.app.Ledger.Summary(),
		})
	default:
		RequireMethod(w, r, http.MethodPut, http.MethodDelete)
	}
}

// handleTransactionExport handles GET /api/transactions/export: the full
// transaction list as CSV, date descending.
func (s *Server) handleTransactionExport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	transactions := s.app.Ledger.Snapshot().Transactions

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="transactions-%s.csv"`, time.Now().Format("2006-01-02")))

	if err := gocsv.Marshal(transactions, w); err != nil {
		s.logger.Error().Err(err).Msg("CSV export failed")
	}
}
