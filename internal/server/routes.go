package server

import (
	"net/http"
	"time"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Ledger
	mux.HandleFunc("/api/refresh", s.handleRefresh)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/settings", s.handleSettings)

	// Transactions
	mux.HandleFunc("/api/transactions/export", s.handleTransactionExport)
	mux.HandleFunc("/api/transactions/", s.handleTransactionItem)
	mux.HandleFunc("/api/transactions", s.handleTransactions)

	// Wallets
	mux.HandleFunc("/api/wallets/reorder", s.handleWalletReorder)
	mux.HandleFunc("/api/wallets/", s.handleWalletItem)
	mux.HandleFunc("/api/wallets", s.handleWallets)

	// Assets
	mux.HandleFunc("/api/assets/reorder", s.handleAssetReorder)
	mux.HandleFunc("/api/assets/", s.handleAssetItem)
	mux.HandleFunc("/api/assets", s.handleAssets)

	// Categories
	mux.HandleFunc("/api/categories/reorder", s.handleCategoryReorder)
	mux.HandleFunc("/api/categories/suggest", s.handleCategorySuggest)
	mux.HandleFunc("/api/categories/", s.handleCategoryItem)
	mux.HandleFunc("/api/categories", s.handleCategories)

	// Dashboard
	mux.HandleFunc("/api/dashboard", s.handleDashboard)
	mux.HandleFunc("/api/dashboard/chart.png", s.handleDashboardChart)

	// Event stream
	mux.HandleFunc("/api/events", s.events.ServeWS)
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}
