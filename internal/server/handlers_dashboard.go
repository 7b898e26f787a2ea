package server

import (
	"fmt"
	"net/http"
)

// handleDashboard handles GET /api/dashboard.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, s.app.Dashboard.Overview())
}

// handleDashboardChart handles GET /api/dashboard/chart.png.
func (s *Server) handleDashboardChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	png, err := s.app.Dashboard.SpendingChart()
	if err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("Chart unavailable: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
