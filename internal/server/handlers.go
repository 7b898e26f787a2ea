package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/qoishaidar/uang/internal/common"
	"github.com/qoishaidar/uang/internal/models"
)

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"uptime":  time.Since(s.app.StartupTime).Round(time.Second).String(),
		"storage": s.app.Config.Storage.Driver,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":    common.GetVersion(),
		"build":      common.GetBuild(),
		"git_commit": common.GetGitCommit(),
	})
}

// --- Ledger handlers ---

// handleRefresh handles POST /api/refresh: full re-fetch and merge.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := s.app.Ledger.Refresh(r.Context()); err != nil {
		// Partial failures still leave usable state; report them alongside it.
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"summary": s.app.Ledger.Summary(),
			"warning": err.Error(),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"summary": s.app.Ledger.Summary(),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, s.app.Ledger.Snapshot())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, s.app.Ledger.Summary())
}

// handleSettings handles GET and PUT /api/settings.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		WriteJSON(w, http.StatusOK, s.app.Prefs.Settings())
	case http.MethodPut:
		var settings models.Settings
		if !DecodeJSON(w, r, &settings) {
			return
		}
		if err := s.app.Prefs.SaveSettings(settings); err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error saving settings: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, settings)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut)
	}
}
