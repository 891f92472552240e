package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radiusdt/agency-portal/internal/meta"
	"github.com/radiusdt/agency-portal/internal/models"
)

// ---- Clients ----

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.portal.ListClients(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, clients)
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	c, err := s.portal.GetClient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, c)
}

func (s *Server) handleSaveClient(w http.ResponseWriter, r *http.Request) {
	var c models.ClientAccount
	if !s.decode(w, r, &c) {
		return
	}
	c.ID = chi.URLParam(r, "id")
	saved, err := s.portal.SaveClient(r.Context(), &c)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, saved)
}

// ---- Sync ----

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "id")
	window, err := meta.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Settings are read once per sync and handed over by value.
	settings, err := s.portal.GetSettings(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.sync.Sync(r.Context(), clientID, window, settings)
	if err != nil {
		s.logger.Warn("sync failed",
			zap.String("client_id", clientID),
			zap.String("window", string(window)),
			zap.Error(err),
		)
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, res)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	res, err := s.sync.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, res)
}

// ---- Insights ----

type insightRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	var req insightRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	text, err := s.portal.Insights(r.Context(), chi.URLParam(r, "id"), req.Mode)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, map[string]string{"insight": text})
}
