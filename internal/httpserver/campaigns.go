package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radiusdt/agency-portal/internal/models"
)

// ---- Campaigns ----

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.portal.ListCampaigns(r.Context(), r.URL.Query().Get("client_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, campaigns)
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var c models.Campaign
	if !s.decode(w, r, &c) {
		return
	}
	created, err := s.portal.CreateCampaign(r.Context(), &c)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

// handlePurgeCampaigns deletes every campaign of every client.
func (s *Server) handlePurgeCampaigns(w http.ResponseWriter, r *http.Request) {
	res, err := s.sync.Purge(r.Context())
	if err != nil {
		s.logger.Error("purge failed", zap.Int("deleted", res.Deleted), zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "purge failed",
			"deleted": res.Deleted,
		})
		return
	}
	s.logger.Info("campaigns purged", zap.Int("deleted", res.Deleted), zap.Int("batches", res.Batches))
	s.jsonResponse(w, res)
}

// ---- Tasks ----

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.portal.ListTasks(r.Context(), r.URL.Query().Get("client_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var t models.Task
	if !s.decode(w, r, &t) {
		return
	}
	created, err := s.portal.CreateTask(r.Context(), &t)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

type taskStatusRequest struct {
	Status models.TaskStatus `json:"status"`
}

func (s *Server) handleUpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req taskStatusRequest
	if !s.decode(w, r, &req) {
		return
	}
	t, err := s.portal.UpdateTaskStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, t)
}
