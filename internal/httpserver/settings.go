package httpserver

import (
	"net/http"

	"github.com/radiusdt/agency-portal/internal/models"
)

// Credentials never leave the server unmasked.

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.portal.GetSettings(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, st.Masked())
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var update models.Settings
	if !s.decode(w, r, &update) {
		return
	}
	st, err := s.portal.SaveSettings(r.Context(), update)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, st.Masked())
}

type validateRequest struct {
	Token string `json:"token"`
}

// handleValidateToken checks the posted token, or the stored one when the
// body is empty.
func (s *Server) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	status, err := s.portal.ValidateToken(r.Context(), req.Token)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, status)
}
