package httpapi

import (
	"net/http"

	"vinoclub/internal/app/settings"
	"vinoclub/shared/go/models"
)

type settingsResponse struct {
	Host models.HostSettings `json:"host"`
}

func (s *Server) handleHostLedger(w http.ResponseWriter, r *http.Request, userID string) {
	ledger, err := s.ledger.HostLedger(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ledger)
}

func (s *Server) handleDues(w http.ResponseWriter, r *http.Request, userID string) {
	dues, err := s.ledger.MemberDues(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dues)
}

func (s *Server) handleCreateCharge(w http.ResponseWriter, r *http.Request, userID string) {
	var req models.ChargeInput
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := s.ledger.CreateCharge(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request, userID string) {
	current, err := s.settings.Get(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Host: current})
}

func (s *Server) handlePatchSettings(w http.ResponseWriter, r *http.Request, userID string) {
	var patch settings.Patch
	if !decodeJSON(w, r, &patch) {
		return
	}
	updated, err := s.settings.Update(r.Context(), userID, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Host: updated})
}
