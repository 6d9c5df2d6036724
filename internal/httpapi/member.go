package httpapi

import (
	"net/http"

	"vinoclub/internal/app/address"
	"vinoclub/internal/app/profile"
	"vinoclub/shared/go/models"
)

type memberResponse struct {
	Member *models.Member `json:"member"`
}

type personalInfoResponse struct {
	PersonalInfo models.PersonalInfo `json:"personalInfo"`
}

type preferencesResponse struct {
	Preferences models.Preferences `json:"preferences"`
}

func (s *Server) handleGetMemberProfile(w http.ResponseWriter, r *http.Request, userID string) {
	member, err := s.profile.MemberProfile(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memberResponse{Member: member})
}

func (s *Server) handlePutMemberProfile(w http.ResponseWriter, r *http.Request, userID string) {
	var req profile.AddressInput
	if !decodeJSON(w, r, &req) {
		return
	}
	member, err := s.profile.SaveMemberProfile(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memberResponse{Member: &member})
}

func (s *Server) handleGetPersonalInfo(w http.ResponseWriter, r *http.Request, userID string) {
	info, err := s.profile.PersonalInfo(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, personalInfoResponse{PersonalInfo: info})
}

func (s *Server) handlePutPersonalInfo(w http.ResponseWriter, r *http.Request, userID string) {
	var req profile.PersonalInfoInput
	if !decodeJSON(w, r, &req) {
		return
	}
	info, err := s.profile.UpdatePersonalInfo(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, personalInfoResponse{PersonalInfo: info})
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request, userID string) {
	prefs, err := s.profile.Preferences(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preferencesResponse{Preferences: prefs})
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request, userID string) {
	var req models.Preferences
	if !decodeJSON(w, r, &req) {
		return
	}
	prefs, err := s.profile.UpdatePreferences(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preferencesResponse{Preferences: prefs})
}

func (s *Server) handleValidateAddress(w http.ResponseWriter, r *http.Request) {
	var req address.Input
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.address.Validate(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
