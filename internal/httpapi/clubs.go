package httpapi

import (
	"net/http"
	"strconv"

	"vinoclub/internal/app/wines"
	"vinoclub/internal/apperr"
	"vinoclub/shared/go/models"
)

func (s *Server) handleClubProfile(w http.ResponseWriter, r *http.Request) {
	club, err := s.clubs.Profile(r.Context(), r.PathValue("hostCode"), s.viewer(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Club models.ClubProfile `json:"club"`
	}{Club: club})
}

func (s *Server) handleClubEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.clubs.Events(r.Context(), r.PathValue("hostCode"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Events []models.EventWithCount `json:"events"`
	}{Events: events})
}

func (s *Server) handleClubWines(w http.ResponseWriter, r *http.Request) {
	list, err := s.wines.ClubWines(r.Context(), r.PathValue("hostCode"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, winesResponse{Wines: list})
}

func (s *Server) handleNearbyClubs(w http.ResponseWriter, r *http.Request, userID string) {
	clubs, err := s.clubs.Nearby(r.Context(), userID, r.URL.Query().Get("radius"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Clubs []models.NearbyClub `json:"clubs"`
	}{Clubs: clubs})
}

func (s *Server) handleClubDetail(w http.ResponseWriter, r *http.Request, userID string) {
	club, err := s.clubs.Detail(r.Context(), userID, r.PathValue("hostId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Club models.NearbyClub `json:"club"`
	}{Club: club})
}

type membershipResponse struct {
	Membership models.Membership `json:"membership"`
}

func (s *Server) handleListMemberships(w http.ResponseWriter, r *http.Request, userID string) {
	list, err := s.memberships.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Memberships []models.MembershipWithHost `json:"memberships"`
	}{Memberships: list})
}

type joinRequest struct {
	HostID         string  `json:"host_id"`
	RequestMessage *string `json:"request_message"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request, userID string) {
	var req joinRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	membership, err := s.memberships.Join(r.Context(), userID, req.HostID, req.RequestMessage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, membershipResponse{Membership: membership})
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request, userID string) {
	hostID := r.URL.Query().Get("host_id")
	if err := s.memberships.Leave(r.Context(), userID, hostID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleJoinWithCode(w http.ResponseWriter, r *http.Request, userID string) {
	var req struct {
		HostCode string `json:"host_code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	membership, err := s.memberships.JoinWithCode(r.Context(), userID, req.HostCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, membershipResponse{Membership: membership})
}

func (s *Server) handlePendingMemberships(w http.ResponseWriter, r *http.Request, userID string) {
	if status := r.URL.Query().Get("status"); status != "" && status != models.MembershipPending {
		writeError(w, r, apperr.Validation("Only pending requests can be listed"))
		return
	}
	requests, err := s.memberships.Pending(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Requests []models.PendingRequest `json:"requests"`
	}{Requests: requests})
}

type membershipActionRequest struct {
	MembershipID string `json:"membership_id"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request, userID string) {
	var req membershipActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	membership, err := s.memberships.Approve(r.Context(), userID, req.MembershipID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, membershipResponse{Membership: membership})
}

func (s *Server) handleDeny(w http.ResponseWriter, r *http.Request, userID string) {
	var req membershipActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := s.memberships.Deny(r.Context(), userID, req.MembershipID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request, userID string) {
	members, err := s.memberships.Members(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Members []models.ClubMember `json:"members"`
	}{Members: members})
}

type winesResponse struct {
	Wines []models.Wine `json:"wines"`
}

type wineResponse struct {
	Wine models.Wine `json:"wine"`
}

func (s *Server) handleFeaturedWines(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := s.wines.Featured(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, winesResponse{Wines: list})
}

func (s *Server) handleHostWines(w http.ResponseWriter, r *http.Request, userID string) {
	list, err := s.wines.HostWines(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, winesResponse{Wines: list})
}

func (s *Server) handleCreateWine(w http.ResponseWriter, r *http.Request, userID string) {
	var req wines.Input
	if !decodeJSON(w, r, &req) {
		return
	}
	wine, err := s.wines.Create(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wineResponse{Wine: wine})
}

func (s *Server) handleFeatureWine(w http.ResponseWriter, r *http.Request, userID string) {
	req := struct {
		Featured *bool `json:"featured"`
	}{}
	if !decodeJSON(w, r, &req) {
		return
	}
	featured := true
	if req.Featured != nil {
		featured = *req.Featured
	}
	wine, err := s.wines.Feature(r.Context(), userID, r.PathValue("id"), featured)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wineResponse{Wine: wine})
}
