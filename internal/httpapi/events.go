package httpapi

import (
	"net/http"
	"strconv"

	"vinoclub/internal/app/events"
	"vinoclub/shared/go/models"
)

type eventsResponse struct {
	Events []models.EventWithCount `json:"events"`
}

type paymentResponse struct {
	Payment models.EventPayment `json:"payment"`
}

type eventIDRequest struct {
	EventID string `json:"event_id"`
}

func (s *Server) handleHostEvents(w http.ResponseWriter, r *http.Request, userID string) {
	list, err := s.events.HostEvents(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: list})
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request, userID string) {
	var req models.EventInput
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := s.events.Create(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request, userID string) {
	var req models.EventInput
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := s.events.Update(r.Context(), userID, r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request, userID string) {
	if err := s.events.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Event deleted successfully"})
}

func (s *Server) handleCancelEvent(w http.ResponseWriter, r *http.Request, userID string) {
	event, err := s.events.Cancel(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Event   models.Event `json:"event"`
		Message string       `json:"message"`
	}{Event: event, Message: "Event cancelled successfully"})
}

func (s *Server) handleUpcomingEvents(w http.ResponseWriter, r *http.Request, userID string) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	list, err := s.events.Upcoming(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Events []models.UpcomingEvent `json:"events"`
	}{Events: list})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request, userID string) {
	var req eventIDRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	attendee, err := s.events.Register(r.Context(), userID, req.EventID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Registration models.Attendee `json:"registration"`
	}{Registration: attendee})
}

func (s *Server) handleCancelRegistration(w http.ResponseWriter, r *http.Request, userID string) {
	var req eventIDRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.events.CancelRegistration(r.Context(), userID, req.EventID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Registration cancelled successfully"})
}

func (s *Server) handleEventLedger(w http.ResponseWriter, r *http.Request, userID string) {
	ledger, err := s.events.Ledger(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ledger)
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request, userID string) {
	var req events.PaymentInput
	if !decodeJSON(w, r, &req) {
		return
	}
	payment, err := s.events.RecordPayment(r.Context(), userID, r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentResponse{Payment: payment})
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request, userID string) {
	var req events.PaymentInput
	if !decodeJSON(w, r, &req) {
		return
	}
	payment, err := s.events.UpdatePayment(r.Context(), userID, r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentResponse{Payment: payment})
}
