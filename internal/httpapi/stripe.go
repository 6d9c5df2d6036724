package httpapi

import (
	"net/http"
)

func (s *Server) handleSetupIntent(w http.ResponseWriter, r *http.Request, userID string) {
	intent, err := s.billing.SetupIntent(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

func (s *Server) handleSavePayment(w http.ResponseWriter, r *http.Request, userID string) {
	var req struct {
		PaymentMethodID string `json:"paymentMethodId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.billing.SavePaymentMethod(r.Context(), userID, req.PaymentMethodID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Payment method saved successfully"})
}

func (s *Server) handlePaymentMethod(w http.ResponseWriter, r *http.Request, userID string) {
	status, err := s.billing.PaymentMethod(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
