package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"vinoclub/internal/app/onboarding"
	"vinoclub/internal/session"
	"vinoclub/shared/go/logging"
	"vinoclub/shared/go/models"
)

type userIDKey struct{}

func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

type authedHandler func(w http.ResponseWriter, r *http.Request, userID string)

// authed rejects requests without a live session and passes the user id on.
func (s *Server) authed(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := s.viewer(r)
		if userID == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey{}, userID)
		ctx = logging.ContextWithUserID(ctx, userID)
		next(w, r.WithContext(ctx), userID)
	}
}

// viewer returns the signed-in user id, or "" for anonymous requests.
func (s *Server) viewer(r *http.Request) string {
	if id := userIDFromContext(r.Context()); id != "" {
		return id
	}
	token := requestToken(r)
	if token == "" || s.sessions == nil {
		return ""
	}
	userID, err := s.sessions.Verify(r.Context(), token)
	if err != nil {
		logging.FromContext(r.Context()).Debug().Err(err).Msg("session rejected")
		return ""
	}
	return userID
}

func requestToken(r *http.Request) string {
	if token := parseBearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	if c, err := r.Cookie(session.CookieName); err == nil {
		return c.Value
	}
	return ""
}

func parseBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token session.Token) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token.Value,
		Path:     "/",
		Expires:  token.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

type signupFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// writeSignup reports onboarding outcomes as {success, ...}.
func writeSignup(w http.ResponseWriter, r *http.Request, status int, result onboarding.Result, err error) {
	if err != nil {
		code, msg := apperrStatus(r, err)
		writeJSON(w, code, signupFailure{Success: false, Error: msg})
		return
	}
	writeJSON(w, status, result)
}

func (s *Server) handleSignupHost(w http.ResponseWriter, r *http.Request) {
	var req onboarding.HostSignup
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := s.auth.SignupHost(r.Context(), req)
	writeSignup(w, r, http.StatusCreated, result, err)
}

func (s *Server) handleSignupMember(w http.ResponseWriter, r *http.Request) {
	var req onboarding.MemberSignup
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := s.auth.SignupMember(r.Context(), req)
	writeSignup(w, r, http.StatusCreated, result, err)
}

func (s *Server) handleCreateClub(w http.ResponseWriter, r *http.Request, userID string) {
	var req onboarding.ClubCreation
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := s.auth.CreateClub(r.Context(), userID, req)
	writeSignup(w, r, http.StatusCreated, result, err)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User      models.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.setSessionCookie(w, result.Token)
	writeJSON(w, http.StatusOK, loginResponse{User: result.User, Token: result.Token.Value, ExpiresAt: result.Token.ExpiresAt})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := requestToken(r); token != "" {
		if err := s.auth.Logout(r.Context(), token); err != nil {
			writeError(w, r, err)
			return
		}
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, userID string) {
	account, err := s.profile.Account(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

type resetPasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request, userID string) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.auth.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password updated successfully"})
}
