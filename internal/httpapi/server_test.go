package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vinoclub/internal/app/billing"
	"vinoclub/internal/app/events"
	"vinoclub/internal/app/onboarding"
	"vinoclub/internal/app/settings"
	"vinoclub/internal/payments"
	"vinoclub/internal/session"
	"vinoclub/shared/go/models"
)

type stubSessions struct {
	tokens map[string]string
}

func (s stubSessions) Verify(ctx context.Context, raw string) (string, error) {
	if id, ok := s.tokens[raw]; ok {
		return id, nil
	}
	return "", session.ErrInvalidToken
}

type stubAuth struct {
	AuthService

	signupErr  error
	loginErr   error
	loggedOut  string
	lastMember onboarding.MemberSignup
}

func (s *stubAuth) SignupMember(ctx context.Context, in onboarding.MemberSignup) (onboarding.Result, error) {
	s.lastMember = in
	if s.signupErr != nil {
		return onboarding.Result{}, s.signupErr
	}
	return onboarding.Result{Success: true, User: &models.User{ID: "u1", Email: in.Email}}, nil
}

func (s *stubAuth) Login(ctx context.Context, email, password string) (onboarding.LoginResult, error) {
	if s.loginErr != nil {
		return onboarding.LoginResult{}, s.loginErr
	}
	return onboarding.LoginResult{
		User:  models.User{ID: "u1", Email: email},
		Token: session.Token{Value: "tok-1", ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)},
	}, nil
}

func (s *stubAuth) Logout(ctx context.Context, token string) error {
	s.loggedOut = token
	return nil
}

type stubClubs struct {
	ClubService

	lastViewer string
}

func (s *stubClubs) Profile(ctx context.Context, code, viewerID string) (models.ClubProfile, error) {
	s.lastViewer = viewerID
	if code != "NAPA2024" {
		return models.ClubProfile{}, errors.New("boom")
	}
	return models.ClubProfile{HostCode: code, IsLoggedIn: viewerID != ""}, nil
}

type stubEvents struct {
	EventService

	registerErr error
	deletedID   string
	deletedBy   string
	payment     events.PaymentInput
}

func (s *stubEvents) Register(ctx context.Context, userID, eventID string) (models.Attendee, error) {
	if s.registerErr != nil {
		return models.Attendee{}, s.registerErr
	}
	return models.Attendee{ID: "a1", EventID: eventID, UserID: userID, Status: "registered"}, nil
}

func (s *stubEvents) Delete(ctx context.Context, hostID, eventID string) error {
	s.deletedBy = hostID
	s.deletedID = eventID
	return nil
}

func (s *stubEvents) RecordPayment(ctx context.Context, hostID, eventID string, in events.PaymentInput) (models.EventPayment, error) {
	s.payment = in
	return models.EventPayment{ID: "p1", EventID: eventID, UserID: in.UserID, Amount: 25, PaymentStatus: "paid"}, nil
}

type stubSettings struct {
	SettingsService

	patch settings.Patch
}

func (s *stubSettings) Update(ctx context.Context, hostID string, patch settings.Patch) (models.HostSettings, error) {
	s.patch = patch
	return models.HostSettings{JoinMode: "public"}, nil
}

type stubBilling struct {
	BillingService

	err error
}

func (s *stubBilling) SetupIntent(ctx context.Context, userID string) (billing.SetupIntent, error) {
	if s.err != nil {
		return billing.SetupIntent{}, s.err
	}
	return billing.SetupIntent{ClientSecret: "seti_secret", CustomerID: "cus_" + userID}, nil
}

type fixture struct {
	auth     *stubAuth
	clubs    *stubClubs
	events   *stubEvents
	settings *stubSettings
	billing  *stubBilling
	handler  http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		auth:     &stubAuth{},
		clubs:    &stubClubs{},
		events:   &stubEvents{},
		settings: &stubSettings{},
		billing:  &stubBilling{},
	}
	srv := New(Services{
		Auth:     f.auth,
		Sessions: stubSessions{tokens: map[string]string{"good": "user-1"}},
		Clubs:    f.clubs,
		Events:   f.events,
		Settings: f.settings,
		Billing:  f.billing,
		Search: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"q": r.URL.Query().Get("q")})
		}),
		Build: BuildInfo{Version: "test"},
	})
	f.handler = srv.Routes()
	return f
}

func (f *fixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	f := newFixture()

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/member/memberships"},
		{http.MethodPost, "/api/events/register"},
		{http.MethodGet, "/api/host/ledger"},
		{http.MethodPost, "/api/stripe/setup-intent"},
	} {
		rec := f.do(tc.method, tc.path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.path, rec.Code)
		}
		rec = f.do(tc.method, tc.path, "forged", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s with bad token: expected 401, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestSessionCookieAuthenticates(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodPost, "/api/events/register", strings.NewReader(`{"event_id":"e1"}`))
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "good"})
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	reg := decodeBody(t, rec)["registration"].(map[string]any)
	if reg["user_id"] != "user-1" || reg["event_id"] != "e1" {
		t.Fatalf("unexpected registration: %v", reg)
	}
}

func TestRegisterMapsDomainErrors(t *testing.T) {
	f := newFixture()

	f.events.registerErr = events.ErrEventFull
	rec := f.do(http.MethodPost, "/api/events/register", "good", `{"event_id":"e1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decodeBody(t, rec)["error"]; msg != "Event is fully booked" {
		t.Fatalf("unexpected error message %v", msg)
	}

	f.events.registerErr = events.ErrEventNotFound
	rec = f.do(http.MethodPost, "/api/events/register", "good", `{"event_id":"e1"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	f.events.registerErr = errors.New("connection reset")
	rec = f.do(http.MethodPost, "/api/events/register", "good", `{"event_id":"e1"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if msg := decodeBody(t, rec)["error"]; msg != "Internal server error" {
		t.Fatalf("internal error leaked: %v", msg)
	}
}

func TestInvalidJSON(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/api/events/register", "good", `{"event_id":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPut, "/api/events/register", "good", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestSignupFailureShape(t *testing.T) {
	f := newFixture()
	f.auth.signupErr = onboarding.ErrInvalidHostCode

	rec := f.do(http.MethodPost, "/api/auth/signup/member", "", `{"email":"ada@example.com","host_code":"BADCODE1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != false || body["error"] != "Invalid host code. Please check and try again." {
		t.Fatalf("unexpected body %v", body)
	}
	if f.auth.lastMember.HostCode != "BADCODE1" {
		t.Fatalf("request not decoded: %+v", f.auth.lastMember)
	}

	f.auth.signupErr = nil
	rec = f.do(http.MethodPost, "/api/auth/signup/member", "", `{"email":"ada@example.com"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if decodeBody(t, rec)["success"] != true {
		t.Fatalf("expected success")
	}
}

func TestLoginSetsCookie(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPost, "/api/auth/login", "", `{"email":"ada@example.com","password":"Secret123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if decodeBody(t, rec)["token"] != "tok-1" {
		t.Fatalf("token missing from body")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != session.CookieName || cookies[0].Value != "tok-1" || !cookies[0].HttpOnly {
		t.Fatalf("unexpected cookies %+v", cookies)
	}

	f.auth.loginErr = onboarding.ErrInvalidLogin
	rec = f.do(http.MethodPost, "/api/auth/login", "", `{"email":"ada@example.com","password":"nope"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPost, "/api/auth/logout", "good", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.auth.loggedOut != "good" {
		t.Fatalf("token not revoked: %q", f.auth.loggedOut)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("cookie not cleared: %+v", cookies)
	}
}

func TestClubProfileViewer(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodGet, "/api/clubs/NAPA2024", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.clubs.lastViewer != "" {
		t.Fatalf("anonymous request resolved viewer %q", f.clubs.lastViewer)
	}

	rec = f.do(http.MethodGet, "/api/clubs/NAPA2024", "good", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.clubs.lastViewer != "user-1" {
		t.Fatalf("expected viewer user-1, got %q", f.clubs.lastViewer)
	}
	club := decodeBody(t, rec)["club"].(map[string]any)
	if club["is_logged_in"] != true {
		t.Fatalf("unexpected club %v", club)
	}
}

func TestDeleteEventUsesPathID(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodDelete, "/api/host/events/ev-42", "good", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.events.deletedID != "ev-42" || f.events.deletedBy != "user-1" {
		t.Fatalf("unexpected delete call %q by %q", f.events.deletedID, f.events.deletedBy)
	}
}

func TestRecordPaymentDecodesBody(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPost, "/api/events/ev-1/payments", "good", `{"user_id":"m1","payment_method":"cash"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.events.payment.UserID != "m1" || f.events.payment.PaymentMethod == nil || *f.events.payment.PaymentMethod != "cash" {
		t.Fatalf("unexpected payment input %+v", f.events.payment)
	}
	if f.events.payment.Amount != nil {
		t.Fatalf("amount should be left for the service to default")
	}
}

func TestPatchSettingsDistinguishesNull(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPatch, "/api/host/settings", "good", `{"venmo_username":null,"accepts_cash":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	p := f.settings.patch
	if !p.VenmoUsername.Set || p.VenmoUsername.Value != nil {
		t.Fatalf("venmo should be set to null: %+v", p.VenmoUsername)
	}
	if p.PaypalUsername.Set {
		t.Fatalf("paypal should be absent")
	}
	if !p.AcceptsCash.Set || p.AcceptsCash.Value == nil || !*p.AcceptsCash.Value {
		t.Fatalf("accepts_cash not decoded: %+v", p.AcceptsCash)
	}
}

func TestProcessorErrorPassthrough(t *testing.T) {
	f := newFixture()
	f.billing.err = &payments.ProcessorError{Message: "Your card was declined.", Type: "card_error", Code: "card_declined", Status: http.StatusPaymentRequired}

	rec := f.do(http.MethodPost, "/api/stripe/setup-intent", "good", "")
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "Your card was declined." || body["type"] != "card_error" || body["code"] != "card_declined" {
		t.Fatalf("unexpected body %v", body)
	}

	f.billing.err = nil
	rec = f.do(http.MethodPost, "/api/stripe/setup-intent", "good", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if decodeBody(t, rec)["customerId"] != "cus_user-1" {
		t.Fatalf("setup intent not issued for the session user")
	}
}

func TestPublicEndpoints(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodGet, "/api/search?q=merlot", "", "")
	if rec.Code != http.StatusOK || decodeBody(t, rec)["q"] != "merlot" {
		t.Fatalf("search not mounted: %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(http.MethodGet, "/api/version", "", "")
	if rec.Code != http.StatusOK || decodeBody(t, rec)["version"] != "test" {
		t.Fatalf("unexpected version response %s", rec.Body.String())
	}

	rec = f.do(http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
