package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func identityProbe(t *testing.T) (http.Handler, *string, *string) {
	t.Helper()
	var userID, sessionID string
	handler := Middleware(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID = UserIDFromContext(r.Context())
		sessionID = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return handler, &userID, &sessionID
}

func TestMiddlewareAssignsAnonIDAndCookie(t *testing.T) {
	t.Parallel()

	handler, userID, sessionID := identityProbe(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !isValidAnonID(*userID) {
		t.Errorf("Expected generated anon id, got %q", *userID)
	}
	if *sessionID != DefaultSessionIDValue {
		t.Errorf("Expected default session id, got %q", *sessionID)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == AnonCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("Expected anon cookie to be set")
	}
	if !cookie.HttpOnly {
		t.Error("Expected HttpOnly cookie")
	}
}

func TestMiddlewareReusesValidCookie(t *testing.T) {
	t.Parallel()

	handler, userID, _ := identityProbe(t)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	assigned := *userID

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range first.Result().Cookies() {
		req.AddCookie(c)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if *userID != assigned {
		t.Errorf("Expected stable identity %q, got %q", assigned, *userID)
	}
}

func TestMiddlewareRejectsForgedCookie(t *testing.T) {
	t.Parallel()

	handler, userID, _ := identityProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: "../../etc/passwd"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !isValidAnonID(*userID) {
		t.Errorf("Expected fresh anon id for invalid cookie, got %q", *userID)
	}
}

func TestSessionIDFromHeaderAndQuery(t *testing.T) {
	t.Parallel()

	handler, _, sessionID := identityProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeaderName, "tab-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if *sessionID != "tab-42" {
		t.Errorf("Expected header session id, got %q", *sessionID)
	}

	req = httptest.NewRequest(http.MethodGet, "/?session_id=ws-7", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if *sessionID != "ws-7" {
		t.Errorf("Expected query session id, got %q", *sessionID)
	}

	// Header wins over query.
	req = httptest.NewRequest(http.MethodGet, "/?session_id=ws-7", nil)
	req.Header.Set(SessionHeaderName, "tab-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if *sessionID != "tab-42" {
		t.Errorf("Expected header to win, got %q", *sessionID)
	}
}

func TestSanitizeSessionID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input string
		want  string
	}{
		{"", DefaultSessionIDValue},
		{"   ", DefaultSessionIDValue},
		{"tab-42", "tab-42"},
		{"a b", DefaultSessionIDValue},
		{"../../x", DefaultSessionIDValue},
	}
	for _, tc := range cases {
		if got := sanitizeSessionID(tc.input); got != tc.want {
			t.Errorf("sanitizeSessionID(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestWithIdentityRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := WithIdentity(context.Background(), "anon_x", "tab-1")
	if got := UserIDFromContext(ctx); got != "anon_x" {
		t.Errorf("Expected user id round trip, got %q", got)
	}
	if got := SessionIDFromContext(ctx); got != "tab-1" {
		t.Errorf("Expected session id round trip, got %q", got)
	}
	if got := SessionIDFromContext(context.Background()); got != DefaultSessionIDValue {
		t.Errorf("Expected default session id from empty context, got %q", got)
	}
}
