package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveWithIdentity(t *testing.T, r *http.Request, isDev bool) (userID, sessionID string, rec *httptest.ResponseRecorder) {
	t.Helper()
	rec = httptest.NewRecorder()
	h := Middleware(isDev)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		userID = UserIDFromContext(r.Context())
		sessionID = SessionIDFromContext(r.Context())
	}))
	h.ServeHTTP(rec, r)
	return userID, sessionID, rec
}

func TestMiddleware_IssuesCookie(t *testing.T) {
	userID, sessionID, rec := serveWithIdentity(t, httptest.NewRequest(http.MethodGet, "/api/state", nil), false)

	if !isValidAnonID(userID) {
		t.Fatalf("expected generated anon id, got %q", userID)
	}
	if sessionID != DefaultSessionIDValue {
		t.Errorf("expected default session id, got %q", sessionID)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != userID {
		t.Fatalf("expected anon cookie with %q, got %v", userID, cookies)
	}
	if cookies[0].SameSite != http.SameSiteNoneMode || !cookies[0].Secure {
		t.Errorf("expected cross-site secure cookie outside development, got %+v", cookies[0])
	}
}

func TestMiddleware_ReusesCookie(t *testing.T) {
	id, _ := NewAnonID()
	r := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	r.AddCookie(&http.Cookie{Name: AnonCookieName, Value: id})
	r.Header.Set(SessionHeaderName, "tab-7")

	userID, sessionID, _ := serveWithIdentity(t, r, true)
	if userID != id {
		t.Errorf("expected cookie id %q, got %q", id, userID)
	}
	if sessionID != "tab-7" {
		t.Errorf("expected tab-7, got %q", sessionID)
	}
}

func TestMiddleware_ClientIDQueryWins(t *testing.T) {
	id, _ := NewAnonID()
	r := httptest.NewRequest(http.MethodGet, "/api/stream?client_id="+id+"&session_id=tab-2", nil)

	userID, sessionID, rec := serveWithIdentity(t, r, true)
	if userID != id || sessionID != "tab-2" {
		t.Errorf("expected %q/tab-2, got %q/%q", id, userID, sessionID)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("expected no cookie when the client supplies its id")
	}
}

func TestSanitizeSessionID(t *testing.T) {
	cases := map[string]string{
		"":          DefaultSessionIDValue,
		"tab 1":     DefaultSessionIDValue,
		"<script>":  DefaultSessionIDValue,
		" tab-1 ":   "tab-1",
		"a.b_c:d-1": "a.b_c:d-1",
	}
	for in, want := range cases {
		if got := sanitizeSessionID(in); got != want {
			t.Errorf("sanitizeSessionID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInvalidClientIDIgnored(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(ClientHeaderName, "anon_not-hex")
	userID, _, _ := serveWithIdentity(t, r, true)
	if userID == "anon_not-hex" {
		t.Error("expected malformed client id to be replaced")
	}
}
