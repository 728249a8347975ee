package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddlewareMintsAndReusesAnonID(t *testing.T) {
	var seen string
	handler := Middleware(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// First request: no cookie, middleware mints one.
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/session", nil))

	if !isValidAnonID(seen) {
		t.Fatalf("Expected valid anon id in context, got %q", seen)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != AnonCookieName {
		t.Fatalf("Expected %s cookie, got %v", AnonCookieName, cookies)
	}
	minted := cookies[0].Value

	// Second request with the cookie: same identity.
	r := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	r.AddCookie(&http.Cookie{Name: AnonCookieName, Value: minted})
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if seen != minted {
		t.Errorf("Expected reused id %q, got %q", minted, seen)
	}
}

func TestMiddlewareRejectsMalformedCookie(t *testing.T) {
	var seen string
	handler := Middleware(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: AnonCookieName, Value: "../../etc/passwd"})
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if seen == "../../etc/passwd" {
		t.Fatal("Malformed cookie value must not be accepted as identity")
	}
	if !isValidAnonID(seen) {
		t.Errorf("Expected freshly minted id, got %q", seen)
	}
}
