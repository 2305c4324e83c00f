package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTimeoutMiddlewareRespondsJSON(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	handler := TimeoutMiddleware(20 * time.Millisecond)(slow)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/symptoms", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("got status %d, want 503", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body["detail"] != "request timeout" {
		t.Errorf("unexpected body %q (%v)", rr.Body.String(), err)
	}
}

func TestTimeoutMiddlewareKeepsHandlerContentType(t *testing.T) {
	plain := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.Write([]byte("up 1\n"))
	})
	rr := httptest.NewRecorder()
	TimeoutMiddleware(time.Second)(plain).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if ct := rr.Header().Get("Content-Type"); ct != "text/plain; version=0.0.4" {
		t.Errorf("content type = %q", ct)
	}
}
