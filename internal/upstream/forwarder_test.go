package upstream

import (
	"bufio"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"intake/internal/domain"
)

func TestForwardCopiesRequestAndResponse(t *testing.T) {
	var gotPath, gotQuery, gotHost, gotHeader, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotHost = r.Host
		gotHeader = r.Header.Get("X-Custom")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("X-Upstream", "vite")
		w.Header().Set("Content-Type", "text/javascript")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("export default 1"))
	}))
	defer srv.Close()

	f, err := NewForwarder(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewForwarder returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "http://gateway.local/src/main.ts?t=123&x=y", strings.NewReader("payload"))
	req.Header.Set("X-Custom", "kept")
	rec := httptest.NewRecorder()
	if err := f.Forward(rec, req); err != nil {
		t.Fatalf("Forward returned error: %v", err)
	}

	if gotPath != "/src/main.ts" || gotQuery != "t=123&x=y" {
		t.Fatalf("upstream saw %q?%q", gotPath, gotQuery)
	}
	if gotHost != strings.TrimPrefix(srv.URL, "http://") {
		t.Fatalf("Host = %q, want upstream authority", gotHost)
	}
	if gotHeader != "kept" || gotBody != "payload" {
		t.Fatalf("header = %q body = %q", gotHeader, gotBody)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if rec.Header().Get("X-Upstream") != "vite" {
		t.Fatalf("upstream header not copied: %v", rec.Header())
	}
	if rec.Body.String() != "export default 1" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestForwardRelaysRedirectVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	}))
	defer srv.Close()

	f, _ := NewForwarder(srv.URL, time.Second)
	rec := httptest.NewRecorder()
	if err := f.Forward(rec, httptest.NewRequest(http.MethodGet, "/", nil)); err != nil {
		t.Fatalf("Forward returned error: %v", err)
	}
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("status = %d location = %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestForwardStreamsChunks(t *testing.T) {
	next := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		_, _ = w.Write([]byte("first\n"))
		flusher.Flush()
		<-next
		_, _ = w.Write([]byte("second\n"))
	}))
	defer srv.Close()

	f, _ := NewForwarder(srv.URL, 5*time.Second)
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = f.Forward(w, r)
	}))
	defer gateway.Close()

	resp, err := http.Get(gateway.URL + "/events")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil || line != "first\n" {
		t.Fatalf("first chunk = %q, %v", line, err)
	}
	close(next)
	line, err = reader.ReadString('\n')
	if err != nil || line != "second\n" {
		t.Fatalf("second chunk = %q, %v", line, err)
	}
}

func TestForwardConnectFailureIsNotCommitted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close()

	f, _ := NewForwarder(target, time.Second)
	rec := httptest.NewRecorder()
	err := f.Forward(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var fwdErr *ForwardError
	if !errors.As(err, &fwdErr) {
		t.Fatalf("err = %v, want ForwardError", err)
	}
	if fwdErr.Committed || fwdErr.Stage != StageConnect {
		t.Fatalf("ForwardError = %+v, want uncommitted connect failure", fwdErr)
	}
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("error should match ErrUpstreamUnavailable")
	}
	if rec.Body.Len() != 0 || len(rec.Header()) != 0 {
		t.Fatalf("nothing should be written on connect failure")
	}
}

func TestNewForwarderRejectsRelativeOrigin(t *testing.T) {
	if _, err := NewForwarder("localhost:3001", time.Second); err == nil {
		t.Fatalf("expected error for origin without scheme")
	}
}
