package upstream

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"intake/internal/domain"
)

const (
	DefaultForwardTimeout = 10 * time.Second
	defaultBufferSize     = 32 * 1024
)

// Failure stages reported by ForwardError.
const (
	StageRequest = "request"
	StageConnect = "connect"
	StageRead    = "read"
	StageWrite   = "write"
)

// ForwardError describes a failed proxy attempt. Committed is true once the
// status line went out to the client; nothing can be recovered after that.
type ForwardError struct {
	Stage     string
	Committed bool
	Err       error
}

func (e *ForwardError) Error() string {
	return fmt.Sprintf("proxy %s: %v", e.Stage, e.Err)
}

func (e *ForwardError) Unwrap() error {
	return e.Err
}

func (e *ForwardError) Is(target error) bool {
	return target == domain.ErrUpstreamUnavailable
}

// Forwarder relays requests to a single upstream origin. The path and query
// are appended to the origin unchanged.
type Forwarder struct {
	origin     *url.URL
	client     *http.Client
	bufferSize int
}

// NewForwarder validates origin and builds a forwarder. The timeout bounds
// the whole exchange including the body relay.
func NewForwarder(origin string, timeout time.Duration) (*Forwarder, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(origin), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse upstream origin: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream origin %q must be absolute", origin)
	}
	if timeout <= 0 {
		timeout = DefaultForwardTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableCompression = true
	return &Forwarder{
		origin: u,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		bufferSize: defaultBufferSize,
	}, nil
}

// Origin returns the upstream origin URL.
func (f *Forwarder) Origin() string {
	return f.origin.String()
}

// Forward sends r upstream and streams the answer into w. Upstream headers
// are copied first, then the status, then the body chunk by chunk. Each
// chunk is flushed before the next one is read from upstream.
func (f *Forwarder) Forward(w http.ResponseWriter, r *http.Request) error {
	outReq, err := f.newUpstreamRequest(r)
	if err != nil {
		return &ForwardError{Stage: StageRequest, Err: err}
	}

	resp, err := f.client.Do(outReq)
	if err != nil {
		return &ForwardError{Stage: StageConnect, Err: err}
	}
	defer resp.Body.Close()

	dst := w.Header()
	for key, values := range resp.Header {
		dst[key] = append([]string(nil), values...)
	}
	w.WriteHeader(resp.StatusCode)

	if r.Method == http.MethodHead {
		return nil
	}
	return f.relay(w, resp.Body)
}

func (f *Forwarder) newUpstreamRequest(r *http.Request) (*http.Request, error) {
	target := f.origin.String() + r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	var body io.Reader
	if r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0 {
		body = r.Body
	}
	outReq, err := http.NewRequestWithContext(r.Context(), r.Method, target, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		outReq.ContentLength = r.ContentLength
	}
	outReq.Header = r.Header.Clone()
	if outReq.Header == nil {
		outReq.Header = make(http.Header)
	}
	outReq.Host = f.origin.Host
	return outReq, nil
}

func (f *Forwarder) relay(w http.ResponseWriter, src io.Reader) error {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, f.bufferSize)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return &ForwardError{Stage: StageWrite, Committed: true, Err: err}
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return &ForwardError{Stage: StageRead, Committed: true, Err: readErr}
		}
	}
}
