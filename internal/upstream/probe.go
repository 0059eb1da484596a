package upstream

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const DefaultProbeTimeout = time.Second

// Probe checks whether the development server answers right now. Results
// are never cached: every call performs a fresh HEAD request.
type Probe struct {
	target string
	client *http.Client
}

// NewProbe builds a probe for target. A nil client gets one with timeout.
func NewProbe(target string, timeout time.Duration, client *http.Client) *Probe {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	if client == nil {
		client = &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return &Probe{
		target: strings.TrimRight(strings.TrimSpace(target), "/"),
		client: client,
	}
}

// Target returns the probed URL.
func (p *Probe) Target() string {
	if p == nil {
		return ""
	}
	return p.target
}

// Alive reports whether the target answered the HEAD request with a 2xx
// status. Any error, including a timeout, counts as not alive.
func (p *Probe) Alive(ctx context.Context) bool {
	if p == nil || p.target == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.target, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
