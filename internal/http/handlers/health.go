package handlers

import (
	"net/http"
	"time"
)

type devServerStatus struct {
	URL   string `json:"url"`
	Alive bool   `json:"alive"`
}

type quotaSummary struct {
	Used          int    `json:"used"`
	Limit         int    `json:"limit"`
	ProviderLimit int    `json:"providerLimit"`
	Remaining     int    `json:"remaining"`
	ResetDate     string `json:"resetDate"`
}

type healthResponse struct {
	Status         string          `json:"status"`
	Timestamp      string          `json:"timestamp"`
	DevServerProxy string          `json:"devServerProxy"`
	StaticFallback string          `json:"staticFallback"`
	DevServer      devServerStatus `json:"devServer"`
	APIQuota       quotaSummary    `json:"apiQuota"`
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	usage := a.quota.Usage()
	resp := healthResponse{
		Status:         "OK",
		Timestamp:      a.now().UTC().Format(time.RFC3339Nano),
		DevServerProxy: "Disabled",
		StaticFallback: "Enabled",
		DevServer:      devServerStatus{URL: a.devServerURL},
		APIQuota: quotaSummary{
			Used:          usage.Used,
			Limit:         usage.Limit,
			ProviderLimit: usage.ProviderLimit,
			Remaining:     usage.Remaining,
			ResetDate:     usage.Date,
		},
	}
	if a.probe != nil {
		resp.DevServerProxy = "Enabled"
		resp.DevServer.Alive = a.probe.Alive(r.Context())
	}
	a.json(w, http.StatusOK, resp)
}

// Quota reports today's usage. limit and remaining are measured against the
// soft limit that actually gates requests.
func (a *App) Quota(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.quota.Usage())
}
