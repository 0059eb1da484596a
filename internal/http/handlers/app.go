package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"intake/internal/analysis"
	"intake/internal/domain"
	"intake/internal/infra"
	"intake/internal/quota"
)

type Analyzer interface {
	AnalyzeImage(ctx context.Context, req analysis.ImageRequest) (domain.ImageResult, error)
	AnalyzeSymptoms(ctx context.Context, req analysis.SymptomsRequest) (domain.SymptomsResult, error)
}

type Prober interface {
	Alive(ctx context.Context) bool
}

type EntryServer interface {
	ServeEntry(w http.ResponseWriter, r *http.Request) error
	EntryPath() string
}

// Options wires an App. Probe is nil when dev-server proxying is disabled.
type Options struct {
	Analyzer     Analyzer
	Quota        *quota.Tracker
	Probe        Prober
	Entry        EntryServer
	DevServerURL string
	BodyLimit    int64
	Logger       infra.Logger
	Now          func() time.Time
}

type App struct {
	analyzer     Analyzer
	quota        *quota.Tracker
	probe        Prober
	entry        EntryServer
	devServerURL string
	bodyLimit    int64
	logger       infra.Logger
	now          func() time.Time
}

func NewApp(opts Options) *App {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &App{
		analyzer:     opts.Analyzer,
		quota:        opts.Quota,
		probe:        opts.Probe,
		entry:        opts.Entry,
		devServerURL: opts.DevServerURL,
		bodyLimit:    opts.BodyLimit,
		logger:       opts.Logger,
		now:          now,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message, details string) {
	body := map[string]string{"error": message}
	if details != "" {
		body["details"] = details
	}
	a.json(w, code, body)
}

// NotFound answers unknown API routes; they never fall through to the
// entry document.
func (a *App) NotFound(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusNotFound, map[string]string{"error": "Not found", "path": r.URL.Path})
}

func (a *App) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed", "path": r.URL.Path})
}
