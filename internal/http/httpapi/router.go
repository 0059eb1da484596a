package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"intake/internal/http/handlers"
	"intake/internal/infra"
	"intake/internal/middleware"
)

// APIPrefix is the reserved namespace the dispatch gate never proxies.
const APIPrefix = "/api"

type Options struct {
	Logger          infra.Logger
	Dispatch        func(http.Handler) http.Handler
	CORSOrigins     []string
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
	)
	if opts.Dispatch != nil {
		r.Use(opts.Dispatch)
	}

	r.Route(APIPrefix, func(r chi.Router) {
		r.Use(middleware.CORS(opts.CORSOrigins))

		r.Get("/health", app.Health)
		r.Get("/quota", app.Quota)
		r.Get("/openapi.json", app.OpenAPIJSON)
		r.Get("/docs", app.OpenAPIDocs)

		r.Group(func(r chi.Router) {
			if opts.RateLimitPerMin > 0 {
				r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
			}
			r.Post("/analyze-image", app.AnalyzeImage)
			r.Post("/analyze-symptoms", app.AnalyzeSymptoms)
		})

		r.NotFound(app.NotFound)
		r.MethodNotAllowed(app.MethodNotAllowed)
	})

	// SPA catch-all; the dispatch middleware has already tried the dev
	// server and the asset tree.
	r.Get("/*", app.EntryDocument)
	r.Head("/*", app.EntryDocument)
	r.MethodNotAllowed(app.MethodNotAllowed)

	return r
}
