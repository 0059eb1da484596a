// Package dispatch decides, per request, between the live development server
// and the prebuilt static bundle.
package dispatch

import (
	"context"
	"errors"
	"net/http"

	"intake/internal/infra"
	"intake/internal/static"
	"intake/internal/upstream"
)

type Prober interface {
	Alive(ctx context.Context) bool
}

type Forwarder interface {
	Forward(w http.ResponseWriter, r *http.Request) error
}

type AssetServer interface {
	ServeAsset(w http.ResponseWriter, r *http.Request) bool
}

type Options struct {
	Probe     Prober
	Forwarder Forwarder
	Assets    AssetServer
	APIPrefix string
	Logger    infra.Logger
}

// Gate runs ProbeLive -> ProxyAttempt -> StaticFallback for every non-API
// request. Nothing is remembered between requests.
type Gate struct {
	probe     Prober
	forwarder Forwarder
	assets    AssetServer
	apiPrefix string
	logger    infra.Logger
}

func New(opts Options) *Gate {
	return &Gate{
		probe:     opts.Probe,
		forwarder: opts.Forwarder,
		assets:    opts.Assets,
		apiPrefix: opts.APIPrefix,
		logger:    opts.Logger,
	}
}

// Middleware wraps the router. API paths go straight to next; every other
// request ends up proxied, served from the bundle, or handed to next for the
// catch-all entry document.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if static.IsReserved(r.URL.Path, g.apiPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		if g.proxyEnabled() && g.probe.Alive(r.Context()) {
			g.logger.Debug().Str("path", r.URL.Path).Msg("dispatch: proxying to dev server")
			err := g.forwarder.Forward(w, r)
			if err == nil {
				return
			}
			var fwdErr *upstream.ForwardError
			if errors.As(err, &fwdErr) && fwdErr.Committed {
				g.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("dispatch: proxy stream broke after response was committed")
				panic(http.ErrAbortHandler)
			}
			g.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("dispatch: dev server proxy failed; falling back to static files")
		} else {
			g.logger.Debug().Str("path", r.URL.Path).Msg("dispatch: using static files")
		}

		if g.assets != nil && g.assets.ServeAsset(w, r) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gate) proxyEnabled() bool {
	return g.probe != nil && g.forwarder != nil
}
