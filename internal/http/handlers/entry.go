package handlers

import (
	"fmt"
	"net/http"
)

type frontendUnavailableResponse struct {
	Error       string `json:"error"`
	Message     string `json:"message"`
	Details     string `json:"details"`
	DevServer   string `json:"devServer"`
	StaticFiles string `json:"staticFiles"`
}

// EntryDocument is the catch-all for non-API paths nothing else served. The
// dev server is probed again only for the log line.
func (a *App) EntryDocument(w http.ResponseWriter, r *http.Request) {
	if a.probe != nil && a.probe.Alive(r.Context()) {
		a.logger.Info().Str("path", r.URL.Path).Msg("dispatch: dev server is up but proxy did not serve; using entry document")
	}

	err := a.entry.ServeEntry(w, r)
	if err == nil {
		return
	}
	a.logger.Error().Err(err).Str("path", r.URL.Path).Msg("dispatch: entry document unavailable")

	devServer := "disabled"
	if a.devServerURL != "" {
		devServer = fmt.Sprintf("Expected at %s", a.devServerURL)
	}
	a.json(w, http.StatusInternalServerError, frontendUnavailableResponse{
		Error:       "Frontend not available",
		Message:     "Neither the dev server nor the built frontend is available",
		Details:     "Build the frontend bundle into the static directory or start the dev server",
		DevServer:   devServer,
		StaticFiles: fmt.Sprintf("Expected at %s", a.entry.EntryPath()),
	})
}
