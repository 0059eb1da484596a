package handlers

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"html/template"
	"net/http"
	"time"
)

//go:embed openapi.json
var openAPISpec []byte

var (
	openAPIETag     = specETag(openAPISpec)
	openAPIModTime  = time.Now()
	redocPage       = template.Must(template.New("redoc").Parse(redocHTML))
	openAPISpecPath = "/api/openapi.json"
)

const redocHTML = `<!DOCTYPE html>
<html lang="ja">
  <head>
    <meta charset="utf-8" />
    <title>{{.Title}}</title>
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <style>
      body {
        margin: 0;
        padding: 0;
      }
      redoc {
        display: block;
        height: 100vh;
      }
    </style>
  </head>
  <body>
    <redoc spec-url="{{.SpecURL}}"></redoc>
    <script src="https://cdn.jsdelivr.net/npm/redoc@2.2.0/bundles/redoc.standalone.js"></script>
  </body>
</html>`

// OpenAPIJSON serves the embedded API description with an ETag so browsers
// revalidate instead of refetching.
func (a *App) OpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("ETag", openAPIETag)
	http.ServeContent(w, r, "openapi.json", openAPIModTime, bytes.NewReader(openAPISpec))
}

func (a *App) OpenAPIDocs(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	data := struct{ Title, SpecURL string }{Title: "Intake Gateway API", SpecURL: openAPISpecPath}
	if err := redocPage.Execute(&buf, data); err != nil {
		a.error(w, http.StatusInternalServerError, "Failed to render API docs", err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func specETag(spec []byte) string {
	sum := sha256.Sum256(spec)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}
