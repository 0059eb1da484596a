// Package static serves the prebuilt single-page bundle.
package static

import (
	"fmt"
	"net/http"
	"strings"

	"intake/internal/domain"
	"intake/internal/storage"
)

// Server serves files from an AssetStore. The entry document is never served
// implicitly for a directory; it is only served through ServeEntry.
type Server struct {
	store     *storage.AssetStore
	entry     string
	apiPrefix string
}

// NewServer builds a static server for the bundle in store.
func NewServer(store *storage.AssetStore, entry, apiPrefix string) *Server {
	return &Server{
		store:     store,
		entry:     strings.TrimLeft(strings.TrimSpace(entry), "/"),
		apiPrefix: strings.TrimRight(apiPrefix, "/"),
	}
}

// EntryPath returns the filesystem path where the entry document is expected.
func (s *Server) EntryPath() string {
	p, err := s.store.Path(s.entry)
	if err != nil {
		return s.store.BasePath()
	}
	return p
}

// ServeAsset writes the file matching the request path and reports whether
// it did. Only GET and HEAD are served; API paths, directories and missing
// files are left to the caller.
func (s *Server) ServeAsset(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	if IsReserved(r.URL.Path, s.apiPrefix) {
		return false
	}
	f, info, err := s.store.Open(r.URL.Path)
	if err != nil {
		return false
	}
	defer f.Close()
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}

// ServeEntry writes the entry document verbatim, whatever the request path.
// The error wraps domain.ErrAssetUnavailable when the document cannot be read.
func (s *Server) ServeEntry(w http.ResponseWriter, r *http.Request) error {
	f, info, err := s.store.Open(s.entry)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrAssetUnavailable, s.EntryPath(), err)
	}
	defer f.Close()
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return nil
}

// IsReserved reports whether path belongs to the API namespace.
func IsReserved(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
