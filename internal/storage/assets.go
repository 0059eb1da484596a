package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidKey = errors.New("storage: invalid key")
	ErrNotFile    = errors.New("storage: not a regular file")
)

// AssetStore reads a prebuilt asset tree from the local filesystem. The root
// does not need to exist when the store is created; the bundle may be built
// after the gateway starts.
type AssetStore struct {
	basePath string
}

// NewAssetStore initializes an AssetStore rooted at basePath.
func NewAssetStore(basePath string) (*AssetStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	return &AssetStore{basePath: abs}, nil
}

// BasePath returns the configured root directory.
func (s *AssetStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Path returns the filesystem path for key without checking that it exists.
func (s *AssetStore) Path(key string) (string, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(cleanKey)), nil
}

// Open returns the regular file stored under key. Directories are reported
// as ErrNotFile so callers never fall into directory listings or implicit
// index documents.
func (s *AssetStore) Open(key string) (*os.File, fs.FileInfo, error) {
	if s == nil {
		return nil, nil, errors.New("storage: no store configured")
	}
	fullPath, err := s.Path(key)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, nil, ErrNotFile
	}
	return f, info, nil
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrInvalidKey
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
