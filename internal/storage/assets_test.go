package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "/assets/app.js", want: "assets/app.js"},
		{key: "./index.html", want: "index.html"},
		{key: "assets\\logo.svg", want: "assets/logo.svg"},
		{key: "/a/../b.css", want: "b.css"},
		{key: "/", wantErr: true},
		{key: "", wantErr: true},
		{key: "../secret", wantErr: true},
		{key: "/a/../../secret", wantErr: true},
	}
	for _, tc := range tests {
		got, err := sanitizeKey(tc.key)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidKey) {
				t.Fatalf("sanitizeKey(%q) err = %v, want ErrInvalidKey", tc.key, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("sanitizeKey(%q) = %q, %v; want %q", tc.key, got, err, tc.want)
		}
	}
}

func TestAssetStoreOpen(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "assets"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "assets", "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store, err := NewAssetStore(root)
	if err != nil {
		t.Fatalf("NewAssetStore: %v", err)
	}

	f, info, err := store.Open("/assets/app.js")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(f)
	_ = f.Close()
	if string(data) != "console.log(1)" || info.Name() != "app.js" {
		t.Fatalf("read %q (%s)", data, info.Name())
	}

	if _, _, err := store.Open("/assets"); !errors.Is(err, ErrNotFile) {
		t.Fatalf("directory open err = %v, want ErrNotFile", err)
	}
	if _, _, err := store.Open("/missing.js"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing open err = %v, want not exist", err)
	}
}

func TestNewAssetStoreRequiresPath(t *testing.T) {
	if _, err := NewAssetStore("  "); err == nil {
		t.Fatalf("expected error for empty base path")
	}
}
