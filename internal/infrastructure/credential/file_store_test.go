package credential

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/audio-transcribe/client/internal/core/domain"
)

const testOrigin = "http://localhost:8000"

func newTestStore(t *testing.T, sealer *Sealer) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio-transcribe", "credentials.json")
	return NewFileStore(path, testOrigin, sealer, zerolog.Nop()), path
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, nil)

	for _, token := range []string{"abc123", "eyJhbGciOiJIUzI1NiJ9.e30.sig", "  spaced  ", "ünïcode"} {
		if err := store.Save(ctx, token); err != nil {
			t.Fatalf("Save(%q): %v", token, err)
		}
		got, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got != token {
			t.Fatalf("Load = %q, want %q", got, token)
		}
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load after clear: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty token after clear, got %q", got)
	}
}

func TestFileStore_LoadMissingFile(t *testing.T) {
	store, _ := newTestStore(t, nil)

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty token, got %q", got)
	}
	if err := store.Clear(context.Background()); err != nil {
		t.Fatalf("Clear on missing file: %v", err)
	}
}

func TestFileStore_SaveEmptyClears(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, nil)

	if err := store.Save(ctx, "abc123"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, ""); err != nil {
		t.Fatalf("Save empty: %v", err)
	}
	if got, _ := store.Load(ctx); got != "" {
		t.Fatalf("expected empty token, got %q", got)
	}
}

func TestFileStore_PreservesOtherOrigins(t *testing.T) {
	ctx := context.Background()
	store, path := newTestStore(t, nil)
	other := NewFileStore(path, "https://api.example.com", nil, zerolog.Nop())

	if err := other.Save(ctx, "other-token"); err != nil {
		t.Fatalf("Save other: %v", err)
	}
	if err := store.Save(ctx, "abc123"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	got, err := other.Load(ctx)
	if err != nil {
		t.Fatalf("Load other: %v", err)
	}
	if got != "other-token" {
		t.Fatalf("other origin token = %q, want other-token", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var doc map[string]map[string]string
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode file: %v", err)
	}
	if _, ok := doc[testOrigin]; ok {
		t.Fatalf("cleared origin should be removed from the document")
	}
	if doc["https://api.example.com"][domain.CredentialKey] != "other-token" {
		t.Fatalf("unexpected document: %s", data)
	}
}

func TestFileStore_FileMode(t *testing.T) {
	store, path := newTestStore(t, nil)
	if err := store.Save(context.Background(), "abc123"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("file mode = %o, want 600", perm)
	}
}

func TestFileStore_CorruptDocument(t *testing.T) {
	store, path := newTestStore(t, nil)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := store.Load(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestFileStore_Sealed(t *testing.T) {
	ctx := context.Background()
	sealer, err := NewSealer("s3cret", testOrigin)
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	store, path := newTestStore(t, sealer)

	if err := store.Save(ctx, "abc123"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if strings.Contains(string(data), "abc123") {
		t.Fatalf("token stored in plain text: %s", data)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "abc123" {
		t.Fatalf("Load = %q, want abc123", got)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got, _ := store.Load(ctx); got != "" {
		t.Fatalf("expected empty token after clear, got %q", got)
	}
}

// A token sealed under another secret reads as no credential instead of an error.
func TestFileStore_WrongSecretReadsEmpty(t *testing.T) {
	ctx := context.Background()
	first, _ := NewSealer("first", testOrigin)
	second, _ := NewSealer("second", testOrigin)

	store, path := newTestStore(t, first)
	if err := store.Save(ctx, "abc123"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened := NewFileStore(path, testOrigin, second, zerolog.Nop())
	got, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty token, got %q", got)
	}
}

func TestFileStore_Ping(t *testing.T) {
	store, path := newTestStore(t, nil)
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("expected store dir to exist: %v", err)
	}
}
