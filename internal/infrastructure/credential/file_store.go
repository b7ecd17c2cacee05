package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/audio-transcribe/client/internal/core/domain"
)

// document is the on-disk layout: origin → key → value, mirroring
// per-origin browser storage.
type document map[string]map[string]string

// FileStore persists the token in a JSON file shared by all origins.
type FileStore struct {
	path   string
	origin string
	sealer *Sealer // nil stores the token in plain text
	log    zerolog.Logger

	mu sync.Mutex
}

// NewFileStore returns a store for origin backed by the file at path.
func NewFileStore(path, origin string, sealer *Sealer, log zerolog.Logger) *FileStore {
	return &FileStore{path: path, origin: origin, sealer: sealer, log: log}
}

func (s *FileStore) Save(ctx context.Context, token string) error {
	if token == "" {
		return s.Clear(ctx)
	}

	value := token
	if s.sealer != nil {
		sealed, err := s.sealer.Seal(token)
		if err != nil {
			return fmt.Errorf("save credential: %w", err)
		}
		value = sealed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	if doc[s.origin] == nil {
		doc[s.origin] = make(map[string]string)
	}
	doc[s.origin][domain.CredentialKey] = value

	if err := s.write(doc); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context) (string, error) {
	s.mu.Lock()
	doc, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("load credential: %w", err)
	}

	value := doc[s.origin][domain.CredentialKey]
	if value == "" || s.sealer == nil {
		return value, nil
	}

	token, err := s.sealer.Open(value)
	if err != nil {
		s.log.Warn().Err(err).Str("origin", s.origin).Msg("stored credential cannot be opened, ignoring it")
		return "", nil
	}
	return token, nil
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	entries, ok := doc[s.origin]
	if !ok {
		return nil
	}
	delete(entries, domain.CredentialKey)
	if len(entries) == 0 {
		delete(doc, s.origin)
	}

	if err := s.write(doc); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// Ping verifies the store directory exists and is usable.
func (s *FileStore) Ping(_ context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("credential dir: %w", err)
	}
	return nil
}

func (s *FileStore) read() (document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(document), nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return make(document), nil
	}

	doc := make(document)
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return doc, nil
}

// write replaces the file atomically so a crash never leaves a torn document.
func (s *FileStore) write(doc document) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}
