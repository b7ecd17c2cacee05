package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	sealedPrefix = "sealed:v1:"
	nonceSize    = 24
	keySize      = 32
)

var ErrUnsealable = errors.New("credential: sealed value cannot be opened")

// Sealer encrypts tokens at rest with NaCl secretbox. The key is derived
// from a user secret with HKDF-SHA256, bound to the API origin.
type Sealer struct {
	key [keySize]byte
}

// NewSealer derives the sealing key for origin from secret.
func NewSealer(secret, origin string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("credential: empty sealing secret")
	}

	var s Sealer
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("audio-transcribe token "+origin))
	if _, err := io.ReadFull(r, s.key[:]); err != nil {
		return nil, fmt.Errorf("derive sealing key: %w", err)
	}
	return &s, nil
}

// Seal encrypts plain and returns a printable envelope.
func (s *Sealer) Seal(plain string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plain), &nonce, &s.key)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(box), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	encoded, ok := strings.CutPrefix(sealed, sealedPrefix)
	if !ok {
		return "", ErrUnsealable
	}
	box, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil || len(box) < nonceSize+secretbox.Overhead {
		return "", ErrUnsealable
	}

	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrUnsealable
	}
	return string(plain), nil
}
