package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

const sealedTokenVersion = "v1."

var errSealedToken = errors.New("malformed sealed token")

// tokenSealer encrypts provider refresh tokens at rest with AES-GCM. The
// identity subject is authenticated as additional data, so a sealed value
// only opens for the identity it was written for.
type tokenSealer struct {
	aead cipher.AEAD
}

// newTokenSealer accepts a raw 16, 24 or 32 byte key, or the standard
// base64 encoding of one.
func newTokenSealer(key string) (*tokenSealer, error) {
	raw := []byte(key)
	if !validKeyLen(len(raw)) {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(key))
		if err != nil || !validKeyLen(len(decoded)) {
			return nil, errors.New("token encryption key must be 16, 24, or 32 bytes")
		}
		raw = decoded
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &tokenSealer{aead: aead}, nil
}

func validKeyLen(n int) bool {
	return n == 16 || n == 24 || n == 32
}

func (s *tokenSealer) seal(plaintext, subject string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), []byte(subject))
	return sealedTokenVersion + base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (s *tokenSealer) open(encoded, subject string) (string, error) {
	if encoded == "" {
		return "", nil
	}
	body, ok := strings.CutPrefix(encoded, sealedTokenVersion)
	if !ok {
		return "", errSealedToken
	}
	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return "", errSealedToken
	}
	n := s.aead.NonceSize()
	if len(payload) < n {
		return "", errSealedToken
	}
	plaintext, err := s.aead.Open(nil, payload[:n], payload[n:], []byte(subject))
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
