// Package codec maps backend storage keys to opaque public tokens and back.
//
// Tokens are produced with a deterministic synthetic-IV construction: the
// XChaCha20-Poly1305 nonce is a keyed BLAKE3 hash of the storage key, so the
// same key always yields the same token under the same secret, while the
// token reveals neither the key nor which backend holds the object.
package codec

import (
	"crypto/cipher"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the size in bytes of both derived subkeys.
const KeySize = 32

// TokenVersion is the first byte of every decoded token. It is also bound
// as additional authenticated data, so altering it fails authentication.
const TokenVersion byte = 0x01

// minTokenBytes is version + nonce + tag + at least one plaintext byte.
const minTokenBytes = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead + 1

// HKDF info strings. Changing either invalidates every token ever issued.
var (
	hkdfInfoEncryption = []byte("streamgate.token.enc.v1")
	hkdfInfoNonce      = []byte("streamgate.token.siv.v1")
)

var encoding = base64.RawURLEncoding

// ErrEmptySecret is returned by New when no secret is configured.
var ErrEmptySecret = errors.New("codec secret must not be empty")

// Codec encodes and decodes tokens. It is immutable and safe for concurrent use.
type Codec struct {
	aead   cipher.AEAD
	sivKey []byte
}

// New derives the token keys from secret.
func New(secret string) (*Codec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	encKey, err := deriveKey([]byte(secret), hkdfInfoEncryption)
	if err != nil {
		return nil, err
	}
	sivKey, err := deriveKey([]byte(secret), hkdfInfoNonce)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(encKey)
	if err != nil {
		return nil, fmt.Errorf("create token cipher: %w", err)
	}

	return &Codec{aead: aead, sivKey: sivKey}, nil
}

func deriveKey(secret, info []byte) ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, info), key); err != nil {
		return nil, fmt.Errorf("derive token key: %w", err)
	}
	return key, nil
}

// Encode returns the public token for storageKey. An empty key encodes to "".
func (c *Codec) Encode(storageKey string) string {
	if storageKey == "" {
		return ""
	}

	plaintext := []byte(storageKey)
	nonce := c.syntheticNonce(plaintext)

	out := make([]byte, 0, 1+len(nonce)+len(plaintext)+c.aead.Overhead())
	out = append(out, TokenVersion)
	out = append(out, nonce...)
	out = c.aead.Seal(out, nonce, plaintext, []byte{TokenVersion})

	return encoding.EncodeToString(out)
}

// Open recovers the storage key from a token produced by Encode.
// ok is false for anything that is not an authentic token under this secret.
func (c *Codec) Open(token string) (storageKey string, ok bool) {
	raw, err := encoding.DecodeString(token)
	if err != nil || len(raw) < minTokenBytes || raw[0] != TokenVersion {
		return "", false
	}

	nonce := raw[1 : 1+chacha20poly1305.NonceSizeX]
	plaintext, err := c.aead.Open(nil, nonce, raw[1+chacha20poly1305.NonceSizeX:], []byte{TokenVersion})
	if err != nil {
		return "", false
	}

	if subtle.ConstantTimeCompare(nonce, c.syntheticNonce(plaintext)) != 1 {
		return "", false
	}

	return string(plaintext), true
}

// Decode is the lenient form of Open: input that is not an authentic token
// is returned unchanged, so callers can look it up and fail with not found.
func (c *Codec) Decode(token string) string {
	if key, ok := c.Open(token); ok {
		return key
	}
	return token
}

func (c *Codec) syntheticNonce(plaintext []byte) []byte {
	h, err := blake3.NewKeyed(c.sivKey)
	if err != nil {
		// sivKey is always KeySize bytes.
		panic(fmt.Sprintf("codec: keyed blake3: %v", err))
	}
	_, _ = h.Write([]byte{TokenVersion})
	_, _ = h.Write(plaintext)
	return h.Sum(nil)[:chacha20poly1305.NonceSizeX]
}
