package draft_store

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const sealedFormatVersion = 1

var (
	ErrEmptySecret = errors.New("draft secret must not be empty")
	// Returned when a value was sealed with another secret, moved to another key or modified.
	ErrUnsealFailed = errors.New("draft value cannot be unsealed")
)

// sealedBlob is the JSON envelope written to the wrapped store.
type sealedBlob struct {
	V      int    `json:"v"`
	Nonce  []byte `json:"nonce"`
	Cipher []byte `json:"cipher"`
}

// SealedStore encrypts every value before handing it to the wrapped store, so account and card
// numbers never sit in plaintext in the draft backend.
type SealedStore struct {
	inner Store
	aead  cipher.AEAD
}

func NewSealedStore(inner Store, secret string) (*SealedStore, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("fintrack/onboarding-draft/v1"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive draft key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &SealedStore{inner: inner, aead: aead}, nil
}

// additionalData binds a sealed value to its location.
func additionalData(namespace, key string) []byte {
	return []byte(namespace + "\x00" + key)
}

func (s *SealedStore) Load(ctx context.Context, namespace, key string) ([]byte, error) {
	raw, err := s.inner.Load(ctx, namespace, key)
	if err != nil {
		return nil, err
	}
	var blob sealedBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsealFailed, err)
	}
	if blob.V != sealedFormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrUnsealFailed, blob.V)
	}
	if len(blob.Nonce) != s.aead.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce size", ErrUnsealFailed)
	}
	plain, err := s.aead.Open(nil, blob.Nonce, blob.Cipher, additionalData(namespace, key))
	if err != nil {
		return nil, ErrUnsealFailed
	}
	return plain, nil
}

func (s *SealedStore) Save(ctx context.Context, namespace, key string, value []byte) error {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return err
	}
	sealed, err := json.Marshal(sealedBlob{
		V:      sealedFormatVersion,
		Nonce:  nonce,
		Cipher: s.aead.Seal(nil, nonce, value, additionalData(namespace, key)),
	})
	if err != nil {
		return err
	}
	return s.inner.Save(ctx, namespace, key, sealed)
}

func (s *SealedStore) Delete(ctx context.Context, namespace, key string) error {
	return s.inner.Delete(ctx, namespace, key)
}
