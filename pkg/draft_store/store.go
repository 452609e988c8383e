package draft_store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

var ErrNotFound = errors.New("draft value not found")

// Store is a namespaced key-value store for wizard drafts. Every call writes through to the
// backend; there is no transaction spanning several keys.
type Store interface {
	Load(ctx context.Context, namespace, key string) ([]byte, error)
	Save(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
}

// Get reads and decodes the value stored under key. Any failure (missing key, corrupt value,
// unreachable backend) yields def; the caller never sees a read error.
func Get[T any](ctx context.Context, s Store, namespace, key string, def T) T {
	raw, err := s.Load(ctx, namespace, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Tracef("no draft value for %s/%s, using default", namespace, key)
		} else {
			log.Warnf("failed to load draft value %s/%s, using default: %v", namespace, key, err)
		}
		return def
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		log.Warnf("corrupt draft value %s/%s, using default: %v", namespace, key, err)
		return def
	}
	return value
}

// Set encodes value and writes it under key.
func Set[T any](ctx context.Context, s Store, namespace, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode draft value %s: %w", key, err)
	}
	if err := s.Save(ctx, namespace, key, raw); err != nil {
		err := fmt.Errorf("failed to save draft value %s/%s: %w", namespace, key, err)
		log.Error(err)
		return err
	}
	return nil
}
