package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/fintrack/fintrack/internal/config"
	"github.com/fintrack/fintrack/internal/database"
	"github.com/fintrack/fintrack/pkg/draft_store"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

var ErrUnknownBackend = errors.New("unknown draft backend")

// OpenDraftStore connects the configured draft backend and seals it when a secret is set. The
// returned func releases the backend connection.
func OpenDraftStore(ctx context.Context, cfg config.Application) (draft_store.Store, func(), error) {
	var store draft_store.Store
	closeFn := func() {}

	switch cfg.Draft.Backend {
	case "postgres":
		pool, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if _, err := database.Migrate(cfg.Database); err != nil {
			pool.Close()
			return nil, nil, err
		}
		store = draft_store.NewPostgresStore(pool)
		closeFn = pool.Close
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Draft.Redis.Addr,
			Password: cfg.Draft.Redis.Password,
			DB:       cfg.Draft.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Draft.Redis.Addr, err)
		}
		store = draft_store.NewRedisStore(client, cfg.Draft.Redis.TTL)
		closeFn = func() {
			if err := client.Close(); err != nil {
				log.Warnf("failed to close redis client: %v", err)
			}
		}
	case "memory":
		log.Warn("Drafts are kept in memory and will be lost on restart")
		store = draft_store.NewMemoryStore()
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Draft.Backend)
	}
	log.Infof("Draft backend: %s", cfg.Draft.Backend)

	if cfg.Draft.Secret == "" {
		log.Warn("FINTRACK_DRAFT_SECRET is not set, drafts are stored unencrypted")
		return store, closeFn, nil
	}
	sealed, err := draft_store.NewSealedStore(store, cfg.Draft.Secret)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return sealed, closeFn, nil
}
