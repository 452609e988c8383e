package draft_store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Load(ctx context.Context, namespace, key string) ([]byte, error) {
	query := `SELECT value FROM onboarding_draft WHERE namespace = $1 AND key = $2`

	var value []byte
	err := p.db.QueryRow(ctx, query, namespace, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		err := fmt.Errorf("could not query draft value: %w", err)
		log.Error(err)
		return nil, err
	}
	return value, nil
}

func (p *PostgresStore) Save(ctx context.Context, namespace, key string, value []byte) error {
	query := `INSERT INTO onboarding_draft (namespace, key, value, updated_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (namespace, key) DO UPDATE SET
					value = EXCLUDED.value,
					updated_at = EXCLUDED.updated_at`

	_, err := p.db.Exec(ctx, query, namespace, key, value)
	if err != nil {
		return fmt.Errorf("could not execute query: %w", err)
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, namespace, key string) error {
	query := `DELETE FROM onboarding_draft WHERE namespace = $1 AND key = $2`
	_, err := p.db.Exec(ctx, query, namespace, key)
	if err != nil {
		return fmt.Errorf("could not execute query: %w", err)
	}
	return nil
}
