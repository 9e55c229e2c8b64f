package pg

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/aac/internal/domain/repository"
)

type providerRepo struct {
	pool *pgxpool.Pool
}

func (r *providerRepo) Get(ctx context.Context, providerID string) (*repository.ProviderConfig, error) {
	const query = `
		SELECT provider_id, authority_id, realm, name, config
		FROM provider_config WHERE provider_id = $1
	`
	var cfg repository.ProviderConfig
	var raw []byte
	err := r.pool.QueryRow(ctx, query, providerID).Scan(
		&cfg.ProviderID, &cfg.AuthorityID, &cfg.Realm, &cfg.Name, &raw,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &cfg.Config); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *providerRepo) ListByRealm(ctx context.Context, realm string) ([]repository.ProviderConfig, error) {
	const query = `
		SELECT provider_id, authority_id, realm, name, config
		FROM provider_config WHERE realm = $1 ORDER BY provider_id
	`
	rows, err := r.pool.Query(ctx, query, realm)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.ProviderConfig
	for rows.Next() {
		var cfg repository.ProviderConfig
		var raw []byte
		if err := rows.Scan(&cfg.ProviderID, &cfg.AuthorityID, &cfg.Realm, &cfg.Name, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &cfg.Config); err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

func (r *providerRepo) Save(ctx context.Context, cfg *repository.ProviderConfig) error {
	if cfg == nil || cfg.ProviderID == "" {
		return repository.ErrInvalidInput
	}
	raw, err := json.Marshal(cfg.Config)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO provider_config (provider_id, authority_id, realm, name, config)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider_id) DO UPDATE
		SET authority_id = EXCLUDED.authority_id, realm = EXCLUDED.realm,
		    name = EXCLUDED.name, config = EXCLUDED.config
	`
	_, err = r.pool.Exec(ctx, query, cfg.ProviderID, cfg.AuthorityID, cfg.Realm, cfg.Name, raw)
	return err
}

func (r *providerRepo) Delete(ctx context.Context, providerID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM provider_config WHERE provider_id = $1`, providerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
