package pg

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/aac/internal/domain/repository"
)

type credentialRepo struct {
	pool *pgxpool.Pool
}

const credentialColumns = `id, repository_id, user_handle, credential_id, public_key,
	sign_count, transports, status, created_at, last_used_at`

func scanCredential(row pgx.Row) (*repository.WebAuthnCredential, error) {
	var c repository.WebAuthnCredential
	var signCount int64
	err := row.Scan(
		&c.ID, &c.RepositoryID, &c.UserHandle, &c.CredentialID, &c.PublicKey,
		&signCount, &c.Transports, &c.Status, &c.CreatedAt, &c.LastUsedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.SignCount = uint32(signCount)
	return &c, nil
}

func (r *credentialRepo) GetByCredentialID(ctx context.Context, repositoryID, userHandle string, credentialID []byte) (*repository.WebAuthnCredential, error) {
	query := `SELECT ` + credentialColumns + `
		FROM webauthn_credential
		WHERE repository_id = $1 AND user_handle = $2 AND credential_id = $3 AND status = 'active'`
	return scanCredential(r.pool.QueryRow(ctx, query, repositoryID, userHandle, credentialID))
}

func (r *credentialRepo) ListByUserHandle(ctx context.Context, repositoryID, userHandle string) ([]repository.WebAuthnCredential, error) {
	query := `SELECT ` + credentialColumns + `
		FROM webauthn_credential
		WHERE repository_id = $1 AND user_handle = $2 AND status = 'active'
		ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, repositoryID, userHandle)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.WebAuthnCredential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *credentialRepo) Create(ctx context.Context, cred *repository.WebAuthnCredential) error {
	const query = `
		INSERT INTO webauthn_credential (id, repository_id, user_handle, credential_id,
			public_key, sign_count, transports, status, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		cred.ID, cred.RepositoryID, cred.UserHandle, cred.CredentialID,
		cred.PublicKey, int64(cred.SignCount), cred.Transports, cred.Status,
		cred.CreatedAt, cred.LastUsedAt,
	)
	if err != nil && strings.Contains(err.Error(), "duplicate key") {
		return repository.ErrConflict
	}
	return err
}

func (r *credentialRepo) UpdateSignCount(ctx context.Context, repositoryID, id string, observed uint32) error {
	// CAS por row: el WHERE exige avance del contador (o ambos cero, para
	// authenticators sin contador). Dos assertions concurrentes no pueden
	// pasar las dos una comparación vieja.
	const query = `
		UPDATE webauthn_credential
		SET sign_count = $3, last_used_at = NOW()
		WHERE repository_id = $1 AND id = $2
			AND (sign_count < $3 OR (sign_count = 0 AND $3 = 0))
	`
	tag, err := r.pool.Exec(ctx, query, repositoryID, id, int64(observed))
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM webauthn_credential WHERE repository_id = $1 AND id = $2)`,
		repositoryID, id,
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrStaleCounter
}

func (r *credentialRepo) Revoke(ctx context.Context, repositoryID, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE webauthn_credential SET status = 'revoked' WHERE repository_id = $1 AND id = $2`,
		repositoryID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *credentialRepo) DeleteByUserHandle(ctx context.Context, repositoryID, userHandle string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM webauthn_credential WHERE repository_id = $1 AND user_handle = $2`,
		repositoryID, userHandle)
	return err
}
