package pg

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/aac/internal/domain/repository"
)

type passwordRepo struct {
	pool *pgxpool.Pool
}

const passwordColumns = `id, repository_id, username, hash, status, reset_key,
	reset_deadline, change_on_first_access, created_at`

func scanPassword(row pgx.Row) (*repository.PasswordRecord, error) {
	var rec repository.PasswordRecord
	err := row.Scan(
		&rec.ID, &rec.RepositoryID, &rec.Username, &rec.Hash, &rec.Status,
		&rec.ResetKey, &rec.ResetDeadline, &rec.ChangeOnFirstAccess, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *passwordRepo) GetActiveByUsername(ctx context.Context, repositoryID, username string) (*repository.PasswordRecord, error) {
	query := `SELECT ` + passwordColumns + `
		FROM password_credential
		WHERE repository_id = $1 AND username = $2 AND status = 'active'`
	return scanPassword(r.pool.QueryRow(ctx, query, repositoryID, username))
}

func (r *passwordRepo) GetByResetKey(ctx context.Context, repositoryID, key string) (*repository.PasswordRecord, error) {
	query := `SELECT ` + passwordColumns + `
		FROM password_credential
		WHERE repository_id = $1 AND reset_key = $2 AND status = 'active'`
	return scanPassword(r.pool.QueryRow(ctx, query, repositoryID, key))
}

func (r *passwordRepo) Create(ctx context.Context, rec *repository.PasswordRecord) error {
	const query = `
		INSERT INTO password_credential (id, repository_id, username, hash, status,
			reset_key, reset_deadline, change_on_first_access, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.RepositoryID, rec.Username, rec.Hash, rec.Status,
		rec.ResetKey, rec.ResetDeadline, rec.ChangeOnFirstAccess, rec.CreatedAt,
	)
	if err != nil && strings.Contains(err.Error(), "duplicate key") {
		return repository.ErrConflict
	}
	return err
}

func (r *passwordRepo) Update(ctx context.Context, rec *repository.PasswordRecord) error {
	const query = `
		UPDATE password_credential
		SET hash = $2, status = $3, reset_key = $4, reset_deadline = $5,
			change_on_first_access = $6
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		rec.ID, rec.Hash, rec.Status, rec.ResetKey, rec.ResetDeadline, rec.ChangeOnFirstAccess,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *passwordRepo) ConsumeResetKey(ctx context.Context, repositoryID, key string) (*repository.PasswordRecord, error) {
	// Key y deadline se limpian juntos en el mismo UPDATE; sólo una llamada
	// concurrente observa la key vigente.
	query := `
		UPDATE password_credential
		SET reset_key = NULL, reset_deadline = NULL
		WHERE repository_id = $1 AND reset_key = $2 AND status = 'active'
			AND reset_deadline > NOW()
		RETURNING ` + passwordColumns
	return scanPassword(r.pool.QueryRow(ctx, query, repositoryID, key))
}

func (r *passwordRepo) RevokeActive(ctx context.Context, repositoryID, username string) error {
	const query = `
		UPDATE password_credential
		SET status = 'revoked', reset_key = NULL, reset_deadline = NULL
		WHERE repository_id = $1 AND username = $2 AND status = 'active'
	`
	tag, err := r.pool.Exec(ctx, query, repositoryID, username)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *passwordRepo) DeleteByUsername(ctx context.Context, repositoryID, username string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM password_credential WHERE repository_id = $1 AND username = $2`,
		repositoryID, username)
	return err
}
