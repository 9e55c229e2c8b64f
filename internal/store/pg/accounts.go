package pg

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/aac/internal/domain/repository"
)

type accountRepo struct {
	pool *pgxpool.Pool
}

const accountColumns = `id, repository_id, subject, realm, username, email, status,
	confirmed, confirmation_key, confirmation_deadline, created_at`

func scanAccount(row pgx.Row) (*repository.Account, error) {
	var a repository.Account
	err := row.Scan(
		&a.ID, &a.RepositoryID, &a.Subject, &a.Realm, &a.Username, &a.Email, &a.Status,
		&a.Confirmed, &a.ConfirmationKey, &a.ConfirmationDeadline, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *accountRepo) GetByUsername(ctx context.Context, repositoryID, username string) (*repository.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM account WHERE repository_id = $1 AND username = $2`
	return scanAccount(r.pool.QueryRow(ctx, query, repositoryID, username))
}

func (r *accountRepo) GetBySubject(ctx context.Context, repositoryID, subject string) (*repository.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM account WHERE repository_id = $1 AND subject = $2`
	return scanAccount(r.pool.QueryRow(ctx, query, repositoryID, subject))
}

func (r *accountRepo) GetByConfirmationKey(ctx context.Context, repositoryID, key string) (*repository.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM account WHERE repository_id = $1 AND confirmation_key = $2`
	return scanAccount(r.pool.QueryRow(ctx, query, repositoryID, key))
}

func (r *accountRepo) Create(ctx context.Context, a *repository.Account) error {
	const query = `
		INSERT INTO account (id, repository_id, subject, realm, username, email, status,
			confirmed, confirmation_key, confirmation_deadline, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		a.ID, a.RepositoryID, a.Subject, a.Realm, a.Username, a.Email, a.Status,
		a.Confirmed, a.ConfirmationKey, a.ConfirmationDeadline, a.CreatedAt,
	)
	if err != nil && strings.Contains(err.Error(), "duplicate key") {
		return repository.ErrConflict
	}
	return err
}

func (r *accountRepo) Update(ctx context.Context, a *repository.Account) error {
	const query = `
		UPDATE account SET email = $3, status = $4, confirmed = $5,
			confirmation_key = $6, confirmation_deadline = $7
		WHERE id = $1 AND repository_id = $2
	`
	tag, err := r.pool.Exec(ctx, query,
		a.ID, a.RepositoryID, a.Email, a.Status, a.Confirmed,
		a.ConfirmationKey, a.ConfirmationDeadline,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *accountRepo) ConsumeConfirmationKey(ctx context.Context, repositoryID, key string) (*repository.Account, error) {
	// Check-and-clear en un solo UPDATE: dos llamadas concurrentes con la
	// misma key no pueden ganar las dos.
	query := `
		UPDATE account
		SET confirmation_key = NULL, confirmation_deadline = NULL, confirmed = TRUE
		WHERE repository_id = $1 AND confirmation_key = $2 AND confirmation_deadline > NOW()
		RETURNING ` + accountColumns
	return scanAccount(r.pool.QueryRow(ctx, query, repositoryID, key))
}

func (r *accountRepo) Delete(ctx context.Context, repositoryID, id string) error {
	// Cascada explícita dentro de una transacción.
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var username, subject string
	err = tx.QueryRow(ctx,
		`SELECT username, subject FROM account WHERE id = $1 AND repository_id = $2`,
		id, repositoryID,
	).Scan(&username, &subject)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM password_credential WHERE repository_id = $1 AND username = $2`,
		repositoryID, username); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM webauthn_credential WHERE repository_id = $1 AND user_handle = $2`,
		repositoryID, subject); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM account WHERE id = $1 AND repository_id = $2`,
		id, repositoryID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
