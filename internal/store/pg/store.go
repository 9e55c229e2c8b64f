// Package pg implementa los repositorios de dominio sobre PostgreSQL.
// Usa pgxpool directamente; el esquema vive en migrations/postgres.
package pg

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/aac/internal/domain/repository"
	migrations "github.com/dropDatabas3/aac/migrations/postgres"
)

// Store agrupa los repositorios PostgreSQL sobre un pool compartido.
type Store struct {
	pool *pgxpool.Pool
}

// New conecta al DSN dado y verifica la conexión.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close cierra el pool.
func (s *Store) Close() { s.pool.Close() }

// Providers retorna el repositorio de provider configs.
func (s *Store) Providers() repository.ProviderConfigRepository { return &providerRepo{s.pool} }

// Accounts retorna el repositorio de cuentas.
func (s *Store) Accounts() repository.AccountRepository { return &accountRepo{s.pool} }

// Passwords retorna el repositorio de credenciales de password.
func (s *Store) Passwords() repository.PasswordRepository { return &passwordRepo{s.pool} }

// Credentials retorna el repositorio de credenciales WebAuthn.
func (s *Store) Credentials() repository.WebAuthnCredentialRepository {
	return &credentialRepo{s.pool}
}

// Migrate aplica los archivos SQL embebidos, en orden lexicográfico.
// Los archivos son idempotentes (CREATE TABLE IF NOT EXISTS).
func (s *Store) Migrate(ctx context.Context) error {
	return applyMigrations(ctx, s.pool, migrations.FS, migrations.Dir)
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool, fsys embed.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		sql, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
