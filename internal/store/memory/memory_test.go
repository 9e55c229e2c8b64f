package memory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dropDatabas3/aac/internal/domain/repository"
	"github.com/dropDatabas3/aac/internal/store/memory"
)

func strPtr(s string) *string        { return &s }
func timePtr(t time.Time) *time.Time { return &t }

func seedAccount(t *testing.T, st *memory.Store, id, username string) *repository.Account {
	t.Helper()
	acc := &repository.Account{
		ID:           id,
		RepositoryID: "acme",
		Subject:      "sub-" + id,
		Realm:        "acme",
		Username:     username,
		Status:       repository.AccountStatusActive,
		CreatedAt:    time.Now(),
	}
	if err := st.Accounts().Create(context.Background(), acc); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return acc
}

func TestAccountUsernameUniquePerRepository(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	seedAccount(t, st, "a1", "ana")

	err := st.Accounts().Create(ctx, &repository.Account{
		ID: "a2", RepositoryID: "acme", Subject: "s2", Username: "ana",
	})
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate username, got %v", err)
	}

	// Same username under another repository is a different identity.
	err = st.Accounts().Create(ctx, &repository.Account{
		ID: "a3", RepositoryID: "globex", Subject: "s3", Username: "ana",
	})
	if err != nil {
		t.Fatalf("create in other repository: %v", err)
	}
}

func TestConsumeConfirmationKey(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	acc := seedAccount(t, st, "a1", "ana")
	acc.ConfirmationKey = strPtr("k1")
	acc.ConfirmationDeadline = timePtr(time.Now().Add(time.Hour))
	if err := st.Accounts().Update(ctx, acc); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := st.Accounts().ConsumeConfirmationKey(ctx, "acme", "k1")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !got.Confirmed || got.ConfirmationKey != nil || got.ConfirmationDeadline != nil {
		t.Fatalf("consume left account inconsistent: %+v", got)
	}
	if _, err := st.Accounts().ConsumeConfirmationKey(ctx, "acme", "k1"); !repository.IsNotFound(err) {
		t.Fatalf("second consume must fail, got %v", err)
	}
}

func TestConsumeConfirmationKeyExpired(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	acc := seedAccount(t, st, "a1", "ana")
	acc.ConfirmationKey = strPtr("k1")
	acc.ConfirmationDeadline = timePtr(time.Now().Add(-time.Minute))
	if err := st.Accounts().Update(ctx, acc); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := st.Accounts().ConsumeConfirmationKey(ctx, "acme", "k1"); !repository.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound for expired key, got %v", err)
	}
}

func TestAccountDeleteCascades(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	acc := seedAccount(t, st, "a1", "ana")

	if err := st.Passwords().Create(ctx, &repository.PasswordRecord{
		ID: "p1", RepositoryID: "acme", Username: "ana", Hash: "x",
		Status: repository.CredentialStatusActive,
	}); err != nil {
		t.Fatalf("create password: %v", err)
	}
	if err := st.Credentials().Create(ctx, &repository.WebAuthnCredential{
		ID: "c1", RepositoryID: "acme", UserHandle: acc.Subject,
		CredentialID: []byte{1, 2, 3}, Status: repository.CredentialStatusActive,
	}); err != nil {
		t.Fatalf("create credential: %v", err)
	}

	if err := st.Accounts().Delete(ctx, "acme", "a1"); err != nil {
		t.Fatalf("delete account: %v", err)
	}
	if _, err := st.Passwords().GetActiveByUsername(ctx, "acme", "ana"); !repository.IsNotFound(err) {
		t.Fatalf("password survived account deletion: %v", err)
	}
	creds, err := st.Credentials().ListByUserHandle(ctx, "acme", acc.Subject)
	if err != nil {
		t.Fatalf("list credentials: %v", err)
	}
	if len(creds) != 0 {
		t.Fatalf("webauthn credentials survived account deletion: %d", len(creds))
	}
}

func TestOnlyOneActivePasswordPerUser(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	seedAccount(t, st, "a1", "ana")

	mk := func(id string) *repository.PasswordRecord {
		return &repository.PasswordRecord{
			ID: id, RepositoryID: "acme", Username: "ana", Hash: "x",
			Status: repository.CredentialStatusActive,
		}
	}
	if err := st.Passwords().Create(ctx, mk("p1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.Passwords().Create(ctx, mk("p2")); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("second active credential must conflict, got %v", err)
	}
	if err := st.Passwords().RevokeActive(ctx, "acme", "ana"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := st.Passwords().Create(ctx, mk("p2")); err != nil {
		t.Fatalf("create after revoke: %v", err)
	}
}

func TestConsumeResetKeyConcurrent(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	seedAccount(t, st, "a1", "ana")
	if err := st.Passwords().Create(ctx, &repository.PasswordRecord{
		ID: "p1", RepositoryID: "acme", Username: "ana", Hash: "x",
		Status:        repository.CredentialStatusActive,
		ResetKey:      strPtr("k1"),
		ResetDeadline: timePtr(time.Now().Add(time.Hour)),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wins atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.Passwords().ConsumeResetKey(ctx, "acme", "k1"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if got := wins.Load(); got != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", got)
	}
}

func TestUpdateSignCount(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	if err := st.Credentials().Create(ctx, &repository.WebAuthnCredential{
		ID: "c1", RepositoryID: "acme", UserHandle: "sub-1",
		CredentialID: []byte{1}, SignCount: 5,
		Status: repository.CredentialStatusActive,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Regression and replay are both stale.
	if err := st.Credentials().UpdateSignCount(ctx, "acme", "c1", 4); !errors.Is(err, repository.ErrStaleCounter) {
		t.Fatalf("regressed counter: got %v", err)
	}
	if err := st.Credentials().UpdateSignCount(ctx, "acme", "c1", 5); !errors.Is(err, repository.ErrStaleCounter) {
		t.Fatalf("replayed counter: got %v", err)
	}
	// Strictly greater advances.
	if err := st.Credentials().UpdateSignCount(ctx, "acme", "c1", 6); err != nil {
		t.Fatalf("advance: %v", err)
	}
	got, err := st.Credentials().GetByCredentialID(ctx, "acme", "sub-1", []byte{1})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SignCount != 6 {
		t.Fatalf("sign count = %d, want 6", got.SignCount)
	}
	if got.LastUsedAt == nil {
		t.Fatal("LastUsedAt not set")
	}
}

func TestUpdateSignCountZeroTolerated(t *testing.T) {
	// Authenticators without a counter always report 0.
	st := memory.New()
	ctx := context.Background()
	if err := st.Credentials().Create(ctx, &repository.WebAuthnCredential{
		ID: "c1", RepositoryID: "acme", UserHandle: "sub-1",
		CredentialID: []byte{1}, SignCount: 0,
		Status: repository.CredentialStatusActive,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.Credentials().UpdateSignCount(ctx, "acme", "c1", 0); err != nil {
		t.Fatalf("zero-counter authenticator rejected: %v", err)
	}
	if err := st.Credentials().UpdateSignCount(ctx, "acme", "c1", 0); err != nil {
		t.Fatalf("second zero assertion rejected: %v", err)
	}
}

func TestUpdateSignCountSerialized(t *testing.T) {
	// N goroutines racing to claim the same observed value: exactly one wins.
	st := memory.New()
	ctx := context.Background()
	if err := st.Credentials().Create(ctx, &repository.WebAuthnCredential{
		ID: "c1", RepositoryID: "acme", UserHandle: "sub-1",
		CredentialID: []byte{1}, SignCount: 0,
		Status: repository.CredentialStatusActive,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wins atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := st.Credentials().UpdateSignCount(ctx, "acme", "c1", 7); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if got := wins.Load(); got != 1 {
		t.Fatalf("expected exactly 1 winner for same observed value, got %d", got)
	}
}

func TestCredentialIDUniqueWhileActive(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	mk := func(id string) *repository.WebAuthnCredential {
		return &repository.WebAuthnCredential{
			ID: id, RepositoryID: "acme", UserHandle: "sub-1",
			CredentialID: []byte{9}, Status: repository.CredentialStatusActive,
		}
	}
	if err := st.Credentials().Create(ctx, mk("c1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.Credentials().Create(ctx, mk("c2")); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("duplicate credential id must conflict, got %v", err)
	}
	if err := st.Credentials().Revoke(ctx, "acme", "c1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := st.Credentials().Create(ctx, mk("c2")); err != nil {
		t.Fatalf("create after revoke: %v", err)
	}
}

func TestProviderConfigCloneIsolation(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	cfg := &repository.ProviderConfig{
		AuthorityID: "password", ProviderID: "p1", Realm: "acme",
		Config: map[string]any{"resetTTL": "300s"},
	}
	if err := st.Providers().Save(ctx, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	cfg.Config["resetTTL"] = "mutated"

	got, err := st.Providers().Get(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Config["resetTTL"] != "300s" {
		t.Fatalf("stored config shares caller's map: %v", got.Config["resetTTL"])
	}
	got.Config["resetTTL"] = "mutated again"
	again, _ := st.Providers().Get(ctx, "p1")
	if again.Config["resetTTL"] != "300s" {
		t.Fatal("returned config shares internal map")
	}
}
