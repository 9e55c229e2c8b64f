// aac es el binario del servicio: serve levanta el borde HTTP, migrate aplica
// el esquema postgres, seed provisiona un realm de desarrollo.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	rdb "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dropDatabas3/aac/internal/authority"
	"github.com/dropDatabas3/aac/internal/config"
	"github.com/dropDatabas3/aac/internal/domain/repository"
	"github.com/dropDatabas3/aac/internal/email"
	"github.com/dropDatabas3/aac/internal/httpapi"
	"github.com/dropDatabas3/aac/internal/metrics"
	"github.com/dropDatabas3/aac/internal/observability/logger"
	passwordprov "github.com/dropDatabas3/aac/internal/provider/password"
	webauthnprov "github.com/dropDatabas3/aac/internal/provider/webauthn"
	"github.com/dropDatabas3/aac/internal/rate"
	pwd "github.com/dropDatabas3/aac/internal/security/password"
	"github.com/dropDatabas3/aac/internal/store/memory"
	"github.com/dropDatabas3/aac/internal/store/pg"
	"github.com/dropDatabas3/aac/internal/token"
)

// stores abstrae el backend de persistencia (memory o postgres).
type stores interface {
	Providers() repository.ProviderConfigRepository
	Accounts() repository.AccountRepository
	Passwords() repository.PasswordRepository
	Credentials() repository.WebAuthnCredentialRepository
}

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:   "aac",
		Short: "Servicio de verificación de credenciales multi-tenant",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", os.Getenv("AAC_CONFIG"), "ruta del YAML de configuración (env AAC_CONFIG)")

	root.AddCommand(serveCmd(&cfgPath))
	root.AddCommand(migrateCmd(&cfgPath))
	root.AddCommand(seedCmd(&cfgPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
	return cfg, nil
}

func openStores(ctx context.Context, cfg *config.Config) (stores, func(), error) {
	switch cfg.Storage.Driver {
	case "", "memory":
		return memory.New(), func() {}, nil
	case "postgres":
		st, err := pg.New(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("storage driver desconocido: %q", cfg.Storage.Driver)
	}
}

func serveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			defer logger.Sync()
			log := logger.Named("main")

			ctx := cmd.Context()
			st, closeStore, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			mx := metrics.New()
			hasher := pwd.NewArgon2()

			var sender email.Sender = &email.LogSender{}
			if cfg.SMTP.Enabled {
				sender = email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.User, cfg.SMTP.Pass)
			}

			var redisClient *rdb.Client
			if cfg.Challenges.Kind == "redis" || cfg.Rate.Enabled {
				redisClient = rdb.NewClient(&rdb.Options{
					Addr:     cfg.Challenges.Redis.Addr,
					Password: cfg.Challenges.Redis.Password,
					DB:       cfg.Challenges.Redis.DB,
				})
				defer redisClient.Close()
			}

			var challenges webauthnprov.ChallengeStore = webauthnprov.NewMemoryChallenges()
			if cfg.Challenges.Kind == "redis" {
				challenges = webauthnprov.NewRedisChallenges(redisClient, cfg.Challenges.Redis.Prefix)
			}

			passwords := authority.New(passwordprov.AuthorityID, st.Providers(),
				passwordprov.NewBuilder(passwordprov.Deps{
					Accounts:  st.Accounts(),
					Passwords: st.Passwords(),
					Hasher:    hasher,
					Sender:    sender,
					Metrics:   mx,
				}),
				authority.WithMetrics[*passwordprov.Provider](mx))

			webauthns := authority.New(webauthnprov.AuthorityID, st.Providers(),
				webauthnprov.NewBuilder(webauthnprov.Deps{
					Accounts:    st.Accounts(),
					Credentials: st.Credentials(),
					Challenges:  challenges,
					Metrics:     mx,
				}),
				authority.WithMetrics[*webauthnprov.Provider](mx))

			issuer := token.NewIssuer(cfg.JWT.Issuer, []byte(cfg.JWT.Secret))
			issuer.AccessTTL = cfg.AccessTTL()

			var limiter rate.Limiter
			if cfg.Rate.Enabled {
				limiter = rate.NewRedisLimiter(redisClient, "rl:", cfg.Rate.Limit, cfg.RateWindow())
			}

			api := httpapi.New(passwords, webauthns, issuer, limiter, mx)
			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           api.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.Server.Addr))
				errCh <- srv.ListenAndServe()
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-stop:
				log.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func migrateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica el esquema postgres",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			defer logger.Sync()
			if cfg.Storage.Driver != "postgres" {
				return errors.New("migrate requiere storage.driver=postgres")
			}
			st, err := pg.New(cmd.Context(), cfg.Storage.DSN)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(cmd.Context()); err != nil {
				return err
			}
			logger.Named("migrate").Info("schema applied")
			return nil
		},
	}
}

func seedCmd(cfgPath *string) *cobra.Command {
	var (
		realm      = "demo"
		providerID = "demo-password"
		username   = "admin"
		password   = "ChangeMe123!"
		emailAddr  = "admin@example.com"
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Provisiona un realm + provider + cuenta para desarrollo",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			defer logger.Sync()
			log := logger.Named("seed")

			ctx := cmd.Context()
			st, closeStore, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			passwords := authority.New(passwordprov.AuthorityID, st.Providers(),
				passwordprov.NewBuilder(passwordprov.Deps{
					Accounts:  st.Accounts(),
					Passwords: st.Passwords(),
					Hasher:    pwd.NewArgon2(),
					Sender:    &email.LogSender{},
				}))

			// re-registrar bajo el mismo realm es update, así que el seed es idempotente
			prov, err := passwords.RegisterProvider(ctx, &repository.ProviderConfig{
				AuthorityID: passwordprov.AuthorityID,
				ProviderID:  providerID,
				Realm:       realm,
				Name:        realm + " password login",
			})
			if err != nil {
				return err
			}

			if err := seedAccount(ctx, st, prov, username, emailAddr, password); err != nil {
				return err
			}
			log.Info("seeded", zap.String("realm", realm),
				zap.String("provider_id", providerID), zap.String("username", username))
			return nil
		},
	}
	cmd.Flags().StringVar(&realm, "realm", realm, "realm a provisionar")
	cmd.Flags().StringVar(&providerID, "provider-id", providerID, "id del provider de password")
	cmd.Flags().StringVar(&username, "username", username, "username de la cuenta")
	cmd.Flags().StringVar(&password, "password", password, "password inicial")
	cmd.Flags().StringVar(&emailAddr, "email", emailAddr, "email de la cuenta")
	return cmd
}

func seedAccount(ctx context.Context, st stores, prov *passwordprov.Provider, username, emailAddr, plain string) error {
	_, err := st.Accounts().GetByUsername(ctx, prov.RepositoryID(), username)
	if err == nil {
		return nil // ya existe
	}
	if !repository.IsNotFound(err) {
		return err
	}
	acc := &repository.Account{
		ID:           uuid.NewString(),
		RepositoryID: prov.RepositoryID(),
		Subject:      uuid.NewString(),
		Realm:        prov.Realm(),
		Username:     username,
		Email:        emailAddr,
		Status:       repository.AccountStatusActive,
		Confirmed:    true,
		CreatedAt:    time.Now(),
	}
	if err := st.Accounts().Create(ctx, acc); err != nil {
		return err
	}
	return prov.SetPassword(ctx, username, plain, false)
}
