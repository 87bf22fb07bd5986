package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Islamawad132/Authme-sub001/internal/api"
	"github.com/Islamawad132/Authme-sub001/internal/audit"
	"github.com/Islamawad132/Authme-sub001/internal/backchannel"
	"github.com/Islamawad132/Authme-sub001/internal/blacklist"
	"github.com/Islamawad132/Authme-sub001/internal/broker"
	"github.com/Islamawad132/Authme-sub001/internal/bruteforce"
	"github.com/Islamawad132/Authme-sub001/internal/config"
	"github.com/Islamawad132/Authme-sub001/internal/devicecode"
	"github.com/Islamawad132/Authme-sub001/internal/grant"
	"github.com/Islamawad132/Authme-sub001/internal/introspect"
	"github.com/Islamawad132/Authme-sub001/internal/mfa"
	"github.com/Islamawad132/Authme-sub001/internal/notify"
	"github.com/Islamawad132/Authme-sub001/internal/scope"
	"github.com/Islamawad132/Authme-sub001/internal/store"
	"github.com/Islamawad132/Authme-sub001/internal/store/memstore"
	"github.com/Islamawad132/Authme-sub001/internal/store/pgstore"
	"github.com/Islamawad132/Authme-sub001/pkg/logger"
)

func main() {
	// We mask errors because in production these files might not exist
	// and we rely on system env vars.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	cfg := config.Load()

	log := logger.Setup(cfg.Env)
	log.Info("application_startup", "env", cfg.Env)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 1.0,
			Environment:      cfg.Env,
		}); err != nil {
			log.Error("sentry_init_failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
			log.Info("sentry_initialized")
		}
	} else {
		log.Warn("sentry_dsn_missing", "details", "skipping_init")
	}

	deps := buildDependencies(cfg, log)

	server := api.NewServer(deps)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server_listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("server_startup_failed", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		log.Info("shutdown_signal_received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful_shutdown_failed", "error", err)
			if err := srv.Close(); err != nil {
				log.Error("server_force_close_failed", "error", err)
			}
		}
		log.Info("server_shutdown_complete")
		return
	}
}

// backing is every repository interface a single store implementation
// must satisfy. memstore.Store and pgstore.Store both do, so either one
// plugs into buildDependencies interchangeably.
type backing interface {
	store.RealmStore
	store.SigningKeyStore
	store.ClientStore
	store.UserStore
	store.RoleStore
	store.SessionStore
	store.RefreshTokenStore
	store.AuthCodeStore
	store.DeviceCodeStore
	store.IdentityProviderStore
	store.FederatedIdentityStore
	store.LoginSessionStore
	scope.MapperStore
	bruteforce.Store
	mfa.CredentialStore
	mfa.RecoveryCodeStore
	mfa.ChallengeStore
}

// buildDependencies wires every domain package's Dependencies struct
// against a single backing store, chosen per DATABASE_URL, and composes
// them into the api.Dependencies the HTTP layer drives. DATABASE_URL's
// absence selects the in-process memstore — otherwise this repository's
// test-only backing — so the server still runs for local exploration
// without a live Postgres instance.
func buildDependencies(cfg config.Config, log *slog.Logger) api.Dependencies {
	var db backing
	if cfg.DatabaseURL != "" {
		pool, err := pgstore.NewPostgres(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Error("database_connect_failed", "error", err)
			os.Exit(1)
		}
		log.Info("database_connected")
		db = pgstore.New(pool)
	} else {
		log.Warn("database_url_missing", "details", "falling_back_to_in_memory_store")
		db = memstore.New()
	}

	auditLogger := audit.NewJSONLogger()
	mailer := &notify.DevMailer{Logger: log}

	var bl blacklist.Interface
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("redis_url_parse_failed", "error", err)
			os.Exit(1)
		}
		bl = blacklist.NewRedis(redis.NewClient(opts))
	} else {
		mem := blacklist.New()
		go sweepBlacklist(mem, log)
		bl = mem
	}

	grantDeps := grant.Dependencies{
		Clients:          db,
		Users:            db,
		Roles:            db,
		Keys:             db,
		RefreshTokens:    db,
		AuthCodes:        db,
		DeviceCodes:      db,
		Sessions:         db,
		Mappers:          db,
		BruteForce:       db,
		MFACreds:         db,
		MFARecoveryCodes: db,
		MFAChallenges:    db,
		BaseURL:          cfg.BaseURL,
		Audit:            auditLogger,
		Mailer:           mailer,
	}

	introspectDeps := introspect.Dependencies{
		Keys:          db,
		Users:         db,
		Sessions:      db,
		RefreshTokens: db,
		Blacklist:     bl,
		Audit:         auditLogger,
	}

	brokerDeps := broker.Dependencies{
		IdentityProviders:   db,
		FederatedIdentities: db,
		Clients:             db,
		Users:               db,
		Keys:                db,
		AuthCodes:           db,
		BaseURL:             cfg.BaseURL,
		Audit:               auditLogger,
	}

	backchannelDeps := backchannel.Dependencies{
		Clients: db,
		Keys:    db,
		BaseURL: cfg.BaseURL,
		Audit:   auditLogger,
	}

	deviceCodeDeps := devicecode.Dependencies{
		Clients:     db,
		DeviceCodes: db,
	}

	return api.Dependencies{
		Config: cfg,

		Realms:        db,
		Clients:       db,
		Users:         db,
		Sessions:      db,
		RefreshTokens: db,
		AuthCodes:     db,
		LoginSessions: db,

		Grant:       grantDeps,
		Introspect:  introspectDeps,
		Broker:      brokerDeps,
		Backchannel: backchannelDeps,
		DeviceCode:  deviceCodeDeps,

		Audit: auditLogger,
	}
}

// sweepBlacklist periodically evicts expired jti entries from the
// in-memory blacklist. RedisBlacklist needs no equivalent: Redis expires
// its own keys.
func sweepBlacklist(bl *blacklist.Blacklist, log *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		if n := bl.Sweep(time.Now()); n > 0 {
			log.Info("blacklist_swept", "removed", n)
		}
	}
}
