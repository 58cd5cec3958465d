package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/diagnosis/bloodcare/internal/http/router"
	"github.com/diagnosis/bloodcare/internal/platform/identity"
	"github.com/diagnosis/bloodcare/internal/repo"
	"github.com/diagnosis/bloodcare/internal/repo/memory"
	"github.com/diagnosis/bloodcare/internal/repo/mongostore"
	"github.com/diagnosis/bloodcare/internal/repo/postgres"
	"github.com/diagnosis/bloodcare/internal/service"
	"github.com/diagnosis/bloodcare/pkg/cache"
	"github.com/diagnosis/bloodcare/pkg/config"
	"github.com/diagnosis/bloodcare/pkg/database"
	"github.com/diagnosis/bloodcare/pkg/events"
	"github.com/diagnosis/bloodcare/pkg/logger"
)

type stores struct {
	users    repo.UserRepository
	requests repo.DonationRequestRepository
	close    func()
}

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()

	ctx := context.Background()
	st, err := openStores(ctx, cfg.Store)
	if err != nil {
		logger.Error("Failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer st.close()

	// Connect to event bus
	var eventBus events.Publisher = events.Noop{}
	if cfg.NATS.URL != "" {
		bus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		eventBus = bus
	}
	defer eventBus.Close()

	verifier, err := newVerifier(cfg.Identity)
	if err != nil {
		logger.Error("Failed to configure identity", "error", err)
		os.Exit(1)
	}

	deps := router.Deps{
		Users:          service.NewUserService(st.users, eventBus),
		Donations:      service.NewDonationService(st.requests, eventBus),
		Stats:          service.NewStatsService(st.users, st.requests),
		Resolver:       identity.NewResolver(verifier),
		Guard:          service.NewAccessGuard(st.users),
		RateRequests:   cfg.RateLimit.Requests,
		RateWindow:     cfg.RateLimit.Window,
		IdempotencyTTL: cfg.Idempotency.TTL,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		TrustProxy:     cfg.Server.TrustProxy,
	}

	// Redis backs idempotency and rate limiting; without it both are off.
	if cfg.Redis.URL != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		deps.RateCounter = cache.NewRateCounter(rdb)
		deps.Idempotency = cache.NewIdempotencyStore(rdb)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.New(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down bloodcare api...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting bloodcare api", "port", cfg.Server.Port, "store", cfg.Store.Driver, "identity", cfg.Identity.Mode)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func openStores(ctx context.Context, cfg config.StoreConfig) (*stores, error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := database.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &stores{
			users:    postgres.NewUsersRepo(pool),
			requests: postgres.NewDonationRequestsRepo(pool),
			close:    pool.Close,
		}, nil

	case "mongo":
		client, err := database.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		store := mongostore.New(client.Database(cfg.Mongo.Database))
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &stores{
			users:    store.Users(),
			requests: store.DonationRequests(),
			close: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = client.Disconnect(ctx)
			},
		}, nil

	case "memory":
		logger.Warn("Using in-memory store; data is lost on restart")
		store := memory.NewStore()
		return &stores{users: store.Users(), requests: store.DonationRequests(), close: func() {}}, nil

	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Driver)
	}
}

func newVerifier(cfg config.IdentityConfig) (identity.Verifier, error) {
	switch cfg.Mode {
	case "firebase":
		if cfg.FirebaseProjectID == "" {
			return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required in firebase mode")
		}
		client := &http.Client{Timeout: 10 * time.Second}
		return identity.NewFirebaseVerifier(cfg.FirebaseProjectID, cfg.FirebaseCertsURL, client), nil
	case "hmac":
		logger.Warn("Using HMAC identity; tokens are not issued by Firebase")
		return identity.NewHMACVerifier(cfg.HMACSecret), nil
	default:
		return nil, fmt.Errorf("unknown IDENTITY_MODE %q", cfg.Mode)
	}
}
