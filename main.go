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

	"github.com/devfolio/portfolio-api/handlers"
	"github.com/devfolio/portfolio-api/internal/admin"
	"github.com/devfolio/portfolio-api/internal/config"
	"github.com/devfolio/portfolio-api/internal/database"
	"github.com/devfolio/portfolio-api/internal/notify"
	"github.com/devfolio/portfolio-api/internal/oidc"
	"github.com/devfolio/portfolio-api/internal/portfolio/handler"
	"github.com/devfolio/portfolio-api/internal/portfolio/service"
	"github.com/devfolio/portfolio-api/internal/sessions"
	"github.com/devfolio/portfolio-api/internal/storage"
	"github.com/devfolio/portfolio-api/internal/store"
	"github.com/devfolio/portfolio-api/internal/tokens"
	"github.com/devfolio/portfolio-api/pkg/logger"
	"github.com/devfolio/portfolio-api/pkg/metrics"
	"github.com/devfolio/portfolio-api/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: store=%s mongo=%v redis=%v admin=%v mail=%v",
		cfg.Store.Backend, cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Admin.Enabled(), cfg.Mail.Enabled())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.RequestLogger(), gin.Recovery(), middleware.CORS())

	checks := map[string]handlers.Check{}

	// Redis backs the rate limiter, sessions and the token blacklist when configured
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
		} else {
			logger.Infof("connected to Redis %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	var mongoDB *mongo.Database
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
		if err != nil {
			if cfg.Store.Backend == config.BackendMongo {
				logger.Fatalf("mongo store: %v", err)
			}
			logger.Warnf("MongoDB unavailable, continuing without it: %v", err)
		} else {
			defer func() { _ = client.Disconnect(context.Background()) }()
			mongoDB = client.Database(cfg.MongoDB.Database)
			checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		}
	}

	set, shutdownStore, err := openStore(ctx, cfg, mongoDB, checks)
	if err != nil {
		logger.Fatalf("failed to open %s store: %v", cfg.Store.Backend, err)
	}
	defer shutdownStore()

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.Mail.Enabled() {
		n, err := notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
			To:       cfg.Mail.To,
			Timeout:  cfg.Mail.Timeout,
		})
		if err != nil {
			logger.Fatalf("mail: %v", err)
		}
		notifier = n
	} else {
		logger.Warnf("MAIL_HOST not set: contact notifications are only logged")
	}
	svc := service.New(set, notifier, service.WithNotifyTimeout(cfg.Mail.Timeout))

	blacklist := sessions.NewBlacklist(rdb)
	var opts handler.Options
	var guard gin.HandlerFunc
	if cfg.Admin.Enabled() {
		adm, err := admin.NewService(cfg.Admin)
		if err != nil {
			logger.Fatalf("admin: %v", err)
		}
		verifiers := middleware.Verifiers{tokens.NewVerifier(cfg.JWT.Secret)}
		if cfg.Keycloak.URL != "" && cfg.Keycloak.ClientID != "" {
			kc := cfg.Keycloak
			ver, err := oidc.NewVerifier(ctx, oidc.Issuer(kc.URL, kc.Realm), kc.ClientID, kc.AdminRole, kc.AdminSubject)
			if err != nil {
				logger.Warnf("failed to initialize OIDC verifier: %v", err)
			} else {
				verifiers = append(verifiers, ver)
			}
		}
		guard = middleware.AuthMiddleware(verifiers, blacklist.IsRevoked)

		repo, err := sessionRepository(ctx, rdb, mongoDB)
		if err != nil {
			logger.Fatalf("sessions: %v", err)
		}
		h := handlers.NewAuthHandler(adm, sessions.NewService(repo), blacklist, cfg.JWT.Secret, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)
		h.Register(r.Group("/"))
	} else {
		logger.Warnf("ADMIN_USERNAME/ADMIN_PASSWORD not set: dashboard routes are not protected")
	}
	opts.AdminGuard = middleware.Optional(cfg.Admin.Enabled(), guard)

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			opts.ContactLimit = middleware.RedisRateLimitMiddleware(rdb, "contact", cfg.RateLimit.RPS, cfg.RateLimit.Burst, win)
			opts.RatingLimit = middleware.RedisRateLimitMiddleware(rdb, "rating", cfg.RateLimit.RPS, cfg.RateLimit.Burst, win)
		} else {
			opts.ContactLimit = middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
			opts.RatingLimit = middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		}
	}

	handler.RegisterRoutes(r, svc, opts)
	handlers.RegisterHealth(r, startTime, checks)
	handlers.RegisterSwagger(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("portfolio API listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

// openStore builds the collection set for cfg.Store.Backend. The returned
// func releases the backend (and writes a final snapshot for memory).
func openStore(ctx context.Context, cfg *config.Config, mongoDB *mongo.Database, checks map[string]handlers.Check) (*store.Set, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendMongo:
		set, err := store.NewMongoSet(ctx, mongoDB)
		return set, func() {}, err

	case config.BackendSQLite, config.BackendPostgres:
		driver := database.DriverSQLite
		if cfg.Store.Backend == config.BackendPostgres {
			driver = database.DriverPostgres
		}
		db, err := database.OpenSQL(ctx, driver, cfg.SQL.DSN, cfg.MongoDB.Timeout)
		if err != nil {
			return nil, nil, err
		}
		set, err := store.NewSQLSet(ctx, db, driver == database.DriverPostgres)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		checks["sql"] = db.PingContext
		return set, func() { _ = db.Close() }, nil
	}

	mem := store.NewMemorySet()
	if !cfg.Snapshot.Enabled {
		logger.Warnf("memory store without snapshots: data is lost on restart")
		return mem.Set(), func() {}, nil
	}
	mcfg := storage.LoadMinIOConfig()
	if !mcfg.Enabled() {
		return nil, nil, errors.New("SNAPSHOT_ENABLED requires MINIO_ENDPOINT")
	}
	blob, err := storage.NewMinIOStorage(ctx, mcfg)
	if err != nil {
		return nil, nil, err
	}
	checks["minio"] = blob.Ping
	snap := store.NewSnapshotter(mem, blob, cfg.Snapshot.Key)
	if err := snap.Restore(ctx); err != nil {
		return nil, nil, fmt.Errorf("restore snapshot: %w", err)
	}
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		snap.Run(runCtx, cfg.Snapshot.Interval)
	}()
	return mem.Set(), func() {
		cancel()
		<-done
		saveCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := snap.Save(saveCtx); err != nil {
			logger.Errorf("final snapshot failed: %v", err)
		}
	}, nil
}

// sessionRepository prefers Redis, then MongoDB, then process memory.
func sessionRepository(ctx context.Context, rdb *redis.Client, mongoDB *mongo.Database) (sessions.Repository, error) {
	if rdb != nil {
		logger.Infof("using Redis for session storage")
		return sessions.NewRedisRepository(rdb, "session:"), nil
	}
	if mongoDB != nil {
		logger.Infof("using MongoDB for session storage")
		return sessions.NewMongoRepository(ctx, mongoDB.Collection("sessions"))
	}
	logger.Warnf("sessions kept in memory: logins do not survive a restart")
	return sessions.NewMemoryRepository(), nil
}
