package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/multimart/multimart/backend/go-services/handlers"
	"github.com/multimart/multimart/backend/go-services/internal/accounts"
	"github.com/multimart/multimart/backend/go-services/internal/auth"
	"github.com/multimart/multimart/backend/go-services/internal/authstate"
	"github.com/multimart/multimart/backend/go-services/internal/config"
	"github.com/multimart/multimart/backend/go-services/internal/database"
	"github.com/multimart/multimart/backend/go-services/internal/events"
	"github.com/multimart/multimart/backend/go-services/internal/flow"
	"github.com/multimart/multimart/backend/go-services/internal/identity"
	"github.com/multimart/multimart/backend/go-services/internal/mail"
	"github.com/multimart/multimart/backend/go-services/internal/oidc"
	"github.com/multimart/multimart/backend/go-services/internal/profiles"
	"github.com/multimart/multimart/backend/go-services/internal/sessions"
	"github.com/multimart/multimart/backend/go-services/internal/storage"
	"github.com/multimart/multimart/backend/go-services/internal/tokens"
	"github.com/multimart/multimart/backend/go-services/pkg/logger"
	"github.com/multimart/multimart/backend/go-services/pkg/metrics"
	"github.com/multimart/multimart/backend/go-services/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

// deps holds the optional infrastructure clients; nil means not configured
// or unreachable.
type deps struct {
	redis *redis.Client
	mongo *mongo.Database
	pg    *sql.DB
}

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: keycloak=%v mongo=%v postgres=%v redis=%v minio=%v",
		cfg.Keycloak.URL != "", cfg.MongoDB.URI != "", cfg.Postgres.DSN != "", cfg.Redis.Host != "", cfg.MinIO.Endpoint != "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := connect(ctx, cfg)
	defer d.close()

	backend := buildBackend(ctx, cfg, d)
	policy := auth.NewDomainPolicy(cfg.Auth.InstitutionDomain, cfg.Auth.AllowedEmails...)
	stores := authstate.NewManager(func(clientID string) identity.Gateway { return backend.For(clientID) }, policy)
	stores.SetMaxStores(cfg.Auth.MaxStores)
	defer stores.Close()
	go stores.Run(ctx, time.Minute, cfg.Auth.StoreIdle)

	r := gin.New()
	r.Use(logger.GinLogger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.ClientCookie{
		Name:   cfg.Cookie.Name,
		Domain: cfg.Cookie.Domain,
		Secure: cfg.Cookie.Secure,
		MaxAge: int(cfg.Auth.SessionTTL.Seconds()),
		Secret: cfg.Cookie.Secret,
	}.Middleware())

	// Optional global rate limiter: a coarse per-address bucket, then one
	// keyed by client cookie (or address, for a cookie issued just now)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && d.redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitByKey(d.redis, cfg.RateLimit.IPRPS, cfg.RateLimit.IPBurst, win, middleware.AddressKey))
			r.Use(middleware.RedisRateLimitMiddleware(d.redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitByKey(cfg.RateLimit.IPRPS, cfg.RateLimit.IPBurst, middleware.AddressKey))
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", readiness(cfg, d))

	root := r.Group("")
	authH := handlers.NewAuthHandler(stores, backend.Accounts, flow.Config{
		Validator: auth.Validator{Policy: policy, MinPasswordLength: cfg.Auth.MinPasswordLength},
		HomePath:  cfg.Auth.HomePath,
	})
	authH.Register(root)

	var avatars storage.Avatars
	if cfg.MinIO.Endpoint != "" {
		ms, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("avatar storage disabled: %v", err)
		} else {
			avatars = ms
		}
	}
	handlers.NewProfileHandler(authH.Lookup, avatars).Register(r.Group("/api/v1"))

	revocations := sessions.NewRevocations(d.redis)
	if ver := adminVerifier(ctx, cfg); ver != nil {
		handlers.NewAdminHandler(backend.Profiles, revocations,
			middleware.AuthMiddleware(ver, revocations),
			middleware.RequireRole("admin"),
		).Register(root)
	} else {
		logger.Warnf("admin routes not registered: neither JWT_SECRET nor Keycloak configured")
	}

	handlers.RegisterSwagger(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		// /auth/events streams, so no write timeout
	}
	go func() {
		logger.Infof("Starting auth service on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

func connect(ctx context.Context, cfg *config.Config) *deps {
	d := &deps{}

	rdb, err := database.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
	} else if rdb != nil {
		logger.Infof("Connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		d.redis = rdb
	}

	if cfg.MongoDB.URI != "" {
		// Retry/backoff to tolerate startup races
		const maxAttempts = 5
		backoff := time.Second
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			db, err := database.ConnectMongo(ctx, cfg.MongoDB)
			if err == nil {
				d.mongo = db
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if d.mongo == nil {
			logger.Warnf("could not connect to MongoDB after %d attempts; using in-memory stores", maxAttempts)
		}
	}

	if cfg.Postgres.DSN != "" {
		pg, err := database.OpenPostgres(ctx, cfg.Postgres.DSN)
		if err != nil {
			logger.Warnf("failed to open Postgres: %v", err)
		} else {
			d.pg = pg
		}
	}
	return d
}

func (d *deps) close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.mongo != nil {
		_ = d.mongo.Client().Disconnect(context.Background())
	}
	if d.pg != nil {
		_ = d.pg.Close()
	}
}

// buildBackend picks the durable repository for each concern and falls back
// to memory when nothing is configured.
func buildBackend(ctx context.Context, cfg *config.Config, d *deps) *identity.Backend {
	var accRepo accounts.Repository = accounts.NewMemoryRepository()
	if d.mongo != nil {
		repo, err := accounts.NewMongoRepository(ctx, d.mongo.Collection("identities"))
		if err != nil {
			logger.Warnf("accounts: mongo index setup failed, using memory: %v", err)
		} else {
			accRepo = repo
		}
	}

	var sessRepo sessions.Repository
	switch {
	case d.redis != nil:
		sessRepo = sessions.NewRedisRepository(d.redis, "session:")
		logger.Infof("Using Redis for provider sessions")
	case d.mongo != nil:
		sessRepo = sessions.NewMongoRepository(d.mongo.Collection("sessions"))
		logger.Infof("Using MongoDB for provider sessions")
	default:
		sessRepo = sessions.NewMemoryRepository()
	}

	var profRepo profiles.Repository
	switch {
	case d.pg != nil:
		profRepo = profiles.NewPostgresRepository(d.pg)
		logger.Infof("Using Postgres for profiles")
	case d.mongo != nil:
		profRepo = profiles.NewMongoRepository(d.mongo.Collection("profiles"))
		logger.Infof("Using MongoDB for profiles")
	default:
		profRepo = profiles.NewMemoryRepository()
	}

	var bus events.Bus = events.NewMemoryBus()
	if d.redis != nil {
		bus = events.NewRedisBus(d.redis, "auth:events:")
	}

	return &identity.Backend{
		Accounts: accounts.NewService(accRepo, accounts.Options{
			Secret:    cfg.JWT.Secret,
			VerifyTTL: cfg.Auth.VerifyTokenTTL,
			PublicURL: cfg.Auth.PublicURL,
			Mailer:    mail.LogSender{},
		}),
		Sessions: sessions.NewService(sessRepo, cfg.Auth.SessionTTL),
		Profiles: profiles.NewService(profRepo),
		Bus:      bus,
	}
}

// adminVerifier accepts locally minted tokens and, when configured, Keycloak
// tokens. Nil when neither is available.
func adminVerifier(ctx context.Context, cfg *config.Config) middleware.Verifier {
	var vs []middleware.Verifier
	if cfg.JWT.Secret != "" {
		vs = append(vs, tokens.NewVerifier(cfg.JWT.Secret))
	}
	if kv, err := oidc.NewKeycloakVerifier(ctx, cfg.Keycloak); err == nil {
		vs = append(vs, kv)
	} else if !errors.Is(err, oidc.ErrNotConfigured) {
		logger.Warnf("failed to initialize OIDC verifier: %v", err)
	}
	if len(vs) == 0 {
		return nil
	}
	return middleware.FirstOf(vs...)
}

// readiness returns 200 only when every configured dependency answers.
func readiness(cfg *config.Config, d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		ready := true
		status := map[string]bool{}
		check := func(name string, configured bool, ping func() error) {
			if !configured {
				return
			}
			ok := ping != nil && ping() == nil
			status[name] = ok
			ready = ready && ok
		}
		check("redis", cfg.Redis.Host != "", pingOrNil(d.redis != nil, func() error { return d.redis.Ping(ctx).Err() }))
		check("mongo", cfg.MongoDB.URI != "", pingOrNil(d.mongo != nil, func() error { return d.mongo.Client().Ping(ctx, nil) }))
		check("postgres", cfg.Postgres.DSN != "", pingOrNil(d.pg != nil, func() error { return d.pg.PingContext(ctx) }))

		uptime := time.Since(startTime).String()
		if !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": status, "uptime": uptime})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": status, "uptime": uptime})
	}
}

func pingOrNil(connected bool, ping func() error) func() error {
	if !connected {
		return nil
	}
	return ping
}
