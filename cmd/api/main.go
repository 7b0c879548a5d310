package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yourname/watchbuddy/internal/auth"
	"github.com/yourname/watchbuddy/internal/handlers"
	httpserver "github.com/yourname/watchbuddy/internal/http"
	"github.com/yourname/watchbuddy/internal/logger"
	"github.com/yourname/watchbuddy/internal/ratelimit"
	"github.com/yourname/watchbuddy/internal/session"
	"github.com/yourname/watchbuddy/internal/store"
	"github.com/yourname/watchbuddy/internal/tmdb"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// store: opaque tokens in the database. redis: opaque tokens in redis.
	// jwt: stateless signed tokens, revoked by session-version bump.
	SessionBackend string        `envconfig:"SESSION_BACKEND" default:"store"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"336h"`
	SessionSecret  string        `envconfig:"SESSION_SECRET"`
	RedisAddr      string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`

	TMDBAPIKey  string `envconfig:"TMDB_API_KEY" required:"true"`
	TMDBBaseURL string `envconfig:"TMDB_BASE_URL" default:"https://api.themoviedb.org/3"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	LoginRateLimit  int           `envconfig:"LOGIN_RATE_LIMIT" default:"10"`
	LoginRateWindow time.Duration `envconfig:"LOGIN_RATE_WINDOW" default:"1m"`
	CookieSecure    bool          `envconfig:"COOKIE_SECURE" default:"true"`
}

func mustLoadEnv() Config {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		log.Fatalf("env error: %v", err)
	}
	return c
}

func mustDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sqlDB, _ := db.DB()
	if err := sqlDB.PingContext(ctx); err != nil {
		log.Fatalf("db ping error: %v", err)
	}
	return db
}

func mustSessions(cfg Config, st *store.GormStore) session.Manager {
	switch cfg.SessionBackend {
	case "store":
		return session.NewStoreManager(st, st, cfg.SessionTTL)
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis ping error: %v", err)
		}
		return session.NewStoreManager(session.NewRedisSessions(client), st, cfg.SessionTTL)
	case "jwt":
		if len(cfg.SessionSecret) < 32 {
			log.Fatal("SESSION_SECRET must be at least 32 bytes for the jwt backend")
		}
		return session.NewTokenManager([]byte(cfg.SessionSecret), st, cfg.SessionTTL)
	}
	log.Fatalf("unknown session backend %q", cfg.SessionBackend)
	return nil
}

func main() {
	cfg := mustLoadEnv()
	zlog := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = zlog.Sync() }()

	db := mustDB(cfg.DatabaseURL)
	st := store.NewGorm(db)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate error: %v", err)
	}

	sessions := mustSessions(cfg, st)
	catalog := tmdb.New(cfg.TMDBAPIKey, cfg.TMDBBaseURL)
	limiter := ratelimit.New(cfg.LoginRateLimit, cfg.LoginRateWindow)

	// Handlers
	wlHandler := handlers.NewWatchlistHandler(st, catalog, zlog)
	authHandler := handlers.NewAuthHandler(st, sessions, limiter, zlog, cfg.CookieSecure)
	userHandler := handlers.NewUserHandler()

	// Auth middleware
	verifier := &auth.Verifier{Sessions: sessions}

	mounter := func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			r.Post("/auth/signup", authHandler.Signup)
			r.Post("/auth/login", authHandler.Login)
			r.Get("/search", wlHandler.Search)
		})
		// Authed routes
		r.Group(func(r chi.Router) {
			r.Use(verifier.Middleware)
			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/me", userHandler.Me)
			r.Route("/watchlists", wlHandler.Routes)
		})
	}

	srv := httpserver.NewServer(zlog, mounter)

	addr := ":" + cfg.Port
	zlog.Info("listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, srv.Router); err != nil {
		zlog.Fatal("server exited", zap.Error(err))
	}
}
