package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/inkwell-app/backend/internal/auth"
	"github.com/inkwell-app/backend/internal/config"
	"github.com/inkwell-app/backend/internal/middleware"
	"github.com/inkwell-app/backend/internal/posts"
	"github.com/inkwell-app/backend/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	// ── PostgreSQL (user directory) ──────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("postgres connect", zap.Error(err))
	}
	defer pgPool.Close()
	userStore := store.NewPostgresStore(pgPool)
	if err := userStore.Migrate(ctx); err != nil {
		logger.Fatal("postgres migrate", zap.Error(err))
	}

	// ── MongoDB (post documents) ─────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer mongoClient.Disconnect(ctx)
	postStore := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))
	if err := postStore.EnsureIndexes(ctx); err != nil {
		logger.Fatal("mongo indexes", zap.Error(err))
	}

	// ── Redis (rate limits, one-shot tokens) ─────────────────
	rdb, err := store.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		logger.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// ── MinIO (avatar images) ────────────────────────────────
	avatarStore, err := store.NewMinioStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		logger.Fatal("minio connect", zap.Error(err))
	}

	// ── Auth ─────────────────────────────────────────────────
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.CookieSecure)
	if err != nil {
		logger.Fatal("init token manager", zap.Error(err))
	}
	resets := auth.NewResetTokens(rdb)

	// ── Handlers ─────────────────────────────────────────────
	authHandler := auth.NewHandler(userStore, postStore, avatarStore, resets, tokens, logger)
	googleOAuth := auth.NewGoogleOAuth(
		cfg.GoogleClientID, cfg.GoogleClientSecret,
		cfg.ServerOrigin, cfg.ClientOrigin,
		userStore, tokens, rdb, logger,
	)
	postHandler := posts.NewHandler(postStore, userStore, logger)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.ClientOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(rdb, "auth", cfg.AuthRateLimit))

		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Post("/forgot", authHandler.ForgotPassword)
		r.Post("/reset", authHandler.ResetPassword)
		r.Get("/google", googleOAuth.Start)
		r.Get("/google/callback", googleOAuth.Callback)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(tokens))
			r.Get("/me", authHandler.Me)
			r.Put("/profile", authHandler.UpdateProfile)
			r.Put("/password", authHandler.ChangePassword)
			r.Post("/avatar", authHandler.UploadAvatar)
			r.Delete("/account", authHandler.DeleteAccount)
		})
	})

	r.Route("/api/posts", func(r chi.Router) {
		r.Get("/", postHandler.List)
		r.Get("/tags/popular", postHandler.PopularTags)
		r.Get("/{id}", postHandler.Get)
		r.With(middleware.RequireAuth(tokens)).Get("/my", postHandler.ListMine)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(tokens))
			r.Use(middleware.RateLimit(rdb, "posts", cfg.PostRateLimit))
			r.Post("/", postHandler.Create)
			r.Put("/{id}", postHandler.Update)
			r.Delete("/{id}", postHandler.Delete)
			r.Post("/{id}/like", postHandler.ToggleLike)
			r.Post("/{id}/comments", postHandler.AddComment)
		})
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("backend listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
