package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nerzal/gocloak/v13"
	"github.com/jmoiron/sqlx"
	_ "github.com/joho/godotenv/autoload"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/kova98/liveticker.api/config"
	"github.com/kova98/liveticker.api/data"
	"github.com/kova98/liveticker.api/data/repos"
	"github.com/kova98/liveticker.api/handlers"
	"github.com/kova98/liveticker.api/limiter"
	"github.com/kova98/liveticker.api/metrics"
	"github.com/kova98/liveticker.api/nonce"
	"github.com/kova98/liveticker.api/syndication"
)

var UserContextKey = "user"

//go:embed data/migrations/*.sql
var embedMigrations embed.FS

//go:embed static
var staticFiles embed.FS

func main() {
	cfg := config.LoadConfig()

	opts := slog.HandlerOptions{Level: cfg.LogLevel}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &opts))
	slog.SetDefault(logger)

	if cfg.IsProduction() && cfg.BaseURL == "" {
		slog.Warn("BASE_URL is empty, feed and script links will be relative")
	}

	db, err := sqlx.Connect("postgres", cfg.PostgresURL)
	if err != nil {
		slog.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}

	db.SetMaxOpenConns(90)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := data.RunMigrations(db.DB, embedMigrations); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	rateLimiter, redisClient, err := newRateLimiter(cfg)
	if err != nil {
		slog.Error("failed to configure rate limiter", "error", err)
		os.Exit(1)
	}

	tickRepo := repos.NewTickRepo(db)
	tickerRepo := repos.NewTickerRepo(db)
	optionsRepo := repos.NewOptionsRepo(db)
	usersRepo := repos.NewUserRepo(db)

	m := metrics.NewMetrics()
	nonces := nonce.NewIssuer(cfg.NonceSecret)
	feeds := syndication.NewBuilder(cfg.BaseURL)

	auth := handlers.NewAuthHandler(gocloak.NewClient(cfg.KeycloakURL), cfg.KeycloakRealm)
	users := handlers.NewUserHandler(usersRepo)
	poll := handlers.NewPollHandler(tickRepo, optionsRepo, nonces, rateLimiter, m, cfg.TickLocation)
	embeds := handlers.NewEmbedHandler(tickRepo, tickerRepo, optionsRepo, nonces, feeds, m, cfg.BaseURL, cfg.TickLocation)
	feed := handlers.NewFeedHandler(tickRepo, tickerRepo, feeds, m, cfg.FeedLimit)
	ticks := handlers.NewTickHandler(tickRepo)
	tickers := handlers.NewTickerHandler(tickerRepo, feeds)
	options := handlers.NewOptionsHandler(optionsRepo)

	private := privateWith(auth, users)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /ticks/update", public(poll.UpdateTicks))
	mux.HandleFunc("GET /ticks/feed", public(feed.GetFeed))
	mux.HandleFunc("GET /client-config", public(embeds.ClientConfig))
	mux.HandleFunc("GET /tickers/{slug}", public(embeds.Page))
	mux.HandleFunc("GET /tickers/{slug}/embed", public(embeds.Ticker))
	mux.HandleFunc("GET /tickers/{slug}/widget", public(embeds.Widget))

	mux.HandleFunc("POST /users/init", private(users.InitializeUser))

	mux.HandleFunc("POST /tickers", private(tickers.CreateTicker))
	mux.HandleFunc("GET /tickers", private(tickers.GetTickers))
	mux.HandleFunc("GET /tickers/{slug}/info", private(tickers.GetTicker))
	mux.HandleFunc("DELETE /tickers/{slug}", private(tickers.DeleteTicker))
	mux.HandleFunc("GET /dashboard", private(tickers.GetDashboard))

	mux.HandleFunc("POST /ticks", private(ticks.CreateTick))
	mux.HandleFunc("GET /ticks", private(ticks.GetTicks))
	mux.HandleFunc("GET /ticks/{id}", private(ticks.GetTick))
	mux.HandleFunc("PUT /ticks/{id}", private(ticks.UpdateTick))
	mux.HandleFunc("DELETE /ticks/{id}", private(ticks.DeleteTick))

	mux.HandleFunc("GET /options", private(options.GetOptions))
	mux.HandleFunc("PUT /options", private(options.UpdateOptions))

	mux.Handle("GET /static/", http.FileServer(http.FS(staticFiles)))
	mux.Handle("GET /metrics", m.Handler())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           withCORS(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("failed to shut down server", "error", err)
		}
	}()

	slog.Info("Starting server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("failed to start server", "error", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			slog.Error("failed to close redis connection", "error", err)
		}
	}
	if err := db.Close(); err != nil {
		slog.Error("failed to close database connection", "error", err)
	}
}

// newRateLimiter returns a Redis backed limiter, or no limit at all when REDIS_URL is unset.
func newRateLimiter(cfg config.AppConfig) (limiter.RateLimiter, *redis.Client, error) {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set, poll rate limiting disabled")
		return limiter.Unlimited{}, nil, nil
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(redisOpts)

	slog.Info("poll rate limiting enabled", "limit", cfg.PollRateLimit, "window", cfg.PollRateWindow.String())
	return limiter.NewRedisLimiter(client, cfg.PollRateLimit, cfg.PollRateWindow), client, nil
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+handlers.NonceHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func privateWith(auth *handlers.AuthHandler, users *handlers.UserHandler) func(handlers.Handler) http.HandlerFunc {
	return func(handler handlers.Handler) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			result := auth.GetUser(r.Context(), authHeader)
			if result.Code != http.StatusOK {
				slog.Debug("unauthorized request", "path", r.URL.Path)
				writeResult(w, result)
				return
			}

			user := result.Body.(data.User)
			if err := users.EnsureUser(r.Context(), user); err != nil {
				writeResult(w, handlers.InternalError(err, "ensure user"))
				return
			}
			ctx := context.WithValue(r.Context(), UserContextKey, user)

			public(handler)(w, r.WithContext(ctx))
		}
	}
}

func public(handler handlers.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts := time.Now()
		res := handler(w, r)
		elapsedMs := time.Since(ts).Milliseconds()
		slog.Debug("req", "method", r.Method, "path", r.URL.Path, "code", res.Code, "elapsed", elapsedMs)
		writeResult(w, res)
	}
}

func writeResult(w http.ResponseWriter, res handlers.Result) {
	if res.ContentType != "" {
		w.Header().Set("Content-Type", res.ContentType)
		w.WriteHeader(res.Code)
		if body, ok := res.Body.(string); ok {
			if _, err := io.WriteString(w, body); err != nil {
				slog.Error("failed to write response", "error", err)
			}
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.Code)
	if res.Body != nil {
		if err := json.NewEncoder(w).Encode(res.Body); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
	if res.Code == http.StatusInternalServerError {
		slog.Error("internal error", "error", res.Error.Error())
	}
}
