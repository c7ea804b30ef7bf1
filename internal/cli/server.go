package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizmaster-web/internal/apiclient"
	"quizmaster-web/internal/app"
	"quizmaster-web/internal/config"
	"quizmaster-web/internal/infra/memory"
	"quizmaster-web/internal/infra/postgres"
	redisstore "quizmaster-web/internal/infra/redis"
	transport "quizmaster-web/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the web server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the QuizMaster web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(parent context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	client := apiclient.New(cfg.Backend.BaseURL,
		apiclient.WithHTTPClient(&http.Client{Timeout: config.TTLDuration(cfg.Backend.Timeout, 30*time.Second)}),
		apiclient.WithPaths(apiclient.Paths{Profile: cfg.Backend.ProfilePath, Leaderboard: cfg.Backend.LeaderboardPath}),
		apiclient.WithLogger(logger),
	)

	sessionTTL := config.TTLDuration(cfg.Server.SessionTTL, 72*time.Hour)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 30*time.Second)

	var (
		sessionRepo app.SessionRepository
		attemptRepo app.AttemptRepository
		quizRepo    app.QuizRepository
	)
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		redisTTL := config.TTLDuration(cfg.Redis.TTL, sessionTTL)
		sessionRepo = redisstore.NewSessionStore(redisClient, redisTTL)
		attemptRepo = redisstore.NewAttemptStore(redisClient, redisTTL)
		quizRepo = redisstore.NewQuizRepository(redisClient, client, quizTTL)
		logger.Info("using redis stores", "addr", cfg.Redis.Addr)
	} else {
		sessions := memory.NewSessionStore()
		go sessions.RunSweeper(ctx, time.Minute)
		sessionRepo = sessions
		attemptRepo = memory.NewAttemptStore()
		quizRepo = memory.NewQuizRepository(client, quizTTL)
	}

	var journal app.AttemptJournal = memory.NewJournal(1000)
	if cfg.Postgres.URL != "" {
		if err := RunMigrations(ctx, cfg.Postgres.URL); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		journal = postgres.NewJournal(pool)
		logger.Info("using postgres attempt journal")
	}

	sessions := app.NewSessionController(sessionRepo, sessionTTL, logger)
	retry := app.RetryPolicy{
		Attempts: cfg.Admin.RetryAttempts,
		Delay:    config.TTLDuration(cfg.Admin.RetryDelay, app.DefaultRetryPolicy.Delay),
	}
	svc := transport.Services{
		Sessions:    sessions,
		Auth:        app.NewAuthService(client, sessions),
		Runner:      app.NewRunnerService(attemptRepo, quizRepo, journal, logger),
		Admin:       app.NewAdminService(client, quizRepo, retry, logger),
		Leaderboard: app.NewLeaderboardService(client, config.TTLDuration(cfg.Leaderboard.PollInterval, app.DefaultPollInterval)),
		Profiles:    app.NewProfileService(client),
	}
	web, err := transport.NewServer(svc, transport.Options{
		Fallback:          cfg.Server.Fallback,
		CookieSecure:      cfg.Server.CookieSecure,
		CSRFKey:           []byte(cfg.Server.CSRFKey),
		AuthRedirectDelay: config.TTLDuration(cfg.Server.AuthRedirectDelay, 1500*time.Millisecond),
		Logger:            logger,
	})
	if err != nil {
		return err
	}
	if cfg.Server.CSRFKey == "" {
		logger.Warn("csrf key not configured, generated a random one; forms break across restarts")
	}

	// no WriteTimeout: the leaderboard websocket is long-lived
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           web.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting quizmaster web", "port", finalPort, "backend", cfg.Backend.BaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
