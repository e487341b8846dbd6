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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/justsurfingit/jobtracker/internal/auth"
	"github.com/justsurfingit/jobtracker/internal/authz"
	"github.com/justsurfingit/jobtracker/internal/config"
	"github.com/justsurfingit/jobtracker/internal/database"
	"github.com/justsurfingit/jobtracker/internal/handlers"
	"github.com/justsurfingit/jobtracker/internal/logger"
	"github.com/justsurfingit/jobtracker/internal/ratelimit"
	"github.com/justsurfingit/jobtracker/internal/realtime"
	"github.com/justsurfingit/jobtracker/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zl, err := logger.New(cfg.Server.Environment, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zl.Sync() }()
	log := zl.Sugar()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Database
	db, err := database.Connect(cfg.Database.DSN, log)
	if err != nil {
		log.Fatalw("Database setup failed", "error", err)
	}

	// 2. Rate limiters
	limiters, closeLimiters, err := buildLimiters(cfg.RateLimit, log)
	if err != nil {
		log.Fatalw("Rate limiter setup failed", "error", err)
	}
	defer closeLimiters()

	// 3. Realtime hub, optionally relayed through Kafka
	hub := realtime.NewHub(log.Named("realtime"), 32)
	if len(cfg.Kafka.Brokers) > 0 {
		relay := realtime.NewKafkaRelay(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, log.Named("kafka"))
		hub.WithForwarder(relay)
		go relay.Run(ctx, hub)
		defer relay.Close()
		log.Infow("Realtime events relayed through Kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.EventsTopic)
	}

	// 4. Core services
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	admins := authz.NewAdminPolicy(cfg.Auth.AdminUserIDs)
	if admins.Empty() {
		log.Warn("ADMIN_USER_IDS is empty: admin routes are disabled")
	}

	authService := services.NewAuthService(db, tokens, admins, cfg.Auth.DemoMode)
	applicationService := services.NewApplicationService(db, hub)
	settingsService := services.NewSettingsService(db)

	// 5. AI and Gmail are optional
	var llmService *services.LLMService
	if cfg.Automation.GeminiAPIKey != "" {
		llmService, err = services.NewLLMService(ctx, cfg.Automation.GeminiAPIKey, cfg.Automation.GeminiModel)
		if err != nil {
			log.Errorw("Gemini client unavailable, AI routes disabled", "error", err)
		}
	} else {
		log.Warn("GEMINI_API_KEY not set, AI routes disabled")
	}

	gmailService := connectGmail(ctx, cfg.Automation, log)
	emailService := services.NewEmailService(db, llmService, gmailService, services.NewMatcherService(db),
		applicationService, settingsService, hub, cfg.Automation.MailboxUserEmail, log.Named("email"))
	emailService.StartWatcher(ctx, cfg.Automation.SyncInterval)

	// 6. Router
	router := handlers.NewRouter(handlers.Deps{
		Log:          zl,
		CORSOrigins:  cfg.Server.CORSOrigins,
		Tokens:       tokens,
		Admins:       admins,
		Limiters:     limiters,
		Hub:          hub,
		Auth:         authService,
		Owners:       services.NewOwnershipService(db),
		Profiles:     services.NewProfileService(db),
		Jobs:         services.NewJobService(db),
		Applications: applicationService,
		Hunts:        services.NewHuntService(db, hub),
		Settings:     settingsService,
		Dashboard:    services.NewDashboardService(db),
		LLM:          llmService,
		Email:        emailService,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("Server starting", "port", cfg.Server.Port, "env", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("Server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Graceful shutdown failed", "error", err)
	}
}

func buildLimiters(cfg config.RateLimitConfig, log *zap.SugaredLogger) (ratelimit.Limiters, func(), error) {
	classes := []struct {
		class ratelimit.Class
		max   int
	}{
		{ratelimit.ClassQuery, cfg.QueryMax},
		{ratelimit.ClassMutation, cfg.MutationMax},
		{ratelimit.ClassAI, cfg.AIMax},
	}
	checkers := make(map[ratelimit.Class]ratelimit.Checker, len(classes))

	closeFn := func() {}
	switch cfg.Store {
	case "redis":
		client, err := ratelimit.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return ratelimit.Limiters{}, nil, err
		}
		for _, c := range classes {
			checkers[c.class] = ratelimit.NewRedis(client, ratelimit.Config{Name: string(c.class), Window: cfg.Window, MaxRequests: c.max})
		}
		closeFn = func() { _ = client.Close() }
	default:
		for _, c := range classes {
			checkers[c.class] = ratelimit.NewMemory(ratelimit.Config{Name: string(c.class), Window: cfg.Window, MaxRequests: c.max})
		}
	}
	log.Infow("Rate limiting enabled", "store", cfg.Store, "window", cfg.Window,
		"query_max", cfg.QueryMax, "mutation_max", cfg.MutationMax, "ai_max", cfg.AIMax)

	limiters := ratelimit.Limiters{
		Query:    checkers[ratelimit.ClassQuery],
		Mutation: checkers[ratelimit.ClassMutation],
		AI:       checkers[ratelimit.ClassAI],
	}
	return limiters, func() {
		limiters.Stop()
		closeFn()
	}, nil
}

func connectGmail(ctx context.Context, cfg config.AutomationConfig, log *zap.SugaredLogger) *gmail.Service {
	if cfg.MailboxUserEmail == "" {
		log.Info("GMAIL_MAILBOX_USER not set, Gmail watcher disabled")
		return nil
	}

	httpClient, err := auth.GmailClient(ctx, cfg.CredentialsFile, cfg.TokenFile, cfg.InteractiveOAuth, log)
	if err != nil {
		log.Warnw("Gmail client unavailable", "error", err)
		return nil
	}
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		log.Warnw("Failed to create Gmail service", "error", err)
		return nil
	}
	log.Info("Gmail service connected")
	return svc
}
