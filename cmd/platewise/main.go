package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"platewise/internal/auth"
	"platewise/internal/billing"
	"platewise/internal/config"
	"platewise/internal/database"
	"platewise/internal/importer"
	"platewise/internal/llm"
	"platewise/internal/metrics"
	"platewise/internal/notify"
	"platewise/internal/plan"
	"platewise/internal/server"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	geminiClient, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatalf("Failed to initialize Gemini client: %v", err)
	}

	planRepo := plan.NewRepository(db.SQL)
	userRepo := auth.NewUserRepository(db.SQL)
	roleRepo := billing.NewRoleRepository(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)

	stripeClient := billing.NewStripeClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	billingSvc := billing.NewService(stripeClient, roleRepo)

	notifier, err := notify.NewNotifier(cfg.TelegramBotToken, cfg.TelegramAdminID)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram notifier: %v", err)
	}

	tokens := auth.NewTokenService(cfg.JWTSecret)
	recipeImporter := importer.NewImporter(geminiClient)

	srv := server.NewServer(
		server.Config{
			AppBaseURL: cfg.AppBaseURL,
			PriceIDs:   cfg.StripePriceIDs,
			DataDir:    filepath.Dir(cfg.DatabasePath),
		},
		geminiClient,
		planRepo,
		userRepo,
		tokens,
		billingSvc,
		stripeClient,
		recipeImporter,
		metricsStore,
		notifier,
	)

	if notifier != nil {
		go runDailyReport(ctx, notifier, metricsStore, filepath.Dir(cfg.DatabasePath))
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}

// runDailyReport sends the admin a usage summary once a day and prunes old
// metric rows.
func runDailyReport(ctx context.Context, notifier *notify.Notifier, store *metrics.Store, dataDir string) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			usage, err := store.GetDailyUsage(ctx, 7)
			if err != nil {
				slog.Warn("failed to collect daily usage", "error", err)
				continue
			}
			notifier.UsageReport(usage, metrics.GetSysHealth(dataDir))
			if _, err := store.Cleanup(ctx, 90); err != nil {
				slog.Warn("failed to clean up metrics", "error", err)
			}
		}
	}
}
