// Mealplanner - environment-aware meal planning API.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/openmealplan/mealplanner/internal/api"
	"github.com/openmealplan/mealplanner/internal/auth"
	"github.com/openmealplan/mealplanner/internal/bus"
	"github.com/openmealplan/mealplanner/internal/cache"
	"github.com/openmealplan/mealplanner/internal/dbconn"
	"github.com/openmealplan/mealplanner/internal/dietrules"
	"github.com/openmealplan/mealplanner/internal/domain"
	"github.com/openmealplan/mealplanner/internal/nutrition"
	"github.com/openmealplan/mealplanner/internal/repository"
	"github.com/openmealplan/mealplanner/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting mealplanner",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg, err := domain.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Resolve the database connection strategy from the environment
	var profile *dbconn.ConnectionProfile
	if cfg.Repository.Driver == "postgres" {
		profile, err = resolveProfile(ctx)
		if err != nil {
			slog.Error("failed to resolve database connection", "error", err)
			os.Exit(1)
		}
		slog.Info("database connection resolved",
			"strategy", profile.Strategy,
			"host", profile.Host,
			"pooled", profile.Pooling.Pooled(),
		)
	}

	// Initialize Repository
	repo, err := repository.New(ctx, cfg.Repository, profile)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Diet Filter Engine
	dietEngine, err := dietrules.NewEngine()
	if err != nil {
		slog.Error("failed to initialize diet filter engine", "error", err)
		os.Exit(1)
	}

	// Initialize Nutrition Service
	nutritionSvc := nutrition.NewService(repo, cacheImpl)
	slog.Info("nutrition service initialized")

	// Initialize Token Issuer
	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	if err != nil {
		slog.Error("failed to initialize token issuer", "error", err)
		os.Exit(1)
	}

	// Initialize async Worker
	asyncWorker := worker.NewWorker(busImpl, nutritionSvc)
	if err := asyncWorker.Start(); err != nil {
		slog.Error("failed to start async worker", "error", err)
		os.Exit(1)
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, tokens, dietEngine, nutritionSvc, cfg.Auth, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("mealplanner is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if err := asyncWorker.Stop(); err != nil {
		slog.Error("failed to stop async worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("mealplanner shutdown complete")
}

// resolveProfile snapshots the environment, splices in Secrets Manager
// credentials when enabled, and resolves the connection strategy.
func resolveProfile(ctx context.Context) (*dbconn.ConnectionProfile, error) {
	env := dbconn.LoadEnvironment(nil)

	if env.UseSecretsManager {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(env.Region))
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}

		source := &dbconn.SecretsManagerSource{
			Client:     secretsmanager.NewFromConfig(awsCfg),
			SecretName: env.SecretName,
		}

		creds, err := source.Credentials(ctx)
		if err != nil {
			return nil, err
		}
		env = env.WithCloudCredentials(creds)
		slog.Info("database credentials loaded from Secrets Manager", "secret", env.SecretName)
	}

	return dbconn.Resolve(env)
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║             🥗 MEALPLANNER                ║")
	fmt.Println("  ║      Plan meals. Hit your macros.         ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /api/auth/register   - Create an account")
	fmt.Println("    POST /api/auth/login      - Log in")
	fmt.Println("    GET  /api/users/me        - Profile")
	fmt.Println("    PUT  /api/users/me/diet   - Set diet filter")
	fmt.Println("    GET  /api/foods           - Food catalog")
	fmt.Println("    GET  /api/foods/compatible - Foods matching your diet")
	fmt.Println("    GET  /api/meals           - Meals")
	fmt.Println("    GET  /api/plan            - Daily plan")
	fmt.Println("    GET  /api/plan/summary    - Day macro summary")
	fmt.Println("    GET  /health              - Health check")
	fmt.Println()
}
