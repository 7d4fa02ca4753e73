// Mealplanner Lambda entrypoint. Builds the API once per cold start and
// proxies API Gateway events into the chi router. The connection
// resolver detects the Lambda runtime and routes database traffic
// through RDS Proxy with connection pooling disabled.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"

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
var Version = "dev"

var adapter *chiadapter.ChiLambda

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	srv, err := buildServer(context.Background())
	if err != nil {
		slog.Error("cold start failed", "error", err)
		os.Exit(1)
	}

	adapter = chiadapter.New(srv.Router())
	slog.Info("cold start complete", "version", Version)
}

func buildServer(ctx context.Context) (*api.Server, error) {
	cfg, err := domain.FromEnv()
	if err != nil {
		return nil, err
	}

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
	}

	profile, err := dbconn.Resolve(env)
	if err != nil {
		return nil, err
	}
	slog.Info("database connection resolved",
		"strategy", profile.Strategy,
		"host", profile.Host,
		"pooled", profile.Pooling.Pooled(),
	)

	repo, err := repository.New(ctx, cfg.Repository, profile)
	if err != nil {
		return nil, err
	}

	// Lambda runs single-process: in-memory cache and channel bus.
	cacheImpl := cache.NewLRUCache(cfg.Cache.LocalMaxSize)
	busImpl := bus.NewChannelBus(cfg.EventBus.ChannelBufferSize)

	dietEngine, err := dietrules.NewEngine()
	if err != nil {
		return nil, err
	}

	nutritionSvc := nutrition.NewService(repo, cacheImpl)

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	asyncWorker := worker.NewWorker(busImpl, nutritionSvc)
	if err := asyncWorker.Start(); err != nil {
		return nil, err
	}

	return api.NewServer(cfg.Server, repo, cacheImpl, busImpl, tokens, dietEngine, nutritionSvc, cfg.Auth, Version), nil
}

func handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return adapter.ProxyWithContext(ctx, req)
}

func main() {
	lambda.Start(handler)
}
