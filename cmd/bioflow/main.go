package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bioflow/internal/api"
	"bioflow/internal/client"
	"bioflow/internal/config"
	"bioflow/internal/repository/redis"
	"bioflow/internal/service"
	"bioflow/internal/telemetry"
	"bioflow/internal/worker"
	"bioflow/internal/workflow"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	// Initialize metrics
	metrics, err := telemetry.NewDefaultMetricsClient()
	if err != nil {
		telemetry.Logger.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	// Remote job API client, shared by every mode
	remote := client.New(cfg.APIBaseURL, metrics)
	if cfg.PollMaxSecs > 0 {
		schedule := client.DefaultSchedule()
		schedule.MaxElapsed = time.Duration(cfg.PollMaxSecs) * time.Second
		remote.SetSchedule(schedule)
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Determine mode from environment variable
	mode := strings.ToLower(os.Getenv("APP_MODE"))
	if mode == "" {
		// Default to server mode if not specified
		mode = "server"
	}

	telemetry.Logger.Info("Starting application", zap.String("mode", mode))

	switch mode {
	case "server", "api":
		redisClient := mustRedis(cfg)
		defer redisClient.Close()

		svc := service.NewServices(metrics, redisClient, remote)
		server := api.NewServer(svc, cfg.ServerPort)
		if err := server.Start(ctx); err != nil {
			telemetry.Logger.Fatal("Server error", zap.Error(err))
		}
	case "worker":
		redisClient := mustRedis(cfg)
		defer redisClient.Close()

		svc := service.NewServices(metrics, redisClient, remote)
		workerSvc := worker.NewWorkerService(svc, cfg.Workers, nil, nil)
		if err := workerSvc.Start(ctx); err != nil {
			telemetry.Logger.Fatal("Worker error", zap.Error(err))
		}
		workerSvc.Wait()
	case "run":
		if cfg.WorkflowFile == "" {
			telemetry.Logger.Fatal("WORKFLOW_FILE is required in run mode")
		}
		wf, err := workflow.ParseFile(cfg.WorkflowFile)
		if err != nil {
			telemetry.Logger.Fatal("Failed to load workflow", zap.Error(err))
		}

		runner := workflow.NewRunner(remote, cfg.DownloadDir)
		results, err := runner.Run(ctx, wf)
		if err != nil {
			telemetry.Logger.Fatal("Workflow failed", zap.Error(err))
		}
		for _, res := range results {
			telemetry.Logger.Info("Step finished",
				zap.String("step", res.Step),
				zap.String("token", res.Token),
				zap.Duration("elapsed", res.Elapsed),
				zap.Int("output_files", len(res.OutputFiles)),
			)
		}
	default:
		telemetry.Logger.Fatal("Unknown application mode", zap.String("mode", mode))
	}
}

func mustRedis(cfg *config.Config) *redis.DefaultRedisClient {
	redisClient, err := redis.NewDefaultRedisClient(cfg.RedisAddr)
	if err != nil {
		telemetry.Logger.Fatal("Failed to initialize Redis client", zap.Error(err))
	}
	return redisClient
}
