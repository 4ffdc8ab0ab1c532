package main

import (
	"context"
	"errors"
	"os"
	"time"

	"casinoboys/internal/amqp"
	"casinoboys/internal/cli"
	"casinoboys/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting casinoboys-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The broker may come up after the worker in compose setups; keep
	// retrying until it answers or we're told to stop.
	amqpClient, err := amqp.NewClientWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	rollupWorker := worker.NewRollupWorker(repo, amqpClient, cfg.RollupInterval)

	// Catch up on anything written while the worker was down.
	logger.Info("Performing startup reconcile...")
	if err := rollupWorker.StartupReconcile(ctx); err != nil {
		logger.Error("Startup reconcile failed", "error", err)
		// Don't exit - the periodic sweep will retry
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, cancel)

	if err := rollupWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker run failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Worker stopped gracefully")
}
