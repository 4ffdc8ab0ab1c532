package backend

import (
	"context"
	"fmt"
	"log/slog"

	"casinoboys/internal/adapters"
	"casinoboys/internal/amqp"
	"casinoboys/internal/services"
	"casinoboys/internal/storage"
	"casinoboys/internal/store/memory"
)

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// AMQP is optional: without it the worker's periodic sweep is the
	// only reconciliation path.
	amqpClient := f.dialAMQP(config)

	service := services.NewTransactionService(repo, publisherOrNil(amqpClient))
	adapter := adapters.NewStoreAdapter(repo, service)

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", amqpClient != nil)

	cleanup := func() error {
		if amqpClient != nil {
			amqpClient.Close()
		}
		return repo.Close()
	}

	return &BackendResult{Backend: adapter, Cleanup: cleanup}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	mem := memory.New()
	amqpClient := f.dialAMQP(config)

	service := services.NewTransactionService(mem, publisherOrNil(amqpClient))
	adapter := adapters.NewStoreAdapter(mem, service)

	f.logger.Info("Initialized memory backend", "amqp_enabled", amqpClient != nil)

	var cleanup CleanupFunc
	if amqpClient != nil {
		cleanup = amqpClient.Close
	}
	return &BackendResult{Backend: adapter, Cleanup: cleanup}, nil
}

func (f *DefaultFactory) dialAMQP(config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without rollup events", "error", err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}

// publisherOrNil keeps a typed-nil *amqp.Client from reaching the
// service's interface field.
func publisherOrNil(client *amqp.Client) services.RollupPublisher {
	if client == nil {
		return nil
	}
	return client
}
