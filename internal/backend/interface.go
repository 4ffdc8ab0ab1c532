// Package backend selects and assembles the persistence stack from
// configuration.
package backend

import (
	"context"

	"casinoboys/internal/core"
	"casinoboys/internal/store"
)

// Backend is the unified surface the HTTP server works against.
type Backend interface {
	store.Store

	RecordTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	RemoveTransaction(ctx context.Context, id, userID string) error
}

// CleanupFunc releases backend resources at shutdown.
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup.
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType represents the type of backend.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	return bt == SQLiteBackend || bt == MemoryBackend
}

// Config holds configuration for backend creation.
type Config struct {
	Type BackendType

	// SQLite
	SQLiteDBPath string

	// AMQP (optional; without it rollup messages are skipped)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}
