// Package backend builds the storage backend and the remote mirror that a
// process runs with, based on configuration.
package backend

import (
	"context"

	"budgetbook/internal/ledger"
	"budgetbook/internal/remote"
	"budgetbook/internal/storage"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the key-value store and its cleanup function.
type BackendResult struct {
	KV      storage.KV
	Cleanup CleanupFunc
}

// MirrorResult contains the configured mirror, nil when mirroring is off.
// Rows is set only when the mirror destination can be read back.
type MirrorResult struct {
	Mirror  ledger.Mirror
	Rows    remote.RowLister
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateMirror(ctx context.Context, config Config) (*MirrorResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	BoltPath     string
	SQLiteDBPath string
	PostgresURL  string

	Mirror MirrorMode

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	BoltBackend     BackendType = "bolt"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, BoltBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// MirrorMode selects where new transactions are copied.
type MirrorMode string

const (
	MirrorOff    MirrorMode = "off"
	MirrorAMQP   MirrorMode = "amqp"
	MirrorSheets MirrorMode = "sheets"
)

func (m MirrorMode) IsValid() bool {
	switch m {
	case MirrorOff, MirrorAMQP, MirrorSheets:
		return true
	default:
		return false
	}
}
