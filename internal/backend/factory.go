package backend

import (
	"context"
	"fmt"

	"budgetbook/internal/amqp"
	"budgetbook/internal/log"
	"budgetbook/internal/remote"
	gsheet "budgetbook/internal/remote/google"
	"budgetbook/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Nop()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		kv  storage.KV
		err error
	)
	switch config.Type {
	case MemoryBackend:
		kv = storage.NewMemoryKV()
	case BoltBackend:
		kv, err = storage.NewBoltKV(config.BoltPath)
	case SQLiteBackend:
		kv, err = storage.NewSQLiteKV(config.SQLiteDBPath)
	case PostgresBackend:
		kv, err = storage.NewPostgresKV(config.PostgresURL)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s backend: %w", config.Type, err)
	}

	f.logger.InfoContext(ctx, "Initialized storage backend", log.FieldBackend, config.Type.String())
	return &BackendResult{KV: kv, Cleanup: kv.Close}, nil
}

// CreateMirror implements Factory.CreateMirror. A mirror that cannot be
// reached at startup is an error; later failures are only logged by the
// ledger.
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (*MirrorResult, error) {
	switch config.Mirror {
	case MirrorOff, "":
		return &MirrorResult{Cleanup: func() error { return nil }}, nil

	case MirrorAMQP:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize AMQP mirror: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized AMQP mirror",
			"exchange", config.AMQPExchange,
			"queue", config.AMQPQueue)
		return &MirrorResult{Mirror: client, Cleanup: client.Close}, nil

	case MirrorSheets:
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      config.GoogleSpreadsheetID,
			SheetName:          config.GoogleSheetName,
			ServiceAccountJSON: config.GoogleServiceAccountJSON,
			ServiceAccountFile: config.GoogleServiceAccountFile,
		}, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sheets mirror: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Google Sheets mirror", "sheet", config.GoogleSheetName)
		return &MirrorResult{
			Mirror:  remote.NewMirror(client),
			Rows:    client,
			Cleanup: func() error { return nil },
		}, nil

	default:
		return nil, fmt.Errorf("unsupported mirror mode: %s", config.Mirror)
	}
}
