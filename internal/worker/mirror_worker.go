// Package worker drains mirrored rows from the queue into the remote
// collaborator.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"budgetbook/internal/amqp"
	"budgetbook/internal/log"
	"budgetbook/internal/remote"
)

// Consumer feeds row messages to a handler until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

// Stats counts handled messages since start.
type Stats struct {
	Inserted int64
	Failed   int64
}

// MirrorWorker inserts every consumed row into the remote row store.
type MirrorWorker struct {
	consumer Consumer
	rows     remote.RowWriter
	logger   *log.Logger

	inserted atomic.Int64
	failed   atomic.Int64
}

func NewMirrorWorker(consumer Consumer, rows remote.RowWriter, logger *log.Logger) *MirrorWorker {
	return &MirrorWorker{
		consumer: consumer,
		rows:     rows,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Run consumes until ctx is cancelled. Cancellation is not an error.
func (w *MirrorWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Mirror worker started")
	err := w.consumer.Consume(ctx, w.HandleRowMessage)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	s := w.Stats()
	w.logger.InfoContext(ctx, "Mirror worker stopped",
		"inserted", s.Inserted,
		"failed", s.Failed)
	return err
}

// HandleRowMessage inserts one row. A returned error makes the consumer
// requeue the message.
func (w *MirrorWorker) HandleRowMessage(ctx context.Context, msg *amqp.RowMessage) error {
	row, err := msg.Row()
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("decode row: %w", err)
	}
	if err := w.rows.Insert(ctx, row); err != nil {
		w.failed.Add(1)
		w.logger.ErrorContext(ctx, "Failed to insert remote row",
			log.FieldOperation, log.OpMirror,
			log.FieldError, err)
		return fmt.Errorf("insert row: %w", err)
	}
	w.inserted.Add(1)
	w.logger.InfoContext(ctx, "Remote row inserted",
		log.FieldOperation, log.OpMirror,
		log.FieldDescription, row.Text,
		log.FieldAmount, row.Amount.String())
	return nil
}

func (w *MirrorWorker) Stats() Stats {
	return Stats{Inserted: w.inserted.Load(), Failed: w.failed.Load()}
}
