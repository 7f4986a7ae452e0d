// Package storage provides the key-value backends that mirror ledger state.
//
// Every backend stores opaque string values under a small fixed set of keys.
// The ledger is the source of truth while running; a backend is only read
// on startup and written after each mutation.
package storage

import (
	"context"
	"errors"
)

// Keys of the persisted ledger layout.
const (
	KeyTransactions = "transactions"
	KeyBudgets      = "budgets"
	KeyCategories   = "categories"
	KeySettings     = "settings"
	KeyNextID       = "nextId"
)

// AllKeys lists every key of the persisted layout.
var AllKeys = []string{KeyTransactions, KeyBudgets, KeyCategories, KeySettings, KeyNextID}

var ErrClosed = errors.New("storage closed")

// KV is a string key-value store.
type KV interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// BatchKV is implemented by backends that can write several keys atomically.
type BatchKV interface {
	KV
	SetMany(ctx context.Context, values map[string]string) error
}

// SetAll writes values through SetMany when kv supports it, one key at a
// time otherwise.
func SetAll(ctx context.Context, kv KV, values map[string]string) error {
	if b, ok := kv.(BatchKV); ok {
		return b.SetMany(ctx, values)
	}
	for k, v := range values {
		if err := kv.Set(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}
