// Package storage provides the record stores behind model.Store.
package storage

import (
	"fmt"

	"NetSentinel/internal/config"
	"NetSentinel/internal/model"
)

// DefaultMemoryCapacity bounds the in-memory store when no capacity is given.
const DefaultMemoryCapacity = 100000

// Open returns the store selected by cfg.Type.
func Open(cfg config.StorageConfig) (model.Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(DefaultMemoryCapacity), nil
	case "clickhouse":
		return NewClickHouseStore(cfg.ClickHouse)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

func applyLimit(limit, n int) int {
	if limit <= 0 || limit > n {
		return n
	}
	return limit
}
