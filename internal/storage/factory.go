// Package storage selects the record store backend.
package storage

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/interfaces"
	"github.com/bobmcallan/coinfolio/internal/storage/memory"
	"github.com/bobmcallan/coinfolio/internal/storage/surrealdb"
)

// Backend type constants.
const (
	BackendMemory    = "memory"
	BackendSurrealDB = "surrealdb"
)

// NewStorageManager creates the storage manager named by config.Storage.Backend.
// Supported backends: "memory" (default), "surrealdb".
func NewStorageManager(logger *common.Logger, config *common.Config) (interfaces.StorageManager, error) {
	backend := strings.ToLower(strings.TrimSpace(config.Storage.Backend))
	if backend == "" {
		backend = BackendMemory
	}

	switch backend {
	case BackendMemory:
		return memory.NewManager(logger), nil

	case BackendSurrealDB:
		return surrealdb.NewManager(logger, config)

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: memory, surrealdb)", backend)
	}
}
