// Package surrealdb persists users and investments in SurrealDB.
package surrealdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/interfaces"
)

const (
	investmentTable = "investment"
	userTable       = "user"
)

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	investmentStore *InvestmentStore
	userStore       *UserStore
}

// NewManager connects, signs in and prepares the tables.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	ctx := context.Background()

	db, err := surrealdb.New(config.Storage.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Storage.Username,
		"pass": config.Storage.Password,
	}); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Storage.Namespace, config.Storage.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	if err := defineSchema(ctx, db); err != nil {
		db.Close(ctx)
		return nil, err
	}

	m := &Manager{
		db:              db,
		logger:          logger,
		investmentStore: NewInvestmentStore(db, logger, config.Storage.GetPollInterval()),
		userStore:       NewUserStore(db, logger),
	}

	logger.Info().
		Str("address", config.Storage.Address).
		Str("namespace", config.Storage.Namespace).
		Str("database", config.Storage.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

// defineSchema creates the tables and lookup indexes. SurrealDB v3 errors on
// querying tables that do not exist. The share code index is not UNIQUE:
// generated codes are stored without a collision check.
func defineSchema(ctx context.Context, db *surrealdb.DB) error {
	statements := []string{
		"DEFINE TABLE IF NOT EXISTS investment SCHEMALESS",
		"DEFINE TABLE IF NOT EXISTS user SCHEMALESS",
		"DEFINE INDEX IF NOT EXISTS investment_user_id ON investment FIELDS user_id",
		"DEFINE INDEX IF NOT EXISTS user_share_code ON user FIELDS share_code",
	}
	for _, sql := range statements {
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return fmt.Errorf("failed to run %q: %w", sql, err)
		}
	}
	return nil
}

func (m *Manager) InvestmentStore() interfaces.InvestmentStore {
	return m.investmentStore
}

func (m *Manager) UserStore() interfaces.UserStore {
	return m.userStore
}

func (m *Manager) Close() error {
	m.db.Close(context.Background())
	return nil
}

// isNotFoundError reports whether err is the driver's way of saying a record
// does not exist.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
