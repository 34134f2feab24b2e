package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/interfaces"
	"github.com/bobmcallan/coinfolio/internal/models"
)

// UserStore implements interfaces.UserStore using SurrealDB.
type UserStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

type userRow struct {
	UserID           string    `json:"user_id"`
	Email            string    `json:"email"`
	DisplayName      string    `json:"display_name"`
	ShareCode        string    `json:"share_code"`
	SharedPortfolios []string  `json:"shared_portfolios"`
	CreatedAt        time.Time `json:"created_at"`
}

func (row *userRow) user() *models.User {
	return &models.User{
		ID:               row.UserID,
		Email:            row.Email,
		DisplayName:      row.DisplayName,
		ShareCode:        row.ShareCode,
		SharedPortfolios: row.SharedPortfolios,
		CreatedAt:        row.CreatedAt,
	}
}

func NewUserStore(db *surrealdb.DB, logger *common.Logger) *UserStore {
	return &UserStore{
		db:     db,
		logger: logger,
	}
}

func (s *UserStore) Get(ctx context.Context, id string) (*models.User, error) {
	row, err := surrealdb.Select[userRow](ctx, s.db, surrealmodels.NewRecordID(userTable, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to select user %s: %w", id, err)
	}
	if row == nil || row.UserID == "" {
		return nil, nil
	}
	return row.user(), nil
}

func (s *UserStore) Save(ctx context.Context, u *models.User) error {
	sql := "UPSERT type::record('user', $id) CONTENT $user"
	shared := u.SharedPortfolios
	if shared == nil {
		shared = []string{}
	}
	vars := map[string]any{"id": u.ID, "user": userRow{
		UserID:           u.ID,
		Email:            u.Email,
		DisplayName:      u.DisplayName,
		ShareCode:        u.ShareCode,
		SharedPortfolios: shared,
		CreatedAt:        u.CreatedAt.UTC(),
	}}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]userRow](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to save user %s after retries: %w", u.ID, lastErr)
}

func (s *UserStore) FindByShareCode(ctx context.Context, code string) (*models.User, error) {
	sql := "SELECT * FROM user WHERE share_code = $code ORDER BY created_at ASC LIMIT 1"
	results, err := surrealdb.Query[[]userRow](ctx, s.db, sql, map[string]any{"code": code})
	if err != nil {
		return nil, fmt.Errorf("failed to find user by share code: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return (*results)[0].Result[0].user(), nil
}

// Compile-time check
var _ interfaces.UserStore = (*UserStore)(nil)
