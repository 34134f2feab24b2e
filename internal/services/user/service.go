// Package user manages user profiles and portfolio sharing
package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/interfaces"
	"github.com/bobmcallan/coinfolio/internal/models"
	"github.com/bobmcallan/coinfolio/internal/services/portfolio"
)

// Compile-time interface check
var _ interfaces.UserService = (*Service)(nil)

// Service implements UserService
type Service struct {
	storage      interfaces.StorageManager
	logger       *common.Logger
	now          func() time.Time
	newShareCode func() string
}

// NewService creates a new user service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage:      storage,
		logger:       logger,
		now:          time.Now,
		newShareCode: portfolio.GenerateShareCode,
	}
}

// EnsureProfile returns the profile for id, creating it with a fresh share
// code on first call. Existing profiles are returned untouched.
func (s *Service) EnsureProfile(ctx context.Context, id, email, displayName string) (*models.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, common.InvalidArgument("user id is required")
	}

	store := s.storage.UserStore()
	existing, err := store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	u := &models.User{
		ID:               id,
		Email:            strings.TrimSpace(email),
		DisplayName:      strings.TrimSpace(displayName),
		ShareCode:        s.newShareCode(),
		SharedPortfolios: []string{},
		CreatedAt:        s.now().UTC(),
	}

	// Collisions are not rejected; a duplicate is surfaced for operators only.
	if dup, err := store.FindByShareCode(ctx, u.ShareCode); err == nil && dup != nil {
		s.logger.Warn().Str("share_code", u.ShareCode).Str("user_id", id).Str("other_user_id", dup.ID).
			Msg("Generated share code already in use")
	}

	if err := store.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info().Str("user_id", id).Msg("User profile created")
	return u, nil
}

// Get returns the profile for id or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, common.InvalidArgument("user id is required")
	}
	u, err := s.storage.UserStore().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", id, common.ErrNotFound)
	}
	return u, nil
}

// OwnerNameByShareCode returns the public name of the user owning code.
// ok is false when no user owns it.
func (s *Service) OwnerNameByShareCode(ctx context.Context, code string) (string, bool, error) {
	code, valid := portfolio.NormaliseShareCode(code)
	if !valid {
		return "", false, common.InvalidArgument("share code must be %d letters or digits", portfolio.ShareCodeLength)
	}
	u, err := s.storage.UserStore().FindByShareCode(ctx, code)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve share code: %w", err)
	}
	if u == nil {
		return "", false, nil
	}
	return u.PublicName(), true, nil
}

// JoinShared adds code to the user's followed portfolios. It returns false
// when no user owns code; joining twice is a no-op that returns true.
func (s *Service) JoinShared(ctx context.Context, userID, code string) (bool, error) {
	code, valid := portfolio.NormaliseShareCode(code)
	if !valid {
		return false, common.InvalidArgument("share code must be %d letters or digits", portfolio.ShareCodeLength)
	}

	store := s.storage.UserStore()
	owner, err := store.FindByShareCode(ctx, code)
	if err != nil {
		return false, fmt.Errorf("failed to resolve share code: %w", err)
	}
	if owner == nil {
		return false, nil
	}

	u, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	if u.HasJoined(code) {
		return true, nil
	}

	u.SharedPortfolios = append(u.SharedPortfolios, code)
	if err := store.Save(ctx, u); err != nil {
		return false, fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info().Str("user_id", userID).Str("share_code", code).Msg("Joined shared portfolio")
	return true, nil
}
