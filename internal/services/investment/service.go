// Package investment manages investment records and their live subscriptions
package investment

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
var _ interfaces.InvestmentService = (*Service)(nil)

// Service implements InvestmentService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
	now     func() time.Time
}

// NewService creates a new investment service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// Create validates in and stores a new record owned by in.OwnerID.
func (s *Service) Create(ctx context.Context, in models.NewInvestment) (*models.InvestmentRecord, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	r := in.Record("", s.now().UTC())
	if err := s.storage.InvestmentStore().Create(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create investment: %w", err)
	}

	s.logger.Info().
		Str("id", r.ID).
		Str("user_id", r.OwnerID).
		Str("asset", r.AssetKey()).
		Msg("Investment created")
	return r, nil
}

// Update applies patch to the record id on behalf of actorID. Only the owner
// may update; ownership itself never changes. An empty patch returns the
// record unchanged.
func (s *Service) Update(ctx context.Context, actorID, id string, patch models.InvestmentPatch) (*models.InvestmentRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, common.InvalidArgument("investment id is required")
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	r, err := s.owned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return r, nil
	}

	patch.Apply(r)
	if err := s.storage.InvestmentStore().Update(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to update investment: %w", err)
	}

	s.logger.Info().Str("id", id).Str("user_id", actorID).Msg("Investment updated")
	return r, nil
}

// Delete removes the record id on behalf of actorID.
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	if strings.TrimSpace(id) == "" {
		return common.InvalidArgument("investment id is required")
	}
	if _, err := s.owned(ctx, actorID, id); err != nil {
		return err
	}
	if err := s.storage.InvestmentStore().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete investment: %w", err)
	}

	s.logger.Info().Str("id", id).Str("user_id", actorID).Msg("Investment deleted")
	return nil
}

// Get returns the record id or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*models.InvestmentRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, common.InvalidArgument("investment id is required")
	}
	r, err := s.storage.InvestmentStore().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get investment: %w", err)
	}
	if r == nil {
		return nil, fmt.Errorf("investment %s: %w", id, common.ErrNotFound)
	}
	return r, nil
}

func (s *Service) ListByOwner(ctx context.Context, userID string) ([]models.InvestmentRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, common.InvalidArgument("user id is required")
	}
	return s.storage.InvestmentStore().ListByOwner(ctx, userID)
}

// ListShared returns the records of every user owning one of shareCodes.
// Unknown or malformed codes are ignored.
func (s *Service) ListShared(ctx context.Context, shareCodes []string) ([]models.InvestmentRecord, error) {
	owners, err := s.ownersOf(ctx, shareCodes)
	if err != nil {
		return nil, err
	}
	if len(owners) == 0 {
		return []models.InvestmentRecord{}, nil
	}
	return s.storage.InvestmentStore().ListByOwners(ctx, owners)
}

func (s *Service) ListAll(ctx context.Context) ([]models.InvestmentRecord, error) {
	return s.storage.InvestmentStore().ListAll(ctx)
}

func (s *Service) SubscribeUser(ctx context.Context, userID string) (<-chan []models.InvestmentRecord, func(), error) {
	if strings.TrimSpace(userID) == "" {
		return nil, nil, common.InvalidArgument("user id is required")
	}
	return s.subscribe(ctx, interfaces.Criterion{OwnerIDs: []string{userID}})
}

// SubscribeShared resolves shareCodes to their owners once, then follows
// those owners' records. When no code resolves the stream carries a single
// empty snapshot and closes on cancel.
func (s *Service) SubscribeShared(ctx context.Context, shareCodes []string) (<-chan []models.InvestmentRecord, func(), error) {
	owners, err := s.ownersOf(ctx, shareCodes)
	if err != nil {
		return nil, nil, err
	}
	if len(owners) == 0 {
		return emptyStream(ctx)
	}
	return s.subscribe(ctx, interfaces.Criterion{OwnerIDs: owners})
}

func (s *Service) SubscribeAll(ctx context.Context) (<-chan []models.InvestmentRecord, func(), error) {
	return s.subscribe(ctx, interfaces.Criterion{All: true})
}

func (s *Service) subscribe(ctx context.Context, c interfaces.Criterion) (<-chan []models.InvestmentRecord, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	ch, err := s.storage.InvestmentStore().Watch(ctx, c)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to subscribe to investments: %w", err)
	}
	return ch, cancel, nil
}

func emptyStream(ctx context.Context) (<-chan []models.InvestmentRecord, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan []models.InvestmentRecord, 1)
	ch <- []models.InvestmentRecord{}
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, cancel, nil
}

// owned loads id and checks actorID owns it.
func (s *Service) owned(ctx context.Context, actorID, id string) (*models.InvestmentRecord, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorID == "" || r.OwnerID != actorID {
		return nil, fmt.Errorf("investment %s belongs to another user: %w", id, common.ErrForbidden)
	}
	return r, nil
}

// ownersOf resolves share codes to distinct owner IDs.
func (s *Service) ownersOf(ctx context.Context, shareCodes []string) ([]string, error) {
	seen := make(map[string]bool)
	var owners []string
	for _, raw := range shareCodes {
		code, ok := portfolio.NormaliseShareCode(raw)
		if !ok {
			s.logger.Debug().Str("share_code", raw).Msg("Ignoring malformed share code")
			continue
		}
		u, err := s.storage.UserStore().FindByShareCode(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve share code: %w", err)
		}
		if u == nil || seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		owners = append(owners, u.ID)
	}
	return owners, nil
}
