// Package memory provides an in-process realtime store. Watchers receive the
// matching snapshot on subscribe and again after every matching mutation.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/interfaces"
	"github.com/bobmcallan/coinfolio/internal/models"
)

// InvestmentStore implements interfaces.InvestmentStore in memory.
type InvestmentStore struct {
	mu       sync.Mutex
	records  map[string]models.InvestmentRecord
	watchers map[uint64]*watcher
	nextID   uint64
	logger   *common.Logger
}

// watcher holds at most one pending snapshot; a newer one replaces it.
type watcher struct {
	criterion interfaces.Criterion
	ch        chan []models.InvestmentRecord
}

var _ interfaces.InvestmentStore = (*InvestmentStore)(nil)

// NewInvestmentStore creates an empty store.
func NewInvestmentStore(logger *common.Logger) *InvestmentStore {
	return &InvestmentStore{
		records:  make(map[string]models.InvestmentRecord),
		watchers: make(map[uint64]*watcher),
		logger:   logger,
	}
}

// Create stores r, assigning an ID when it has none.
func (s *InvestmentStore) Create(_ context.Context, r *models.InvestmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if _, exists := s.records[r.ID]; exists {
		return fmt.Errorf("investment %s already exists", r.ID)
	}
	s.records[r.ID] = *r
	s.notify(r)
	return nil
}

func (s *InvestmentStore) Get(_ context.Context, id string) (*models.InvestmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// Update replaces an existing record.
func (s *InvestmentStore) Update(_ context.Context, r *models.InvestmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.records[r.ID]
	if !ok {
		return fmt.Errorf("investment %s: %w", r.ID, common.ErrNotFound)
	}
	s.records[r.ID] = *r
	s.notify(&prev, r)
	return nil
}

// Delete removes a record; deleting a missing record is not an error.
func (s *InvestmentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.records[id]
	if !ok {
		return nil
	}
	delete(s.records, id)
	s.notify(&prev)
	return nil
}

func (s *InvestmentStore) ListByOwner(_ context.Context, ownerID string) ([]models.InvestmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(interfaces.Criterion{OwnerIDs: []string{ownerID}}), nil
}

func (s *InvestmentStore) ListByOwners(_ context.Context, ownerIDs []string) ([]models.InvestmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(interfaces.Criterion{OwnerIDs: ownerIDs}), nil
}

func (s *InvestmentStore) ListAll(_ context.Context) ([]models.InvestmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(interfaces.Criterion{All: true}), nil
}

// Watch registers a watcher for c. The channel is closed once ctx is done.
func (s *InvestmentStore) Watch(ctx context.Context, c interfaces.Criterion) (<-chan []models.InvestmentRecord, error) {
	w := &watcher{
		criterion: c,
		ch:        make(chan []models.InvestmentRecord, 1),
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = w
	w.ch <- s.snapshot(c)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, id)
		close(w.ch)
		s.mu.Unlock()
	}()

	return w.ch, nil
}

// WatcherCount reports the number of live watchers.
func (s *InvestmentStore) WatcherCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

// notify pushes a fresh snapshot to every watcher whose criterion covers any
// of the changed records. Callers hold s.mu, which is also held while a
// watcher channel is closed, so sends never race a close.
func (s *InvestmentStore) notify(changed ...*models.InvestmentRecord) {
	for _, w := range s.watchers {
		if !coversAny(w.criterion, changed) {
			continue
		}
		snap := s.snapshot(w.criterion)
		select {
		case <-w.ch:
		default:
		}
		select {
		case w.ch <- snap:
		default:
			s.logger.Warn().Msg("Dropped investment snapshot for slow watcher")
		}
	}
}

func coversAny(c interfaces.Criterion, records []*models.InvestmentRecord) bool {
	for _, r := range records {
		if c.Matches(r) {
			return true
		}
	}
	return false
}

// snapshot returns the matching records oldest first. Callers hold s.mu.
func (s *InvestmentStore) snapshot(c interfaces.Criterion) []models.InvestmentRecord {
	out := make([]models.InvestmentRecord, 0)
	for id := range s.records {
		r := s.records[id]
		if c.Matches(&r) {
			out = append(out, r)
		}
	}
	sortRecords(out)
	return out
}

func sortRecords(records []models.InvestmentRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
}
