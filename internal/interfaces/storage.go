package interfaces

import (
	"context"

	"github.com/bobmcallan/coinfolio/internal/models"
)

// StorageManager coordinates the storage collections
type StorageManager interface {
	InvestmentStore() InvestmentStore
	UserStore() UserStore

	// Close releases backend connections
	Close() error
}

// Criterion selects which investment records a list or watch covers.
// All takes precedence over OwnerIDs; an empty OwnerIDs matches nothing.
type Criterion struct {
	OwnerIDs []string
	All      bool
}

// Matches reports whether r is covered by the criterion
func (c Criterion) Matches(r *models.InvestmentRecord) bool {
	if c.All {
		return true
	}
	for _, id := range c.OwnerIDs {
		if r.OwnerID == id {
			return true
		}
	}
	return false
}

// InvestmentStore persists investment records.
// Get returns (nil, nil) when the record does not exist.
type InvestmentStore interface {
	Create(ctx context.Context, r *models.InvestmentRecord) error
	Get(ctx context.Context, id string) (*models.InvestmentRecord, error)
	Update(ctx context.Context, r *models.InvestmentRecord) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.InvestmentRecord, error)
	ListByOwners(ctx context.Context, ownerIDs []string) ([]models.InvestmentRecord, error)
	ListAll(ctx context.Context) ([]models.InvestmentRecord, error)

	// Watch emits the matching snapshot immediately and again after every
	// change. The channel closes when ctx is done.
	Watch(ctx context.Context, c Criterion) (<-chan []models.InvestmentRecord, error)
}

// UserStore persists user profiles.
// Get and FindByShareCode return (nil, nil) when no user matches.
type UserStore interface {
	Get(ctx context.Context, id string) (*models.User, error)
	Save(ctx context.Context, u *models.User) error
	FindByShareCode(ctx context.Context, code string) (*models.User, error)
}
