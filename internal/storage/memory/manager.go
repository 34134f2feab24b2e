package memory

import (
	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/interfaces"
)

// Manager implements interfaces.StorageManager in memory. Data does not
// survive a restart.
type Manager struct {
	investments *InvestmentStore
	users       *UserStore
}

// NewManager creates an empty in-memory storage manager.
func NewManager(logger *common.Logger) *Manager {
	logger.Info().Msg("In-memory storage manager initialized")
	return &Manager{
		investments: NewInvestmentStore(logger),
		users:       NewUserStore(),
	}
}

func (m *Manager) InvestmentStore() interfaces.InvestmentStore {
	return m.investments
}

func (m *Manager) UserStore() interfaces.UserStore {
	return m.users
}

func (m *Manager) Close() error {
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
