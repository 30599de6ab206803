package accounts

import (
	"fmt"

	"github.com/cleared-dev/bankrec/internal/config"
)

// Service provides in-memory lookup over the bank accounts configured for
// reconciliation.
type Service struct {
	accounts []config.BankAccount
	byID     map[int]config.BankAccount
}

// NewService creates a Service from the configured bank accounts.
func NewService(accounts []config.BankAccount) *Service {
	byID := make(map[int]config.BankAccount, len(accounts))
	for _, a := range accounts {
		byID[a.AccountID] = a
	}
	return &Service{accounts: accounts, byID: byID}
}

// FromConfig builds a Service from a loaded config.
func FromConfig(cfg *config.Config) *Service {
	return NewService(cfg.BankAccounts)
}

// All returns all accounts in config order.
func (s *Service) All() []config.BankAccount {
	return s.accounts
}

// Get returns an account by ledger account ID.
func (s *Service) Get(id int) (config.BankAccount, bool) {
	a, ok := s.byID[id]
	return a, ok
}

// Exists reports whether an account ID is configured.
func (s *Service) Exists(id int) bool {
	_, ok := s.byID[id]
	return ok
}

// Currency returns the account's currency code.
func (s *Service) Currency(id int) (string, error) {
	a, ok := s.byID[id]
	if !ok {
		return "", fmt.Errorf("account %d is not configured", id)
	}
	return a.Currency, nil
}
