package usecase

import (
	"errors"
	"fmt"

	"github.com/iho/txengine/internal/domain"
)

var (
	// ErrInconsistentLedger is returned when an account's total does not
	// equal its available plus held funds.
	ErrInconsistentLedger = errors.New("ledger is inconsistent: total does not equal available plus held")
)

// LedgerUseCase handles ledger-wide checks.
type LedgerUseCase struct{}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase() *LedgerUseCase {
	return &LedgerUseCase{}
}

// CheckConsistency verifies that every account is balanced. All
// offending accounts are reported in a single joined error.
func (uc *LedgerUseCase) CheckConsistency(accounts []*domain.Account) error {
	var errs []error
	for _, acc := range accounts {
		if acc.Balanced() {
			continue
		}
		errs = append(errs, fmt.Errorf(
			"%w: client=%d available=%s held=%s total=%s",
			ErrInconsistentLedger,
			acc.Client,
			acc.Available.String(),
			acc.Held.String(),
			acc.Total.String(),
		))
	}

	return errors.Join(errs...)
}
