package repository

import (
	"errors"
	"fmt"

	"github.com/amirasaad/mileage/pkg/domain"
	"github.com/amirasaad/mileage/pkg/domain/mileage"
	"gorm.io/gorm"
)

// storeError translates a gorm result into the errors the ledger services
// branch on. It relies on gorm.Config.TranslateError so driver codes arrive
// as gorm sentinels. Anything unrecognised is returned unchanged.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ErrAlreadyExists
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		// chk_accounts_counters, chk_transactions_type or chk_transactions_sequence
		return fmt.Errorf("%w: %w", mileage.ErrLedgerConstraint, domain.ErrValidation)
	}
	return err
}
