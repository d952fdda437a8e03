package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/amirasaad/mileage/pkg/domain"
	"github.com/amirasaad/mileage/pkg/domain/mileage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestStoreError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input error
		want  []error
	}{
		{name: "record not found", input: gorm.ErrRecordNotFound, want: []error{domain.ErrNotFound}},
		{name: "duplicate key", input: gorm.ErrDuplicatedKey, want: []error{domain.ErrAlreadyExists}},
		{
			name:  "check constraint",
			input: gorm.ErrCheckConstraintViolated,
			want:  []error{mileage.ErrLedgerConstraint, domain.ErrValidation},
		},
		{
			name:  "wrapped check constraint",
			input: fmt.Errorf("update accounts: %w", gorm.ErrCheckConstraintViolated),
			want:  []error{mileage.ErrLedgerConstraint, domain.ErrValidation},
		},
		{
			name:  "joined duplicate key",
			input: errors.Join(errors.New("outer"), gorm.ErrDuplicatedKey),
			want:  []error{domain.ErrAlreadyExists},
		},
		{
			name:  "wrapped record not found",
			input: fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound),
			want:  []error{domain.ErrNotFound},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := storeError(tt.input)
			for _, want := range tt.want {
				assert.ErrorIs(t, got, want)
			}
		})
	}

	t.Run("nil stays nil", func(t *testing.T) {
		require.NoError(t, storeError(nil))
	})

	t.Run("foreign key is not a ledger error", func(t *testing.T) {
		got := storeError(gorm.ErrForeignKeyViolated)
		assert.ErrorIs(t, got, gorm.ErrForeignKeyViolated)
		assert.NotErrorIs(t, got, mileage.ErrLedgerConstraint)
	})

	t.Run("unknown errors pass through", func(t *testing.T) {
		orig := errors.New("connection reset")
		assert.Same(t, orig, storeError(orig))
	})
}
