package repository

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a mileage account record in the database.
type Account struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    int64     `gorm:"uniqueIndex;not null"`
	Available int64     `gorm:"not null;default:0"`
	Total     int64     `gorm:"not null;default:0"`
	Used      int64     `gorm:"not null;default:0"`
	Version   int64     `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for the Account model.
func (Account) TableName() string {
	return "accounts"
}

// Transaction represents a persisted ledger transaction. Rows are never updated.
type Transaction struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	AccountID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_transactions_account_sequence,priority:1"`
	Sequence     int64     `gorm:"not null;uniqueIndex:idx_transactions_account_sequence,priority:2"`
	UserID       int64     `gorm:"not null;index"`
	Type         string    `gorm:"type:varchar(16);not null;index"`
	Points       int64     `gorm:"not null"`
	SourceType   *string   `gorm:"type:varchar(50);index:idx_transactions_source,priority:1"`
	SourceID     *int64    `gorm:"index:idx_transactions_source,priority:2"`
	Description  string    `gorm:"type:text;not null;default:''"`
	BalanceAfter int64     `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null;index"`
}

// TableName specifies the table name for the Transaction model.
func (Transaction) TableName() string {
	return "transactions"
}

// Models lists every model for AutoMigrate.
func Models() []any {
	return []any{&Account{}, &Transaction{}}
}
