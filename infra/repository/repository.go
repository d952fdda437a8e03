package repository

import (
	"context"
	"errors"
	"time"

	"github.com/amirasaad/mileage/pkg/domain"
	"github.com/amirasaad/mileage/pkg/domain/mileage"
	"github.com/amirasaad/mileage/pkg/dto"
	"github.com/amirasaad/mileage/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates an account repository on the given session.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) GetByUserID(ctx context.Context, userID int64) (*mileage.Account, error) {
	return r.getByUserID(r.db.WithContext(ctx), userID)
}

func (r *accountRepository) GetByUserIDForUpdate(ctx context.Context, userID int64) (*mileage.Account, error) {
	q := r.db.WithContext(ctx)
	// SQLite serializes writers on its own and has no row locks.
	if q.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}
	return r.getByUserID(q, userID)
}

func (r *accountRepository) getByUserID(q *gorm.DB, userID int64) (*mileage.Account, error) {
	var row Account
	err := storeError(q.Where("user_id = ?", userID).Take(&row).Error)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mileage.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return mapAccountToDomain(&row), nil
}

func (r *accountRepository) Create(ctx context.Context, acct *mileage.Account) error {
	row := mapAccountToModel(acct)
	return storeError(r.db.WithContext(ctx).Create(&row).Error)
}

func (r *accountRepository) Update(ctx context.Context, acct *mileage.Account) error {
	res := r.db.WithContext(ctx).
		Model(&Account{}).
		Where("id = ? AND version = ?", acct.ID, acct.Version-1).
		Updates(map[string]any{
			"available":  acct.Available,
			"total":      acct.Total,
			"used":       acct.Used,
			"version":    acct.Version,
			"updated_at": acct.UpdatedAt,
		})
	if res.Error != nil {
		return storeError(res.Error)
	}
	if res.RowsAffected == 0 {
		return mileage.ErrConcurrentModification
	}
	return nil
}

func (r *accountRepository) CountGreater(ctx context.Context, field dto.RankField, value int64) (int64, error) {
	if !field.Valid() {
		return 0, mileage.ErrInvalidRankField
	}
	var n int64
	err := r.db.WithContext(ctx).
		Model(&Account{}).
		Where(clause.Gt{Column: clause.Column{Name: string(field)}, Value: value}).
		Count(&n).Error
	return n, storeError(err)
}

func (r *accountRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Account{}).Count(&n).Error
	return n, storeError(err)
}

func (r *accountRepository) Top(ctx context.Context, field dto.RankField, limit int) ([]*mileage.Account, error) {
	if !field.Valid() {
		return nil, mileage.ErrInvalidRankField
	}
	var rows []Account
	err := r.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: string(field)}, Desc: true}).
		Order("user_id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, storeError(err)
	}
	result := make([]*mileage.Account, 0, len(rows))
	for i := range rows {
		result = append(result, mapAccountToDomain(&rows[i]))
	}
	return result, nil
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates an append-only transaction repository on the given session.
func NewTransactionRepository(db *gorm.DB) repository.TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Append(ctx context.Context, tx *mileage.Transaction) error {
	row := mapTransactionToModel(tx)
	err := storeError(r.db.WithContext(ctx).Create(&row).Error)
	// another writer already holds this sequence number for the account
	if errors.Is(err, domain.ErrAlreadyExists) {
		return mileage.ErrConcurrentModification
	}
	return err
}

func (r *transactionRepository) Get(ctx context.Context, id uuid.UUID) (*mileage.Transaction, error) {
	var row Transaction
	if err := storeError(r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error); err != nil {
		return nil, err
	}
	return mapTransactionToDomain(&row), nil
}

func (r *transactionRepository) List(ctx context.Context, filter dto.TransactionFilter) ([]*mileage.Transaction, error) {
	q := r.db.WithContext(ctx).Model(&Transaction{})
	if filter.AccountID != nil {
		q = q.Where("account_id = ?", *filter.AccountID)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.Kind != nil {
		q = q.Where("type = ?", string(*filter.Kind))
	}
	if filter.SourceType != nil {
		q = q.Where("source_type = ?", *filter.SourceType)
	}
	if filter.SourceID != nil {
		q = q.Where("source_id = ?", *filter.SourceID)
	}
	q = applyPeriod(q, filter.From, filter.To)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var rows []Transaction
	if err := q.Order("created_at ASC").Order("sequence ASC").Find(&rows).Error; err != nil {
		return nil, storeError(err)
	}
	return mapTransactionsToDomain(rows), nil
}

func (r *transactionRepository) History(ctx context.Context, accountID uuid.UUID) ([]*mileage.Transaction, error) {
	var rows []Transaction
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("sequence ASC").
		Find(&rows).Error
	if err != nil {
		return nil, storeError(err)
	}
	return mapTransactionsToDomain(rows), nil
}

func (r *transactionRepository) Totals(ctx context.Context, filter dto.TotalsFilter) (dto.Totals, error) {
	q := r.db.WithContext(ctx).
		Model(&Transaction{}).
		Select(
			"COALESCE(SUM(CASE WHEN type = ? THEN points ELSE 0 END), 0) AS earned, "+
				"COALESCE(SUM(CASE WHEN type = ? THEN -points ELSE 0 END), 0) AS used, "+
				"COALESCE(SUM(CASE WHEN type = ? THEN -points ELSE 0 END), 0) AS expired, "+
				"COALESCE(SUM(CASE WHEN type = ? THEN points ELSE 0 END), 0) AS adjusted, "+
				"COUNT(*) AS transactions",
			string(mileage.KindEarn),
			string(mileage.KindUse),
			string(mileage.KindExpire),
			string(mileage.KindAdjust),
		)
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	q = applyPeriod(q, filter.From, filter.To)

	var totals dto.Totals
	if err := q.Scan(&totals).Error; err != nil {
		return dto.Totals{}, storeError(err)
	}
	return totals, nil
}

func applyPeriod(q *gorm.DB, from, to *time.Time) *gorm.DB {
	if from != nil {
		q = q.Where("created_at >= ?", from.UTC())
	}
	if to != nil {
		q = q.Where("created_at < ?", to.UTC())
	}
	return q
}

// --- Mappers ---

func mapAccountToModel(a *mileage.Account) Account {
	return Account{
		ID:        a.ID,
		UserID:    a.UserID,
		Available: a.Available,
		Total:     a.Total,
		Used:      a.Used,
		Version:   a.Version,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func mapAccountToDomain(row *Account) *mileage.Account {
	return mileage.NewAccountFromData(
		row.ID,
		row.UserID,
		row.Available,
		row.Total,
		row.Used,
		row.Version,
		row.CreatedAt.UTC(),
		row.UpdatedAt.UTC(),
	)
}

func mapTransactionToModel(tx *mileage.Transaction) Transaction {
	row := Transaction{
		ID:           tx.ID,
		AccountID:    tx.AccountID,
		Sequence:     tx.Sequence,
		UserID:       tx.UserID,
		Type:         string(tx.Kind),
		Points:       tx.Points,
		SourceID:     tx.Source.ID,
		Description:  tx.Description,
		BalanceAfter: tx.BalanceAfter,
		CreatedAt:    tx.CreatedAt,
	}
	if tx.Source.Type != "" {
		st := tx.Source.Type
		row.SourceType = &st
	}
	return row
}

func mapTransactionToDomain(row *Transaction) *mileage.Transaction {
	src := mileage.Source{ID: row.SourceID}
	if row.SourceType != nil {
		src.Type = *row.SourceType
	}
	return mileage.NewTransactionFromData(
		row.ID,
		row.AccountID,
		row.UserID,
		mileage.Kind(row.Type),
		row.Points,
		src,
		row.Description,
		row.BalanceAfter,
		row.Sequence,
		row.CreatedAt.UTC(),
	)
}

func mapTransactionsToDomain(rows []Transaction) []*mileage.Transaction {
	result := make([]*mileage.Transaction, 0, len(rows))
	for i := range rows {
		result = append(result, mapTransactionToDomain(&rows[i]))
	}
	return result
}
