package mileage

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a balance-changing event.
type Kind string

// Transaction kinds.
const (
	KindEarn   Kind = "EARN"
	KindUse    Kind = "USE"
	KindExpire Kind = "EXPIRE"
	KindAdjust Kind = "ADJUST"
)

// Kinds lists every valid kind in a stable order.
var Kinds = []Kind{KindEarn, KindUse, KindExpire, KindAdjust}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindEarn, KindUse, KindExpire, KindAdjust:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

// ParseKind accepts any letter case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", ErrInvalidKind
	}
	return k, nil
}

// Source identifies what triggered a transaction, e.g. a program completion.
type Source struct {
	Type string
	ID   *int64
}

// IsZero reports whether no source was recorded.
func (s Source) IsZero() bool { return s.Type == "" && s.ID == nil }

// Transaction is an immutable record of one balance change.
// BalanceAfter is the account's Available immediately after the change.
type Transaction struct {
	ID           uuid.UUID
	AccountID    uuid.UUID
	UserID       int64
	Kind         Kind
	Points       int64
	Source       Source
	Description  string
	BalanceAfter int64
	Sequence     int64
	CreatedAt    time.Time
}

// NewTransaction records the state of an account that has already been mutated.
// It reads the account and never changes it.
func NewTransaction(
	acct *Account,
	kind Kind,
	points int64,
	source Source,
	description string,
	now time.Time,
) *Transaction {
	return &Transaction{
		ID:           uuid.New(),
		AccountID:    acct.ID,
		UserID:       acct.UserID,
		Kind:         kind,
		Points:       points,
		Source:       source,
		Description:  description,
		BalanceAfter: acct.Available,
		Sequence:     acct.Version,
		CreatedAt:    now,
	}
}

// NewTransactionFromData hydrates a Transaction from storage.
func NewTransactionFromData(
	id, accountID uuid.UUID,
	userID int64,
	kind Kind,
	points int64,
	source Source,
	description string,
	balanceAfter, sequence int64,
	created time.Time,
) *Transaction {
	return &Transaction{
		ID:           id,
		AccountID:    accountID,
		UserID:       userID,
		Kind:         kind,
		Points:       points,
		Source:       source,
		Description:  description,
		BalanceAfter: balanceAfter,
		Sequence:     sequence,
		CreatedAt:    created,
	}
}
