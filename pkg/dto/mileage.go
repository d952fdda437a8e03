package dto

import (
	"time"

	"github.com/amirasaad/mileage/pkg/domain/mileage"
	"github.com/google/uuid"
)

// TransactionFilter narrows transaction listings. Nil fields do not filter.
// From is inclusive, To is exclusive.
type TransactionFilter struct {
	AccountID  *uuid.UUID
	UserID     *int64
	Kind       *mileage.Kind
	SourceType *string
	SourceID   *int64
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// TotalsFilter restricts aggregate sums to a user and/or a [From, To) period.
type TotalsFilter struct {
	UserID *int64
	From   *time.Time
	To     *time.Time
}

// Totals are aggregate point sums over a set of transactions.
// Used and Expired are positive magnitudes; Adjusted is the signed net.
type Totals struct {
	Earned       int64 `json:"earned"`
	Used         int64 `json:"used"`
	Expired      int64 `json:"expired"`
	Adjusted     int64 `json:"adjusted"`
	Transactions int64 `json:"transactions"`
}

// Net is the balance change the totals represent.
func (t Totals) Net() int64 {
	return t.Earned - t.Used - t.Expired + t.Adjusted
}

// RankField selects the account column used for ranking.
type RankField string

// Rankable fields.
const (
	RankByAvailable RankField = "available"
	RankByTotal     RankField = "total"
)

// Valid reports whether f is a rankable column.
func (f RankField) Valid() bool {
	return f == RankByAvailable || f == RankByTotal
}

// Rank places one account against all others.
type Rank struct {
	UserID   int64     `json:"user_id"`
	By       RankField `json:"by"`
	Value    int64     `json:"value"`
	Position int64     `json:"position"`
	Accounts int64     `json:"accounts"`
}
