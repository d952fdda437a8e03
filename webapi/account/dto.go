package account

import (
	"fmt"
	"time"

	"github.com/amirasaad/mileage/pkg/domain"
	"github.com/amirasaad/mileage/pkg/domain/mileage"
	"github.com/amirasaad/mileage/pkg/dto"
	"github.com/amirasaad/mileage/pkg/service/ledger"
)

//revive:disable

// EarnRequest is the body of earn and use calls.
type EarnRequest struct {
	Points      int64  `json:"points" validate:"gt=0"`
	SourceType  string `json:"source_type" validate:"required_with=SourceID,max=50"`
	SourceID    *int64 `json:"source_id" validate:"omitempty,gt=0"`
	Description string `json:"description" validate:"max=500"`
}

// ExpireRequest is the body of an expire call.
type ExpireRequest struct {
	Points      int64  `json:"points" validate:"gt=0"`
	Description string `json:"description" validate:"max=500"`
}

// AdjustRequest is the body of an adjust call. Points is signed and may be zero.
type AdjustRequest struct {
	Points      int64  `json:"points"`
	Description string `json:"description" validate:"max=500"`
}

// TransactionQuery narrows transaction listings. Timestamps are RFC 3339.
type TransactionQuery struct {
	Kind       string `query:"kind"`
	SourceType string `query:"source_type"`
	SourceID   *int64 `query:"source_id"`
	UserID     *int64 `query:"user_id"`
	From       string `query:"from"`
	To         string `query:"to"`
	Limit      int    `query:"limit" validate:"gte=0"`
	Offset     int    `query:"offset" validate:"gte=0"`
}

// TotalsQuery restricts the aggregate sums.
type TotalsQuery struct {
	UserID *int64 `query:"user_id"`
	From   string `query:"from"`
	To     string `query:"to"`
}

// RankQuery selects the ranking column and leaderboard size.
type RankQuery struct {
	By    string `query:"by"`
	Limit int    `query:"limit" validate:"gte=0,lte=100"`
}

// AccountDTO is the API representation of an account.
type AccountDTO struct {
	ID        string `json:"id"`
	UserID    int64  `json:"user_id"`
	Available int64  `json:"available"`
	Total     int64  `json:"total"`
	Used      int64  `json:"used"`
	Version   int64  `json:"version"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// TransactionDTO is the API representation of a transaction.
type TransactionDTO struct {
	ID           string `json:"id"`
	AccountID    string `json:"account_id"`
	UserID       int64  `json:"user_id"`
	Kind         string `json:"kind"`
	Points       int64  `json:"points"`
	SourceType   string `json:"source_type,omitempty"`
	SourceID     *int64 `json:"source_id,omitempty"`
	Description  string `json:"description"`
	BalanceAfter int64  `json:"balance_after"`
	Sequence     int64  `json:"sequence"`
	CreatedAt    string `json:"created_at"`
}

// WriteResponse is returned by every ledger write.
type WriteResponse struct {
	Account     *AccountDTO     `json:"account"`
	Transaction *TransactionDTO `json:"transaction"`
}

// LeaderboardEntry is one row of the leaderboard.
type LeaderboardEntry struct {
	Position  int   `json:"position"`
	UserID    int64 `json:"user_id"`
	Available int64 `json:"available"`
	Total     int64 `json:"total"`
}

func ToAccountDTO(a *mileage.Account) *AccountDTO {
	if a == nil {
		return nil
	}
	return &AccountDTO{
		ID:        a.ID.String(),
		UserID:    a.UserID,
		Available: a.Available,
		Total:     a.Total,
		Used:      a.Used,
		Version:   a.Version,
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: a.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func ToTransactionDTO(tx *mileage.Transaction) *TransactionDTO {
	if tx == nil {
		return nil
	}
	return &TransactionDTO{
		ID:           tx.ID.String(),
		AccountID:    tx.AccountID.String(),
		UserID:       tx.UserID,
		Kind:         tx.Kind.String(),
		Points:       tx.Points,
		SourceType:   tx.Source.Type,
		SourceID:     tx.Source.ID,
		Description:  tx.Description,
		BalanceAfter: tx.BalanceAfter,
		Sequence:     tx.Sequence,
		CreatedAt:    tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func ToTransactionDTOs(txs []*mileage.Transaction) []*TransactionDTO {
	out := make([]*TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		out = append(out, ToTransactionDTO(tx))
	}
	return out
}

func ToWriteResponse(res *ledger.Result) *WriteResponse {
	return &WriteResponse{
		Account:     ToAccountDTO(res.Account),
		Transaction: ToTransactionDTO(res.Transaction),
	}
}

//revive:enable

// filter converts the query into a repository filter.
func (q *TransactionQuery) filter() (dto.TransactionFilter, error) {
	f := dto.TransactionFilter{
		UserID:   q.UserID,
		SourceID: q.SourceID,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if q.Kind != "" {
		kind, err := mileage.ParseKind(q.Kind)
		if err != nil {
			return f, err
		}
		f.Kind = &kind
	}
	if q.SourceType != "" {
		st := q.SourceType
		f.SourceType = &st
	}
	var err error
	if f.From, err = parseTime("from", q.From); err != nil {
		return f, err
	}
	if f.To, err = parseTime("to", q.To); err != nil {
		return f, err
	}
	return f, nil
}

func (q *TotalsQuery) filter() (dto.TotalsFilter, error) {
	f := dto.TotalsFilter{UserID: q.UserID}
	var err error
	if f.From, err = parseTime("from", q.From); err != nil {
		return f, err
	}
	if f.To, err = parseTime("to", q.To); err != nil {
		return f, err
	}
	return f, nil
}

func (q *RankQuery) field() (dto.RankField, error) {
	if q.By == "" {
		return dto.RankByAvailable, nil
	}
	f := dto.RankField(q.By)
	if !f.Valid() {
		return "", mileage.ErrInvalidRankField
	}
	return f, nil
}

func parseTime(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an RFC 3339 timestamp", domain.ErrValidation, name)
	}
	return &t, nil
}
