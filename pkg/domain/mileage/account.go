// Package mileage holds the points ledger domain: the per-user Account aggregate
// and the immutable Transaction records that explain every change to it.
package mileage

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidAmount is returned when Earn, Use or Expire receive a non-positive amount.
	ErrInvalidAmount = errors.New("points must be positive")

	// ErrAccountNotFound is returned when no account exists for the requested user.
	ErrAccountNotFound = errors.New("mileage account not found")

	// ErrConcurrentModification is returned when the account changed between read and write.
	// The whole operation has been rolled back and may be retried by the caller.
	ErrConcurrentModification = errors.New("mileage account was modified concurrently")

	// ErrPointsOverflow is returned when applying a delta would overflow int64 counters.
	ErrPointsOverflow = errors.New("points arithmetic overflow")

	// ErrInvalidKind is returned when a transaction kind is not one of EARN, USE, EXPIRE, ADJUST.
	ErrInvalidKind = errors.New("invalid transaction kind")

	// ErrInvalidRankField is returned when ranking is requested on an unknown field.
	ErrInvalidRankField = errors.New("invalid rank field")

	// ErrLedgerConstraint is returned when the store rejects a row that breaks a
	// ledger check, such as a negative Total or a zero Sequence.
	ErrLedgerConstraint = errors.New("ledger constraint violated")
)

// Account is the points aggregate of a single user.
//
// Each operation moves a fixed set of counters:
//   - Earn adds to Available and Total.
//   - Use takes from Available and adds to Used.
//   - Expire and Adjust move Available only.
//
// Total and Used therefore never decrease. Version counts the transactions
// applied so far; the n-th transaction carries Sequence n. Available is allowed
// to go negative: Use and Expire do not check sufficiency.
type Account struct {
	ID        uuid.UUID
	UserID    int64
	Available int64
	Total     int64
	Used      int64
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccount opens an empty account for userID.
func NewAccount(userID int64, now time.Time) *Account {
	return &Account{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewAccountFromData hydrates an Account from storage without validation.
func NewAccountFromData(
	id uuid.UUID,
	userID, available, total, used, version int64,
	created, updated time.Time,
) *Account {
	return &Account{
		ID:        id,
		UserID:    userID,
		Available: available,
		Total:     total,
		Used:      used,
		Version:   version,
		CreatedAt: created,
		UpdatedAt: updated,
	}
}

// Earn credits points. Returns the signed delta to record.
func (a *Account) Earn(points int64, now time.Time) (int64, error) {
	if points <= 0 {
		return 0, ErrInvalidAmount
	}
	available, err := addPoints(a.Available, points)
	if err != nil {
		return 0, err
	}
	total, err := addPoints(a.Total, points)
	if err != nil {
		return 0, err
	}
	a.Available, a.Total = available, total
	a.touch(now)
	return points, nil
}

// Use debits points spent by the user. The balance may become negative.
func (a *Account) Use(points int64, now time.Time) (int64, error) {
	if points <= 0 {
		return 0, ErrInvalidAmount
	}
	available, err := addPoints(a.Available, -points)
	if err != nil {
		return 0, err
	}
	used, err := addPoints(a.Used, points)
	if err != nil {
		return 0, err
	}
	a.Available, a.Used = available, used
	a.touch(now)
	return -points, nil
}

// Expire removes points that lapsed. Used is not affected.
func (a *Account) Expire(points int64, now time.Time) (int64, error) {
	if points <= 0 {
		return 0, ErrInvalidAmount
	}
	available, err := addPoints(a.Available, -points)
	if err != nil {
		return 0, err
	}
	a.Available = available
	a.touch(now)
	return -points, nil
}

// Adjust applies a signed correction to Available.
func (a *Account) Adjust(points int64, now time.Time) (int64, error) {
	available, err := addPoints(a.Available, points)
	if err != nil {
		return 0, err
	}
	a.Available = available
	a.touch(now)
	return points, nil
}

func (a *Account) touch(now time.Time) {
	a.Version++
	a.UpdatedAt = now
}

func addPoints(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, ErrPointsOverflow
	}
	return a + b, nil
}
