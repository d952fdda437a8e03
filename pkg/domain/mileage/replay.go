package mileage

import "sort"

// ReplayReport is the outcome of replaying an account history.
type ReplayReport struct {
	Transactions int   `json:"transactions"`
	Replayed     int64 `json:"replayed"` // balance reconstructed from the deltas
	Stored       int64 `json:"stored"`   // Available currently held by the account
	Consistent   bool  `json:"consistent"`
	// MismatchSequence is the first sequence whose BalanceAfter disagrees
	// with the replayed balance, or whose sequence number is out of place.
	// Zero when every snapshot matches.
	MismatchSequence int64 `json:"mismatch_sequence,omitempty"`
}

// Replay sums the deltas of txs in sequence order starting from zero and
// checks every BalanceAfter snapshot along the way, then compares the result
// with acct.Available. txs is not modified.
func Replay(acct *Account, txs []*Transaction) ReplayReport {
	ordered := make([]*Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Sequence < ordered[j].Sequence
	})

	report := ReplayReport{Transactions: len(ordered), Stored: acct.Available}
	var balance int64
	mismatch := false
	for i, tx := range ordered {
		balance += tx.Points
		if !mismatch && (tx.BalanceAfter != balance || tx.Sequence != int64(i+1)) {
			mismatch = true
			report.MismatchSequence = tx.Sequence
		}
	}
	report.Replayed = balance
	report.Consistent = !mismatch &&
		balance == acct.Available &&
		int64(len(ordered)) == acct.Version
	return report
}
