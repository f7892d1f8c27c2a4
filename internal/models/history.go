package models

import (
	"fmt"
	"strings"
	"time"
)

type TransactionType string

const (
	TxnCharge TransactionType = "CHARGE"
	TxnUse    TransactionType = "USE"
)

func (t TransactionType) Valid() bool {
	return t == TxnCharge || t == TxnUse
}

func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
	return t, nil
}

// HistoryEntry is one immutable line of a user's point history.
// Amount is always a non-negative magnitude; Type carries the sign.
type HistoryEntry struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Amount    int64           `json:"amount"`
	Type      TransactionType `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
}

// Signed returns the entry's effect on the balance.
func (h HistoryEntry) Signed() int64 {
	if h.Type == TxnUse {
		return -h.Amount
	}
	return h.Amount
}
