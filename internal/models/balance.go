package models

import "time"

type Balance struct {
	UserID        int64     `json:"user_id"`
	Amount        int64     `json:"amount"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// EmptyBalance is what stores return for a user they have never seen.
func EmptyBalance(userID int64) Balance {
	return Balance{UserID: userID}
}
