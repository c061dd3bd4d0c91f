package domain

import "time"

// ============================================================
// Accounts
// ============================================================

// Account is a credit-holding identity. Balance is never negative.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Balance   int64     `json:"credit"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultDepositAmount is the fixed top-up applied by a deposit.
const DefaultDepositAmount int64 = 10
