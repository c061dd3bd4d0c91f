package domain

// ============================================================
// Wagers
// ============================================================

// Symbol is one value of the fixed outcome space.
type Symbol int

// The outcome space is the ten symbols 0..9. WinningSymbol is the only
// symbol that pays out, so a single draw wins with probability 1/10.
const (
	SymbolCount   = 10
	WinningSymbol = Symbol(1)
)

// Symbols returns the outcome space in ascending order.
func Symbols() []Symbol {
	s := make([]Symbol, SymbolCount)
	for i := range s {
		s[i] = Symbol(i)
	}
	return s
}

// WagerRules are the engine limits applied to every bet.
type WagerRules struct {
	MinBet           int64
	MaxBet           int64
	PayoutMultiplier int64
}

// DefaultWagerRules returns the standard table limits: bets of 1..20 and
// a win that credits 100x the bet without deducting the stake.
func DefaultWagerRules() WagerRules {
	return WagerRules{MinBet: 1, MaxBet: 20, PayoutMultiplier: 100}
}

// WagerOutcome is returned to the caller and never stored.
type WagerOutcome struct {
	AccountID string `json:"userId"`
	Bet       int64  `json:"bet"`
	Result    Symbol `json:"result"`
	Won       bool   `json:"win"`
	Balance   int64  `json:"credit"`
}
