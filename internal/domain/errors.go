package domain

import "fmt"

// Error types for consistent error handling across the ledger.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrDuplicateName indicates an account with the same name already exists.
type ErrDuplicateName struct {
	Name string
}

func (e *ErrDuplicateName) Error() string {
	return fmt.Sprintf("account name already taken: %s", e.Name)
}

// ErrInvalidBet indicates a bet outside the allowed range.
type ErrInvalidBet struct {
	Bet int64
	Min int64
	Max int64
}

func (e *ErrInvalidBet) Error() string {
	return fmt.Sprintf("invalid bet %d: must be between %d and %d", e.Bet, e.Min, e.Max)
}

// ErrInsufficientFunds indicates not enough balance for the operation.
type ErrInsufficientFunds struct {
	Available int64
	Required  int64
}

func (e *ErrInsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient funds: available=%d required=%d", e.Available, e.Required)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}
