package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boddenberg/wager-ledger-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// handleServiceError maps domain errors to HTTP responses.
// Insufficient funds gets 417 so callers can tell a funds precondition
// apart from malformed input.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var duplicate *domain.ErrDuplicateName
	var invalidBet *domain.ErrInvalidBet
	var insufficientFunds *domain.ErrInsufficientFunds
	var validation *domain.ErrValidation
	var circuitOpen *domain.ErrCircuitOpen

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &duplicate):
		logger.Debug("duplicate account name", zap.String("name", duplicate.Name))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &invalidBet):
		logger.Debug("invalid bet", zap.Int64("bet", invalidBet.Bet))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &insufficientFunds):
		logger.Warn("insufficient funds",
			zap.Int64("available", insufficientFunds.Available),
			zap.Int64("required", insufficientFunds.Required),
		)
		writeError(w, http.StatusExpectationFailed, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
