package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/boddenberg/wager-ledger-go/internal/domain"
	"github.com/boddenberg/wager-ledger-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Game Handlers
// ============================================================

// betAmount accepts both 5 and "5".
type betAmount int64

func (b *betAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("bet must be an integer: %q", data)
	}
	*b = betAmount(n)
	return nil
}

type wagerRequest struct {
	UserID string     `json:"userId"`
	Bet    *betAmount `json:"bet"`
}

func wagerHandler(ledger *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /game")
		defer span.End()

		var req wagerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			handleServiceError(w, &domain.ErrValidation{Field: "body", Message: err.Error()}, logger)
			return
		}
		if req.UserID == "" {
			handleServiceError(w, &domain.ErrValidation{Field: "userId", Message: "required"}, logger)
			return
		}
		if req.Bet == nil {
			handleServiceError(w, &domain.ErrValidation{Field: "bet", Message: "required"}, logger)
			return
		}

		outcome, err := ledger.Wager(ctx, req.UserID, int64(*req.Bet))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, outcome)
	}
}
