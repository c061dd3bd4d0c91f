package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/boddenberg/wager-ledger-go/internal/domain"
	"github.com/boddenberg/wager-ledger-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// maxNameBytes bounds the text/plain body of POST /user.
const maxNameBytes = 1 << 10

// ============================================================
// Accounts Handlers
// ============================================================

// createAccountHandler takes the account name as a text/plain body.
func createAccountHandler(ledger *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /user")
		defer span.End()

		body, err := io.ReadAll(io.LimitReader(r.Body, maxNameBytes+1))
		if err != nil {
			handleServiceError(w, &domain.ErrValidation{Field: "name", Message: "unreadable body"}, logger)
			return
		}
		if len(body) > maxNameBytes {
			handleServiceError(w, &domain.ErrValidation{Field: "name", Message: "too long"}, logger)
			return
		}

		acct, err := ledger.CreateAccount(ctx, strings.TrimSpace(string(body)))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("account.id", acct.ID))
		writeJSON(w, http.StatusCreated, acct)
	}
}

func getAccountHandler(ledger *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /user/{id}")
		defer span.End()

		acct, err := ledger.GetAccount(ctx, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, acct)
	}
}

func depositHandler(ledger *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /user/{id}/credit")
		defer span.End()

		acct, err := ledger.Deposit(ctx, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, acct)
	}
}
