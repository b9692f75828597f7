package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/domain"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/port"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Transactions
// ============================================================

type transactionsResponse struct {
	Data   []domain.Transaction      `json:"data"`
	Groups []domain.TransactionGroup `json:"groups"`
	Total  int                       `json:"total"`
}

// listTransactionsHandler returns the ledger and its month groups, filtered
// by payee name when q is set.
func listTransactionsHandler(wallet *service.Wallet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/transactions")
		defer span.End()

		groups := wallet.SearchTransactions(r.URL.Query().Get("q"))
		data := []domain.Transaction{}
		for _, g := range groups {
			data = append(data, g.Transactions...)
		}
		writeJSON(w, http.StatusOK, transactionsResponse{Data: data, Groups: groups, Total: len(data)})
	}
}

func getTransactionHandler(wallet *service.Wallet, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tx, err := wallet.Transaction(chi.URLParam(r, "txId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

func deleteTransactionHandler(wallet *service.Wallet, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/transactions/{txId}")
		defer span.End()

		id := chi.URLParam(r, "txId")
		span.SetAttributes(attribute.String("tx.id", id))
		if err := wallet.DeleteTransaction(ctx, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "transaction deleted", ID: id})
	}
}

func deleteTransactionsHandler(wallet *service.Wallet, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/delete")
		defer span.End()

		var req struct {
			IDs []string `json:"ids"`
		}
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if len(req.IDs) == 0 {
			handleServiceError(w, &domain.ErrValidation{Field: "ids", Message: "at least one id is required"}, logger)
			return
		}

		removed := wallet.DeleteTransactions(ctx, req.IDs)
		writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
	}
}

// clearTransactionsHandler wipes history. The client's confirmation dialog
// answer travels as ?confirm=true; anything else declines.
func clearTransactionsHandler(wallet *service.Wallet, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/transactions")
		defer span.End()

		confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
		answer := port.ConfirmFunc(func(context.Context, string) (bool, error) { return confirmed, nil })

		cleared, err := wallet.ClearTransactions(ctx, answer)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"cleared": cleared})
	}
}

// ============================================================
// Scan: POST /v1/scan
// ============================================================

func scanHandler(wallet *service.Wallet, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/scan")
		defer span.End()

		var req struct {
			RawValue string `json:"rawValue"`
		}
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		payee, err := wallet.ResolveScan(ctx, req.RawValue)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, payee)
	}
}
