package handler

import (
	"net/http"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/domain"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Payment sessions
// ============================================================

type openSessionRequest struct {
	Payee         *domain.PayeeInfo `json:"payee,omitempty"`
	TransactionID string            `json:"transactionId,omitempty"`
}

// openSessionHandler opens a payment details screen for a payee, or the
// receipt of a past transaction. Exactly one of the two must be given.
func openSessionHandler(sessions *service.SessionManager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/payments/sessions")
		defer span.End()

		var req openSessionRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var (
			open *service.OpenSession
			err  error
		)
		switch {
		case req.Payee != nil && req.TransactionID == "":
			_, open, err = sessions.OpenForPayee(ctx, *req.Payee)
		case req.Payee == nil && req.TransactionID != "":
			_, open, err = sessions.OpenForTransaction(ctx, req.TransactionID)
		default:
			err = &domain.ErrValidation{Field: "body", Message: "exactly one of payee or transactionId is required"}
		}
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		span.SetAttributes(attribute.String("session.id", open.Session.SessionID))
		writeJSON(w, http.StatusCreated, open)
	}
}

// sessionAction resolves the caller's session and applies fn to it.
func sessionAction(sessions *service.SessionManager, logger *zap.Logger, name string, fn func(*service.PaymentSession, *http.Request) (domain.SessionSnapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), name)
		defer span.End()

		sid := SessionIDFromContext(r.Context())
		span.SetAttributes(attribute.String("session.id", sid))

		s, err := sessions.Lookup(sid)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		snap, err := fn(s, r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func setAmountHandler(sessions *service.SessionManager, logger *zap.Logger) http.HandlerFunc {
	return sessionAction(sessions, logger, "PUT /v1/payments/session/amount", func(s *service.PaymentSession, r *http.Request) (domain.SessionSnapshot, error) {
		var req struct {
			Amount string `json:"amount"`
		}
		if err := decodeJSON(r, &req); err != nil {
			return domain.SessionSnapshot{}, err
		}
		return s.SetAmount(req.Amount)
	})
}

func pressDigitHandler(sessions *service.SessionManager, logger *zap.Logger) http.HandlerFunc {
	return sessionAction(sessions, logger, "POST /v1/payments/session/pin", func(s *service.PaymentSession, r *http.Request) (domain.SessionSnapshot, error) {
		var req struct {
			Digit string `json:"digit"`
		}
		if err := decodeJSON(r, &req); err != nil {
			return domain.SessionSnapshot{}, err
		}
		return s.PressDigit(req.Digit)
	})
}

// doneHandler closes the session ("Done" on the success screen).
func doneHandler(sessions *service.SessionManager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "DELETE /v1/payments/session")
		defer span.End()

		sid := SessionIDFromContext(r.Context())
		if err := sessions.Done(sid); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
