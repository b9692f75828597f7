package handler

import (
	"net/http"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/domain"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Tabs: GET /v1/tabs/{tab}
// ============================================================

func tabHandler(wallet *service.Wallet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/tabs/{tab}")
		defer span.End()

		tab := domain.ParseNavTab(chi.URLParam(r, "tab"))
		span.SetAttributes(attribute.String("tab", string(tab)))
		writeJSON(w, http.StatusOK, wallet.TabView(tab))
	}
}

// ============================================================
// Profile
// ============================================================

func getProfileHandler(wallet *service.Wallet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, wallet.Profile())
	}
}

func updateProfileHandler(wallet *service.Wallet, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/profile")
		defer span.End()

		var req domain.ProfileUpdate
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, wallet.UpdateProfile(ctx, req))
	}
}

// ============================================================
// Contacts
// ============================================================

func listContactsHandler(wallet *service.Wallet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contacts := wallet.Contacts()
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.UpiContact]{Data: contacts, Total: len(contacts)})
	}
}

func addContactHandler(wallet *service.Wallet, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/contacts")
		defer span.End()

		var req domain.ContactRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		contact, err := wallet.AddContact(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, contact)
	}
}

func updateContactHandler(wallet *service.Wallet, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/contacts/{contactId}")
		defer span.End()

		id := chi.URLParam(r, "contactId")
		span.SetAttributes(attribute.String("contact.id", id))

		var req domain.ContactRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		contact, err := wallet.UpdateContact(ctx, id, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, contact)
	}
}

func deleteContactHandler(wallet *service.Wallet, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/contacts/{contactId}")
		defer span.End()

		id := chi.URLParam(r, "contactId")
		if err := wallet.DeleteContact(ctx, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "contact deleted", ID: id})
	}
}
