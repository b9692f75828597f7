package service

import (
	"context"
	"strings"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/deeplink"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/domain"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/persist"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// User-visible contact form messages.
const (
	MsgContactFieldsRequired = "Both fields are required."
	MsgContactInvalidUpiID   = "Please enter a valid UPI ID."
	MsgContactDuplicate      = "UPI ID already exists."
)

// ============================================================
// Contacts
// ============================================================

// Contacts returns the directory, newest first.
func (w *Wallet) Contacts() []domain.UpiContact {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.UpiContact{}, w.contacts...)
}

func validateContact(req domain.ContactRequest) (domain.UpiContact, error) {
	upiID := strings.TrimSpace(req.UpiID)
	name := strings.TrimSpace(req.Name)
	if upiID == "" {
		return domain.UpiContact{}, &domain.ErrValidation{Field: "upiId", Message: MsgContactFieldsRequired}
	}
	if name == "" {
		return domain.UpiContact{}, &domain.ErrValidation{Field: "name", Message: MsgContactFieldsRequired}
	}
	if !strings.Contains(upiID, "@") {
		return domain.UpiContact{}, &domain.ErrValidation{Field: "upiId", Message: MsgContactInvalidUpiID}
	}
	return domain.NewUpiContact(upiID, name), nil
}

// indexOf returns the position of the contact whose id folds to id, skipping
// position skip. Must hold w.mu.
func (w *Wallet) indexOf(id string, skip int) int {
	for i, c := range w.contacts {
		if i != skip && deeplink.EqualFold(c.ID, id) {
			return i
		}
	}
	return -1
}

// AddContact prepends a contact. Duplicates (case-insensitive) are rejected
// with MsgContactDuplicate.
func (w *Wallet) AddContact(ctx context.Context, req domain.ContactRequest) (domain.UpiContact, error) {
	ctx, span := walletTracer.Start(ctx, "Wallet.AddContact")
	defer span.End()

	contact, err := validateContact(req)
	if err != nil {
		return domain.UpiContact{}, err
	}
	span.SetAttributes(attribute.String("contact.upi_id", contact.UpiID))

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.indexOf(contact.ID, -1) >= 0 {
		w.logger.Info("duplicate contact rejected", zap.String("upi_id", contact.UpiID))
		return domain.UpiContact{}, &domain.ErrDuplicate{Key: contact.ID, Message: MsgContactDuplicate}
	}

	w.contacts = append([]domain.UpiContact{contact}, w.contacts...)
	w.persistContacts(ctx)

	w.logger.Info("contact added", zap.String("upi_id", contact.UpiID))
	return contact, nil
}

// UpdateContact replaces the contact with the given id. The id follows the
// new UPI ID; taking another contact's id is a duplicate.
func (w *Wallet) UpdateContact(ctx context.Context, id string, req domain.ContactRequest) (domain.UpiContact, error) {
	ctx, span := walletTracer.Start(ctx, "Wallet.UpdateContact")
	defer span.End()

	contact, err := validateContact(req)
	if err != nil {
		return domain.UpiContact{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	pos := -1
	for i, c := range w.contacts {
		if c.ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return domain.UpiContact{}, &domain.ErrNotFound{Resource: "contact", ID: id}
	}
	if w.indexOf(contact.ID, pos) >= 0 {
		return domain.UpiContact{}, &domain.ErrDuplicate{Key: contact.ID, Message: MsgContactDuplicate}
	}

	contacts := append([]domain.UpiContact{}, w.contacts...)
	contacts[pos] = contact
	w.contacts = contacts
	w.persistContacts(ctx)

	w.logger.Info("contact updated",
		zap.String("old_id", id),
		zap.String("upi_id", contact.UpiID),
	)
	return contact, nil
}

// DeleteContact removes the contact with the given id.
func (w *Wallet) DeleteContact(ctx context.Context, id string) error {
	ctx, span := walletTracer.Start(ctx, "Wallet.DeleteContact")
	defer span.End()

	w.mu.Lock()
	defer w.mu.Unlock()

	kept := make([]domain.UpiContact, 0, len(w.contacts))
	for _, c := range w.contacts {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(w.contacts) {
		return &domain.ErrNotFound{Resource: "contact", ID: id}
	}
	w.contacts = kept
	w.persistContacts(ctx)

	w.logger.Info("contact deleted", zap.String("upi_id", id))
	return nil
}

// ============================================================
// Profile
// ============================================================

// Profile returns the current profile.
func (w *Wallet) Profile() domain.Profile {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.profile
}

// UpdateProfile applies the non-blank fields of upd, persisting each one
// under its own key.
func (w *Wallet) UpdateProfile(ctx context.Context, upd domain.ProfileUpdate) domain.Profile {
	ctx, span := walletTracer.Start(ctx, "Wallet.UpdateProfile")
	defer span.End()

	w.mu.Lock()
	defer w.mu.Unlock()

	var changed []string
	if v := strings.TrimSpace(upd.Name); v != "" {
		w.profile.Name = v
		w.write(ctx, persist.KeyProfileName, v)
		changed = append(changed, "name")
	}
	if v := strings.TrimSpace(upd.Phone); v != "" {
		w.profile.Phone = v
		w.write(ctx, persist.KeyProfilePhone, v)
		changed = append(changed, "phone")
	}
	if v := strings.TrimSpace(upd.Image); v != "" {
		w.profile.ImageReference = v
		w.write(ctx, persist.KeyProfileImage, v)
		changed = append(changed, "image")
	}

	if len(changed) > 0 {
		w.logger.Info("profile updated", zap.Strings("fields", changed))
	}
	return w.profile
}
