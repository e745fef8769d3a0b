package service

import (
	"net/mail"
	"strings"

	ierr "github.com/tm-acme-shop/acme-shop-billing-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/totals"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxNotesLength   = 1000
)

// ValidateDocumentRequest validates a create or update payload for kind.
func ValidateDocumentRequest(kind models.DocumentKind, req *models.DocumentRequest) error {
	if req == nil {
		return ierr.NewValidationError("body", "request body is required")
	}

	if strings.TrimSpace(req.CustomerID) == "" {
		return ierr.NewValidationError("customer_id", "customer ID is required")
	}

	return validateTotalsInputs(kind, req)
}

// validateTotalsInputs checks only what the totals engine reads.
func validateTotalsInputs(kind models.DocumentKind, req *models.DocumentRequest) error {
	if !kind.Valid() {
		return ierr.NewValidationError("kind", "unknown document kind")
	}

	if kind == models.DocumentKindPurchaseOrder {
		if len(req.Items) > 0 || len(req.Charges) > 0 || req.Discount.Enabled {
			return ierr.NewValidationError("items", "purchase orders take purchase_items only")
		}
		if req.TaxRate != 0 {
			return ierr.NewValidationError("tax_rate", "purchase orders are not taxed")
		}
		return totals.ValidatePurchaseItems(req.PurchaseItems)
	}

	if len(req.PurchaseItems) > 0 {
		return ierr.NewValidationError("purchase_items", "only purchase orders take purchase_items")
	}

	return totals.ValidateInputs(req.Items, req.Charges, req.TaxRate, req.Discount)
}

// ValidateListFilter validates a list filter and applies the default and
// maximum page size.
func ValidateListFilter(filter *models.DocumentListFilter) error {
	if filter.Limit < 0 {
		return ierr.NewValidationError("limit", "limit cannot be negative")
	}

	if filter.Offset < 0 {
		return ierr.NewValidationError("offset", "offset cannot be negative")
	}

	if filter.Limit == 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	return nil
}

// ValidateRecipient checks that to is a single bare email address.
func ValidateRecipient(to string) error {
	addr, err := mail.ParseAddress(to)
	if err != nil || addr.Address != to {
		return ierr.NewValidationError("to", "a valid email address is required")
	}
	return nil
}

// SanitizeNotes trims notes and caps their length.
func SanitizeNotes(notes string) string {
	notes = strings.TrimSpace(notes)

	if runes := []rune(notes); len(runes) > maxNotesLength {
		notes = string(runes[:maxNotesLength])
	}

	return notes
}
