// Package numbering allocates per-tenant document numbers such as INV-007.
//
// The Allocator keeps no state. Uniqueness under concurrent creates rests on
// the SequenceStore performing increment-and-return as one atomic operation.
package numbering

import (
	"context"
	"fmt"

	ierr "github.com/tm-acme-shop/acme-shop-billing-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/models"
)

// DefaultMinDigits is the minimum zero-padded width of a document number.
const DefaultMinDigits = 3

// SequenceStore is a durable counter keyed by (tenantID, prefix).
//
// Increment must atomically create the counter at 1 on first use or add one
// to it, and return the new value. Implementations must never read and write
// back in two separate steps.
type SequenceStore interface {
	Increment(ctx context.Context, tenantID, prefix string) (int64, error)
}

// Allocator hands out the next number for a (tenant, prefix) pair.
type Allocator struct {
	store SequenceStore
}

// NewAllocator creates an allocator over the given store.
func NewAllocator(store SequenceStore) *Allocator {
	return &Allocator{store: store}
}

// NextNumber returns the next integer in the tenant's numbering space for
// prefix. Any store failure is reported as ErrSequenceUnavailable. A failure
// caused by the caller's deadline is an unknown outcome: the counter may
// already have moved.
func (a *Allocator) NextNumber(ctx context.Context, tenantID, prefix string) (int64, error) {
	if tenantID == "" {
		return 0, ierr.NewValidationError("tenant_id", "tenant ID is required")
	}

	n, err := a.store.Increment(ctx, tenantID, prefix)
	if err != nil {
		return 0, ierr.SequenceUnavailable(err, tenantID, prefix)
	}
	if n < 1 {
		return 0, ierr.SequenceUnavailable(fmt.Errorf("store returned non-positive value %d", n), tenantID, prefix)
	}
	return n, nil
}

// FormatNumber joins prefix and n zero-padded to at least minDigits digits.
// Padding only adds digits: FormatNumber("INV-", 1500, 3) is "INV-1500".
func FormatNumber(prefix string, n int64, minDigits int) string {
	if minDigits < 1 {
		minDigits = 1
	}
	return fmt.Sprintf("%s%0*d", prefix, minDigits, n)
}

// ResolvePrefix returns the tenant's configured prefix for kind, or the kind
// default. The second result reports whether the default was used.
func ResolvePrefix(settings *models.Settings, kind models.DocumentKind) (string, bool) {
	if p := settings.PrefixFor(kind); p != "" {
		return p, false
	}
	return kind.DefaultPrefix(), true
}
