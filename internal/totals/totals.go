// Package totals computes document totals from line items, additional
// charges, a discount policy and a tax rate.
//
// All arithmetic is float64 with no internal rounding. Nothing is clamped:
// a discount larger than the subtotal or a negative tax rate yields a
// negative grand total. Callers round for display.
package totals

import (
	"math"

	ierr "github.com/tm-acme-shop/acme-shop-billing-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/models"
)

// ComputeTotals returns the totals breakdown for the given inputs. It is pure
// and never fails.
func ComputeTotals(items []models.LineItem, charges []models.AdditionalCharge, taxRate float64, discount models.Discount) models.TotalsResult {
	var itemsSubtotal float64
	for _, item := range items {
		itemsSubtotal += item.Quantity * item.UnitRate
	}

	discountAmount := DiscountAmount(itemsSubtotal, discount)
	subtotalAfterDiscount := itemsSubtotal - discountAmount

	// Each charge is taken against subtotalAfterDiscount, never a running total.
	var chargesTotal float64
	for _, charge := range charges {
		chargesTotal += ChargeAmount(subtotalAfterDiscount, charge)
	}

	subtotalBeforeTax := subtotalAfterDiscount + chargesTotal
	taxAmount := subtotalBeforeTax * taxRate / 100

	return models.TotalsResult{
		ItemsSubtotal:         itemsSubtotal,
		DiscountAmount:        discountAmount,
		SubtotalAfterDiscount: subtotalAfterDiscount,
		ChargesTotal:          chargesTotal,
		TaxAmount:             taxAmount,
		GrandTotal:            subtotalBeforeTax + taxAmount,
	}
}

// DiscountAmount is zero unless the discount is enabled with a positive amount.
// Fixed discounts are not capped at the subtotal.
func DiscountAmount(itemsSubtotal float64, discount models.Discount) float64 {
	if !discount.Enabled || !(discount.Amount > 0) {
		return 0
	}
	switch discount.Kind {
	case models.ValueTypeFixed:
		return discount.Amount
	case models.ValueTypePercentage:
		return itemsSubtotal * discount.Amount / 100
	}
	return 0
}

// ChargeAmount resolves a single additional charge against the discounted subtotal.
func ChargeAmount(subtotalAfterDiscount float64, charge models.AdditionalCharge) float64 {
	if charge.ValueType == models.ValueTypePercentage {
		return subtotalAfterDiscount * charge.Amount / 100
	}
	return charge.Amount
}

// PurchaseOrderTotal is Σ(quantity * procurementPrice), computed through the
// same engine with no charges, no discount and a zero tax rate.
func PurchaseOrderTotal(items []models.PurchaseOrderItem) models.TotalsResult {
	lines := make([]models.LineItem, len(items))
	for i, item := range items {
		lines[i] = models.LineItem{
			ItemID:   item.ItemID,
			Name:     item.Name,
			Quantity: item.Quantity,
			UnitRate: item.ProcurementPrice,
		}
	}
	return ComputeTotals(lines, nil, 0, models.Discount{})
}

// ValidateInputs rejects non-finite numbers and unknown value types before
// they reach ComputeTotals. Signs are not checked.
func ValidateInputs(items []models.LineItem, charges []models.AdditionalCharge, taxRate float64, discount models.Discount) error {
	for _, item := range items {
		if !finite(item.Quantity) {
			return ierr.NewValidationError("items", "quantity must be a finite number")
		}
		if !finite(item.UnitRate) {
			return ierr.NewValidationError("items", "unit rate must be a finite number")
		}
	}

	for _, charge := range charges {
		if !charge.ValueType.Valid() {
			return ierr.NewValidationError("charges", "value type must be fixed or percentage")
		}
		if !finite(charge.Amount) {
			return ierr.NewValidationError("charges", "amount must be a finite number")
		}
	}

	if !finite(taxRate) {
		return ierr.NewValidationError("tax_rate", "tax rate must be a finite number")
	}

	if discount.Enabled && !discount.Kind.Valid() {
		return ierr.NewValidationError("discount", "kind must be fixed or percentage")
	}
	if !finite(discount.Amount) {
		return ierr.NewValidationError("discount", "amount must be a finite number")
	}

	return nil
}

// ValidatePurchaseItems is ValidateInputs for purchase order lines.
func ValidatePurchaseItems(items []models.PurchaseOrderItem) error {
	for _, item := range items {
		if !finite(item.Quantity) {
			return ierr.NewValidationError("purchase_items", "quantity must be a finite number")
		}
		if !finite(item.ProcurementPrice) {
			return ierr.NewValidationError("purchase_items", "procurement price must be a finite number")
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ValidateResult rejects totals that overflowed to ±Inf or NaN. Finite inputs
// get there when a product exceeds float64 or opposite infinities cancel.
func ValidateResult(r models.TotalsResult) error {
	for _, v := range []float64{
		r.ItemsSubtotal,
		r.DiscountAmount,
		r.SubtotalAfterDiscount,
		r.ChargesTotal,
		r.TaxAmount,
		r.GrandTotal,
	} {
		if !finite(v) {
			return ierr.NewValidationError("totals", "totals overflow")
		}
	}
	return nil
}
