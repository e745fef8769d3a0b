package models

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// ValueType tags a discount or additional charge as a flat amount or a percentage.
type ValueType string

const (
	ValueTypeFixed      ValueType = "fixed"
	ValueTypePercentage ValueType = "percentage"
)

// Valid reports whether v is a known value type.
func (v ValueType) Valid() bool {
	return v == ValueTypeFixed || v == ValueTypePercentage
}

// LineItem is a billed line. Only Quantity and UnitRate take part in totals.
type LineItem struct {
	ItemID      string  `json:"item_id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Quantity    float64 `json:"quantity"`
	UnitRate    float64 `json:"unit_rate"`
}

// PurchaseOrderItem is a procured line on a purchase order.
type PurchaseOrderItem struct {
	ItemID           string  `json:"item_id,omitempty"`
	Name             string  `json:"name"`
	Quantity         float64 `json:"quantity"`
	ProcurementPrice float64 `json:"procurement_price"`
}

// AdditionalCharge is a fee added after the items subtotal and discount.
type AdditionalCharge struct {
	Label     string    `json:"label,omitempty"`
	ValueType ValueType `json:"value_type"`
	Amount    float64   `json:"amount"`
}

// Discount is the document-level discount policy.
type Discount struct {
	Enabled bool      `json:"enabled"`
	Kind    ValueType `json:"kind"`
	Amount  float64   `json:"amount"`
}

// TotalsResult is the breakdown embedded into a document at save time.
// SubtotalAfterDiscount and ChargesTotal are intermediate values exposed so
// update paths do not have to re-derive them.
type TotalsResult struct {
	ItemsSubtotal         float64 `json:"items_subtotal"`
	DiscountAmount        float64 `json:"discount_amount"`
	SubtotalAfterDiscount float64 `json:"subtotal_after_discount"`
	ChargesTotal          float64 `json:"charges_total"`
	TaxAmount             float64 `json:"tax_amount"`
	GrandTotal            float64 `json:"grand_total"`
}

// DisplayTotals is TotalsResult rounded to currency precision for presentation.
type DisplayTotals struct {
	ItemsSubtotal         string `json:"items_subtotal"`
	DiscountAmount        string `json:"discount_amount"`
	SubtotalAfterDiscount string `json:"subtotal_after_discount"`
	ChargesTotal          string `json:"charges_total"`
	TaxAmount             string `json:"tax_amount"`
	GrandTotal            string `json:"grand_total"`
}

// Display rounds every field half away from zero to the given number of places.
// Non-finite fields are rendered as "+Inf", "-Inf" or "NaN".
func (t TotalsResult) Display(places int32) DisplayTotals {
	f := func(v float64) string {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
		return decimal.NewFromFloat(v).StringFixed(places)
	}
	return DisplayTotals{
		ItemsSubtotal:         f(t.ItemsSubtotal),
		DiscountAmount:        f(t.DiscountAmount),
		SubtotalAfterDiscount: f(t.SubtotalAfterDiscount),
		ChargesTotal:          f(t.ChargesTotal),
		TaxAmount:             f(t.TaxAmount),
		GrandTotal:            f(t.GrandTotal),
	}
}
