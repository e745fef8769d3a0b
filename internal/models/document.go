package models

import "time"

// DocumentKind identifies a numbered document series.
type DocumentKind string

const (
	DocumentKindInvoice       DocumentKind = "invoice"
	DocumentKindOrderForm     DocumentKind = "order_form"
	DocumentKindPurchaseOrder DocumentKind = "purchase_order"
)

// DefaultPrefix is the prefix used when a tenant has not configured one.
func (k DocumentKind) DefaultPrefix() string {
	switch k {
	case DocumentKindInvoice:
		return "INV-"
	case DocumentKindOrderForm:
		return "OF-"
	case DocumentKindPurchaseOrder:
		return "PO-"
	}
	return ""
}

func (k DocumentKind) Valid() bool {
	return k.DefaultPrefix() != ""
}

type DocumentStatus string

const (
	DocumentStatusDraft DocumentStatus = "draft"
	DocumentStatusSent  DocumentStatus = "sent"
)

// Document is the persisted form of an invoice, order form or purchase order.
// Purchase orders carry PurchaseItems, leave Items, Charges and Discount empty
// and have a zero TaxRate.
type Document struct {
	ID            string              `json:"id"`
	TenantID      string              `json:"tenant_id"`
	Kind          DocumentKind        `json:"kind"`
	Number        string              `json:"number"`
	CustomerID    string              `json:"customer_id"`
	Items         []LineItem          `json:"items,omitempty"`
	PurchaseItems []PurchaseOrderItem `json:"purchase_items,omitempty"`
	Charges       []AdditionalCharge  `json:"charges,omitempty"`
	Discount      Discount            `json:"discount"`
	TaxRate       float64             `json:"tax_rate"`
	Totals        TotalsResult        `json:"totals"`
	Status        DocumentStatus      `json:"status"`
	Notes         string              `json:"notes,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// DocumentRequest is the create/update payload shared by all document kinds.
type DocumentRequest struct {
	CustomerID    string              `json:"customer_id"`
	Items         []LineItem          `json:"items"`
	PurchaseItems []PurchaseOrderItem `json:"purchase_items"`
	Charges       []AdditionalCharge  `json:"charges"`
	Discount      Discount            `json:"discount"`
	TaxRate       float64             `json:"tax_rate"`
	Notes         string              `json:"notes"`
}

// DocumentListFilter selects documents owned by a tenant.
type DocumentListFilter struct {
	TenantID string
	Kind     DocumentKind
	Limit    int
	Offset   int
}

// Customer is the billed party. Only the fields orchestration reads are modelled.
type Customer struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// Settings is the per-tenant settings record. Empty prefixes fall back to
// the kind default.
type Settings struct {
	TenantID            string `json:"tenant_id"`
	InvoicePrefix       string `json:"invoice_prefix"`
	OrderFormPrefix     string `json:"order_form_prefix"`
	PurchaseOrderPrefix string `json:"purchase_order_prefix"`
}

// PrefixFor returns the configured prefix for kind, or "" when unset.
func (s *Settings) PrefixFor(kind DocumentKind) string {
	if s == nil {
		return ""
	}
	switch kind {
	case DocumentKindInvoice:
		return s.InvoicePrefix
	case DocumentKindOrderForm:
		return s.OrderFormPrefix
	case DocumentKindPurchaseOrder:
		return s.PurchaseOrderPrefix
	}
	return ""
}

// EmailMessage is a prepared email handed to the notification service.
// Rendering and delivery happen there.
type EmailMessage struct {
	To       string            `json:"to"`
	Subject  string            `json:"subject"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data"`
}
