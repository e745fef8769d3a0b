package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/tm-acme-shop/acme-shop-billing-service/internal/config"
	ierr "github.com/tm-acme-shop/acme-shop-billing-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/numbering"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/repository"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/totals"
)

// EventPublisher publishes document lifecycle events.
type EventPublisher interface {
	PublishDocumentCreated(ctx context.Context, doc *models.Document) error
	PublishDocumentUpdated(ctx context.Context, doc *models.Document) error
	PublishDocumentSent(ctx context.Context, doc *models.Document, recipient string) error
}

// Mailer hands a prepared email to the notification service.
type Mailer interface {
	SendEmail(ctx context.Context, msg *models.EmailMessage) error
}

// displayPlaces is the currency precision used in outgoing emails.
const displayPlaces = 2

// DocumentService creates and maintains invoices, order forms and purchase
// orders for a tenant.
type DocumentService struct {
	documents repository.DocumentRepository
	customers repository.CustomerRepository
	settings  repository.SettingsRepository
	cache     repository.DocumentCache
	allocator *numbering.Allocator
	publisher EventPublisher
	mailer    Mailer
	metrics   *metrics.Metrics
	config    *config.Config
	logger    *logging.LoggerV2

	// fallbackLogged holds (tenant, kind) pairs whose default-prefix
	// fallback was already logged by this process.
	fallbackLogged sync.Map
	now            func() time.Time
}

// NewDocumentService creates a new document service.
func NewDocumentService(
	documents repository.DocumentRepository,
	customers repository.CustomerRepository,
	settings repository.SettingsRepository,
	cache repository.DocumentCache,
	allocator *numbering.Allocator,
	publisher EventPublisher,
	mailer Mailer,
	m *metrics.Metrics,
	cfg *config.Config,
) *DocumentService {
	return &DocumentService{
		documents: documents,
		customers: customers,
		settings:  settings,
		cache:     cache,
		allocator: allocator,
		publisher: publisher,
		mailer:    mailer,
		metrics:   m,
		config:    cfg,
		logger:    logging.NewLoggerV2("document-service"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateDocument validates req, allocates the next number for kind and
// persists the document with its computed totals. A failed allocation
// aborts the create before anything is written.
func (s *DocumentService) CreateDocument(ctx context.Context, tenantID string, kind models.DocumentKind, req *models.DocumentRequest) (*models.Document, error) {
	if tenantID == "" {
		return nil, ierr.NewValidationError("tenant_id", "tenant ID is required")
	}
	if err := ValidateDocumentRequest(kind, req); err != nil {
		return nil, err
	}

	s.logger.Info("Creating document", logging.Fields{
		"tenant_id":   tenantID,
		"kind":        kind,
		"customer_id": req.CustomerID,
		"item_count":  len(req.Items) + len(req.PurchaseItems),
	})

	if _, err := s.customers.GetByID(ctx, tenantID, req.CustomerID); err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.Wrap(err, "customer "+req.CustomerID)
		}
		s.logger.Error("Failed to load customer", logging.Fields{
			"tenant_id":   tenantID,
			"customer_id": req.CustomerID,
			"error":       err.Error(),
		})
		return nil, err
	}

	prefix, err := s.resolvePrefix(ctx, tenantID, kind)
	if err != nil {
		return nil, err
	}

	now := s.now()
	doc := &models.Document{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		Kind:       kind,
		CustomerID: req.CustomerID,
		Status:     models.DocumentStatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	applyRequest(doc, req)
	if err := totals.ValidateResult(doc.Totals); err != nil {
		return nil, err
	}

	// A duplicate number means another writer holds it (e.g. rows imported
	// ahead of the counter). Allocate once more and give up after that.
	for attempt := 0; ; attempt++ {
		number, err := s.allocate(ctx, tenantID, kind, prefix)
		if err != nil {
			return nil, err
		}
		doc.Number = number

		err = s.documents.Create(ctx, doc)
		if err == nil {
			break
		}
		if ierr.IsDuplicateNumber(err) && attempt == 0 {
			s.logger.Warn("Document number already taken, allocating again", logging.Fields{
				"tenant_id": tenantID,
				"kind":      kind,
				"number":    number,
			})
			s.metrics.DuplicateNumberRetries.WithLabelValues(string(kind)).Inc()
			continue
		}

		s.logger.Error("Failed to create document", logging.Fields{
			"tenant_id": tenantID,
			"kind":      kind,
			"number":    number,
			"error":     err.Error(),
		})
		return nil, err
	}

	if s.config.Features.EnableDocumentCaching {
		if err := s.cache.Set(ctx, doc); err != nil {
			// Log but don't fail
			s.logger.Error("Failed to cache document", logging.Fields{
				"document_id": doc.ID,
				"error":       err.Error(),
			})
		}
	}

	if s.config.Features.EnableDocumentEvents {
		if err := s.publisher.PublishDocumentCreated(ctx, doc); err != nil {
			// Log but don't fail
			s.logger.Error("Failed to publish document created event", logging.Fields{
				"document_id": doc.ID,
				"error":       err.Error(),
			})
		}
	}

	s.metrics.DocumentsCreatedTotal.WithLabelValues(string(kind)).Inc()
	s.metrics.GrandTotal.WithLabelValues(string(kind)).Observe(doc.Totals.GrandTotal)

	s.logger.Info("Document created successfully", logging.Fields{
		"document_id": doc.ID,
		"number":      doc.Number,
		"grand_total": doc.Totals.GrandTotal,
	})

	return doc, nil
}

// UpdateDocument replaces the editable fields of an existing document and
// recomputes its totals. The document number never changes.
func (s *DocumentService) UpdateDocument(ctx context.Context, tenantID string, kind models.DocumentKind, id string, req *models.DocumentRequest) (*models.Document, error) {
	if err := ValidateDocumentRequest(kind, req); err != nil {
		return nil, err
	}

	s.logger.Info("Updating document", logging.Fields{
		"tenant_id":   tenantID,
		"kind":        kind,
		"document_id": id,
	})

	doc, err := s.documents.GetByID(ctx, tenantID, kind, id)
	if err != nil {
		return nil, err
	}

	if req.CustomerID != doc.CustomerID {
		if _, err := s.customers.GetByID(ctx, tenantID, req.CustomerID); err != nil {
			return nil, err
		}
		doc.CustomerID = req.CustomerID
	}

	applyRequest(doc, req)
	if err := totals.ValidateResult(doc.Totals); err != nil {
		return nil, err
	}
	doc.UpdatedAt = s.now()

	if err := s.documents.Update(ctx, doc); err != nil {
		s.logger.Error("Failed to update document", logging.Fields{
			"document_id": id,
			"error":       err.Error(),
		})
		return nil, err
	}

	s.invalidate(ctx, doc)

	if s.config.Features.EnableDocumentEvents {
		if err := s.publisher.PublishDocumentUpdated(ctx, doc); err != nil {
			// Log but don't fail
			s.logger.Error("Failed to publish document updated event", logging.Fields{
				"document_id": doc.ID,
				"error":       err.Error(),
			})
		}
	}

	s.metrics.DocumentsUpdatedTotal.WithLabelValues(string(kind)).Inc()

	return doc, nil
}

// GetDocument retrieves a document owned by tenantID.
func (s *DocumentService) GetDocument(ctx context.Context, tenantID string, kind models.DocumentKind, id string) (*models.Document, error) {
	s.logger.Debug("Getting document", logging.Fields{"tenant_id": tenantID, "document_id": id})

	// Check cache first
	if s.config.Features.EnableDocumentCaching {
		if doc, err := s.cache.Get(ctx, tenantID, id); err == nil && doc != nil && doc.Kind == kind {
			s.logger.Debug("Document found in cache", logging.Fields{"document_id": id})
			return doc, nil
		}
	}

	doc, err := s.documents.GetByID(ctx, tenantID, kind, id)
	if err != nil {
		return nil, err
	}

	// Cache for next time
	if s.config.Features.EnableDocumentCaching {
		s.cache.Set(ctx, doc)
	}

	return doc, nil
}

// ListDocuments returns one page of the tenant's documents of kind and the
// total number of matches.
func (s *DocumentService) ListDocuments(ctx context.Context, filter *models.DocumentListFilter) ([]*models.Document, int, error) {
	if filter.TenantID == "" {
		return nil, 0, ierr.NewValidationError("tenant_id", "tenant ID is required")
	}
	if !filter.Kind.Valid() {
		return nil, 0, ierr.NewValidationError("kind", "unknown document kind")
	}
	if err := ValidateListFilter(filter); err != nil {
		return nil, 0, err
	}

	s.logger.Debug("Listing documents", logging.Fields{
		"tenant_id": filter.TenantID,
		"kind":      filter.Kind,
		"limit":     filter.Limit,
		"offset":    filter.Offset,
	})

	return s.documents.List(ctx, filter)
}

// SendInvoice hands a prepared invoice email to the notification service and
// marks the invoice sent. An empty to sends to the customer's address.
func (s *DocumentService) SendInvoice(ctx context.Context, tenantID, id, to string) (*models.Document, error) {
	doc, err := s.documents.GetByID(ctx, tenantID, models.DocumentKindInvoice, id)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.GetByID(ctx, tenantID, doc.CustomerID)
	if err != nil {
		return nil, err
	}

	to = strings.TrimSpace(to)
	if to == "" {
		to = customer.Email
	}
	if err := ValidateRecipient(to); err != nil {
		return nil, err
	}

	msg := invoiceEmail(doc, customer, to)
	if err := s.mailer.SendEmail(ctx, msg); err != nil {
		s.logger.Error("Failed to send invoice email", logging.Fields{
			"document_id": doc.ID,
			"number":      doc.Number,
			"error":       err.Error(),
		})
		return nil, ierr.Wrap(err, "send invoice "+doc.Number)
	}

	// Delivery is at-least-once: the email is already out, so a failed
	// status write leaves the invoice in draft and a retry sends it again.
	doc.Status = models.DocumentStatusSent
	doc.UpdatedAt = s.now()
	if err := s.documents.Update(ctx, doc); err != nil {
		s.logger.Error("Invoice emailed but not marked sent", logging.Fields{
			"tenant_id":   tenantID,
			"document_id": doc.ID,
			"number":      doc.Number,
			"recipient":   to,
			"email_sent":  true,
			"error":       err.Error(),
		})
		return nil, ierr.Wrap(err, "mark invoice "+doc.Number+" sent")
	}

	s.invalidate(ctx, doc)

	if s.config.Features.EnableDocumentEvents {
		if err := s.publisher.PublishDocumentSent(ctx, doc, to); err != nil {
			// Log but don't fail
			s.logger.Error("Failed to publish document sent event", logging.Fields{
				"document_id": doc.ID,
				"error":       err.Error(),
			})
		}
	}

	s.logger.Info("Invoice sent", logging.Fields{
		"document_id": doc.ID,
		"number":      doc.Number,
	})

	return doc, nil
}

// PreviewTotals computes totals for an unsaved document. Nothing is
// persisted and no number is allocated. An empty kind previews an invoice.
func (s *DocumentService) PreviewTotals(kind models.DocumentKind, req *models.DocumentRequest) (models.TotalsResult, error) {
	if kind == "" {
		kind = models.DocumentKindInvoice
	}
	if req == nil {
		return models.TotalsResult{}, ierr.NewValidationError("body", "request body is required")
	}
	if err := validateTotalsInputs(kind, req); err != nil {
		return models.TotalsResult{}, err
	}
	result := computeTotals(kind, req)
	if err := totals.ValidateResult(result); err != nil {
		return models.TotalsResult{}, err
	}
	return result, nil
}

// resolvePrefix returns the tenant's prefix for kind. A tenant without
// settings, or with an empty prefix, gets the kind default.
func (s *DocumentService) resolvePrefix(ctx context.Context, tenantID string, kind models.DocumentKind) (string, error) {
	settings, err := s.settings.GetByTenant(ctx, tenantID)
	if err != nil && !ierr.IsNotFound(err) {
		s.logger.Error("Failed to load tenant settings", logging.Fields{
			"tenant_id": tenantID,
			"error":     err.Error(),
		})
		return "", err
	}

	prefix, fallback := numbering.ResolvePrefix(settings, kind)
	if fallback {
		s.metrics.PrefixFallbacksTotal.WithLabelValues(string(kind)).Inc()
		if _, logged := s.fallbackLogged.LoadOrStore(tenantID+"\x00"+string(kind), struct{}{}); !logged {
			s.logger.Warn("Tenant has no prefix configured, using default", logging.Fields{
				"tenant_id": tenantID,
				"kind":      kind,
				"prefix":    prefix,
			})
		}
	}

	return prefix, nil
}

func (s *DocumentService) allocate(ctx context.Context, tenantID string, kind models.DocumentKind, prefix string) (string, error) {
	n, err := s.allocator.NextNumber(ctx, tenantID, prefix)
	if err != nil {
		s.metrics.SequenceAllocationsTotal.WithLabelValues(string(kind), "unavailable").Inc()
		s.logger.Error("Failed to allocate document number", logging.Fields{
			"tenant_id": tenantID,
			"prefix":    prefix,
			"error":     err.Error(),
		})
		return "", err
	}

	s.metrics.SequenceAllocationsTotal.WithLabelValues(string(kind), "ok").Inc()
	return numbering.FormatNumber(prefix, n, s.minDigits()), nil
}

func (s *DocumentService) minDigits() int {
	if s.config.Numbering.MinDigits > 0 {
		return s.config.Numbering.MinDigits
	}
	return numbering.DefaultMinDigits
}

func (s *DocumentService) invalidate(ctx context.Context, doc *models.Document) {
	if !s.config.Features.EnableDocumentCaching {
		return
	}
	s.deleteCached(ctx, doc.TenantID, doc.ID)

	// A GetDocument that loaded the row before this write can fill the cache
	// after the delete above. Deleting again bounds that stale copy to the delay.
	if delay := s.config.Redis.InvalidateDelay; delay > 0 {
		tenantID, id := doc.TenantID, doc.ID
		time.AfterFunc(delay, func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			s.deleteCached(ctx, tenantID, id)
		})
	}
}

func (s *DocumentService) deleteCached(ctx context.Context, tenantID, id string) {
	if err := s.cache.Delete(ctx, tenantID, id); err != nil {
		// Log but don't fail
		s.logger.Error("Failed to invalidate cached document", logging.Fields{
			"document_id": id,
			"error":       err.Error(),
		})
	}
}

// applyRequest copies the editable fields of req onto doc and recomputes
// its totals.
func applyRequest(doc *models.Document, req *models.DocumentRequest) {
	doc.Items = lo.Map(req.Items, func(item models.LineItem, _ int) models.LineItem {
		item.Name = strings.TrimSpace(item.Name)
		return item
	})
	doc.PurchaseItems = lo.Map(req.PurchaseItems, func(item models.PurchaseOrderItem, _ int) models.PurchaseOrderItem {
		item.Name = strings.TrimSpace(item.Name)
		return item
	})
	doc.Charges = lo.Map(req.Charges, func(charge models.AdditionalCharge, _ int) models.AdditionalCharge {
		charge.Label = strings.TrimSpace(charge.Label)
		return charge
	})
	doc.Discount = req.Discount
	doc.TaxRate = req.TaxRate
	doc.Notes = SanitizeNotes(req.Notes)

	if doc.Kind == models.DocumentKindPurchaseOrder {
		doc.Charges = nil
		doc.Discount = models.Discount{}
		doc.TaxRate = 0
	}

	doc.Totals = computeTotals(doc.Kind, req)
}

func computeTotals(kind models.DocumentKind, req *models.DocumentRequest) models.TotalsResult {
	if kind == models.DocumentKindPurchaseOrder {
		return totals.PurchaseOrderTotal(req.PurchaseItems)
	}
	return totals.ComputeTotals(req.Items, req.Charges, req.TaxRate, req.Discount)
}

func invoiceEmail(doc *models.Document, customer *models.Customer, to string) *models.EmailMessage {
	display := doc.Totals.Display(displayPlaces)
	return &models.EmailMessage{
		To:       to,
		Subject:  "Invoice " + doc.Number,
		Template: "invoice",
		Data: map[string]string{
			"number":         doc.Number,
			"customer_name":  customer.Name,
			"items_subtotal": display.ItemsSubtotal,
			"discount":       display.DiscountAmount,
			"charges":        display.ChargesTotal,
			"tax":            display.TaxAmount,
			"grand_total":    display.GrandTotal,
			"issued_at":      doc.CreatedAt.Format("2006-01-02"),
		},
	}
}
