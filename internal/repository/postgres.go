package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"

	"github.com/lib/pq"

	ierr "github.com/tm-acme-shop/acme-shop-billing-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/models"
)

const (
	uniqueViolation            = "23505"
	documentNumberUniqueConstr = "documents_tenant_id_number_key"
)

// PostgresDocumentRepository implements DocumentRepository using PostgreSQL.
// Item, charge, discount and totals data are stored as JSONB columns.
type PostgresDocumentRepository struct {
	db     *sql.DB
	logger *logging.LoggerV2
}

// NewPostgresDocumentRepository creates a new PostgreSQL document repository.
func NewPostgresDocumentRepository(db *sql.DB, logger *logging.LoggerV2) *PostgresDocumentRepository {
	return &PostgresDocumentRepository{
		db:     db,
		logger: logger,
	}
}

const documentColumns = `id, tenant_id, kind, number, customer_id, items, purchase_items,
		       charges, discount, tax_rate, totals, status, notes, created_at, updated_at`

// Create inserts a new document.
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	r.logger.Debug("Creating document", logging.Fields{
		"tenant_id": doc.TenantID,
		"kind":      doc.Kind,
		"number":    doc.Number,
	})

	payload, err := marshalDocumentPayload(doc)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.db.ExecContext(ctx, query,
		doc.ID,
		doc.TenantID,
		doc.Kind,
		doc.Number,
		doc.CustomerID,
		payload.items,
		payload.purchaseItems,
		payload.charges,
		payload.discount,
		doc.TaxRate,
		payload.totals,
		doc.Status,
		doc.Notes,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		if isDuplicateNumber(err) {
			r.logger.Warn("Document number already taken", logging.Fields{
				"tenant_id": doc.TenantID,
				"number":    doc.Number,
			})
			return ierr.DuplicateNumber(err, doc.Number)
		}
		r.logger.Error("Failed to create document", logging.Fields{
			"tenant_id": doc.TenantID,
			"number":    doc.Number,
			"error":     err.Error(),
		})
		return err
	}

	r.logger.Info("Document created", logging.Fields{
		"document_id": doc.ID,
		"number":      doc.Number,
		"grand_total": doc.Totals.GrandTotal,
	})
	return nil
}

// GetByID retrieves a document by id, scoped to tenant and kind.
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, tenantID string, kind models.DocumentKind, id string) (*models.Document, error) {
	r.logger.Debug("Fetching document by ID", logging.Fields{"document_id": id})

	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE id = $1 AND tenant_id = $2 AND kind = $3`

	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, id, tenantID, kind))
	if err == sql.ErrNoRows {
		return nil, ierr.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to fetch document", logging.Fields{
			"document_id": id,
			"error":       err.Error(),
		})
		return nil, err
	}
	return doc, nil
}

// Update rewrites the mutable parts of a document. Number and kind never change.
func (r *PostgresDocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	payload, err := marshalDocumentPayload(doc)
	if err != nil {
		return err
	}

	query := `
		UPDATE documents
		SET customer_id = $3, items = $4, purchase_items = $5, charges = $6, discount = $7,
		    tax_rate = $8, totals = $9, status = $10, notes = $11, updated_at = $12
		WHERE id = $1 AND tenant_id = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		doc.ID,
		doc.TenantID,
		doc.CustomerID,
		payload.items,
		payload.purchaseItems,
		payload.charges,
		payload.discount,
		doc.TaxRate,
		payload.totals,
		doc.Status,
		doc.Notes,
		doc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update document", logging.Fields{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
		return err
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ierr.ErrNotFound
	}

	r.logger.Info("Document updated", logging.Fields{
		"document_id": doc.ID,
		"grand_total": doc.Totals.GrandTotal,
	})
	return nil
}

// List retrieves a tenant's documents of one kind, newest first.
func (r *PostgresDocumentRepository) List(ctx context.Context, filter *models.DocumentListFilter) ([]*models.Document, int, error) {
	r.logger.Debug("Listing documents", logging.Fields{
		"tenant_id": filter.TenantID,
		"kind":      filter.Kind,
		"limit":     filter.Limit,
		"offset":    filter.Offset,
	})

	baseQuery := ` FROM documents WHERE tenant_id = $1 AND kind = $2`
	args := []interface{}{filter.TenantID, filter.Kind}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	selectQuery := "SELECT " + documentColumns + baseQuery +
		" ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args)+1) +
		" OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	docs := make([]*models.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

type documentPayload struct {
	items, purchaseItems, charges, discount, totals []byte
}

func marshalDocumentPayload(doc *models.Document) (*documentPayload, error) {
	var (
		p   documentPayload
		err error
	)
	if p.items, err = json.Marshal(nonNil(doc.Items)); err != nil {
		return nil, err
	}
	if p.purchaseItems, err = json.Marshal(nonNil(doc.PurchaseItems)); err != nil {
		return nil, err
	}
	if p.charges, err = json.Marshal(nonNil(doc.Charges)); err != nil {
		return nil, err
	}
	if p.discount, err = json.Marshal(doc.Discount); err != nil {
		return nil, err
	}
	if p.totals, err = json.Marshal(doc.Totals); err != nil {
		return nil, err
	}
	return &p, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var itemsJSON, purchaseJSON, chargesJSON, discountJSON, totalsJSON []byte
	var notes sql.NullString

	err := row.Scan(
		&doc.ID,
		&doc.TenantID,
		&doc.Kind,
		&doc.Number,
		&doc.CustomerID,
		&itemsJSON,
		&purchaseJSON,
		&chargesJSON,
		&discountJSON,
		&doc.TaxRate,
		&totalsJSON,
		&doc.Status,
		&notes,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		data []byte
		dst  interface{}
	}{
		{itemsJSON, &doc.Items},
		{purchaseJSON, &doc.PurchaseItems},
		{chargesJSON, &doc.Charges},
		{discountJSON, &doc.Discount},
		{totalsJSON, &doc.Totals},
	} {
		if len(f.data) == 0 {
			continue
		}
		if err := json.Unmarshal(f.data, f.dst); err != nil {
			return nil, err
		}
	}

	if notes.Valid {
		doc.Notes = notes.String
	}
	return &doc, nil
}

func isDuplicateNumber(err error) bool {
	var pqErr *pq.Error
	if !ierr.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == uniqueViolation && pqErr.Constraint == documentNumberUniqueConstr
}

// PostgresCustomerRepository reads customers with filter-by-id and
// filter-by-owner semantics.
type PostgresCustomerRepository struct {
	db     *sql.DB
	logger *logging.LoggerV2
}

func NewPostgresCustomerRepository(db *sql.DB, logger *logging.LoggerV2) *PostgresCustomerRepository {
	return &PostgresCustomerRepository{db: db, logger: logger}
}

func (r *PostgresCustomerRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Customer, error) {
	var c models.Customer
	var email sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, email FROM customers WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	).Scan(&c.ID, &c.TenantID, &c.Name, &email)
	if err == sql.ErrNoRows {
		return nil, ierr.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to fetch customer", logging.Fields{
			"customer_id": id,
			"error":       err.Error(),
		})
		return nil, err
	}
	c.Email = email.String
	return &c, nil
}

// PostgresSettingsRepository reads tenant_settings. A tenant without a row
// yields ErrNotFound.
type PostgresSettingsRepository struct {
	db *sql.DB
}

func NewPostgresSettingsRepository(db *sql.DB) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

func (r *PostgresSettingsRepository) GetByTenant(ctx context.Context, tenantID string) (*models.Settings, error) {
	var invoice, orderForm, purchaseOrder sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT invoice_prefix, order_form_prefix, purchase_order_prefix
		 FROM tenant_settings WHERE tenant_id = $1`,
		tenantID,
	).Scan(&invoice, &orderForm, &purchaseOrder)
	if err == sql.ErrNoRows {
		return nil, ierr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &models.Settings{
		TenantID:            tenantID,
		InvoicePrefix:       invoice.String,
		OrderFormPrefix:     orderForm.String,
		PurchaseOrderPrefix: purchaseOrder.String,
	}, nil
}
