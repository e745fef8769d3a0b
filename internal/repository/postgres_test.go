package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierr "github.com/tm-acme-shop/acme-shop-billing-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/models"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func sampleDocument() *models.Document {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.Document{
		ID:         "doc_1",
		TenantID:   "tenant_a",
		Kind:       models.DocumentKindInvoice,
		Number:     "INV-007",
		CustomerID: "cust_1",
		Items: []models.LineItem{
			{Name: "Consulting", Quantity: 2, UnitRate: 50},
		},
		Charges: []models.AdditionalCharge{
			{Label: "Shipping", ValueType: models.ValueTypeFixed, Amount: 20},
		},
		Discount: models.Discount{},
		TaxRate:  10,
		Totals: models.TotalsResult{
			ItemsSubtotal: 100, SubtotalAfterDiscount: 100, ChargesTotal: 20, TaxAmount: 12, GrandTotal: 132,
		},
		Status:    models.DocumentStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func documentRow(t *testing.T, doc *models.Document) *sqlmock.Rows {
	t.Helper()
	mustJSON := func(v interface{}) []byte {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		return b
	}
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "kind", "number", "customer_id", "items", "purchase_items",
		"charges", "discount", "tax_rate", "totals", "status", "notes", "created_at", "updated_at",
	}).AddRow(
		doc.ID, doc.TenantID, string(doc.Kind), doc.Number, doc.CustomerID,
		mustJSON(doc.Items), []byte("[]"), mustJSON(doc.Charges), mustJSON(doc.Discount),
		doc.TaxRate, mustJSON(doc.Totals), string(doc.Status), nil, doc.CreatedAt, doc.UpdatedAt,
	)
}

func TestPostgresDocumentRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresDocumentRepository(db, logging.NewLoggerV2("test"))

	mock.ExpectExec("INSERT INTO documents").WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), sampleDocument())

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDocumentRepository_Create_DuplicateNumber(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresDocumentRepository(db, logging.NewLoggerV2("test"))

	mock.ExpectExec("INSERT INTO documents").
		WillReturnError(&pq.Error{Code: "23505", Constraint: documentNumberUniqueConstr})

	err := repo.Create(context.Background(), sampleDocument())

	require.Error(t, err)
	assert.True(t, ierr.IsDuplicateNumber(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDocumentRepository_Create_OtherConstraint(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresDocumentRepository(db, logging.NewLoggerV2("test"))

	mock.ExpectExec("INSERT INTO documents").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "documents_pkey"})

	err := repo.Create(context.Background(), sampleDocument())

	require.Error(t, err)
	assert.False(t, ierr.IsDuplicateNumber(err))
}

func TestPostgresDocumentRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresDocumentRepository(db, logging.NewLoggerV2("test"))
	want := sampleDocument()

	mock.ExpectQuery("SELECT (.+) FROM documents").
		WithArgs("doc_1", "tenant_a", "invoice").
		WillReturnRows(documentRow(t, want))

	got, err := repo.GetByID(context.Background(), "tenant_a", models.DocumentKindInvoice, "doc_1")

	require.NoError(t, err)
	assert.Equal(t, want.Number, got.Number)
	assert.Equal(t, want.Items, got.Items)
	assert.Equal(t, want.Charges, got.Charges)
	assert.Equal(t, want.Totals, got.Totals)
	assert.Equal(t, models.DocumentKindInvoice, got.Kind)
	assert.Empty(t, got.PurchaseItems)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDocumentRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresDocumentRepository(db, logging.NewLoggerV2("test"))

	mock.ExpectQuery("SELECT (.+) FROM documents").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "tenant_a", models.DocumentKindInvoice, "missing")

	assert.True(t, ierr.IsNotFound(err))
}

func TestPostgresDocumentRepository_Update_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresDocumentRepository(db, logging.NewLoggerV2("test"))

	mock.ExpectExec("UPDATE documents").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), sampleDocument())

	assert.True(t, ierr.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDocumentRepository_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresDocumentRepository(db, logging.NewLoggerV2("test"))

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("tenant_a", "invoice").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM documents (.+) LIMIT \\$3 OFFSET \\$4").
		WithArgs("tenant_a", "invoice", 20, 0).
		WillReturnRows(documentRow(t, sampleDocument()))

	docs, total, err := repo.List(context.Background(), &models.DocumentListFilter{
		TenantID: "tenant_a",
		Kind:     models.DocumentKindInvoice,
		Limit:    20,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, docs, 1)
	assert.Equal(t, "INV-007", docs[0].Number)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCustomerRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresCustomerRepository(db, logging.NewLoggerV2("test"))

	mock.ExpectQuery("SELECT id, tenant_id, name, email FROM customers").
		WithArgs("cust_1", "tenant_a").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name", "email"}).
			AddRow("cust_1", "tenant_a", "Globex", "ap@globex.test"))
	mock.ExpectQuery("SELECT id, tenant_id, name, email FROM customers").
		WithArgs("cust_1", "tenant_b").
		WillReturnError(sql.ErrNoRows)

	c, err := repo.GetByID(context.Background(), "tenant_a", "cust_1")
	require.NoError(t, err)
	assert.Equal(t, "Globex", c.Name)

	_, err = repo.GetByID(context.Background(), "tenant_b", "cust_1")
	assert.True(t, ierr.IsNotFound(err))
}

func TestPostgresSettingsRepository_GetByTenant(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSettingsRepository(db)

	mock.ExpectQuery("FROM tenant_settings").
		WithArgs("tenant_a").
		WillReturnRows(sqlmock.NewRows([]string{"invoice_prefix", "order_form_prefix", "purchase_order_prefix"}).
			AddRow("BILL-", nil, ""))

	s, err := repo.GetByTenant(context.Background(), "tenant_a")

	require.NoError(t, err)
	assert.Equal(t, "BILL-", s.InvoicePrefix)
	assert.Empty(t, s.OrderFormPrefix)
	assert.Empty(t, s.PurchaseOrderPrefix)
}

func TestIsDuplicateNumber(t *testing.T) {
	assert.True(t, isDuplicateNumber(&pq.Error{Code: "23505", Constraint: documentNumberUniqueConstr}))
	assert.False(t, isDuplicateNumber(&pq.Error{Code: "23503", Constraint: documentNumberUniqueConstr}))
	assert.False(t, isDuplicateNumber(errors.New("boom")))
}
