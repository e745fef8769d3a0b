package repository

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-billing-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/numbering"
)

var (
	_ numbering.SequenceStore = (*PostgresSequenceStore)(nil)
	_ numbering.SequenceStore = (*RedisSequenceStore)(nil)
	_ DocumentRepository      = (*PostgresDocumentRepository)(nil)
	_ CustomerRepository      = (*PostgresCustomerRepository)(nil)
	_ SettingsRepository      = (*PostgresSettingsRepository)(nil)
	_ DocumentCache           = (*RedisDocumentCache)(nil)
)

// DocumentRepository persists invoices, order forms and purchase orders.
// Create returns ErrDuplicateNumber when (tenant, number) is already taken.
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, tenantID string, kind models.DocumentKind, id string) (*models.Document, error)
	Update(ctx context.Context, doc *models.Document) error
	List(ctx context.Context, filter *models.DocumentListFilter) ([]*models.Document, int, error)
}

// CustomerRepository resolves customers by id within a tenant.
type CustomerRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*models.Customer, error)
}

// SettingsRepository reads the per-tenant settings record.
type SettingsRepository interface {
	GetByTenant(ctx context.Context, tenantID string) (*models.Settings, error)
}

// DocumentCache defines caching operations for documents.
type DocumentCache interface {
	Get(ctx context.Context, tenantID, id string) (*models.Document, error)
	Set(ctx context.Context, doc *models.Document) error
	Delete(ctx context.Context, tenantID, id string) error
}
