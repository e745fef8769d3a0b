// Package testutil provides in-memory implementations of the billing
// service's stores for use in tests.
package testutil

import (
	"context"
	"sort"
	"sync"

	ierr "github.com/tm-acme-shop/acme-shop-billing-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/models"
)

// InMemorySequenceStore is a mutex-guarded counter map. FailWith makes every
// Increment return that error.
type InMemorySequenceStore struct {
	mu       sync.Mutex
	counters map[string]int64
	FailWith error
	Calls    int
}

func NewInMemorySequenceStore() *InMemorySequenceStore {
	return &InMemorySequenceStore{counters: make(map[string]int64)}
}

func (s *InMemorySequenceStore) Increment(ctx context.Context, tenantID, prefix string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls++
	if s.FailWith != nil {
		return 0, s.FailWith
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	key := tenantID + "\x00" + prefix
	s.counters[key]++
	return s.counters[key], nil
}

// Set seeds a counter, e.g. to simulate numbers issued before a migration.
func (s *InMemorySequenceStore) Set(tenantID, prefix string, value int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[tenantID+"\x00"+prefix] = value
}

// InMemoryDocumentStore enforces (tenant, number) uniqueness like the
// Postgres constraint does.
type InMemoryDocumentStore struct {
	mu        sync.Mutex
	documents map[string]*models.Document
	// FailCreates makes the next N creates return ErrDuplicateNumber.
	FailCreates int
	Creates     int
	// FailUpdates is returned by every Update while set.
	FailUpdates error
}

func NewInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{documents: make(map[string]*models.Document)}
}

func (s *InMemoryDocumentStore) Create(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Creates++
	if s.FailCreates > 0 {
		s.FailCreates--
		return ierr.DuplicateNumber(errDuplicate, doc.Number)
	}
	for _, existing := range s.documents {
		if existing.TenantID == doc.TenantID && existing.Number == doc.Number {
			return ierr.DuplicateNumber(errDuplicate, doc.Number)
		}
	}

	cp := *doc
	s.documents[doc.ID] = &cp
	return nil
}

func (s *InMemoryDocumentStore) GetByID(ctx context.Context, tenantID string, kind models.DocumentKind, id string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok || doc.TenantID != tenantID || doc.Kind != kind {
		return nil, ierr.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (s *InMemoryDocumentStore) Update(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailUpdates != nil {
		return s.FailUpdates
	}
	existing, ok := s.documents[doc.ID]
	if !ok || existing.TenantID != doc.TenantID {
		return ierr.ErrNotFound
	}
	cp := *doc
	s.documents[doc.ID] = &cp
	return nil
}

func (s *InMemoryDocumentStore) List(ctx context.Context, filter *models.DocumentListFilter) ([]*models.Document, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*models.Document, 0)
	for _, doc := range s.documents {
		if doc.TenantID == filter.TenantID && doc.Kind == filter.Kind {
			cp := *doc
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Number > matched[j].Number })

	total := len(matched)
	if filter.Offset >= total {
		return []*models.Document{}, total, nil
	}
	end := total
	if filter.Limit > 0 && filter.Offset+filter.Limit < total {
		end = filter.Offset + filter.Limit
	}
	return matched[filter.Offset:end], total, nil
}

// Len returns the number of stored documents.
func (s *InMemoryDocumentStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.documents)
}

type duplicateError struct{}

func (duplicateError) Error() string { return "unique constraint violation" }

var errDuplicate error = duplicateError{}

// InMemoryCustomerStore holds customers keyed by ID.
type InMemoryCustomerStore struct {
	mu        sync.Mutex
	customers map[string]*models.Customer
}

func NewInMemoryCustomerStore(customers ...*models.Customer) *InMemoryCustomerStore {
	s := &InMemoryCustomerStore{customers: make(map[string]*models.Customer)}
	for _, c := range customers {
		s.customers[c.ID] = c
	}
	return s
}

func (s *InMemoryCustomerStore) GetByID(ctx context.Context, tenantID, id string) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok || c.TenantID != tenantID {
		return nil, ierr.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// InMemorySettingsStore returns ErrNotFound for tenants without settings.
type InMemorySettingsStore struct {
	mu       sync.Mutex
	settings map[string]*models.Settings
}

func NewInMemorySettingsStore(settings ...*models.Settings) *InMemorySettingsStore {
	s := &InMemorySettingsStore{settings: make(map[string]*models.Settings)}
	for _, st := range settings {
		s.settings[st.TenantID] = st
	}
	return s
}

func (s *InMemorySettingsStore) GetByTenant(ctx context.Context, tenantID string) (*models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.settings[tenantID]
	if !ok {
		return nil, ierr.ErrNotFound
	}
	cp := *st
	return &cp, nil
}
