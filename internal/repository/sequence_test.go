package repository

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	ierr "github.com/tm-acme-shop/acme-shop-billing-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/numbering"
)

func TestPostgresSequenceStore_Increment(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresSequenceStore(db, logging.NewLoggerV2("test"))

	mock.ExpectQuery("INSERT INTO document_sequences (.+) ON CONFLICT \\(tenant_id, prefix\\) DO UPDATE (.+) RETURNING last_value").
		WithArgs("tenant_a", "INV-").
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(int64(7)))

	n, err := store.Increment(context.Background(), "tenant_a", "INV-")

	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSequenceStore_FailureSurfacesAsSequenceUnavailable(t *testing.T) {
	db, mock := newMockDB(t)
	allocator := numbering.NewAllocator(NewPostgresSequenceStore(db, logging.NewLoggerV2("test")))

	mock.ExpectQuery("INSERT INTO document_sequences").
		WillReturnError(errors.New("connection reset by peer"))

	_, err := allocator.NextNumber(context.Background(), "tenant_a", "INV-")

	assert.True(t, ierr.IsSequenceUnavailable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func setupRedisSequenceStore(t *testing.T) (*RedisSequenceStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisSequenceStore(client, logging.NewLoggerV2("test")), mr
}

func TestRedisSequenceStore_StartsAtOneAndIsScoped(t *testing.T) {
	store, _ := setupRedisSequenceStore(t)
	ctx := context.Background()

	n, err := store.Increment(ctx, "tenant_a", "INV-")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, _ = store.Increment(ctx, "tenant_a", "INV-")
	assert.Equal(t, int64(2), n)

	n, _ = store.Increment(ctx, "tenant_b", "INV-")
	assert.Equal(t, int64(1), n)

	n, _ = store.Increment(ctx, "tenant_a", "PO-")
	assert.Equal(t, int64(1), n)
}

func TestRedisSequenceStore_KeysDoNotCollide(t *testing.T) {
	store, _ := setupRedisSequenceStore(t)
	ctx := context.Background()

	a, _ := store.Increment(ctx, "a:b", "c")
	b, _ := store.Increment(ctx, "a", "b:c")

	assert.Equal(t, int64(1), a)
	assert.Equal(t, int64(1), b)
	assert.NotEqual(t, sequenceKey("a:b", "c"), sequenceKey("a", "b:c"))
}

func TestRedisSequenceStore_ConcurrentAllocations(t *testing.T) {
	store, _ := setupRedisSequenceStore(t)
	allocator := numbering.NewAllocator(store)

	const workers = 50
	results := make([]int64, workers)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			n, err := allocator.NextNumber(ctx, "tenant_a", "INV-")
			results[i] = n
			return err
		})
	}
	require.NoError(t, g.Wait())

	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	for i, n := range results {
		assert.Equal(t, int64(i+1), n)
	}
}

func TestRedisSequenceStore_Unavailable(t *testing.T) {
	store, mr := setupRedisSequenceStore(t)
	mr.Close()

	_, err := numbering.NewAllocator(store).NextNumber(context.Background(), "tenant_a", "INV-")

	assert.True(t, ierr.IsSequenceUnavailable(err))
}
