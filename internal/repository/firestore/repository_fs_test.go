package firestore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	gfs "cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/ordering"
	"github.com/khanofemperia/gethsemane-sub001/internal/repository"
)

// newEmulatorClient connects to the Firestore emulator and skips the test
// when none is running.
func newEmulatorClient(t *testing.T) *gfs.Client {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	client, err := gfs.NewClient(context.Background(), "storefront-test-"+uuid.NewString()[:8])
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestCartRepositoryFS_Lifecycle(t *testing.T) {
	client := newEmulatorClient(t)
	repo := NewCartRepositoryFS(client)
	ctx := context.Background()
	ts := time.Now().UTC()

	cart := &domain.Cart{
		DeviceIdentifier: uuid.NewString(),
		Items: []domain.CartItem{
			{Type: domain.ItemTypeProduct, BaseProductID: "p1", Size: "M", VariantID: "v1", Index: 1},
		},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	require.NoError(t, repo.Create(ctx, cart))
	assert.ErrorIs(t, repo.Create(ctx, cart), repository.ErrCartAlreadyExists)

	_, err := repo.Update(ctx, cart.DeviceIdentifier, func(c *domain.Cart) error {
		c.Items = append(c.Items, domain.CartItem{Type: domain.ItemTypeProduct, BaseProductID: "p2", VariantID: "v2", Index: 2})
		return nil
	})
	require.NoError(t, err)

	found, err := repo.FindByDevice(ctx, cart.DeviceIdentifier)
	require.NoError(t, err)
	assert.Len(t, found.Items, 2)

	_, err = repo.Update(ctx, cart.DeviceIdentifier, func(c *domain.Cart) error {
		c.Items = nil
		return nil
	})
	require.NoError(t, err)

	_, err = repo.FindByDevice(ctx, cart.DeviceIdentifier)
	assert.ErrorIs(t, err, domain.ErrCartNotFound)
}

func TestCollectionRepositoryFS_UpdateAllSwap(t *testing.T) {
	client := newEmulatorClient(t)
	repo := NewCollectionRepositoryFS(client)
	ctx := context.Background()

	ids := map[string]string{}
	for _, title := range []string{"c3", "c2", "c1"} {
		c := &domain.Collection{Title: title, Slug: title, CollectionType: domain.CollectionScrollable, Visibility: domain.VisibilityDraft}
		err := repo.UpdateAll(ctx, func(all []*domain.Collection) ([]*domain.Collection, error) {
			return ordering.InsertFirst(all, c), nil
		})
		require.NoError(t, err)
		ids[title] = c.ID
	}

	err := repo.UpdateAll(ctx, func(all []*domain.Collection) ([]*domain.Collection, error) {
		return all, ordering.Swap(all, ids["c3"], 1)
	})
	require.NoError(t, err)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	got := map[string]int{}
	for _, c := range all {
		got[c.Title] = c.Index
	}
	assert.Equal(t, map[string]int{"c1": 3, "c2": 2, "c3": 1}, got)
}

func TestOrderRepositoryFS_DuplicatePayPalOrder(t *testing.T) {
	client := newEmulatorClient(t)
	repo := NewOrderRepositoryFS(client)
	ctx := context.Background()

	order := func() *domain.Order {
		return &domain.Order{PayPalOrderID: "PP-1", Status: domain.OrderPending, CreatedAt: time.Now().UTC()}
	}
	require.NoError(t, repo.Create(ctx, order()))
	assert.ErrorIs(t, repo.Create(ctx, order()), repository.ErrOrderAlreadyExists)
}

type stubJob struct{ err error }

func (j stubJob) Results() (*gfs.WriteResult, error) {
	if j.err != nil {
		return nil, j.err
	}
	return &gfs.WriteResult{}, nil
}

func TestCountDeleted_ReportsFailedDeletes(t *testing.T) {
	denied := errors.New("rpc error: code = PermissionDenied")
	unavailable := errors.New("rpc error: code = Unavailable")

	n, err := countDeleted([]stubJob{{}, {err: denied}, {}, {err: unavailable}})

	assert.Equal(t, 2, n)
	require.Error(t, err)
	assert.ErrorIs(t, err, denied)
	assert.ErrorIs(t, err, unavailable)
	assert.Contains(t, err.Error(), "failed to delete 2 idle carts")

	n, err = countDeleted([]stubJob{{}, {}})
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}
