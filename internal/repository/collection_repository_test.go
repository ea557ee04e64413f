package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/ordering"
)

func resetCollections(t *testing.T) {
	t.Helper()
	_, err := testDB.Exec("DELETE FROM collections")
	require.NoError(t, err)
}

func newTestCollection(title string) *domain.Collection {
	ts := now()
	return &domain.Collection{
		Title:          title,
		Slug:           title,
		CollectionType: domain.CollectionFeatured,
		CampaignDuration: domain.CampaignDuration{
			StartDate: ts.Add(-time.Hour),
			EndDate:   ts.Add(24 * time.Hour),
		},
		Products:   []domain.CollectionProduct{{ID: "p1", Index: 1}},
		Visibility: domain.VisibilityPublished,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
}

func insertFirst(t *testing.T, repo CollectionRepository, c *domain.Collection) {
	t.Helper()
	err := repo.UpdateAll(context.Background(), func(all []*domain.Collection) ([]*domain.Collection, error) {
		return ordering.InsertFirst(all, c), nil
	})
	require.NoError(t, err)
}

func TestCollectionRepository_UpdateAllInsertsAndDeletes(t *testing.T) {
	resetCollections(t)
	repo := NewCollectionRepository(testDB)
	ctx := context.Background()

	for _, title := range []string{"c3", "c2", "c1"} {
		insertFirst(t, repo, newTestCollection(title))
	}

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c1", "c2", "c3"}, []string{all[0].Title, all[1].Title, all[2].Title})

	err = repo.UpdateAll(ctx, func(all []*domain.Collection) ([]*domain.Collection, error) {
		out, _ := ordering.RemoveFunc(all, func(c *domain.Collection) bool { return c.Title == "c2" })
		return out, nil
	})
	require.NoError(t, err)

	all, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c1", all[0].Title)
	assert.Equal(t, 1, all[0].Index)
	assert.Equal(t, "c3", all[1].Title)
	assert.Equal(t, 2, all[1].Index)
}

func TestCollectionRepository_SwapScenario(t *testing.T) {
	resetCollections(t)
	repo := NewCollectionRepository(testDB)
	ctx := context.Background()

	ids := map[string]string{}
	for _, title := range []string{"c3", "c2", "c1"} {
		c := newTestCollection(title)
		insertFirst(t, repo, c)
		ids[title] = c.ID
	}

	err := repo.UpdateAll(ctx, func(all []*domain.Collection) ([]*domain.Collection, error) {
		return all, ordering.Swap(all, ids["c3"], 1)
	})
	require.NoError(t, err)

	got := map[string]int{}
	all, err := repo.List(ctx)
	require.NoError(t, err)
	for _, c := range all {
		got[c.Title] = c.Index
	}
	assert.Equal(t, map[string]int{"c1": 3, "c2": 2, "c3": 1}, got)
}

func TestCollectionRepository_FailedCallbackLeavesSetUntouched(t *testing.T) {
	resetCollections(t)
	repo := NewCollectionRepository(testDB)
	ctx := context.Background()

	for _, title := range []string{"b", "a"} {
		insertFirst(t, repo, newTestCollection(title))
	}

	err := repo.UpdateAll(ctx, func(all []*domain.Collection) ([]*domain.Collection, error) {
		return all, ordering.Swap(all, all[0].ID, 9)
	})
	assert.ErrorIs(t, err, ordering.ErrInvalidIndex)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.True(t, ordering.IsContiguous(all))
}

func TestCollectionRepository_UpdateEmbeddedProducts(t *testing.T) {
	resetCollections(t)
	repo := NewCollectionRepository(testDB)
	ctx := context.Background()

	c := newTestCollection("embedded")
	c.BannerImages = &domain.BannerImages{DesktopImage: "d.png", MobileImage: "m.png"}
	insertFirst(t, repo, c)

	_, err := repo.Update(ctx, c.ID, func(c *domain.Collection) error {
		c.SetProducts(ordering.InsertFirst(c.ProductPointers(), &domain.CollectionProduct{ID: "p2"}))
		return nil
	})
	require.NoError(t, err)

	found, err := repo.FindBySlug(ctx, "embedded")
	require.NoError(t, err)
	assert.Equal(t, []domain.CollectionProduct{{ID: "p2", Index: 1}, {ID: "p1", Index: 2}}, found.Products)
	require.NotNil(t, found.BannerImages)
	assert.Equal(t, "m.png", found.BannerImages.MobileImage)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

// Property: any sequence of transactional inserts and deletes keeps stored indices contiguous
func TestProperty_StoredCollectionIndicesStayContiguous(t *testing.T) {
	repo := NewCollectionRepository(testDB)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)
	properties.Property("stored sort_index values are always 1..N", prop.ForAll(
		func(ops []int) bool {
			if _, err := testDB.Exec("DELETE FROM collections"); err != nil {
				return false
			}
			for k, op := range ops {
				err := repo.UpdateAll(ctx, func(all []*domain.Collection) ([]*domain.Collection, error) {
					if op%2 == 0 || len(all) == 0 {
						return ordering.InsertFirst(all, newTestCollection(fmt.Sprintf("c%d", k))), nil
					}
					out, _ := ordering.Remove(all, all[op%len(all)].ID)
					return out, nil
				})
				if err != nil {
					t.Logf("FAIL: update all: %v", err)
					return false
				}
			}

			all, err := repo.List(ctx)
			if err != nil {
				return false
			}
			return ordering.IsContiguous(all)
		},
		gen.SliceOfN(6, gen.IntRange(0, 50)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
