package service

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/repository"
)

// lookupBatchSize is the largest id list the document store accepts in one "in" query
const lookupBatchSize = 10

// catalogLookup resolves product and upsell ids in batches fetched concurrently
type catalogLookup struct {
	products repository.ProductRepository
	upsells  repository.UpsellRepository
}

func (l catalogLookup) Products(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	return fetchBatched(ctx, ids, l.products.FindByIDs, func(p *domain.Product) string { return p.ID })
}

func (l catalogLookup) Upsells(ctx context.Context, ids []string) (map[string]*domain.Upsell, error) {
	return fetchBatched(ctx, ids, l.upsells.FindByIDs, func(u *domain.Upsell) string { return u.ID })
}

func fetchBatched[T any](
	ctx context.Context,
	ids []string,
	fetch func(context.Context, []string) ([]*T, error),
	key func(*T) string,
) (map[string]*T, error) {
	unique := dedupe(ids)
	found := make(map[string]*T, len(unique))
	if len(unique) == 0 {
		return found, nil
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(unique); start += lookupBatchSize {
		batch := unique[start:min(start+lookupBatchSize, len(unique))]
		g.Go(func() error {
			items, err := fetch(ctx, batch)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, item := range items {
				found[key(item)] = item
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return found, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
