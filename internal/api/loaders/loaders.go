package loaders

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/internal/domain/repositories"
	apperrors "github.com/zatekoja/sewa/pkg/errors"
)

type ctxKey string

const loadersKey ctxKey = "dataloaders"

const batchWait = 2 * time.Millisecond

// Loaders batches provider and listing lookups within one request
type Loaders struct {
	ProviderLoader *dataloader.Loader[string, *entities.ProviderProfile]
	ListingLoader  *dataloader.Loader[string, *entities.ServiceListing]
}

// NewLoaders creates a fresh set of request-scoped loaders
func NewLoaders(providerRepo repositories.ProviderRepository, listingRepo repositories.ListingRepository) *Loaders {
	return &Loaders{
		ProviderLoader: dataloader.NewBatchedLoader(
			batchByID(providerRepo.GetByIDs, func(p *entities.ProviderProfile) string { return p.ID }, "provider"),
			dataloader.WithWait[string, *entities.ProviderProfile](batchWait),
		),
		ListingLoader: dataloader.NewBatchedLoader(
			batchByID(listingRepo.GetByIDs, func(l *entities.ServiceListing) string { return l.ID }, "listing"),
			dataloader.WithWait[string, *entities.ServiceListing](batchWait),
		),
	}
}

// batchByID adapts a GetByIDs repository call to a batch function that keeps
// key order and reports unknown keys individually
func batchByID[V any](
	fetch func(ctx context.Context, ids []string) ([]V, error),
	idOf func(V) string,
	kind string,
) dataloader.BatchFunc[string, V] {
	return func(ctx context.Context, keys []string) []*dataloader.Result[V] {
		results := make([]*dataloader.Result[V], len(keys))
		items, err := fetch(ctx, keys)
		if err != nil {
			for i := range keys {
				results[i] = &dataloader.Result[V]{Error: err}
			}
			return results
		}

		byID := make(map[string]V, len(items))
		for _, item := range items {
			byID[idOf(item)] = item
		}
		for i, key := range keys {
			if item, ok := byID[key]; ok {
				results[i] = &dataloader.Result[V]{Data: item}
			} else {
				results[i] = &dataloader.Result[V]{Error: apperrors.NewNotFoundError(fmt.Sprintf("%s %s not found", kind, key))}
			}
		}
		return results
	}
}

// For returns the loaders attached to ctx, or nil
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey).(*Loaders)
	return l
}

// WithLoaders returns a new context with the loaders attached
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}

// Middleware attaches a fresh set of loaders to every request
func Middleware(providerRepo repositories.ProviderRepository, listingRepo repositories.ListingRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLoaders(r.Context(), NewLoaders(providerRepo, listingRepo))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
