package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/sewa/internal/application/services"
	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/internal/domain/providers"
	apperrors "github.com/zatekoja/sewa/pkg/errors"
)

func TestListingService_UpdateListing(t *testing.T) {
	f := newFixture(t)
	f.provider("p1", nil, true)
	f.listing("l1", "p1", "plumbing", 3)
	bus := NewMockEventBus()
	svc := services.NewListingService(f.listings, bus)
	ctx := context.Background()

	name := "  Emergency tap repair "
	category := "Plumbing"
	price := 1200.0
	pinned := true
	got, err := svc.UpdateListing(ctx, "l1", services.ListingUpdate{
		Name:     &name,
		Category: &category,
		Price:    &price,
		Pinned:   &pinned,
		Tags:     []string{"tap", "leak"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Emergency tap repair", got.Name)
	assert.Equal(t, "plumbing", got.Category)
	assert.True(t, got.Approved, "untouched fields keep their value")

	stored, err := svc.GetListing(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 1200.0, stored.Price)
	assert.Equal(t, []string{"tap", "leak"}, stored.Tags)
	assert.True(t, stored.Pinned)

	events := bus.Published(providers.EventChannelListings)
	require.Len(t, events, 1)
	assert.Equal(t, entities.EventTypeListingUpdated, events[0].Type)
	assert.Equal(t, "l1", events[0].AggregateID)
}

func TestListingService_UpdateListingValidation(t *testing.T) {
	f := newFixture(t)
	f.provider("p1", nil, true)
	f.listing("l1", "p1", "plumbing", 3)
	bus := NewMockEventBus()
	svc := services.NewListingService(f.listings, bus)
	ctx := context.Background()

	blank := "   "
	_, err := svc.UpdateListing(ctx, "l1", services.ListingUpdate{Name: &blank})
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))

	negative := -5.0
	_, err = svc.UpdateListing(ctx, "l1", services.ListingUpdate{Price: &negative})
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))

	_, err = svc.UpdateListing(ctx, "missing", services.ListingUpdate{})
	assert.True(t, apperrors.IsNotFound(err))

	assert.Empty(t, bus.Published(providers.EventChannelListings))
}
