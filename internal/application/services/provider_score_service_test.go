package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/sewa/internal/application/services"
	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/internal/domain/providers"
	"github.com/zatekoja/sewa/internal/matching"
	apperrors "github.com/zatekoja/sewa/pkg/errors"
)

func TestProviderScoreService_ApplyEvaluation(t *testing.T) {
	f := newFixture(t)
	p := f.provider("p1", &koteshwor, true)
	p.BookingLoad = 12
	bus := NewMockEventBus()
	svc := services.NewProviderScoreService(f.providers, f.graph, bus)

	years := 6
	got, err := svc.ApplyEvaluation(context.Background(), "p1", 0.72, &years)
	require.NoError(t, err)

	want := matching.SmartScore(0.72, 12, 0)
	require.NotNil(t, got.SmartScore)
	assert.Equal(t, want, *got.SmartScore)

	stored, _ := f.providers.GetByID(context.Background(), "p1")
	assert.Equal(t, 0.72, *stored.CVScore)
	assert.Equal(t, 6, *stored.ExperienceYears)
	assert.Equal(t, want, *stored.SmartScore)

	events := bus.Published(providers.EventChannelProviders)
	require.Len(t, events, 1)
	assert.Equal(t, entities.EventTypeProviderRescored, events[0].Type)
	assert.Equal(t, "p1", events[0].AggregateID)
}

func TestProviderScoreService_ApplyEvaluationRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	f.provider("p1", nil, true)
	svc := services.NewProviderScoreService(f.providers, f.graph, nil)

	_, err := svc.ApplyEvaluation(context.Background(), "p1", 1.3, nil)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))

	negative := -1
	_, err = svc.ApplyEvaluation(context.Background(), "p1", 0.5, &negative)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))

	_, err = svc.ApplyEvaluation(context.Background(), "ghost", 0.5, nil)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestProviderScoreService_UpdateLocation(t *testing.T) {
	f := newFixture(t)
	f.provider("p1", nil, true)
	svc := services.NewProviderScoreService(f.providers, f.graph, nil)
	ctx := context.Background()

	got, err := svc.UpdateLocation(ctx, "p1", koteshwor, "")
	require.NoError(t, err)
	require.NotNil(t, got.PrimaryLocalitySlug)
	assert.Equal(t, "koteshwor", *got.PrimaryLocalitySlug, "nearest locality is derived")
	assert.NotNil(t, got.SmartScore)

	got, err = svc.UpdateLocation(ctx, "p1", koteshwor, "Tinkune")
	require.NoError(t, err)
	assert.Equal(t, "tinkune", *got.PrimaryLocalitySlug)

	_, err = svc.UpdateLocation(ctx, "p1", koteshwor, "pokhara")
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))

	far := entities.Location{Latitude: 28.2096, Longitude: 83.9856}
	got, err = svc.UpdateLocation(ctx, "p1", far, "")
	require.NoError(t, err)
	assert.Nil(t, got.PrimaryLocalitySlug, "no catalog locality nearby")
}

func TestProviderScoreService_RescoreAll(t *testing.T) {
	f := newFixture(t)
	for i, id := range []string{"a", "b", "c", "d"} {
		p := f.provider(id, north(float64(i)), true)
		p.BookingLoad = i * 5
	}
	f.provider("hidden", north(1), false)
	bus := NewMockEventBus()
	svc := services.NewProviderScoreService(f.providers, f.graph, bus)

	summary, err := svc.RescoreAll(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Total)
	assert.Empty(t, summary.Failed)

	for i, id := range []string{"a", "b", "c", "d"} {
		stored, err := f.providers.GetByID(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, stored.SmartScore, id)
		assert.Equal(t, matching.SmartScore(0, i*5, 0), *stored.SmartScore, id)
	}
	hidden, _ := f.providers.GetByID(context.Background(), "hidden")
	assert.Nil(t, hidden.SmartScore)
	assert.Len(t, bus.Published(providers.EventChannelProviders), 4)
}
