package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zatekoja/sewa/internal/application/services"
	"github.com/zatekoja/sewa/internal/areagraph"
	"github.com/zatekoja/sewa/internal/domain/entities"
)

// koteshwor is the catalog location of the Koteshwor locality
var koteshwor = entities.Location{Latitude: 27.6780, Longitude: 85.3495}

// north returns a point roughly km kilometres north of koteshwor
func north(km float64) *entities.Location {
	return &entities.Location{Latitude: koteshwor.Latitude + km/111.2, Longitude: koteshwor.Longitude}
}

func strPtr(s string) *string { return &s }

type fixture struct {
	store     *memoryStore
	providers memProviderRepo
	listings  memListingRepo
	bookings  memBookingRepo
	graph     *areagraph.Graph
	resolver  *services.DistanceResolver
	finder    *services.AlternativeFinder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	graph, err := areagraph.Default()
	require.NoError(t, err)

	store := newMemoryStore()
	f := &fixture{
		store:     store,
		providers: memProviderRepo{store},
		listings:  memListingRepo{store},
		bookings:  memBookingRepo{store},
		graph:     graph,
		resolver:  services.NewDistanceResolver(graph),
	}
	f.finder = services.NewAlternativeFinder(f.providers, f.listings, f.bookings, f.resolver)
	return f
}

func (f *fixture) provider(id string, loc *entities.Location, approved bool) *entities.ProviderProfile {
	p := &entities.ProviderProfile{
		ID:              id,
		Name:            "Provider " + id,
		Location:        loc,
		ServiceRadiusKm: 10,
		Approved:        approved,
		CreatedAt:       time.Now(),
	}
	f.store.addProvider(p)
	return p
}

func (f *fixture) listing(id, providerID, category string, bookings int) *entities.ServiceListing {
	l := &entities.ServiceListing{
		ID:                   id,
		ProviderID:           providerID,
		Name:                 category + " by " + providerID,
		Category:             category,
		Price:                1500,
		Rating:               4.2,
		BookingCount:         bookings,
		PublishedReviewCount: 3,
		Approved:             true,
		CreatedAt:            time.Now().AddDate(0, 0, -10),
	}
	f.store.addListing(l)
	return l
}

// seedPlumbers lays out a small neighbourhood of providers north of Koteshwor:
//
//	target   0 km  plumbing (the provider being booked)
//	near     1 km  plumbing, two listings
//	busy     0.5km plumbing, already booked at the test slot
//	pending  0.4km plumbing, not approved
//	sparky   0.3km electrical only
//	mid      5 km  plumbing
//	far      15 km plumbing
func (f *fixture) seedPlumbers() {
	f.provider("target", &koteshwor, true)
	f.listing("l-target", "target", "plumbing", 30)

	f.provider("near", north(1), true)
	f.listing("l-near-small", "near", "plumbing", 2)
	f.listing("l-near-big", "near", "plumbing", 12)

	f.provider("busy", north(0.5), true)
	f.listing("l-busy", "busy", "plumbing", 8)
	f.store.seedBooking(&entities.Booking{
		ID: "b-busy", UserID: "someone", ProviderID: "busy", ListingID: "l-busy",
		Category: "plumbing", Date: testDate, Time: testTime, Status: entities.BookingStatusConfirmed,
	})

	f.provider("pending", north(0.4), false)
	f.listing("l-pending", "pending", "plumbing", 1)

	f.provider("sparky", north(0.3), true)
	f.listing("l-sparky", "sparky", "electrical", 40)

	f.provider("mid", north(5), true)
	f.listing("l-mid", "mid", "plumbing", 4)

	f.provider("far", north(15), true)
	f.listing("l-far", "far", "plumbing", 9)
}

const (
	testDate = "2026-11-02"
	testTime = "10:30"
)

func providerIDs(cs []entities.MatchCandidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Provider.ID)
	}
	return out
}
