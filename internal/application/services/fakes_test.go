package services_test

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/internal/domain/repositories"
	apperrors "github.com/zatekoja/sewa/pkg/errors"
)

// memoryStore backs the in-memory repositories used by the service tests
type memoryStore struct {
	mu          sync.Mutex
	providers   map[string]*entities.ProviderProfile
	listings    map[string]*entities.ServiceListing
	bookings    []*entities.Booking
	nearbyRadii []float64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		providers: make(map[string]*entities.ProviderProfile),
		listings:  make(map[string]*entities.ServiceListing),
	}
}

func (s *memoryStore) addProvider(p *entities.ProviderProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[p.ID] = p
}

func (s *memoryStore) addListing(l *entities.ServiceListing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[l.ID] = l
}

func (s *memoryStore) radii() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.nearbyRadii...)
}

// providerRepo

type memProviderRepo struct{ *memoryStore }

func (r memProviderRepo) GetByID(ctx context.Context, id string) (*entities.ProviderProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("provider not found")
	}
	cp := *p
	return &cp, nil
}

func (r memProviderRepo) GetByIDs(ctx context.Context, ids []string) ([]*entities.ProviderProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*entities.ProviderProfile{}
	for _, id := range ids {
		if p, ok := r.providers[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memProviderRepo) FindNearby(ctx context.Context, q repositories.NearbyProviderQuery) ([]*entities.ProviderProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nearbyRadii = append(r.nearbyRadii, q.RadiusKm)

	excluded := make(map[string]bool, len(q.ExcludeIDs))
	for _, id := range q.ExcludeIDs {
		excluded[id] = true
	}
	out := []*entities.ProviderProfile{}
	for _, p := range r.providers {
		if p.Location == nil || excluded[p.ID] || (q.ApprovedOnly && !p.Approved) {
			continue
		}
		if q.Center.DistanceKm(*p.Location) <= q.RadiusKm {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return q.Center.DistanceKm(*out[i].Location) < q.Center.DistanceKm(*out[j].Location)
	})
	return out, nil
}

func (r memProviderRepo) ListApproved(ctx context.Context, excludeIDs []string, limit int) ([]*entities.ProviderProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	out := []*entities.ProviderProfile{}
	for _, p := range r.providers {
		if p.Approved && !excluded[p.ID] {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memProviderRepo) ListApprovedInCategory(ctx context.Context, category string, excludeIDs []string, limit int) ([]*entities.ProviderProfile, error) {
	all, err := r.ListApproved(ctx, excludeIDs, 0)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	offering := map[string]bool{}
	for _, l := range r.listings {
		if l.Approved && l.Category == category {
			offering[l.ProviderID] = true
		}
	}
	r.mu.Unlock()

	out := []*entities.ProviderProfile{}
	for _, p := range all {
		if offering[p.ID] {
			out = append(out, p)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memProviderRepo) UpdateEvaluation(ctx context.Context, id string, cvScore float64, experienceYears *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return apperrors.NewNotFoundError("provider not found")
	}
	p.CVScore = &cvScore
	p.ExperienceYears = experienceYears
	return nil
}

func (r memProviderRepo) UpdateLocation(ctx context.Context, id string, location entities.Location, localitySlug *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return apperrors.NewNotFoundError("provider not found")
	}
	p.Location = &location
	p.PrimaryLocalitySlug = localitySlug
	return nil
}

func (r memProviderRepo) IncrementBookingLoad(ctx context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return 0, apperrors.NewNotFoundError("provider not found")
	}
	p.BookingLoad++
	return p.BookingLoad, nil
}

func (r memProviderRepo) UpdateSmartScore(ctx context.Context, id string, score float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return apperrors.NewNotFoundError("provider not found")
	}
	p.SmartScore = &score
	return nil
}

// listingRepo

type memListingRepo struct{ *memoryStore }

func (r memListingRepo) GetByID(ctx context.Context, id string) (*entities.ServiceListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("listing not found")
	}
	cp := *l
	return &cp, nil
}

func (r memListingRepo) GetByIDs(ctx context.Context, ids []string) ([]*entities.ServiceListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*entities.ServiceListing{}
	for _, id := range ids {
		if l, ok := r.listings[id]; ok {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memListingRepo) List(ctx context.Context, f repositories.ListingFilter) ([]*entities.ServiceListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*entities.ServiceListing{}
	for _, l := range r.listings {
		if f.Category != "" && l.Category != f.Category {
			continue
		}
		if f.ApprovedOnly && !l.Approved {
			continue
		}
		if len(f.AnyTokens) > 0 && !r.mentionsAny(l, f.AnyTokens) {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r memListingRepo) mentionsAny(l *entities.ServiceListing, tokens []string) bool {
	text := []string{l.Name, l.Description, l.Category, strings.Join(l.Tags, " ")}
	if p, ok := r.providers[l.ProviderID]; ok {
		text = append(text, strings.Join(p.SkillTags, " "))
	}
	haystack := strings.ToLower(strings.Join(text, " "))
	for _, t := range tokens {
		if strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}

func (r memListingRepo) ListByProviders(ctx context.Context, providerIDs []string, category string) ([]*entities.ServiceListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[string]bool, len(providerIDs))
	for _, id := range providerIDs {
		want[id] = true
	}
	out := []*entities.ServiceListing{}
	for _, l := range r.listings {
		if want[l.ProviderID] && l.Category == category && l.Approved {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memListingRepo) IncrementBookingCount(ctx context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return 0, apperrors.NewNotFoundError("listing not found")
	}
	l.BookingCount++
	return l.BookingCount, nil
}

func (r memListingRepo) Update(ctx context.Context, listing *entities.ServiceListing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listings[listing.ID]; !ok {
		return apperrors.NewNotFoundError("listing not found")
	}
	cp := *listing
	r.listings[listing.ID] = &cp
	return nil
}

// bookingRepo enforces slot exclusivity the way the partial unique index does

type memBookingRepo struct{ *memoryStore }

func (r memBookingRepo) Create(ctx context.Context, b *entities.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.bookings {
		if existing.Status.IsActive() && existing.ProviderID == b.ProviderID &&
			existing.Date == b.Date && existing.Time == b.Time {
			return apperrors.NewConflictError("slot already booked", nil)
		}
	}
	cp := *b
	r.bookings = append(r.bookings, &cp)
	return nil
}

func (r memBookingRepo) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.ID == id {
			cp := *b
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFoundError("booking not found")
}

func (r memBookingRepo) UpdateStatus(ctx context.Context, id string, status entities.BookingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.ID == id {
			b.Status = status
			return nil
		}
	}
	return apperrors.NewNotFoundError("booking not found")
}

func (r memBookingRepo) FindActiveByUserAndProvider(ctx context.Context, userID, providerID string) (*entities.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.UserID == userID && b.ProviderID == providerID && b.Status.IsActive() {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memBookingRepo) FindActiveBySlot(ctx context.Context, providerID, date, tm string) (*entities.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.ProviderID == providerID && b.Date == date && b.Time == tm && b.Status.IsActive() {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memBookingRepo) ListBusyProviderIDs(ctx context.Context, date, tm string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []string{}
	for _, b := range r.bookings {
		if b.Date == date && b.Time == tm && b.Status.IsActive() {
			out = append(out, b.ProviderID)
		}
	}
	return out, nil
}

func (r memBookingRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*entities.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*entities.Booking{}
	for i := len(r.bookings) - 1; i >= 0; i-- {
		if r.bookings[i].UserID == userID {
			cp := *r.bookings[i]
			out = append(out, &cp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// seedBooking stores a booking directly, bypassing the service
func (s *memoryStore) seedBooking(b *entities.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	s.bookings = append(s.bookings, b)
}

// MockCacheProvider is an in-memory cache with glob deletion
type MockCacheProvider struct {
	mu      sync.RWMutex
	data    map[string][]byte
	deleted []string
}

func NewMockCacheProvider() *MockCacheProvider {
	return &MockCacheProvider{
		data:    make(map[string][]byte),
		deleted: make([]string, 0),
	}
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if val, ok := m.data[key]; ok {
		return val, nil
	}
	return nil, nil
}

func (m *MockCacheProvider) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if val, ok := m.data[key]; ok {
			out[key] = val
		}
	}
	return out, nil
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCacheProvider) SetMulti(ctx context.Context, items map[string][]byte, expirationSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, value := range items {
		m.data[key] = value
	}
	return nil
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *MockCacheProvider) DeletePattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.data {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.data, key)
			m.deleted = append(m.deleted, key)
		}
	}
	return nil
}

func (m *MockCacheProvider) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *MockCacheProvider) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MockEventBus fans published events out to buffered subscriber channels
type MockEventBus struct {
	mu          sync.Mutex
	subscribers map[string][]chan *entities.DomainEvent
	published   map[string][]*entities.DomainEvent
}

func NewMockEventBus() *MockEventBus {
	return &MockEventBus{
		subscribers: make(map[string][]chan *entities.DomainEvent),
		published:   make(map[string][]*entities.DomainEvent),
	}
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[channel] = append(m.published[channel], event)
	for _, ch := range m.subscribers[channel] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.DomainEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan *entities.DomainEvent, 10)
	m.subscribers[channel] = append(m.subscribers[channel], ch)
	return ch, nil
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subscribers[channel] {
		close(ch)
	}
	delete(m.subscribers, channel)
	return nil
}

func (m *MockEventBus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, channels := range m.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	m.subscribers = make(map[string][]chan *entities.DomainEvent)
	return nil
}

func (m *MockEventBus) Published(channel string) []*entities.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entities.DomainEvent(nil), m.published[channel]...)
}

func (m *MockEventBus) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}
