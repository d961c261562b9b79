package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/internal/domain/repositories"
	"github.com/zatekoja/sewa/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/sewa/pkg/errors"
)

const providersTable = "providers"

var providerColumns = []interface{}{
	"id", "name", "latitude", "longitude", "primary_locality_slug", "service_radius_km",
	"cv_score", "experience_years", "booking_load", "smart_score", "skill_tags",
	"approved", "created_at", "updated_at",
}

type providerRow struct {
	ID                  string          `db:"id"`
	Name                string          `db:"name"`
	Latitude            sql.NullFloat64 `db:"latitude"`
	Longitude           sql.NullFloat64 `db:"longitude"`
	PrimaryLocalitySlug sql.NullString  `db:"primary_locality_slug"`
	ServiceRadiusKm     float64         `db:"service_radius_km"`
	CVScore             sql.NullFloat64 `db:"cv_score"`
	ExperienceYears     sql.NullInt64   `db:"experience_years"`
	BookingLoad         int             `db:"booking_load"`
	SmartScore          sql.NullFloat64 `db:"smart_score"`
	SkillTags           pq.StringArray  `db:"skill_tags"`
	Approved            bool            `db:"approved"`
	CreatedAt           time.Time       `db:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at"`
}

type nearbyProviderRow struct {
	providerRow
	DistanceKm float64 `db:"distance_km"`
}

func (r providerRow) toEntity() *entities.ProviderProfile {
	p := &entities.ProviderProfile{
		ID:              r.ID,
		Name:            r.Name,
		ServiceRadiusKm: r.ServiceRadiusKm,
		BookingLoad:     r.BookingLoad,
		SkillTags:       []string(r.SkillTags),
		Approved:        r.Approved,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.Latitude.Valid && r.Longitude.Valid {
		p.Location = &entities.Location{Latitude: r.Latitude.Float64, Longitude: r.Longitude.Float64}
	}
	if r.PrimaryLocalitySlug.Valid {
		slug := r.PrimaryLocalitySlug.String
		p.PrimaryLocalitySlug = &slug
	}
	if r.CVScore.Valid {
		cv := r.CVScore.Float64
		p.CVScore = &cv
	}
	if r.ExperienceYears.Valid {
		years := int(r.ExperienceYears.Int64)
		p.ExperienceYears = &years
	}
	if r.SmartScore.Valid {
		score := r.SmartScore.Float64
		p.SmartScore = &score
	}
	return p
}

// ProviderAdapter implements the ProviderRepository interface
type ProviderAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProviderAdapter creates a new provider adapter
func NewProviderAdapter(client *postgres.Client) repositories.ProviderRepository {
	return &ProviderAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a provider by ID
func (a *ProviderAdapter) GetByID(ctx context.Context, id string) (*entities.ProviderProfile, error) {
	query, args, err := a.db.From(providersTable).
		Prepared(true).
		Select(providerColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var row providerRow
	if err := a.client.DBX().GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("provider with id %s not found", id))
		}
		return nil, apperrors.NewInternalError("failed to get provider", err)
	}
	return row.toEntity(), nil
}

// GetByIDs retrieves providers by ID
func (a *ProviderAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.ProviderProfile, error) {
	if len(ids) == 0 {
		return []*entities.ProviderProfile{}, nil
	}
	return a.selectProviders(ctx, a.db.From(providersTable).Where(goqu.Ex{"id": ids}))
}

// FindNearby retrieves providers within the query radius, nearest first
func (a *ProviderAdapter) FindNearby(ctx context.Context, q repositories.NearbyProviderQuery) ([]*entities.ProviderProfile, error) {
	// great-circle distance in km, clamped so rounding never pushes acos out of range
	distance := goqu.L(
		"6371 * acos(LEAST(1, cos(radians(?)) * cos(radians(latitude)) * cos(radians(longitude) - radians(?)) + sin(radians(?)) * sin(radians(latitude))))",
		q.Center.Latitude, q.Center.Longitude, q.Center.Latitude,
	)

	inner := a.db.From(providersTable).
		Select(append(providerColumns, distance.As("distance_km"))...).
		Where(
			goqu.C("latitude").IsNotNull(),
			goqu.C("longitude").IsNotNull(),
		)
	if q.ApprovedOnly {
		inner = inner.Where(goqu.Ex{"approved": true})
	}
	if len(q.ExcludeIDs) > 0 {
		inner = inner.Where(goqu.C("id").NotIn(q.ExcludeIDs))
	}

	ds := a.db.From(inner.As("nearby")).
		Prepared(true).
		Where(goqu.C("distance_km").Lte(q.RadiusKm)).
		Order(goqu.C("distance_km").Asc(), goqu.C("id").Asc())
	if q.Limit > 0 {
		ds = ds.Limit(uint(q.Limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build nearby query", err)
	}

	var rows []nearbyProviderRow
	if err := a.client.DBX().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to find nearby providers", err)
	}

	out := make([]*entities.ProviderProfile, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEntity())
	}
	return out, nil
}

// ListApproved retrieves approved providers regardless of location
func (a *ProviderAdapter) ListApproved(ctx context.Context, excludeIDs []string, limit int) ([]*entities.ProviderProfile, error) {
	ds := a.db.From(providersTable).Where(goqu.Ex{"approved": true})
	if len(excludeIDs) > 0 {
		ds = ds.Where(goqu.C("id").NotIn(excludeIDs))
	}
	ds = ds.Order(goqu.C("smart_score").Desc().NullsLast(), goqu.C("id").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	return a.selectProviders(ctx, ds)
}

// ListApprovedInCategory retrieves approved providers offering category
func (a *ProviderAdapter) ListApprovedInCategory(ctx context.Context, category string, excludeIDs []string, limit int) ([]*entities.ProviderProfile, error) {
	offering := a.db.From(listingsTable).
		Select("provider_id").
		Where(goqu.Ex{"category": category, "approved": true})

	ds := a.db.From(providersTable).Where(
		goqu.Ex{"approved": true},
		goqu.C("id").In(offering),
	)
	if len(excludeIDs) > 0 {
		ds = ds.Where(goqu.C("id").NotIn(excludeIDs))
	}
	ds = ds.Order(goqu.C("smart_score").Desc().NullsLast(), goqu.C("id").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	return a.selectProviders(ctx, ds)
}

// UpdateEvaluation stores the CV evaluator's output
func (a *ProviderAdapter) UpdateEvaluation(ctx context.Context, id string, cvScore float64, experienceYears *int) error {
	record := goqu.Record{
		"cv_score":   cvScore,
		"updated_at": time.Now().UTC(),
	}
	if experienceYears != nil {
		record["experience_years"] = *experienceYears
	}
	return a.update(ctx, id, record, "failed to update provider evaluation")
}

// UpdateLocation stores a new location and primary locality
func (a *ProviderAdapter) UpdateLocation(ctx context.Context, id string, location entities.Location, localitySlug *string) error {
	var slug interface{}
	if localitySlug != nil {
		slug = *localitySlug
	}
	return a.update(ctx, id, goqu.Record{
		"latitude":              location.Latitude,
		"longitude":             location.Longitude,
		"primary_locality_slug": slug,
		"updated_at":            time.Now().UTC(),
	}, "failed to update provider location")
}

// IncrementBookingLoad adds one to the provider's booking counter
func (a *ProviderAdapter) IncrementBookingLoad(ctx context.Context, id string) (int, error) {
	query, args, err := a.db.Update(providersTable).
		Prepared(true).
		Set(goqu.Record{
			"booking_load": goqu.L("booking_load + 1"),
			"updated_at":   time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": id}).
		Returning("booking_load").
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build update query", err)
	}

	var load int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&load); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperrors.NewNotFoundError(fmt.Sprintf("provider with id %s not found", id))
		}
		return 0, apperrors.NewInternalError("failed to increment booking load", err)
	}
	return load, nil
}

// UpdateSmartScore stores a recomputed smart score
func (a *ProviderAdapter) UpdateSmartScore(ctx context.Context, id string, score float64) error {
	return a.update(ctx, id, goqu.Record{
		"smart_score": score,
		"updated_at":  time.Now().UTC(),
	}, "failed to update smart score")
}

func (a *ProviderAdapter) update(ctx context.Context, id string, record goqu.Record, failure string) error {
	query, args, err := a.db.Update(providersTable).
		Prepared(true).
		Set(record).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError(failure, err)
	}
	return requireRowAffected(result, "provider", id)
}

func (a *ProviderAdapter) selectProviders(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.ProviderProfile, error) {
	query, args, err := ds.Prepared(true).Select(providerColumns...).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var rows []providerRow
	if err := a.client.DBX().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list providers", err)
	}

	out := make([]*entities.ProviderProfile, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEntity())
	}
	return out, nil
}
