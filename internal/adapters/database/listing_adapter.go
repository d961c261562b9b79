package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"
	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/internal/domain/repositories"
	"github.com/zatekoja/sewa/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/sewa/pkg/errors"
)

const listingsTable = "listings"

var listingColumns = []interface{}{
	"id", "provider_id", "name", "description", "category", "price", "tags",
	"rating", "booking_count", "published_review_count", "approved", "pinned",
	"created_at", "updated_at",
}

type listingRow struct {
	ID                   string         `db:"id"`
	ProviderID           string         `db:"provider_id"`
	Name                 string         `db:"name"`
	Description          sql.NullString `db:"description"`
	Category             string         `db:"category"`
	Price                float64        `db:"price"`
	Tags                 pq.StringArray `db:"tags"`
	Rating               float64        `db:"rating"`
	BookingCount         int            `db:"booking_count"`
	PublishedReviewCount int            `db:"published_review_count"`
	Approved             bool           `db:"approved"`
	Pinned               bool           `db:"pinned"`
	CreatedAt            time.Time      `db:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at"`
}

func (r listingRow) toEntity() *entities.ServiceListing {
	return &entities.ServiceListing{
		ID:                   r.ID,
		ProviderID:           r.ProviderID,
		Name:                 r.Name,
		Description:          r.Description.String,
		Category:             r.Category,
		Price:                r.Price,
		Tags:                 []string(r.Tags),
		Rating:               r.Rating,
		BookingCount:         r.BookingCount,
		PublishedReviewCount: r.PublishedReviewCount,
		Approved:             r.Approved,
		Pinned:               r.Pinned,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

// ListingAdapter implements the ListingRepository interface
type ListingAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewListingAdapter creates a new listing adapter
func NewListingAdapter(client *postgres.Client) repositories.ListingRepository {
	return &ListingAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a listing by ID
func (a *ListingAdapter) GetByID(ctx context.Context, id string) (*entities.ServiceListing, error) {
	query, args, err := a.db.From(listingsTable).
		Prepared(true).
		Select(listingColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var row listingRow
	if err := a.client.DBX().GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("listing with id %s not found", id))
		}
		return nil, apperrors.NewInternalError("failed to get listing", err)
	}
	return row.toEntity(), nil
}

// GetByIDs retrieves listings by ID
func (a *ListingAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.ServiceListing, error) {
	if len(ids) == 0 {
		return []*entities.ServiceListing{}, nil
	}
	return a.selectListings(ctx, a.db.From(listingsTable).Where(goqu.Ex{"id": ids}))
}

// List retrieves listings matching filter, newest first
func (a *ListingAdapter) List(ctx context.Context, filter repositories.ListingFilter) ([]*entities.ServiceListing, error) {
	ds := a.db.From(listingsTable)
	if filter.Category != "" {
		ds = ds.Where(goqu.Ex{"category": filter.Category})
	}
	if filter.ApprovedOnly {
		ds = ds.Where(goqu.Ex{"approved": true})
	}
	if len(filter.AnyTokens) > 0 {
		ds = ds.Where(a.tokenMatch(filter.AnyTokens))
	}
	ds = ds.Order(goqu.I("created_at").Desc(), goqu.I("id").Asc())
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}
	return a.selectListings(ctx, ds)
}

// tokenMatch is a coarse substring prefilter; scoring still happens on
// whole tokens. Tokens are alphanumeric so they carry no LIKE wildcards.
func (a *ListingAdapter) tokenMatch(tokens []string) exp.Expression {
	listingConds := make([]exp.Expression, 0, len(tokens)*4)
	skillConds := make([]exp.Expression, 0, len(tokens))
	for _, token := range tokens {
		pattern := "%" + token + "%"
		listingConds = append(listingConds,
			goqu.I("name").ILike(pattern),
			goqu.I("description").ILike(pattern),
			goqu.I("category").ILike(pattern),
			goqu.L("array_to_string(?, ' ')", goqu.I("tags")).ILike(pattern),
		)
		skillConds = append(skillConds, goqu.L("array_to_string(?, ' ')", goqu.I("skill_tags")).ILike(pattern))
	}
	bySkill := a.db.From(providersTable).Select("id").Where(goqu.Or(skillConds...))
	return goqu.Or(append(listingConds, goqu.I("provider_id").In(bySkill))...)
}

// ListByProviders retrieves the approved listings of providers in a category
func (a *ListingAdapter) ListByProviders(ctx context.Context, providerIDs []string, category string) ([]*entities.ServiceListing, error) {
	if len(providerIDs) == 0 {
		return []*entities.ServiceListing{}, nil
	}
	ds := a.db.From(listingsTable).
		Where(goqu.Ex{
			"provider_id": providerIDs,
			"category":    category,
			"approved":    true,
		}).
		Order(goqu.I("booking_count").Desc())
	return a.selectListings(ctx, ds)
}

// IncrementBookingCount adds one to the listing's booking counter
func (a *ListingAdapter) IncrementBookingCount(ctx context.Context, id string) (int, error) {
	query, args, err := a.db.Update(listingsTable).
		Prepared(true).
		Set(goqu.Record{
			"booking_count": goqu.L("booking_count + 1"),
			"updated_at":    time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": id}).
		Returning("booking_count").
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build update query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperrors.NewNotFoundError(fmt.Sprintf("listing with id %s not found", id))
		}
		return 0, apperrors.NewInternalError("failed to increment booking count", err)
	}
	return count, nil
}

// Update updates a listing's editable fields
func (a *ListingAdapter) Update(ctx context.Context, listing *entities.ServiceListing) error {
	listing.UpdatedAt = time.Now().UTC()

	query, args, err := a.db.Update(listingsTable).
		Prepared(true).
		Set(goqu.Record{
			"name":        listing.Name,
			"description": listing.Description,
			"category":    listing.Category,
			"price":       listing.Price,
			"tags":        pq.StringArray(listing.Tags),
			"approved":    listing.Approved,
			"pinned":      listing.Pinned,
			"updated_at":  listing.UpdatedAt,
		}).
		Where(goqu.Ex{"id": listing.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update listing", err)
	}
	return requireRowAffected(result, "listing", listing.ID)
}

func (a *ListingAdapter) selectListings(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.ServiceListing, error) {
	query, args, err := ds.Prepared(true).Select(listingColumns...).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var rows []listingRow
	if err := a.client.DBX().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list listings", err)
	}

	listings := make([]*entities.ServiceListing, 0, len(rows))
	for _, r := range rows {
		listings = append(listings, r.toEntity())
	}
	return listings, nil
}

func requireRowAffected(result sql.Result, kind, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("%s with id %s not found", kind, id))
	}
	return nil
}
