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

const (
	bookingsTable = "bookings"

	pqUniqueViolation = "23505"
)

var bookingColumns = []interface{}{
	"id", "user_id", "provider_id", "listing_id", "category",
	goqu.L("to_char(booking_date, 'YYYY-MM-DD')").As("booking_date"),
	goqu.L("to_char(booking_time, 'HH24:MI')").As("booking_time"),
	"status", "origin_locality", "origin_latitude", "origin_longitude", "notes",
	"created_at", "updated_at",
}

type bookingRow struct {
	ID              string          `db:"id"`
	UserID          string          `db:"user_id"`
	ProviderID      string          `db:"provider_id"`
	ListingID       string          `db:"listing_id"`
	Category        string          `db:"category"`
	Date            string          `db:"booking_date"`
	Time            string          `db:"booking_time"`
	Status          string          `db:"status"`
	OriginLocality  sql.NullString  `db:"origin_locality"`
	OriginLatitude  sql.NullFloat64 `db:"origin_latitude"`
	OriginLongitude sql.NullFloat64 `db:"origin_longitude"`
	Notes           sql.NullString  `db:"notes"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

func (r bookingRow) toEntity() *entities.Booking {
	b := &entities.Booking{
		ID:         r.ID,
		UserID:     r.UserID,
		ProviderID: r.ProviderID,
		ListingID:  r.ListingID,
		Category:   r.Category,
		Date:       r.Date,
		Time:       r.Time,
		Status:     entities.BookingStatus(r.Status),
		Notes:      r.Notes.String,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.OriginLocality.Valid {
		locality := r.OriginLocality.String
		b.OriginLocality = &locality
	}
	if r.OriginLatitude.Valid && r.OriginLongitude.Valid {
		b.OriginLocation = &entities.Location{
			Latitude:  r.OriginLatitude.Float64,
			Longitude: r.OriginLongitude.Float64,
		}
	}
	return b
}

func activeStatuses() []string {
	out := make([]string, len(entities.ActiveBookingStatuses))
	for i, s := range entities.ActiveBookingStatuses {
		out[i] = string(s)
	}
	return out
}

// BookingAdapter implements the BookingRepository interface
type BookingAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewBookingAdapter creates a new booking adapter
func NewBookingAdapter(client *postgres.Client) repositories.BookingRepository {
	return &BookingAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts a booking. The partial unique index on active provider
// slots turns a lost race into a conflict error.
func (a *BookingAdapter) Create(ctx context.Context, booking *entities.Booking) error {
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now

	record := goqu.Record{
		"id":           booking.ID,
		"user_id":      booking.UserID,
		"provider_id":  booking.ProviderID,
		"listing_id":   booking.ListingID,
		"category":     booking.Category,
		"booking_date": booking.Date,
		"booking_time": booking.Time,
		"status":       string(booking.Status),
		"notes":        booking.Notes,
		"created_at":   booking.CreatedAt,
		"updated_at":   booking.UpdatedAt,
	}
	if booking.OriginLocality != nil {
		record["origin_locality"] = *booking.OriginLocality
	}
	if booking.OriginLocation != nil {
		record["origin_latitude"] = booking.OriginLocation.Latitude
		record["origin_longitude"] = booking.OriginLocation.Longitude
	}

	query, args, err := a.db.Insert(bookingsTable).Prepared(true).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return apperrors.NewConflictError("provider slot already booked", err)
		}
		return apperrors.NewInternalError("failed to create booking", err)
	}
	return nil
}

// GetByID retrieves a booking by ID
func (a *BookingAdapter) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	b, err := a.getOne(ctx, a.db.From(bookingsTable).Where(goqu.Ex{"id": id}))
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("booking with id %s not found", id))
	}
	return b, nil
}

// UpdateStatus moves a booking to a new status
func (a *BookingAdapter) UpdateStatus(ctx context.Context, id string, status entities.BookingStatus) error {
	query, args, err := a.db.Update(bookingsTable).
		Prepared(true).
		Set(goqu.Record{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update booking status", err)
	}
	return requireRowAffected(result, "booking", id)
}

// FindActiveByUserAndProvider returns the user's active booking with the provider
func (a *BookingAdapter) FindActiveByUserAndProvider(ctx context.Context, userID, providerID string) (*entities.Booking, error) {
	return a.getOne(ctx, a.db.From(bookingsTable).
		Where(goqu.Ex{
			"user_id":     userID,
			"provider_id": providerID,
			"status":      activeStatuses(),
		}).
		Order(goqu.C("created_at").Desc()))
}

// FindActiveBySlot returns the active booking occupying a provider slot
func (a *BookingAdapter) FindActiveBySlot(ctx context.Context, providerID, date, slot string) (*entities.Booking, error) {
	return a.getOne(ctx, a.db.From(bookingsTable).
		Where(goqu.Ex{
			"provider_id":  providerID,
			"booking_date": date,
			"booking_time": slot,
			"status":       activeStatuses(),
		}))
}

// ListBusyProviderIDs returns providers with an active booking at date and time
func (a *BookingAdapter) ListBusyProviderIDs(ctx context.Context, date, slot string) ([]string, error) {
	query, args, err := a.db.From(bookingsTable).
		Prepared(true).
		SelectDistinct("provider_id").
		Where(goqu.Ex{
			"booking_date": date,
			"booking_time": slot,
			"status":       activeStatuses(),
		}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	ids := []string{}
	if err := a.client.DBX().SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list busy providers", err)
	}
	return ids, nil
}

// ListByUser retrieves a user's most recent bookings first
func (a *BookingAdapter) ListByUser(ctx context.Context, userID string, limit int) ([]*entities.Booking, error) {
	ds := a.db.From(bookingsTable).
		Prepared(true).
		Select(bookingColumns...).
		Where(goqu.Ex{"user_id": userID}).
		Order(goqu.C("created_at").Desc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var rows []bookingRow
	if err := a.client.DBX().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list bookings", err)
	}

	bookings := make([]*entities.Booking, 0, len(rows))
	for _, r := range rows {
		bookings = append(bookings, r.toEntity())
	}
	return bookings, nil
}

// getOne returns nil, nil when no row matches
func (a *BookingAdapter) getOne(ctx context.Context, ds *goqu.SelectDataset) (*entities.Booking, error) {
	query, args, err := ds.Prepared(true).Select(bookingColumns...).Limit(1).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var row bookingRow
	if err := a.client.DBX().GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewInternalError("failed to get booking", err)
	}
	return row.toEntity(), nil
}
