package entities

import "time"

// ServiceListing is a service offered by a provider
type ServiceListing struct {
	ID                   string    `json:"id" db:"id"`
	ProviderID           string    `json:"provider_id" db:"provider_id"`
	Name                 string    `json:"name" db:"name"`
	Description          string    `json:"description" db:"description"`
	Category             string    `json:"category" db:"category"`
	Price                float64   `json:"price" db:"price"`
	Tags                 []string  `json:"tags,omitempty" db:"-"`
	Rating               float64   `json:"rating" db:"rating"`
	BookingCount         int       `json:"booking_count" db:"booking_count"`
	PublishedReviewCount int       `json:"published_review_count" db:"published_review_count"`
	Approved             bool      `json:"approved" db:"approved"`
	Pinned               bool      `json:"pinned" db:"pinned"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}
