package entities

import "time"

// NeutralQuality is used when neither a smart score nor a CV score is known
const NeutralQuality = 0.5

// ProviderProfile is the matching-relevant view of a service provider.
// Optional fields are nil when the data layer has no value for them.
type ProviderProfile struct {
	ID                  string    `json:"id" db:"id"`
	Name                string    `json:"name" db:"name"`
	Location            *Location `json:"location,omitempty" db:"-"`
	PrimaryLocalitySlug *string   `json:"primary_locality,omitempty" db:"primary_locality_slug"`
	ServiceRadiusKm     float64   `json:"service_radius_km" db:"service_radius_km"`
	CVScore             *float64  `json:"cv_score,omitempty" db:"cv_score"`
	ExperienceYears     *int      `json:"experience_years,omitempty" db:"experience_years"`
	BookingLoad         int       `json:"booking_load" db:"booking_load"`
	SmartScore          *float64  `json:"smart_score,omitempty" db:"smart_score"`
	SkillTags           []string  `json:"skill_tags,omitempty" db:"-"`
	Approved            bool      `json:"approved" db:"approved"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// Quality returns the smart score, falling back to the CV score and then to
// NeutralQuality.
func (p *ProviderProfile) Quality() float64 {
	if p == nil {
		return NeutralQuality
	}
	if p.SmartScore != nil {
		return *p.SmartScore
	}
	if p.CVScore != nil {
		return *p.CVScore
	}
	return NeutralQuality
}

// CV returns the CV score or 0 when the evaluator has not scored the provider
func (p *ProviderProfile) CV() float64 {
	if p == nil || p.CVScore == nil {
		return 0
	}
	return *p.CVScore
}
