package models

import "time"

// Location is a point in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 && l.Longitude >= -180 && l.Longitude <= 180
}

// Listing is a service offered by a provider.
type Listing struct {
	ID          string    `json:"id"`
	ProviderID  string    `json:"provider_id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	PriceType   PriceType `json:"price_type"`
	ImageURL    string    `json:"image_url,omitempty"`
	Location    *Location `json:"location,omitempty"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AvailabilityWindow is a recurring weekly working window of a provider.
type AvailabilityWindow struct {
	ProviderID string       `json:"provider_id"`
	DayOfWeek  time.Weekday `json:"day_of_week"`
	Start      string       `json:"start"`
	End        string       `json:"end"`
}

// BlockedDate marks a day on which a provider takes no bookings.
type BlockedDate struct {
	ProviderID string    `json:"provider_id"`
	Date       time.Time `json:"date"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Slot is a one-hour bookable slot on a given date.
type Slot struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
}
