package models

import "time"

type Review struct {
	ID               string     `json:"id"`
	BookingID        string     `json:"booking_id"`
	ListingID        string     `json:"listing_id"`
	ProviderID       string     `json:"provider_id"`
	CustomerID       string     `json:"customer_id"`
	Rating           int        `json:"rating"`
	Comment          string     `json:"comment"`
	ProviderResponse string     `json:"provider_response,omitempty"`
	RespondedAt      *time.Time `json:"responded_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// RatingSummary aggregates the reviews of one listing.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}
