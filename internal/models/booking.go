package models

import "time"

type Booking struct {
	ID               string        `json:"id"`
	ListingID        string        `json:"listing_id"`
	CustomerID       string        `json:"customer_id"`
	ProviderID       string        `json:"provider_id"`
	Date             time.Time     `json:"date"`
	TimeSlot         string        `json:"time_slot"`
	TotalPrice       float64       `json:"total_price"`
	Status           BookingStatus `json:"status"`
	CustomerLocation *Location     `json:"customer_location,omitempty"`
	ProviderLocation *Location     `json:"provider_location,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	Version          int64         `json:"version"`
}

// PartyRole returns the role accountID plays in the booking, or false if it is not a party.
func (b *Booking) PartyRole(accountID string) (Role, bool) {
	switch accountID {
	case "":
		return "", false
	case b.ProviderID:
		return RoleProvider, true
	case b.CustomerID:
		return RoleCustomer, true
	}
	return "", false
}

// Counterpart returns the id of the other party.
func (b *Booking) Counterpart(accountID string) string {
	if accountID == b.ProviderID {
		return b.CustomerID
	}
	return b.ProviderID
}

// VerificationCode is the one-time completion code of a booking.
type VerificationCode struct {
	BookingID  string     `json:"booking_id"`
	Code       string     `json:"-"`
	CustomerID string     `json:"customer_id"`
	ProviderID string     `json:"provider_id"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
