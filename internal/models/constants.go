package models

// Role is the marketplace role attached to an account.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleProvider
}

// BookingStatus is the wire-level booking state.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusAccepted  BookingStatus = "accepted"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

// BookingStatuses lists every known status in lifecycle order.
var BookingStatuses = []BookingStatus{StatusPending, StatusAccepted, StatusCompleted, StatusCancelled}

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Active reports whether the booking still holds its time slot.
func (s BookingStatus) Active() bool {
	return s == StatusPending || s == StatusAccepted
}

type PriceType string

const (
	PriceFixed      PriceType = "fixed"
	PriceHourly     PriceType = "hourly"
	PricePerProject PriceType = "per_project"
)

func (p PriceType) Valid() bool {
	return p == PriceFixed || p == PriceHourly || p == PricePerProject
}

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

const (
	NotificationVerificationCode = "verification_code"
	NotificationBookingStatus    = "booking_status"
	NotificationNewMessage       = "new_message"
)

const (
	// DateLayout is used for booking and blocked dates.
	DateLayout = "2006-01-02"
	// SlotLayout is used for booking time slots and availability windows.
	SlotLayout = "15:04"

	MaxMessageLength = 2000
	MinRating        = 1
	MaxRating        = 5
)
