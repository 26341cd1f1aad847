package models

// ProviderStats is the provider dashboard summary.
type ProviderStats struct {
	ProviderID        string                `json:"provider_id"`
	Days              int                   `json:"days"`
	TotalBookings     int                   `json:"total_bookings"`
	ByStatus          map[BookingStatus]int `json:"by_status"`
	TotalEarnings     float64               `json:"total_earnings"`
	MonthlyEarnings   float64               `json:"monthly_earnings"`
	AverageRating     float64               `json:"average_rating"`
	ReviewCount       int                   `json:"review_count"`
	Listings          []ListingStats        `json:"listings"`
	RevenueByMonth    map[string]float64    `json:"revenue_by_month"`
	CompletedBookings []*Booking            `json:"-"`
}

type ListingStats struct {
	ListingID string  `json:"listing_id"`
	Title     string  `json:"title"`
	Bookings  int     `json:"bookings"`
	Completed int     `json:"completed"`
	Revenue   float64 `json:"revenue"`
}
