package models

import "time"

// Account is a marketplace profile. Accounts are created on first sign-in and never deleted.
type Account struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	City      string    `json:"city"`
	Bio       string    `json:"bio"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
