package lifecycle

import (
	"fmt"

	"servicehub/internal/domain"
	"servicehub/internal/models"
)

type key struct {
	from models.BookingStatus
	role models.Role
}

var transitions = map[key][]models.BookingStatus{
	{models.StatusPending, models.RoleProvider}:  {models.StatusAccepted, models.StatusCancelled},
	{models.StatusPending, models.RoleCustomer}:  {models.StatusCancelled},
	{models.StatusAccepted, models.RoleProvider}: {models.StatusCompleted, models.StatusCancelled},
	{models.StatusAccepted, models.RoleCustomer}: {models.StatusCancelled},
}

// AllowedTransitions returns the statuses role may move a booking to from current.
// Terminal and unknown statuses yield an empty set.
func AllowedTransitions(current models.BookingStatus, role models.Role) []models.BookingStatus {
	next := transitions[key{current, role}]
	out := make([]models.BookingStatus, len(next))
	copy(out, next)
	return out
}

func CanTransition(current, next models.BookingStatus, role models.Role) bool {
	for _, s := range transitions[key{current, role}] {
		if s == next {
			return true
		}
	}
	return false
}

// Validate fails with domain.ErrInvalidTransition when next is not allowed.
func Validate(current, next models.BookingStatus, role models.Role) error {
	if !CanTransition(current, next, role) {
		return fmt.Errorf("%w: %s cannot move booking from %s to %s", domain.ErrInvalidTransition, role, current, next)
	}
	return nil
}

func IsTerminal(status models.BookingStatus) bool {
	return status == models.StatusCompleted || status == models.StatusCancelled
}
