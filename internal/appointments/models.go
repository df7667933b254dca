package appointments

import (
	"context"
	"errors"
	"time"
)

// Appointment is a scheduled sales meeting owned by one user.
type Appointment struct {
	ID             string     `json:"id" db:"id"`
	OrganizationID string     `json:"organization_id" db:"organization_id"`
	UserID         string     `json:"user_id" db:"user_id"`
	CustomerName   string     `json:"customer_name" db:"customer_name"`
	Title          string     `json:"title" db:"title"`
	StartsAt       time.Time  `json:"starts_at" db:"starts_at"`
	EndsAt         *time.Time `json:"ends_at,omitempty" db:"ends_at"`
	Location       string     `json:"location,omitempty" db:"location"`
	Notes          string     `json:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

var (
	ErrInvalidArgument = errors.New("appointments: invalid argument")
	ErrUnknownTimeZone = errors.New("appointments: unknown time zone")
)

type Store interface {
	Create(ctx context.Context, a Appointment) (Appointment, error)
	// ListByUser returns appointments starting in [from, to), earliest first.
	ListByUser(ctx context.Context, userID string, from, to time.Time) ([]Appointment, error)
}

func validateNew(a Appointment) error {
	if a.OrganizationID == "" || a.UserID == "" || a.StartsAt.IsZero() {
		return ErrInvalidArgument
	}
	if a.EndsAt != nil && a.EndsAt.Before(a.StartsAt) {
		return ErrInvalidArgument
	}
	return nil
}
