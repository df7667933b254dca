package appointments

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// NOTE: assumes table appointments with an index on (user_id, starts_at).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) Create(ctx context.Context, a Appointment) (Appointment, error) {
	if err := validateNew(a); err != nil {
		return Appointment{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	const q = `
INSERT INTO appointments (id, organization_id, user_id, customer_name, title, starts_at, ends_at, location, notes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now())
RETURNING created_at
`
	var ends sql.NullTime
	if a.EndsAt != nil {
		ends = sql.NullTime{Time: *a.EndsAt, Valid: true}
	}
	err := s.db.QueryRowContext(ctx, q,
		a.ID,
		a.OrganizationID,
		a.UserID,
		a.CustomerName,
		a.Title,
		a.StartsAt.UTC(),
		ends,
		a.Location,
		a.Notes,
	).Scan(&a.CreatedAt)
	if err != nil {
		return Appointment{}, err
	}
	return a, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]Appointment, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	const q = `
SELECT id, organization_id, user_id, customer_name, title, starts_at, ends_at, location, notes, created_at
FROM appointments
WHERE user_id = $1 AND starts_at >= $2 AND starts_at < $3
ORDER BY starts_at ASC
`
	rows, err := s.db.QueryContext(ctx, q, userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Appointment{}
	for rows.Next() {
		var (
			a    Appointment
			ends sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.OrganizationID, &a.UserID, &a.CustomerName, &a.Title, &a.StartsAt, &ends, &a.Location, &a.Notes, &a.CreatedAt); err != nil {
			return nil, err
		}
		if ends.Valid {
			t := ends.Time
			a.EndsAt = &t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
