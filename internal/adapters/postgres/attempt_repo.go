package postgres

import (
	"context"
	"time"

	"github.com/samirrijal/parkit/internal/core/domain"
)

// AttemptRepo implements ports.AttemptRepository.
type AttemptRepo struct {
	db *DB
}

func NewAttemptRepo(db *DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

func (r *AttemptRepo) Insert(ctx context.Context, a *domain.BookingAttempt) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO booking_attempts (user_id, location_id, vehicle_id, start_time, end_time, total_price, covered, charging, status, booking_id, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id::text, created_at
	`, a.UserID, a.LocationID, a.VehicleID, nilIfZero(a.StartTime), nilIfZero(a.EndTime),
		a.TotalPrice, a.Features.Covered, a.Features.Charging, string(a.Status),
		nilIfEmpty(a.BookingID), nilIfEmpty(a.Error),
	).Scan(&a.ID, &a.CreatedAt)
}

func (r *AttemptRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.BookingAttempt, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM booking_attempts WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, user_id, location_id, vehicle_id, start_time, end_time,
			total_price::float8, covered, charging, status,
			COALESCE(booking_id, ''), COALESCE(error, ''), created_at
		FROM booking_attempts
		WHERE user_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`, userID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	attempts := make([]domain.BookingAttempt, 0, limit)
	for rows.Next() {
		var a domain.BookingAttempt
		var start, end *time.Time
		var status string
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.LocationID, &a.VehicleID, &start, &end,
			&a.TotalPrice, &a.Features.Covered, &a.Features.Charging, &status,
			&a.BookingID, &a.Error, &a.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		if start != nil {
			a.StartTime = *start
		}
		if end != nil {
			a.EndTime = *end
		}
		a.Status = domain.AttemptStatus(status)
		attempts = append(attempts, a)
	}
	return attempts, total, rows.Err()
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nilIfZero(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
