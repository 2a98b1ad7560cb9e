package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unsa/eventhub/internal/huberrors"
	"github.com/unsa/eventhub/internal/models"
)

// EventsRepository handles read access to the events table.
type EventsRepository struct {
	db *pgxpool.Pool
}

// NewEventsRepository creates a new events repository.
func NewEventsRepository(db *pgxpool.Pool) *EventsRepository {
	return &EventsRepository{db: db}
}

// GetByYear returns the event for year. When several events share a year the oldest wins.
func (r *EventsRepository) GetByYear(ctx context.Context, year int) (*models.Event, error) {
	var e models.Event

	err := r.db.QueryRow(ctx, `
		SELECT id, name, year, description, venue, tz, starts_on, ends_on, website_url, contacts,
			created_at, updated_at
		FROM events
		WHERE year = $1
		ORDER BY created_at ASC, id ASC
		LIMIT 1`, year,
	).Scan(
		&e.ID, &e.Name, &e.Year, &e.Description, &e.Venue, &e.TZ, &e.StartsOn, &e.EndsOn,
		&e.WebsiteURL, &e.Contacts, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.NewNotFoundError("event", "Event not found for year: "+strconv.Itoa(year))
		}

		return nil, fmt.Errorf("get event by year: %w", err)
	}

	return &e, nil
}

// ListYears returns every distinct event year, newest first.
func (r *EventsRepository) ListYears(ctx context.Context) ([]int, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT year FROM events ORDER BY year DESC`)
	if err != nil {
		return nil, fmt.Errorf("list event years: %w", err)
	}

	years, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("list event years: %w", err)
	}

	return years, nil
}

// Count returns the number of events.
func (r *EventsRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}

	return n, nil
}
