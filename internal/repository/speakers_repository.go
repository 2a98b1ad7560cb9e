package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unsa/eventhub/internal/huberrors"
	"github.com/unsa/eventhub/internal/models"
)

const speakerColumns = `id, full_name, org_name, job_title, bio, profile_image_url, contacts, created_at, updated_at`

// SpeakersRepository handles read access to the speakers table.
type SpeakersRepository struct {
	db *pgxpool.Pool
}

// NewSpeakersRepository creates a new speakers repository.
func NewSpeakersRepository(db *pgxpool.Pool) *SpeakersRepository {
	return &SpeakersRepository{db: db}
}

func scanSpeaker(row pgx.Row) (models.Speaker, error) {
	var s models.Speaker

	err := row.Scan(
		&s.ID, &s.FullName, &s.OrgName, &s.JobTitle, &s.Bio, &s.ProfileImageURL,
		&s.Contacts, &s.CreatedAt, &s.UpdatedAt,
	)

	return s, err //nolint:wrapcheck // callers wrap with operation context
}

// GetByID returns a speaker by id.
func (r *SpeakersRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Speaker, error) {
	s, err := scanSpeaker(r.db.QueryRow(ctx, `SELECT `+speakerColumns+` FROM speakers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.NewNotFoundError("speaker", "Speaker not found with id: "+id.String())
		}

		return nil, fmt.Errorf("get speaker: %w", err)
	}

	return &s, nil
}

// ListByIDs loads all speakers in ids with one query. Order is unspecified and missing ids are skipped.
func (r *SpeakersRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Speaker, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	return r.list(ctx, `SELECT `+speakerColumns+` FROM speakers WHERE id = ANY($1)`, ids)
}

// FindByNameTrigram returns up to limit speakers whose accent-folded name has trigram
// similarity above threshold with name, most similar first.
func (r *SpeakersRepository) FindByNameTrigram(
	ctx context.Context, name string, threshold float64, limit int,
) ([]models.Speaker, error) {
	return r.list(ctx, `
		SELECT `+speakerColumns+`
		FROM speakers
		WHERE similarity(unaccent(full_name), unaccent($1)) > $2
		ORDER BY similarity(unaccent(full_name), unaccent($1)) DESC, id ASC
		LIMIT $3`, name, threshold, limit)
}

func (r *SpeakersRepository) list(ctx context.Context, query string, args ...any) ([]models.Speaker, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list speakers: %w", err)
	}
	defer rows.Close()

	var out []models.Speaker

	for rows.Next() {
		s, err := scanSpeaker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan speaker: %w", err)
		}

		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating speakers: %w", err)
	}

	return out, nil
}
