package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/aftersales-service/internal/domain"
)

// NoteRepository persists the communication thread of a case.
type NoteRepository interface {
	Create(ctx context.Context, note *domain.CaseNote) error
	ListByCase(ctx context.Context, caseID string) ([]domain.CaseNote, error)
}

type noteRepository struct {
	pool *pgxpool.Pool
}

// NewNoteRepository instantiates repository.
func NewNoteRepository(pool *pgxpool.Pool) NoteRepository {
	return &noteRepository{pool: pool}
}

func (r *noteRepository) Create(ctx context.Context, note *domain.CaseNote) error {
	const query = `
        INSERT INTO case_notes (case_id, author_id, author_role, message, photos)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		note.CaseID,
		note.AuthorID,
		note.AuthorRole,
		note.Message,
		note.Photos,
	).Scan(&note.ID, &note.CreatedAt)
}

func (r *noteRepository) ListByCase(ctx context.Context, caseID string) ([]domain.CaseNote, error) {
	const query = `
        SELECT id, case_id, author_id, author_role, message, photos, created_at
        FROM case_notes WHERE case_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []domain.CaseNote
	for rows.Next() {
		var note domain.CaseNote
		if err := rows.Scan(
			&note.ID,
			&note.CaseID,
			&note.AuthorID,
			&note.AuthorRole,
			&note.Message,
			&note.Photos,
			&note.CreatedAt,
		); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}
