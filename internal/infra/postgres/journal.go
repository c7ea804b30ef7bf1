package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quizmaster-web/internal/domain"
)

// Journal stores finished attempts in the attempts table.
type Journal struct {
	pool *pgxpool.Pool
}

func NewJournal(pool *pgxpool.Pool) *Journal {
	return &Journal{pool: pool}
}

func (j *Journal) Record(ctx context.Context, rec domain.AttemptRecord) error {
	_, err := j.pool.Exec(ctx,
		`INSERT INTO attempts (id, user_email, subject, score, total, finished_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.UserEmail, string(rec.Subject), rec.Score, rec.Total, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (j *Journal) Recent(ctx context.Context, email string, limit int) ([]domain.AttemptRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := j.pool.Query(ctx,
		`SELECT id::text, user_email, subject, score, total, finished_at
		   FROM attempts WHERE user_email = $1
		  ORDER BY finished_at DESC LIMIT $2`,
		email, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []domain.AttemptRecord
	for rows.Next() {
		var rec domain.AttemptRecord
		var subject string
		if err := rows.Scan(&rec.ID, &rec.UserEmail, &subject, &rec.Score, &rec.Total, &rec.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		rec.Subject = domain.Subject(subject)
		out = append(out, rec)
	}
	return out, rows.Err()
}
