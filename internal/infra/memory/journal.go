package memory

import (
	"context"
	"sort"
	"sync"

	"quizmaster-web/internal/domain"
)

// Journal is an in-process app.AttemptJournal used when no database is configured.
type Journal struct {
	mu      sync.RWMutex
	records []domain.AttemptRecord
	limit   int
}

// NewJournal keeps at most limit records, dropping the oldest.
func NewJournal(limit int) *Journal {
	if limit <= 0 {
		limit = 1000
	}
	return &Journal{limit: limit}
}

func (j *Journal) Record(_ context.Context, rec domain.AttemptRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	if over := len(j.records) - j.limit; over > 0 {
		j.records = append(j.records[:0:0], j.records[over:]...)
	}
	return nil
}

func (j *Journal) Recent(_ context.Context, email string, limit int) ([]domain.AttemptRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var out []domain.AttemptRecord
	for _, rec := range j.records {
		if rec.UserEmail == email {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].FinishedAt.After(out[b].FinishedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
