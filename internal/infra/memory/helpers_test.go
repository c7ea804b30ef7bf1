package memory

import (
	"time"

	"quizmaster-web/internal/domain"
)

func sampleRecord() domain.AttemptRecord {
	return domain.AttemptRecord{
		ID:         "r1",
		UserEmail:  "a@b.com",
		Subject:    domain.SubjectMath,
		Score:      1,
		Total:      3,
		FinishedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func timeStep(i int) time.Duration { return time.Duration(i) * time.Minute }
