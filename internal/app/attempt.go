package app

import "quizmaster-web/internal/domain"

// AttemptState is the quiz runner's position in its lifecycle.
type AttemptState string

const (
	AttemptLoading  AttemptState = "loading"
	AttemptReady    AttemptState = "ready"
	AttemptEmpty    AttemptState = "empty"
	AttemptError    AttemptState = "error"
	AttemptFinished AttemptState = "finished"
)

// Attempt is one user's pass over a subject's questions.
// Answers maps question index to the chosen option text.
type Attempt struct {
	Subject    domain.Subject    `json:"subject"`
	State      AttemptState      `json:"state"`
	Questions  []domain.Question `json:"questions"`
	Index      int               `json:"index"`
	Answers    map[int]string    `json:"answers"`
	Generation uint64            `json:"generation"`
	Error      string            `json:"error,omitempty"`
	Result     *domain.Result    `json:"result,omitempty"`
}

// reset clears progress and bumps the generation so in-flight loads for the
// previous subject are discarded when they complete.
func (a *Attempt) reset(subject domain.Subject) uint64 {
	a.Subject = subject
	a.State = AttemptLoading
	a.Questions = nil
	a.Index = 0
	a.Answers = make(map[int]string)
	a.Error = ""
	a.Result = nil
	a.Generation++
	return a.Generation
}

// load installs fetched questions.
func (a *Attempt) load(questions []domain.Question) {
	a.Questions = questions
	a.Index = 0
	if len(questions) == 0 {
		a.State = AttemptEmpty
		return
	}
	a.State = AttemptReady
}

func (a *Attempt) fail(err error) {
	a.State = AttemptError
	a.Error = domain.UserMessage(err)
}

// Current returns the question at the cursor.
func (a *Attempt) Current() (domain.Question, bool) {
	if a.Index < 0 || a.Index >= len(a.Questions) {
		return domain.Question{}, false
	}
	return a.Questions[a.Index], true
}

// Selected returns the recorded answer for the current question, if any.
func (a *Attempt) Selected() string {
	return a.Answers[a.Index]
}

// IsFirst reports whether the cursor is on the first question.
func (a *Attempt) IsFirst() bool { return a.Index == 0 }

// IsLast reports whether the cursor is on the last question.
func (a *Attempt) IsLast() bool { return a.Index == len(a.Questions)-1 }

// CanAdvance is false until the current question has an answer, so none can be skipped.
func (a *Attempt) CanAdvance() bool {
	_, ok := a.Answers[a.Index]
	return a.State == AttemptReady && ok
}

// Select records or overwrites the answer for the current question.
func (a *Attempt) Select(text string) error {
	if a.State != AttemptReady {
		return domain.ErrNoAttempt
	}
	q, ok := a.Current()
	if !ok {
		return domain.ErrNoAttempt
	}
	if !q.HasOption(text) {
		return domain.ErrOptionNotFound
	}
	if a.Answers == nil {
		a.Answers = make(map[int]string)
	}
	a.Answers[a.Index] = text
	return nil
}

// Next advances the cursor, or scores the attempt when on the last question.
// It reports whether the attempt finished.
func (a *Attempt) Next() (bool, error) {
	if a.State != AttemptReady {
		return false, domain.ErrNoAttempt
	}
	if !a.CanAdvance() {
		return false, domain.ErrAnswerRequired
	}
	if !a.IsLast() {
		a.Index++
		return false, nil
	}
	a.Result = &domain.Result{
		Subject: a.Subject,
		Score:   Score(a.Questions, a.Answers),
		Total:   len(a.Questions),
	}
	a.State = AttemptFinished
	return true, nil
}

// Previous moves the cursor back; it never goes below the first question.
func (a *Attempt) Previous() {
	if a.State == AttemptReady && a.Index > 0 {
		a.Index--
	}
}

// Score counts questions whose chosen text equals the correct option's text.
// Questions without a correct option never score.
func Score(questions []domain.Question, answers map[int]string) int {
	score := 0
	for i, q := range questions {
		chosen, answered := answers[i]
		if !answered {
			continue
		}
		if correct, ok := q.CorrectText(); ok && chosen == correct {
			score++
		}
	}
	return score
}
