package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Role values carried in User.Role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Subject partitions quizzes and leaderboards.
type Subject string

const (
	SubjectMath           Subject = "Math"
	SubjectEnglish        Subject = "English"
	SubjectCurrentAffairs Subject = "Current Affairs"
)

// Subjects lists the subjects in display order.
var Subjects = []Subject{SubjectMath, SubjectEnglish, SubjectCurrentAffairs}

// ParseSubject accepts a subject name or one of its display aliases.
func ParseSubject(raw string) (Subject, error) {
	switch strings.TrimSpace(raw) {
	case "Math", "Mathematics":
		return SubjectMath, nil
	case "English":
		return SubjectEnglish, nil
	case "Current Affairs":
		return SubjectCurrentAffairs, nil
	}
	return "", ErrInvalidSubject
}

// User is the identity returned by the backend at login.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IsAdmin reports whether the user carries the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Session is the credential pair kept for one browser.
// The role is always read from User; it is never stored separately.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Role returns the role of the session's user.
func (s Session) Role() string { return s.User.Role }

// Option represents a possible answer for a question.
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question models an MCQ question; one option should be flagged correct.
type Question struct {
	ID           string   `json:"_id,omitempty"`
	Number       int      `json:"number"`
	QuestionText string   `json:"questionText"`
	Options      []Option `json:"options"`
}

// CorrectText returns the text of the first option flagged correct.
func (q Question) CorrectText() (string, bool) {
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return opt.Text, true
		}
	}
	return "", false
}

// HasOption reports whether text is one of the question's options.
func (q Question) HasOption(text string) bool {
	for _, opt := range q.Options {
		if opt.Text == text {
			return true
		}
	}
	return false
}

// Quiz is the single document holding all questions of a subject.
type Quiz struct {
	ID        string     `json:"_id"`
	Subject   Subject    `json:"subject"`
	Questions []Question `json:"questions"`
	Version   *int       `json:"__v,omitempty"`
}

// QuestionInput is the write shape the backend accepts on quiz create/replace.
type QuestionInput struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// InputFromQuestion converts a stored question back into its write shape.
func InputFromQuestion(q Question) QuestionInput {
	options := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		options = append(options, opt.Text)
	}
	correct, _ := q.CorrectText()
	return QuestionInput{Question: q.QuestionText, Options: options, CorrectAnswer: correct}
}

// QuestionUpdate is the partial update for one question.
type QuestionUpdate struct {
	Number       int      `json:"number"`
	QuestionText string   `json:"questionText"`
	Options      []Option `json:"options"`
}

// Result is the outcome of a finished attempt.
type Result struct {
	Subject Subject `json:"subject"`
	Score   int     `json:"score"`
	Total   int     `json:"totalQuestions"`
}

// Percentage is round(100*score/total), 0 for an empty quiz.
func (r Result) Percentage() int { return Percentage(r.Score, r.Total) }

// Percentage returns round(100*score/total) bounded to [0,100]; 0 when total is 0.
func Percentage(score, total int) int {
	if total <= 0 || score <= 0 {
		return 0
	}
	if score >= total {
		return 100
	}
	// integer round-half-up
	return (200*score + total) / (2 * total)
}

// LeaderboardEntry is one row of a leaderboard. Name is normalized from the
// several shapes the backend has used (user object, user string, name, username).
type LeaderboardEntry struct {
	Name           string  `json:"name"`
	Subject        Subject `json:"subject"`
	Score          int     `json:"score"`
	TotalQuestions int     `json:"totalQuestions"`
}

func (e *LeaderboardEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		User           json.RawMessage `json:"user"`
		Name           string          `json:"name"`
		Username       string          `json:"username"`
		Subject        Subject         `json:"subject"`
		Score          int             `json:"score"`
		TotalQuestions int             `json:"totalQuestions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Subject = raw.Subject
	e.Score = raw.Score
	e.TotalQuestions = raw.TotalQuestions
	e.Name = firstNonEmpty(userName(raw.User), raw.Name, raw.Username)
	return nil
}

func userName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return name
	}
	var obj struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return firstNonEmpty(obj.Name, obj.Username, obj.Email)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Profile is the user's editable record on the backend.
type Profile struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
	Username       string `json:"username,omitempty"`
	Bio            string `json:"bio"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// AttemptRecord is a finished attempt kept in the local journal.
type AttemptRecord struct {
	ID         string    `json:"id"`
	UserEmail  string    `json:"userEmail"`
	Subject    Subject   `json:"subject"`
	Score      int       `json:"score"`
	Total      int       `json:"total"`
	FinishedAt time.Time `json:"finishedAt"`
}
