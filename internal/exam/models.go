package exam

import "time"

// Question types. TRUE_FALSE questions may be stored with no options; they
// default to ["True","False"] when loaded.
const (
	TypeMCQ         = "MCQ"
	TypeTrueFalse   = "TRUE_FALSE"
	TypeMultiSelect = "MULTI_SELECT"
)

// DifficultyRandom disables difficulty filtering when sampling.
const DifficultyRandom = "Random"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

type Exam struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty"` // Easy, Medium, Hard (overall baseline)
	TimeLimit   int    `json:"time_limit"` // minutes
	Description string `json:"description"`
}

type Topic struct {
	ID     int64  `json:"id"`
	ExamID int64  `json:"exam_id"`
	Name   string `json:"name"`
}

type Question struct {
	ID             int64    `json:"id"`
	ExamID         int64    `json:"exam_id"`
	TopicID        *int64   `json:"topic_id,omitempty"`
	Text           string   `json:"question_text"`
	Type           string   `json:"type"`
	Options        []string `json:"options"`
	CorrectAnswers []int    `json:"correct_answers,omitempty"` // indices into Options
	Explanation    string   `json:"explanation,omitempty"`
	Difficulty     string   `json:"difficulty,omitempty"`
}

// Sanitized strips grading material for student-facing payloads.
func (q Question) Sanitized() Question {
	q.CorrectAnswers = nil
	q.Explanation = ""
	return q
}

type Attempt struct {
	ID               int64      `json:"id"`
	UserID           *int64     `json:"user_id,omitempty"` // nil for anonymous
	ExamID           int64      `json:"exam_id"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	Score            *int       `json:"score,omitempty"`
	TotalQuestions   int        `json:"total_questions"`
	TimeTakenSeconds *int       `json:"time_taken_seconds,omitempty"`
}

// Completed reports whether the attempt has been finalized.
func (a Attempt) Completed() bool { return a.CompletedAt != nil }

type Answer struct {
	ID               int64     `json:"id"`
	AttemptID        int64     `json:"attempt_id"`
	QuestionID       int64     `json:"question_id"`
	Selected         []string  `json:"selected_answers"` // option values as shown
	Correct          bool      `json:"correct"`
	TimeSpentSeconds *int      `json:"time_spent_seconds,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

type Discussion struct {
	ID         int64     `json:"id"`
	QuestionID int64     `json:"question_id"`
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username,omitempty"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

type LeaderboardEntry struct {
	Username         string     `json:"username"`
	Score            int        `json:"score"`
	TotalQuestions   int        `json:"total_questions"`
	TimeTakenSeconds int        `json:"time_taken_seconds"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// normalizeOptions applies the TRUE_FALSE default so grading and display
// always see concrete option values.
func normalizeOptions(qType string, opts []string) []string {
	if len(opts) == 0 && qType == TypeTrueFalse {
		return []string{"True", "False"}
	}
	return opts
}
