package exam

import (
	"context"
	"errors"
)

var (
	ErrExamNotFound     = errors.New("exam not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrAttemptFinalized = errors.New("attempt already finalized")
)

// ListOpts filters the exam catalog. Q is a case-insensitive title
// substring; Category and Difficulty are exact matches when non-empty.
type ListOpts struct {
	Q          string
	Category   string
	Difficulty string
	Limit      int
	Offset     int
}

// SampleOpts selects questions for one session.
//
// TopicIDs empty means all topics. Difficulty "" or "Random" means any.
// When UserID is set, the user's last ExcludeRecent answered question ids
// for this exam are removed from the pool before sampling; ExcludeRecent
// <= 0 disables the history filter.
type SampleOpts struct {
	ExamID        int64
	TopicIDs      []int64
	Difficulty    string
	Limit         int
	UserID        *int64
	ExcludeRecent int
}

type ExamPage struct {
	Items  []Exam `json:"items"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

type Store interface {
	// Exams / topics
	CreateExam(ctx context.Context, e Exam) (Exam, error)
	GetExam(ctx context.Context, id int64) (Exam, error)
	GetExamByTitle(ctx context.Context, title string) (Exam, error)
	ListExams(ctx context.Context, opts ListOpts) (ExamPage, error)
	ListTopics(ctx context.Context, examID int64) ([]Topic, error)
	GetOrCreateTopic(ctx context.Context, examID int64, name string) (Topic, error)

	// Questions
	CreateQuestion(ctx context.Context, q Question) (Question, error)
	BulkInsertQuestions(ctx context.Context, examID int64, qs []Question) (int, error)
	GetQuestionsByIDs(ctx context.Context, ids []int64) ([]Question, error)
	SampleQuestions(ctx context.Context, opts SampleOpts) ([]Question, error)

	// Attempts / answers
	CreateAttempt(ctx context.Context, userID *int64, examID int64, totalQuestions int) (Attempt, error)
	GetAttempt(ctx context.Context, id int64) (Attempt, error)
	SaveAnswer(ctx context.Context, a Answer) (Answer, error)
	// FinalizeAttempt sets score, elapsed time, and completed_at exactly
	// once; a second call returns ErrAttemptFinalized.
	FinalizeAttempt(ctx context.Context, attemptID int64, score, timeTakenSeconds int) (Attempt, error)
	ListAnswers(ctx context.Context, attemptID int64) ([]Answer, error)

	// Leaderboard
	Leaderboard(ctx context.Context, examID int64, limit int) ([]LeaderboardEntry, error)

	// Discussions
	AddDiscussion(ctx context.Context, d Discussion) (Discussion, error)
	ListDiscussions(ctx context.Context, questionID int64) ([]Discussion, error)

	// Users
	CreateUser(ctx context.Context, u User) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error
}
