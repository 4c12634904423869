package exam

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/examprep-pro/examprep/internal/grading"
	"github.com/examprep-pro/examprep/internal/syncx"
)

// StartConfig is the per-session configuration, validated once at session
// start and immutable afterwards.
type StartConfig struct {
	ExamID        int64
	TopicNames    []string
	Difficulty    string
	Count         int
	UserID        *int64
	ExcludeRecent int
}

func (c StartConfig) validate() error {
	if c.ExamID <= 0 {
		return errors.New("exam id required")
	}
	if c.Count <= 0 {
		return errors.New("question count must be positive")
	}
	return nil
}

// Session is one frozen exam run: the attempt, the question set in
// presentation order, and the descriptor a client stores to come back.
type Session struct {
	Descriptor SessionDescriptor `json:"descriptor"`
	Exam       Exam              `json:"exam"`
	Questions  []Question        `json:"questions"`
}

// Selection is one submitted answer: the option values the user picked, in
// any order, possibly empty.
type Selection struct {
	QuestionID       int64    `json:"question_id"`
	Selected         []string `json:"selected"`
	TimeSpentSeconds *int     `json:"time_spent_seconds,omitempty"`
}

// QuestionReview is the per-question outcome shown after submission.
type QuestionReview struct {
	QuestionID   int64    `json:"question_id"`
	Text         string   `json:"question_text"`
	Selected     []string `json:"selected"`
	Correct      bool     `json:"correct"`
	CorrectLabel string   `json:"correct_label"`
	Explanation  string   `json:"explanation,omitempty"`
}

type SubmitResult struct {
	Attempt Attempt          `json:"attempt"`
	Score   int              `json:"score"`
	Total   int              `json:"total"`
	Reviews []QuestionReview `json:"reviews,omitempty"`
}

// SessionService drives the attempt lifecycle: sample and freeze at start,
// rebuild the frozen set on resume, grade and finalize at submit. The
// deadline is advisory; nothing here expires attempts on its own.
type SessionService struct {
	store  Store
	grader grading.Grader
	events syncx.Sink
	now    func() time.Time
}

func NewSessionService(store Store, grader grading.Grader, events syncx.Sink) *SessionService {
	if events == nil {
		events = syncx.NopSink{}
	}
	return &SessionService{store: store, grader: grader, events: events, now: time.Now}
}

// Start samples questions per the config, creates the attempt, and freezes
// the presentation order and deadline into the returned descriptor.
func (s *SessionService) Start(ctx context.Context, cfg StartConfig) (Session, error) {
	if err := cfg.validate(); err != nil {
		return Session{}, err
	}
	ex, err := s.store.GetExam(ctx, cfg.ExamID)
	if err != nil {
		return Session{}, err
	}

	topicIDs, err := s.resolveTopicIDs(ctx, cfg.ExamID, cfg.TopicNames)
	if err != nil {
		return Session{}, err
	}

	qs, err := s.store.SampleQuestions(ctx, SampleOpts{
		ExamID:        cfg.ExamID,
		TopicIDs:      topicIDs,
		Difficulty:    cfg.Difficulty,
		Limit:         cfg.Count,
		UserID:        cfg.UserID,
		ExcludeRecent: cfg.ExcludeRecent,
	})
	if err != nil {
		return Session{}, err
	}

	attempt, err := s.store.CreateAttempt(ctx, cfg.UserID, cfg.ExamID, len(qs))
	if err != nil {
		return Session{}, err
	}

	deadline := s.now().Add(time.Duration(ex.TimeLimit) * time.Minute)
	ids := make([]int64, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	d := SessionDescriptor{
		AttemptID:   attempt.ID,
		ExamID:      ex.ID,
		QuestionIDs: ids,
		Deadline:    deadline.Unix(),
		Topics:      cfg.TopicNames,
		Difficulty:  cfg.Difficulty,
		Count:       cfg.Count,
	}

	s.append(ctx, syncx.EventAttemptStarted, attempt.ID, map[string]interface{}{
		"exam_id": ex.ID, "total_questions": len(qs),
	})
	return Session{Descriptor: d, Exam: ex, Questions: qs}, nil
}

// Resume rebuilds the frozen session from a descriptor: the exact questions
// in descriptor order, never a fresh sample. A missing attempt id is a
// defensive fallback and gets a new attempt row.
func (s *SessionService) Resume(ctx context.Context, d SessionDescriptor, userID *int64) (Session, error) {
	if len(d.QuestionIDs) == 0 {
		return Session{}, ErrBadDescriptor
	}
	ex, err := s.store.GetExam(ctx, d.ExamID)
	if err != nil {
		return Session{}, err
	}

	qs, err := s.fetchOrdered(ctx, d.QuestionIDs)
	if err != nil {
		return Session{}, err
	}

	if d.AttemptID != 0 {
		if _, err := s.store.GetAttempt(ctx, d.AttemptID); err == nil {
			return Session{Descriptor: d, Exam: ex, Questions: qs}, nil
		} else if !errors.Is(err, ErrAttemptNotFound) {
			return Session{}, err
		}
	}
	attempt, err := s.store.CreateAttempt(ctx, userID, d.ExamID, len(qs))
	if err != nil {
		return Session{}, err
	}
	d.AttemptID = attempt.ID
	return Session{Descriptor: d, Exam: ex, Questions: qs}, nil
}

// Submit grades every question in the frozen set against the selections,
// persists one Answer per question, and finalizes the attempt. Submitting a
// completed attempt returns its stored result unchanged.
func (s *SessionService) Submit(ctx context.Context, d SessionDescriptor, selections []Selection) (SubmitResult, error) {
	if d.AttemptID == 0 {
		return SubmitResult{}, ErrBadDescriptor
	}
	attempt, err := s.store.GetAttempt(ctx, d.AttemptID)
	if err != nil {
		return SubmitResult{}, err
	}
	if attempt.Completed() {
		return s.storedResult(attempt), nil
	}

	ex, err := s.store.GetExam(ctx, d.ExamID)
	if err != nil {
		return SubmitResult{}, err
	}
	qs, err := s.fetchOrdered(ctx, d.QuestionIDs)
	if err != nil {
		return SubmitResult{}, err
	}

	byQuestion := make(map[int64]Selection, len(selections))
	for _, sel := range selections {
		byQuestion[sel.QuestionID] = sel
	}

	score := 0
	reviews := make([]QuestionReview, 0, len(qs))
	for _, q := range qs {
		sel := byQuestion[q.ID] // zero value = unanswered
		res, err := s.grader.Grade(ctx, grading.Q{
			Type:           q.Type,
			Options:        q.Options,
			CorrectAnswers: q.CorrectAnswers,
		}, sel.Selected)
		if err != nil {
			// grading is total; treat a strategy error as incorrect
			res = grading.Result{CorrectLabel: grading.CanonicalLabel(grading.Q{
				Type: q.Type, Options: q.Options, CorrectAnswers: q.CorrectAnswers,
			})}
		}
		if res.Correct {
			score++
		}
		if _, err := s.store.SaveAnswer(ctx, Answer{
			AttemptID:        attempt.ID,
			QuestionID:       q.ID,
			Selected:         nonNil(sel.Selected),
			Correct:          res.Correct,
			TimeSpentSeconds: sel.TimeSpentSeconds,
		}); err != nil {
			return SubmitResult{}, err
		}
		reviews = append(reviews, QuestionReview{
			QuestionID:   q.ID,
			Text:         q.Text,
			Selected:     nonNil(sel.Selected),
			Correct:      res.Correct,
			CorrectLabel: res.CorrectLabel,
			Explanation:  q.Explanation,
		})
	}

	remaining := int(d.RemainingTime(s.now()).Seconds())
	timeTaken := ex.TimeLimit*60 - remaining
	final, err := s.store.FinalizeAttempt(ctx, attempt.ID, score, timeTaken)
	if errors.Is(err, ErrAttemptFinalized) {
		// Lost a race with another submit for the same attempt; the stored
		// result wins.
		return s.storedResult(final), nil
	}
	if err != nil {
		return SubmitResult{}, err
	}

	s.append(ctx, syncx.EventAttemptSubmitted, attempt.ID, map[string]interface{}{
		"exam_id": ex.ID, "score": score, "total": len(qs), "time_taken": timeTaken,
	})
	return SubmitResult{Attempt: final, Score: score, Total: len(qs), Reviews: reviews}, nil
}

func (s *SessionService) storedResult(a Attempt) SubmitResult {
	res := SubmitResult{Attempt: a, Total: a.TotalQuestions}
	if a.Score != nil {
		res.Score = *a.Score
	}
	return res
}

// fetchOrdered re-fetches questions by id and restores descriptor order;
// ids with no matching row are skipped.
func (s *SessionService) fetchOrdered(ctx context.Context, ids []int64) ([]Question, error) {
	qs, err := s.store.GetQuestionsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]Question, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}
	ordered := make([]Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}
	return ordered, nil
}

func (s *SessionService) resolveTopicIDs(ctx context.Context, examID int64, names []string) ([]int64, error) {
	if len(names) == 0 {
		return nil, nil
	}
	topics, err := s.store.ListTopics(ctx, examID)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]int64, len(topics))
	for _, t := range topics {
		byName[strings.ToLower(t.Name)] = t.ID
	}
	var ids []int64
	for _, n := range names {
		if id, ok := byName[strings.ToLower(strings.TrimSpace(n))]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *SessionService) append(ctx context.Context, typ string, attemptID int64, data map[string]interface{}) {
	buf, err := json.Marshal(data)
	if err != nil {
		return
	}
	// activity log is best-effort; the attempt itself is already persisted
	_ = s.events.Append(ctx, syncx.Event{
		Type:     typ,
		Key:      strconv.FormatInt(attemptID, 10),
		DataJSON: string(buf),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
