package exam

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"
)

// memoryStore keeps everything in maps. It backs tests and quick local runs;
// production wiring uses SQLStore.
type memoryStore struct {
	mu sync.RWMutex

	nextID      int64
	exams       map[int64]Exam
	topics      map[int64]Topic
	questions   map[int64]Question
	attempts    map[int64]Attempt
	answers     map[int64]Answer
	discussions map[int64]Discussion
	users       map[int64]User
}

func NewInMemoryStore() Store {
	return &memoryStore{
		exams:       map[int64]Exam{},
		topics:      map[int64]Topic{},
		questions:   map[int64]Question{},
		attempts:    map[int64]Attempt{},
		answers:     map[int64]Answer{},
		discussions: map[int64]Discussion{},
		users:       map[int64]User{},
	}
}

func (m *memoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryStore) CreateExam(_ context.Context, e Exam) (Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.id()
	m.exams[e.ID] = e
	return e, nil
}

func (m *memoryStore) GetExam(_ context.Context, id int64) (Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exams[id]
	if !ok {
		return Exam{}, ErrExamNotFound
	}
	return e, nil
}

func (m *memoryStore) GetExamByTitle(_ context.Context, title string) (Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.exams {
		if strings.EqualFold(e.Title, title) {
			return e, nil
		}
	}
	return Exam{}, ErrExamNotFound
}

func (m *memoryStore) ListExams(_ context.Context, opts ListOpts) (ExamPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	var items []Exam
	for _, e := range m.exams {
		if opts.Q != "" && !strings.Contains(strings.ToLower(e.Title), strings.ToLower(opts.Q)) {
			continue
		}
		if opts.Category != "" && e.Category != opts.Category {
			continue
		}
		if opts.Difficulty != "" && e.Difficulty != opts.Difficulty {
			continue
		}
		items = append(items, e)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Title < items[j].Title })
	page := ExamPage{Total: len(items), Limit: opts.Limit, Offset: opts.Offset, Items: []Exam{}}
	for i := opts.Offset; i < len(items) && len(page.Items) < opts.Limit; i++ {
		page.Items = append(page.Items, items[i])
	}
	return page, nil
}

func (m *memoryStore) ListTopics(_ context.Context, examID int64) ([]Topic, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Topic
	for _, t := range m.topics {
		if t.ExamID == examID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryStore) GetOrCreateTopic(_ context.Context, examID int64, name string) (Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.topics {
		if t.ExamID == examID && strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}
	t := Topic{ID: m.id(), ExamID: examID, Name: name}
	m.topics[t.ID] = t
	return t, nil
}

func (m *memoryStore) CreateQuestion(_ context.Context, q Question) (Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.ID = m.id()
	q.Options = normalizeOptions(q.Type, q.Options)
	m.questions[q.ID] = q
	return q, nil
}

func (m *memoryStore) BulkInsertQuestions(ctx context.Context, examID int64, qs []Question) (int, error) {
	for _, q := range qs {
		q.ExamID = examID
		if _, err := m.CreateQuestion(ctx, q); err != nil {
			return 0, err
		}
	}
	return len(qs), nil
}

func (m *memoryStore) GetQuestionsByIDs(_ context.Context, ids []int64) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Question
	for _, id := range ids {
		if q, ok := m.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memoryStore) SampleQuestions(_ context.Context, opts SampleOpts) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if opts.Limit <= 0 {
		return nil, nil
	}

	excluded := map[int64]struct{}{}
	if opts.UserID != nil && opts.ExcludeRecent > 0 {
		for _, qid := range m.recentQuestionIDsLocked(*opts.UserID, opts.ExamID, opts.ExcludeRecent) {
			excluded[qid] = struct{}{}
		}
	}

	topicSet := map[int64]struct{}{}
	for _, id := range opts.TopicIDs {
		topicSet[id] = struct{}{}
	}
	wantDifficulty := strings.TrimSpace(opts.Difficulty)
	anyDifficulty := wantDifficulty == "" || strings.EqualFold(wantDifficulty, DifficultyRandom)

	var pool []Question
	for _, q := range m.questions {
		if q.ExamID != opts.ExamID {
			continue
		}
		if len(topicSet) > 0 {
			if q.TopicID == nil {
				continue
			}
			if _, ok := topicSet[*q.TopicID]; !ok {
				continue
			}
		}
		if !anyDifficulty && !strings.EqualFold(q.Difficulty, wantDifficulty) {
			continue
		}
		if _, ok := excluded[q.ID]; ok {
			continue
		}
		pool = append(pool, q)
	}

	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > opts.Limit {
		pool = pool[:opts.Limit]
	}
	return pool, nil
}

// recentQuestionIDsLocked returns the user's most recently answered question
// ids for the exam, newest first, capped at window.
func (m *memoryStore) recentQuestionIDsLocked(userID, examID int64, window int) []int64 {
	var recent []Answer
	for _, a := range m.answers {
		att, ok := m.attempts[a.AttemptID]
		if !ok || att.ExamID != examID || att.UserID == nil || *att.UserID != userID {
			continue
		}
		recent = append(recent, a)
	}
	sort.Slice(recent, func(i, j int) bool {
		if recent[i].CreatedAt.Equal(recent[j].CreatedAt) {
			return recent[i].ID > recent[j].ID
		}
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > window {
		recent = recent[:window]
	}
	out := make([]int64, len(recent))
	for i, a := range recent {
		out[i] = a.QuestionID
	}
	return out
}

func (m *memoryStore) CreateAttempt(_ context.Context, userID *int64, examID int64, totalQuestions int) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[examID]; !ok {
		return Attempt{}, ErrExamNotFound
	}
	a := Attempt{
		ID:             m.id(),
		UserID:         userID,
		ExamID:         examID,
		StartedAt:      time.Now().UTC(),
		TotalQuestions: totalQuestions,
	}
	m.attempts[a.ID] = a
	return a, nil
}

func (m *memoryStore) GetAttempt(_ context.Context, id int64) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, nil
}

func (m *memoryStore) SaveAnswer(_ context.Context, a Answer) (Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attempts[a.AttemptID]; !ok {
		return Answer{}, ErrAttemptNotFound
	}
	a.ID = m.id()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.answers[a.ID] = a
	return a, nil
}

func (m *memoryStore) FinalizeAttempt(_ context.Context, attemptID int64, score, timeTakenSeconds int) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	if a.CompletedAt != nil {
		return a, ErrAttemptFinalized
	}
	now := time.Now().UTC()
	a.Score = &score
	a.TimeTakenSeconds = &timeTakenSeconds
	a.CompletedAt = &now
	m.attempts[attemptID] = a
	return a, nil
}

func (m *memoryStore) ListAnswers(_ context.Context, attemptID int64) ([]Answer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Answer
	for _, a := range m.answers {
		if a.AttemptID == attemptID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) Leaderboard(_ context.Context, examID int64, limit int) ([]LeaderboardEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	var out []LeaderboardEntry
	for _, a := range m.attempts {
		if a.ExamID != examID || a.Score == nil || a.UserID == nil {
			continue
		}
		u, ok := m.users[*a.UserID]
		if !ok {
			continue
		}
		e := LeaderboardEntry{
			Username:       u.Username,
			Score:          *a.Score,
			TotalQuestions: a.TotalQuestions,
			CompletedAt:    a.CompletedAt,
		}
		if a.TimeTakenSeconds != nil {
			e.TimeTakenSeconds = *a.TimeTakenSeconds
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].TimeTakenSeconds < out[j].TimeTakenSeconds
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryStore) AddDiscussion(_ context.Context, d Discussion) (Discussion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = m.id()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if u, ok := m.users[d.UserID]; ok {
		d.Username = u.Username
	}
	m.discussions[d.ID] = d
	return d, nil
}

func (m *memoryStore) ListDiscussions(_ context.Context, questionID int64) ([]Discussion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Discussion
	for _, d := range m.discussions {
		if d.QuestionID == questionID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) CreateUser(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.id()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *memoryStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (m *memoryStore) GetUserByUsername(_ context.Context, username string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (m *memoryStore) UpdateUserPassword(_ context.Context, userID int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	m.users[userID] = u
	return nil
}
