package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLStore runs on database/sql over either the sqlite or postgres driver.
// Inserts use RETURNING so id generation behaves the same on both.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// --- Exams / topics ---

func (s *SQLStore) CreateExam(ctx context.Context, e Exam) (Exam, error) {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO exams (title,category,difficulty,time_limit,description)
		 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		e.Title, e.Category, e.Difficulty, e.TimeLimit, e.Description).Scan(&e.ID)
	if err != nil {
		return Exam{}, err
	}
	return e, nil
}

func (s *SQLStore) GetExam(ctx context.Context, id int64) (Exam, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,title,category,difficulty,time_limit,description FROM exams WHERE id=$1`, id)
	return scanExam(row)
}

func (s *SQLStore) GetExamByTitle(ctx context.Context, title string) (Exam, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,title,category,difficulty,time_limit,description
		 FROM exams WHERE LOWER(title)=LOWER($1)`, title)
	return scanExam(row)
}

func scanExam(row *sql.Row) (Exam, error) {
	var e Exam
	err := row.Scan(&e.ID, &e.Title, &e.Category, &e.Difficulty, &e.TimeLimit, &e.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return Exam{}, ErrExamNotFound
	}
	if err != nil {
		return Exam{}, err
	}
	return e, nil
}

func (s *SQLStore) ListExams(ctx context.Context, opts ListOpts) (ExamPage, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	where := []string{"1=1"}
	args := []interface{}{}
	if opts.Q != "" {
		args = append(args, "%"+strings.ToLower(opts.Q)+"%")
		where = append(where, fmt.Sprintf("LOWER(title) LIKE $%d", len(args)))
	}
	if opts.Category != "" {
		args = append(args, opts.Category)
		where = append(where, fmt.Sprintf("category=$%d", len(args)))
	}
	if opts.Difficulty != "" {
		args = append(args, opts.Difficulty)
		where = append(where, fmt.Sprintf("difficulty=$%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	page := ExamPage{Items: []Exam{}, Limit: opts.Limit, Offset: opts.Offset}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM exams WHERE `+cond, args...).Scan(&page.Total); err != nil {
		return ExamPage{}, err
	}

	args = append(args, opts.Limit, opts.Offset)
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id,title,category,difficulty,time_limit,description
		 FROM exams WHERE %s ORDER BY title ASC LIMIT $%d OFFSET $%d`,
			cond, len(args)-1, len(args)),
		args...)
	if err != nil {
		return ExamPage{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var e Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.Category, &e.Difficulty, &e.TimeLimit, &e.Description); err != nil {
			return ExamPage{}, err
		}
		page.Items = append(page.Items, e)
	}
	return page, rows.Err()
}

func (s *SQLStore) ListTopics(ctx context.Context, examID int64) ([]Topic, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,exam_id,name FROM topics WHERE exam_id=$1 ORDER BY name ASC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Topic
	for rows.Next() {
		var t Topic
		if err := rows.Scan(&t.ID, &t.ExamID, &t.Name); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetOrCreateTopic(ctx context.Context, examID int64, name string) (Topic, error) {
	var t Topic
	err := s.db.QueryRowContext(ctx,
		`SELECT id,exam_id,name FROM topics WHERE exam_id=$1 AND LOWER(name)=LOWER($2)`,
		examID, name).Scan(&t.ID, &t.ExamID, &t.Name)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Topic{}, err
	}
	t = Topic{ExamID: examID, Name: name}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO topics (exam_id,name) VALUES ($1,$2) RETURNING id`,
		examID, name).Scan(&t.ID)
	if err != nil {
		return Topic{}, err
	}
	return t, nil
}

// --- Questions ---

func (s *SQLStore) CreateQuestion(ctx context.Context, q Question) (Question, error) {
	oj, err := json.Marshal(q.Options)
	if err != nil {
		return Question{}, err
	}
	cj, err := json.Marshal(q.CorrectAnswers)
	if err != nil {
		return Question{}, err
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO questions (exam_id,topic_id,question_text,type,options_json,correct_answers_json,explanation,difficulty)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		q.ExamID, q.TopicID, q.Text, q.Type, string(oj), string(cj),
		nullStr(q.Explanation), nullStr(q.Difficulty)).Scan(&q.ID)
	if err != nil {
		return Question{}, err
	}
	return q, nil
}

func (s *SQLStore) BulkInsertQuestions(ctx context.Context, examID int64, qs []Question) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	n := 0
	for _, q := range qs {
		q.ExamID = examID
		oj, err := json.Marshal(q.Options)
		if err != nil {
			return 0, err
		}
		cj, err := json.Marshal(q.CorrectAnswers)
		if err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO questions (exam_id,topic_id,question_text,type,options_json,correct_answers_json,explanation,difficulty)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			q.ExamID, q.TopicID, q.Text, q.Type, string(oj), string(cj),
			nullStr(q.Explanation), nullStr(q.Difficulty)); err != nil {
			return 0, err
		}
		n++
	}
	return n, tx.Commit()
}

func (s *SQLStore) GetQuestionsByIDs(ctx context.Context, ids []int64) ([]Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ph := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		ph[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,exam_id,topic_id,question_text,type,options_json,correct_answers_json,explanation,difficulty
		 FROM questions WHERE id IN (`+strings.Join(ph, ",")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestions(rows)
}

// SampleQuestions draws a uniform random subset of the filtered pool. With a
// user present, that user's most recent answered question ids for this exam
// are removed from the pool first; a pool smaller than Limit returns what
// exists.
func (s *SQLStore) SampleQuestions(ctx context.Context, opts SampleOpts) ([]Question, error) {
	if opts.Limit <= 0 {
		return nil, nil
	}
	where := []string{"q.exam_id=$1"}
	args := []interface{}{opts.ExamID}

	if len(opts.TopicIDs) > 0 {
		ph := make([]string, len(opts.TopicIDs))
		for i, id := range opts.TopicIDs {
			args = append(args, id)
			ph[i] = fmt.Sprintf("$%d", len(args))
		}
		where = append(where, "q.topic_id IN ("+strings.Join(ph, ",")+")")
	}
	if d := strings.TrimSpace(opts.Difficulty); d != "" && !strings.EqualFold(d, DifficultyRandom) {
		args = append(args, d)
		where = append(where, fmt.Sprintf("LOWER(q.difficulty)=LOWER($%d)", len(args)))
	}
	if opts.UserID != nil && opts.ExcludeRecent > 0 {
		args = append(args, *opts.UserID, opts.ExamID, opts.ExcludeRecent)
		where = append(where, fmt.Sprintf(
			`q.id NOT IN (
			   SELECT recent.question_id FROM (
			     SELECT a.question_id FROM answers a
			     JOIN attempts t ON t.id=a.attempt_id
			     WHERE t.user_id=$%d AND t.exam_id=$%d
			     ORDER BY a.created_at DESC
			     LIMIT $%d
			   ) recent
			 )`, len(args)-2, len(args)-1, len(args)))
	}
	args = append(args, opts.Limit)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT q.id,q.exam_id,q.topic_id,q.question_text,q.type,q.options_json,q.correct_answers_json,q.explanation,q.difficulty
		 FROM questions q WHERE %s ORDER BY RANDOM() LIMIT $%d`,
		strings.Join(where, " AND "), len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestions(rows)
}

func scanQuestions(rows *sql.Rows) ([]Question, error) {
	var out []Question
	for rows.Next() {
		var (
			q        Question
			topicID  sql.NullInt64
			oj, cj   string
			expl     sql.NullString
			difficul sql.NullString
		)
		if err := rows.Scan(&q.ID, &q.ExamID, &topicID, &q.Text, &q.Type, &oj, &cj, &expl, &difficul); err != nil {
			return nil, err
		}
		if topicID.Valid {
			v := topicID.Int64
			q.TopicID = &v
		}
		if err := json.Unmarshal([]byte(oj), &q.Options); err != nil {
			q.Options = nil
		}
		if err := json.Unmarshal([]byte(cj), &q.CorrectAnswers); err != nil {
			q.CorrectAnswers = nil
		}
		q.Explanation = expl.String
		q.Difficulty = difficul.String
		q.Options = normalizeOptions(q.Type, q.Options)
		out = append(out, q)
	}
	return out, rows.Err()
}

// --- Attempts / answers ---

func (s *SQLStore) CreateAttempt(ctx context.Context, userID *int64, examID int64, totalQuestions int) (Attempt, error) {
	// ensure exam exists
	var exist int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM exams WHERE id=$1`, examID).Scan(&exist); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrExamNotFound
		}
		return Attempt{}, err
	}
	now := time.Now().UTC()
	a := Attempt{UserID: userID, ExamID: examID, StartedAt: now, TotalQuestions: totalQuestions}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO attempts (user_id,exam_id,started_at,total_questions)
		 VALUES ($1,$2,$3,$4) RETURNING id`,
		userID, examID, now.Unix(), totalQuestions).Scan(&a.ID)
	if err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id int64) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,user_id,exam_id,started_at,completed_at,score,total_questions,time_taken_seconds
		 FROM attempts WHERE id=$1`, id)
	var (
		a         Attempt
		userID    sql.NullInt64
		started   int64
		completed sql.NullInt64
		score     sql.NullInt64
		total     sql.NullInt64
		taken     sql.NullInt64
	)
	err := row.Scan(&a.ID, &userID, &a.ExamID, &started, &completed, &score, &total, &taken)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	if err != nil {
		return Attempt{}, err
	}
	if userID.Valid {
		v := userID.Int64
		a.UserID = &v
	}
	a.StartedAt = time.Unix(started, 0).UTC()
	if completed.Valid {
		t := time.Unix(completed.Int64, 0).UTC()
		a.CompletedAt = &t
	}
	if score.Valid {
		v := int(score.Int64)
		a.Score = &v
	}
	if total.Valid {
		a.TotalQuestions = int(total.Int64)
	}
	if taken.Valid {
		v := int(taken.Int64)
		a.TimeTakenSeconds = &v
	}
	return a, nil
}

func (s *SQLStore) SaveAnswer(ctx context.Context, a Answer) (Answer, error) {
	sj, err := json.Marshal(a.Selected)
	if err != nil {
		return Answer{}, err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO answers (attempt_id,question_id,selected_json,correct,time_spent_seconds,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		a.AttemptID, a.QuestionID, string(sj), a.Correct, a.TimeSpentSeconds, a.CreatedAt.Unix()).Scan(&a.ID)
	if err != nil {
		return Answer{}, err
	}
	return a, nil
}

func (s *SQLStore) FinalizeAttempt(ctx context.Context, attemptID int64, score, timeTakenSeconds int) (Attempt, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE attempts SET score=$1, time_taken_seconds=$2, completed_at=$3
		 WHERE id=$4 AND completed_at IS NULL`,
		score, timeTakenSeconds, time.Now().UTC().Unix(), attemptID)
	if err != nil {
		return Attempt{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Attempt{}, err
	}
	if n == 0 {
		// Either missing or already finalized; GetAttempt disambiguates.
		a, err := s.GetAttempt(ctx, attemptID)
		if err != nil {
			return Attempt{}, err
		}
		return a, ErrAttemptFinalized
	}
	return s.GetAttempt(ctx, attemptID)
}

func (s *SQLStore) ListAnswers(ctx context.Context, attemptID int64) ([]Answer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,attempt_id,question_id,selected_json,correct,time_spent_seconds,created_at
		 FROM answers WHERE attempt_id=$1 ORDER BY id ASC`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Answer
	for rows.Next() {
		var (
			a       Answer
			sj      string
			spent   sql.NullInt64
			created int64
		)
		if err := rows.Scan(&a.ID, &a.AttemptID, &a.QuestionID, &sj, &a.Correct, &spent, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(sj), &a.Selected); err != nil {
			a.Selected = nil
		}
		if spent.Valid {
			v := int(spent.Int64)
			a.TimeSpentSeconds = &v
		}
		a.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- Leaderboard ---

// Leaderboard ranks completed attempts by score, faster completion breaking
// ties. Multiple attempts by one user all appear.
func (s *SQLStore) Leaderboard(ctx context.Context, examID int64, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.username, a.score, a.total_questions, a.time_taken_seconds, a.completed_at
		 FROM attempts a
		 JOIN users u ON u.id = a.user_id
		 WHERE a.exam_id=$1 AND a.score IS NOT NULL
		 ORDER BY a.score DESC, a.time_taken_seconds ASC
		 LIMIT $2`, examID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LeaderboardEntry
	for rows.Next() {
		var (
			e         LeaderboardEntry
			total     sql.NullInt64
			taken     sql.NullInt64
			completed sql.NullInt64
		)
		if err := rows.Scan(&e.Username, &e.Score, &total, &taken, &completed); err != nil {
			return nil, err
		}
		e.TotalQuestions = int(total.Int64)
		e.TimeTakenSeconds = int(taken.Int64)
		if completed.Valid {
			t := time.Unix(completed.Int64, 0).UTC()
			e.CompletedAt = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- Discussions ---

func (s *SQLStore) AddDiscussion(ctx context.Context, d Discussion) (Discussion, error) {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO discussions (question_id,user_id,comment,created_at)
		 VALUES ($1,$2,$3,$4) RETURNING id`,
		d.QuestionID, d.UserID, d.Comment, d.CreatedAt.Unix()).Scan(&d.ID)
	if err != nil {
		return Discussion{}, err
	}
	return d, nil
}

func (s *SQLStore) ListDiscussions(ctx context.Context, questionID int64) ([]Discussion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id,d.question_id,d.user_id,u.username,d.comment,d.created_at
		 FROM discussions d
		 JOIN users u ON u.id = d.user_id
		 WHERE d.question_id=$1
		 ORDER BY d.created_at DESC`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Discussion
	for rows.Next() {
		var (
			d       Discussion
			created int64
		)
		if err := rows.Scan(&d.ID, &d.QuestionID, &d.UserID, &d.Username, &d.Comment, &created); err != nil {
			return nil, err
		}
		d.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}

// --- Users ---

func (s *SQLStore) CreateUser(ctx context.Context, u User) (User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username,email,password_hash,is_admin,created_at)
		 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		u.Username, u.Email, u.PasswordHash, u.IsAdmin, u.CreatedAt.Unix()).Scan(&u.ID)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,username,email,password_hash,is_admin,created_at
		 FROM users WHERE LOWER(email)=LOWER($1)`, email)
	return scanUser(row)
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,username,email,password_hash,is_admin,created_at
		 FROM users WHERE username=$1`, username)
	return scanUser(row)
}

func scanUser(row *sql.Row) (User, error) {
	var (
		u       User
		created int64
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	return u, nil
}

func (s *SQLStore) UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash=$1 WHERE id=$2`, passwordHash, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func nullStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
