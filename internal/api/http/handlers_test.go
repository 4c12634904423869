package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	authmw "github.com/examprep-pro/examprep/internal/auth/middleware"
	"github.com/examprep-pro/examprep/internal/exam"
	"github.com/examprep-pro/examprep/internal/grading"
	"github.com/examprep-pro/examprep/internal/rbac"
)

// newTestRouter wires the handlers the way cmd/server does, but with a fake
// identity middleware instead of JWT parsing.
func newTestRouter(store exam.Store) *chi.Mux {
	svc := exam.NewSessionService(store, grading.NewDefaultGrader(), nil)
	r := chi.NewRouter()
	r.Get("/exams", ListExamsHandler(store))
	r.Post("/exams", CreateExamHandler(store))
	r.Get("/exams/{examID}", GetExamHandler(store))
	r.Post("/exams/{examID}/questions", BulkAddQuestionsHandler(store))
	r.Get("/exams/{examID}/leaderboard", LeaderboardHandler(store))
	r.Post("/sessions", StartSessionHandler(svc, 200))
	r.Post("/sessions/resume", ResumeSessionHandler(svc))
	r.Post("/sessions/submit", SubmitSessionHandler(svc))
	r.Get("/attempts/{attemptID}", GetAttemptHandler(store))
	r.Get("/questions/{questionID}/discussions", ListDiscussionsHandler(store))
	r.Post("/questions/{questionID}/discussions", AddDiscussionHandler(store))
	return r
}

// asUser attaches claims and role the way JWTMiddleware would.
func asUser(r *http.Request, userID int64, username, role string) *http.Request {
	ctx := authmw.WithClaims(r.Context(), &authmw.Claims{UserID: userID, Username: username, Role: role})
	ctx = rbac.WithRole(ctx, role)
	return r.WithContext(ctx)
}

func do(t *testing.T, router http.Handler, req *http.Request, wantStatus int, out interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != wantStatus {
		t.Fatalf("%s %s = %d, want %d: %s", req.Method, req.URL.Path, rec.Code, wantStatus, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode response: %v: %s", err, rec.Body.String())
		}
	}
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(b)
}

func seedHTTPExam(t *testing.T, store exam.Store, n int) exam.Exam {
	t.Helper()
	ctx := context.Background()
	ex, err := store.CreateExam(ctx, exam.Exam{Title: "CCNA", Category: "Networking", Difficulty: "Medium", TimeLimit: 20})
	if err != nil {
		t.Fatalf("create exam: %v", err)
	}
	for i := 0; i < n; i++ {
		if _, err := store.CreateQuestion(ctx, exam.Question{
			ExamID: ex.ID, Text: fmt.Sprintf("q%d", i), Type: exam.TypeMCQ,
			Options: []string{"right", "wrong"}, CorrectAnswers: []int{0}, Difficulty: "Medium",
			Explanation: "hidden until review",
		}); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}
	return ex
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	store := exam.NewInMemoryStore()
	ex := seedHTTPExam(t, store, 4)
	router := newTestRouter(store)

	u, err := store.CreateUser(context.Background(), exam.User{Username: "grace", Email: "grace@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	// Start.
	var started struct {
		Descriptor       string          `json:"descriptor"`
		AttemptID        int64           `json:"attempt_id"`
		Questions        []exam.Question `json:"questions"`
		RemainingSeconds int             `json:"remaining_seconds"`
	}
	req := asUser(httptest.NewRequest("POST", "/sessions",
		jsonBody(t, map[string]interface{}{"exam_id": ex.ID, "count": 4})), u.ID, "grace", "student")
	do(t, router, req, http.StatusCreated, &started)

	if started.Descriptor == "" || started.AttemptID == 0 {
		t.Fatalf("start missing descriptor or attempt: %+v", started)
	}
	if len(started.Questions) != 4 {
		t.Fatalf("started with %d questions, want 4", len(started.Questions))
	}
	for _, q := range started.Questions {
		if len(q.CorrectAnswers) != 0 || q.Explanation != "" {
			t.Errorf("question %d leaks answers before submission", q.ID)
		}
	}
	if started.RemainingSeconds <= 0 || started.RemainingSeconds > 20*60 {
		t.Errorf("remaining seconds = %d, want within (0, 1200]", started.RemainingSeconds)
	}

	// Resume returns the same attempt and order.
	var resumed struct {
		AttemptID int64           `json:"attempt_id"`
		Questions []exam.Question `json:"questions"`
	}
	req = asUser(httptest.NewRequest("POST", "/sessions/resume",
		jsonBody(t, map[string]string{"descriptor": started.Descriptor})), u.ID, "grace", "student")
	do(t, router, req, http.StatusOK, &resumed)
	if resumed.AttemptID != started.AttemptID {
		t.Errorf("resume attempt = %d, want %d", resumed.AttemptID, started.AttemptID)
	}
	for i := range resumed.Questions {
		if resumed.Questions[i].ID != started.Questions[i].ID {
			t.Fatalf("resume reordered questions")
		}
	}

	// Submit: three right, one wrong.
	answers := []map[string]interface{}{}
	for i, q := range started.Questions {
		sel := "right"
		if i == 3 {
			sel = "wrong"
		}
		answers = append(answers, map[string]interface{}{"question_id": q.ID, "selected": []string{sel}})
	}
	var result exam.SubmitResult
	req = asUser(httptest.NewRequest("POST", "/sessions/submit",
		jsonBody(t, map[string]interface{}{"descriptor": started.Descriptor, "answers": answers})), u.ID, "grace", "student")
	do(t, router, req, http.StatusOK, &result)
	if result.Score != 3 || result.Total != 4 {
		t.Fatalf("score = %d/%d, want 3/4", result.Score, result.Total)
	}
	if len(result.Reviews) != 4 || result.Reviews[0].Explanation == "" {
		t.Errorf("review must carry explanations after submission: %+v", result.Reviews)
	}

	// Leaderboard now has one row.
	var board []exam.LeaderboardEntry
	req = asUser(httptest.NewRequest("GET", fmt.Sprintf("/exams/%d/leaderboard", ex.ID), nil), u.ID, "grace", "student")
	do(t, router, req, http.StatusOK, &board)
	if len(board) != 1 || board[0].Username != "grace" || board[0].Score != 3 {
		t.Errorf("leaderboard = %+v, want one row for grace with score 3", board)
	}
}

func TestResumeRejectsGarbageDescriptor(t *testing.T) {
	store := exam.NewInMemoryStore()
	router := newTestRouter(store)

	req := httptest.NewRequest("POST", "/sessions/resume",
		jsonBody(t, map[string]string{"descriptor": "exam_id=abc&q=&end=nope"}))
	do(t, router, req, http.StatusBadRequest, nil)
}

func TestGetExamNotFound(t *testing.T) {
	store := exam.NewInMemoryStore()
	router := newTestRouter(store)
	do(t, router, httptest.NewRequest("GET", "/exams/12345", nil), http.StatusNotFound, nil)
}

func TestAttemptOwnership(t *testing.T) {
	store := exam.NewInMemoryStore()
	ex := seedHTTPExam(t, store, 1)
	router := newTestRouter(store)
	ctx := context.Background()

	owner, _ := store.CreateUser(ctx, exam.User{Username: "owner", Email: "o@example.com", PasswordHash: "x"})
	a, err := store.CreateAttempt(ctx, &owner.ID, ex.ID, 1)
	if err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	path := fmt.Sprintf("/attempts/%d", a.ID)

	do(t, router, asUser(httptest.NewRequest("GET", path, nil), owner.ID, "owner", "student"), http.StatusOK, nil)
	do(t, router, asUser(httptest.NewRequest("GET", path, nil), owner.ID+1, "other", "student"), http.StatusForbidden, nil)
	do(t, router, asUser(httptest.NewRequest("GET", path, nil), 99, "root", "admin"), http.StatusOK, nil)

	// Anonymous attempts stay admin-only.
	anon, err := store.CreateAttempt(ctx, nil, ex.ID, 1)
	if err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	anonPath := fmt.Sprintf("/attempts/%d", anon.ID)
	do(t, router, asUser(httptest.NewRequest("GET", anonPath, nil), owner.ID, "owner", "student"), http.StatusForbidden, nil)
	do(t, router, asUser(httptest.NewRequest("GET", anonPath, nil), 99, "root", "admin"), http.StatusOK, nil)
}

func TestDiscussionsRequireAccount(t *testing.T) {
	store := exam.NewInMemoryStore()
	ex := seedHTTPExam(t, store, 1)
	router := newTestRouter(store)
	ctx := context.Background()

	qs, err := store.SampleQuestions(ctx, exam.SampleOpts{ExamID: ex.ID, Limit: 1})
	if err != nil || len(qs) != 1 {
		t.Fatalf("sample question: %v", err)
	}
	u, _ := store.CreateUser(ctx, exam.User{Username: "hana", Email: "h@example.com", PasswordHash: "x"})
	path := fmt.Sprintf("/questions/%d/discussions", qs[0].ID)
	body := map[string]string{"comment": "tricky one"}

	// Guest token carries uid 0 and cannot post.
	req := asUser(httptest.NewRequest("POST", path, jsonBody(t, body)), 0, "guest-ab12cd34", "student")
	do(t, router, req, http.StatusForbidden, nil)

	var posted exam.Discussion
	req = asUser(httptest.NewRequest("POST", path, jsonBody(t, body)), u.ID, "hana", "student")
	do(t, router, req, http.StatusCreated, &posted)
	if posted.Comment != "tricky one" || posted.UserID != u.ID {
		t.Errorf("posted = %+v", posted)
	}

	var list []exam.Discussion
	do(t, router, httptest.NewRequest("GET", path, nil), http.StatusOK, &list)
	if len(list) != 1 {
		t.Errorf("discussions = %d, want 1", len(list))
	}

	// A comment on a question that does not exist is a 404, not a DB error.
	req = asUser(httptest.NewRequest("POST", "/questions/99999/discussions", jsonBody(t, body)), u.ID, "hana", "student")
	do(t, router, req, http.StatusNotFound, nil)
}

func TestBulkAddQuestionsValidation(t *testing.T) {
	store := exam.NewInMemoryStore()
	ex := seedHTTPExam(t, store, 0)
	router := newTestRouter(store)
	path := fmt.Sprintf("/exams/%d/questions", ex.ID)

	// Index out of range for the option list.
	bad := []map[string]interface{}{{
		"question_text": "q", "type": exam.TypeMCQ,
		"options": []string{"a", "b"}, "correct_answers": []int{2},
	}}
	do(t, router, httptest.NewRequest("POST", path, jsonBody(t, bad)), http.StatusBadRequest, nil)

	// TRUE_FALSE with empty options accepts indices 0 and 1.
	ok := []map[string]interface{}{{
		"question_text": "the sky is blue", "type": exam.TypeTrueFalse,
		"correct_answers": []int{0}, "topic_name": "Basics",
	}}
	var out map[string]int
	do(t, router, httptest.NewRequest("POST", path, jsonBody(t, ok)), http.StatusCreated, &out)
	if out["inserted"] != 1 {
		t.Errorf("inserted = %d, want 1", out["inserted"])
	}
}
