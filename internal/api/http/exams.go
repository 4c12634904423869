package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/examprep-pro/examprep/internal/exam"
)

// GET /exams?q=&category=&difficulty=&limit=&offset=
func ListExamsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := store.ListExams(r.Context(), exam.ListOpts{
			Q:          strings.TrimSpace(r.URL.Query().Get("q")),
			Category:   strings.TrimSpace(r.URL.Query().Get("category")),
			Difficulty: strings.TrimSpace(r.URL.Query().Get("difficulty")),
			Limit:      parseIntDefault(r.URL.Query().Get("limit"), 100),
			Offset:     parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// GET /exams/{examID}
func GetExamHandler(store exam.Store) http.HandlerFunc {
	type out struct {
		exam.Exam
		Topics []exam.Topic `json:"topics"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(chi.URLParam(r, "examID"))
		if err != nil {
			http.Error(w, "examID required", http.StatusBadRequest)
			return
		}
		ex, err := store.GetExam(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		topics, err := store.ListTopics(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out{Exam: ex, Topics: topics})
	}
}

// POST /exams (admin)
func CreateExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var e exam.Exam
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(e.Title) == "" || e.TimeLimit <= 0 {
			http.Error(w, "title and a positive time_limit required", http.StatusBadRequest)
			return
		}
		created, err := store.CreateExam(r.Context(), e)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// POST /exams/{examID}/questions (admin). Accepts a batch; topic names are
// resolved or created per question.
func BulkAddQuestionsHandler(store exam.Store) http.HandlerFunc {
	type inQuestion struct {
		TopicName      string   `json:"topic_name,omitempty"`
		Text           string   `json:"question_text"`
		Type           string   `json:"type"`
		Options        []string `json:"options"`
		CorrectAnswers []int    `json:"correct_answers"`
		Explanation    string   `json:"explanation,omitempty"`
		Difficulty     string   `json:"difficulty,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		examID, err := parseID(chi.URLParam(r, "examID"))
		if err != nil {
			http.Error(w, "examID required", http.StatusBadRequest)
			return
		}
		if _, err := store.GetExam(r.Context(), examID); err != nil {
			writeError(w, err)
			return
		}
		var in []inQuestion
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		qs := make([]exam.Question, 0, len(in))
		for _, q := range in {
			if strings.TrimSpace(q.Text) == "" || q.Type == "" {
				http.Error(w, "question_text and type required on every row", http.StatusBadRequest)
				return
			}
			if !validIndices(q.CorrectAnswers, q.Options, q.Type) {
				http.Error(w, "correct_answers indices out of range", http.StatusBadRequest)
				return
			}
			out := exam.Question{
				ExamID:         examID,
				Text:           q.Text,
				Type:           q.Type,
				Options:        q.Options,
				CorrectAnswers: q.CorrectAnswers,
				Explanation:    q.Explanation,
				Difficulty:     q.Difficulty,
			}
			if name := strings.TrimSpace(q.TopicName); name != "" {
				t, err := store.GetOrCreateTopic(r.Context(), examID, name)
				if err != nil {
					writeError(w, err)
					return
				}
				out.TopicID = &t.ID
			}
			qs = append(qs, out)
		}
		n, err := store.BulkInsertQuestions(r.Context(), examID, qs)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]int{"inserted": n})
	}
}

func validIndices(correct []int, options []string, qType string) bool {
	n := len(options)
	if n == 0 && qType == exam.TypeTrueFalse {
		n = 2 // defaults to True/False
	}
	for _, idx := range correct {
		if idx < 0 || idx >= n {
			return false
		}
	}
	return true
}
