package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/examprep-pro/examprep/internal/auth/middleware"
	"github.com/examprep-pro/examprep/internal/exam"
	"github.com/examprep-pro/examprep/internal/rbac"
)

// GET /attempts/{attemptID}
//
// Students may read their own attempts; admins any. Anonymous attempts are
// readable only by admins since ownership cannot be established.
func GetAttemptHandler(store exam.Store) http.HandlerFunc {
	type out struct {
		exam.Attempt
		Answers []exam.Answer `json:"answers"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(chi.URLParam(r, "attemptID"))
		if err != nil {
			http.Error(w, "attemptID required", http.StatusBadRequest)
			return
		}
		a, err := store.GetAttempt(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if rbac.RoleFromContext(r.Context()) != "admin" {
			uid := authmw.UserIDFromContext(r.Context())
			if uid == nil || a.UserID == nil || *a.UserID != *uid {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}
		answers, err := store.ListAnswers(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out{Attempt: a, Answers: answers})
	}
}

// GET /exams/{examID}/leaderboard?limit=
func LeaderboardHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID, err := parseID(chi.URLParam(r, "examID"))
		if err != nil {
			http.Error(w, "examID required", http.StatusBadRequest)
			return
		}
		entries, err := store.Leaderboard(r.Context(), examID, parseIntDefault(r.URL.Query().Get("limit"), 20))
		if err != nil {
			writeError(w, err)
			return
		}
		if entries == nil {
			entries = []exam.LeaderboardEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}
