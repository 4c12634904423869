package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	authmw "github.com/examprep-pro/examprep/internal/auth/middleware"
	"github.com/examprep-pro/examprep/internal/exam"
)

// GET /questions/{questionID}/discussions
func ListDiscussionsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qid, err := parseID(chi.URLParam(r, "questionID"))
		if err != nil {
			http.Error(w, "questionID required", http.StatusBadRequest)
			return
		}
		ds, err := store.ListDiscussions(r.Context(), qid)
		if err != nil {
			writeError(w, err)
			return
		}
		if ds == nil {
			ds = []exam.Discussion{}
		}
		writeJSON(w, http.StatusOK, ds)
	}
}

// POST /questions/{questionID}/discussions  { comment }
//
// Requires a real account: anonymous and guest tokens cannot post.
func AddDiscussionHandler(store exam.Store) http.HandlerFunc {
	type in struct {
		Comment string `json:"comment"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		qid, err := parseID(chi.URLParam(r, "questionID"))
		if err != nil {
			http.Error(w, "questionID required", http.StatusBadRequest)
			return
		}
		uid := authmw.UserIDFromContext(r.Context())
		if uid == nil {
			http.Error(w, "account required to comment", http.StatusForbidden)
			return
		}
		qs, err := store.GetQuestionsByIDs(r.Context(), []int64{qid})
		if err != nil {
			writeError(w, err)
			return
		}
		if len(qs) == 0 {
			writeError(w, exam.ErrQuestionNotFound)
			return
		}
		var req in
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Comment) == "" {
			http.Error(w, "comment required", http.StatusBadRequest)
			return
		}
		d, err := store.AddDiscussion(r.Context(), exam.Discussion{
			QuestionID: qid,
			UserID:     *uid,
			Comment:    strings.TrimSpace(req.Comment),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, d)
	}
}
