package http

import (
	"encoding/json"
	"net/http"
	"time"

	authmw "github.com/examprep-pro/examprep/internal/auth/middleware"
	"github.com/examprep-pro/examprep/internal/exam"
)

type sessionOut struct {
	Descriptor       string          `json:"descriptor"` // opaque resume token
	AttemptID        int64           `json:"attempt_id"`
	Exam             exam.Exam       `json:"exam"`
	Questions        []exam.Question `json:"questions"`
	RemainingSeconds int             `json:"remaining_seconds"`
}

func toSessionOut(s exam.Session, now time.Time) sessionOut {
	qs := make([]exam.Question, len(s.Questions))
	for i, q := range s.Questions {
		qs[i] = q.Sanitized()
	}
	return sessionOut{
		Descriptor:       s.Descriptor.Encode(),
		AttemptID:        s.Descriptor.AttemptID,
		Exam:             s.Exam,
		Questions:        qs,
		RemainingSeconds: int(s.Descriptor.RemainingTime(now).Seconds()),
	}
}

// POST /sessions  { exam_id, topics, difficulty, count }
func StartSessionHandler(svc *exam.SessionService, excludeRecent int) http.HandlerFunc {
	type in struct {
		ExamID     int64    `json:"exam_id"`
		Topics     []string `json:"topics,omitempty"`
		Difficulty string   `json:"difficulty,omitempty"`
		Count      int      `json:"count"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req in
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.Count <= 0 {
			req.Count = 10
		}
		s, err := svc.Start(r.Context(), exam.StartConfig{
			ExamID:        req.ExamID,
			TopicNames:    req.Topics,
			Difficulty:    req.Difficulty,
			Count:         req.Count,
			UserID:        authmw.UserIDFromContext(r.Context()),
			ExcludeRecent: excludeRecent,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toSessionOut(s, time.Now()))
	}
}

// POST /sessions/resume  { descriptor }
func ResumeSessionHandler(svc *exam.SessionService) http.HandlerFunc {
	type in struct {
		Descriptor string `json:"descriptor"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req in
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		d, err := exam.DecodeSessionDescriptor(req.Descriptor)
		if err != nil {
			writeError(w, err)
			return
		}
		s, err := svc.Resume(r.Context(), d, authmw.UserIDFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSessionOut(s, time.Now()))
	}
}

// POST /sessions/submit  { descriptor, answers }
func SubmitSessionHandler(svc *exam.SessionService) http.HandlerFunc {
	type in struct {
		Descriptor string           `json:"descriptor"`
		Answers    []exam.Selection `json:"answers"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req in
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		d, err := exam.DecodeSessionDescriptor(req.Descriptor)
		if err != nil {
			writeError(w, err)
			return
		}
		res, err := svc.Submit(r.Context(), d, req.Answers)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
