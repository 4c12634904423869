package exam

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SessionDescriptor is the resumable encoding of one in-flight attempt: the
// frozen question order, the wall-clock deadline, and the configuration the
// session was started with. Clients carry it opaquely (query string, cookie,
// local storage) and hand it back to resume or submit.
type SessionDescriptor struct {
	AttemptID   int64    `json:"attempt_id,omitempty"`
	ExamID      int64    `json:"exam_id"`
	QuestionIDs []int64  `json:"question_ids"`
	Deadline    int64    `json:"deadline"` // epoch seconds
	Topics      []string `json:"topics,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty"`
	Count       int      `json:"count,omitempty"`
}

var ErrBadDescriptor = errors.New("malformed session descriptor")

// RemainingTime is the advisory countdown: zero signals expiry. The session
// never submits on its own; the caller decides what to do at zero.
func (d SessionDescriptor) RemainingTime(now time.Time) time.Duration {
	rem := time.Unix(d.Deadline, 0).Sub(now)
	if rem < 0 {
		return 0
	}
	return rem.Truncate(time.Second)
}

// Encode renders the descriptor as URL query parameters, the same shape the
// original client keeps in its address bar for refresh recovery.
func (d SessionDescriptor) Encode() string {
	v := url.Values{}
	v.Set("exam_id", strconv.FormatInt(d.ExamID, 10))
	v.Set("q", joinIDs(d.QuestionIDs))
	v.Set("end", strconv.FormatInt(d.Deadline, 10))
	if d.AttemptID != 0 {
		v.Set("attempt", strconv.FormatInt(d.AttemptID, 10))
	}
	if len(d.Topics) > 0 {
		v.Set("topics", strings.Join(d.Topics, ","))
	}
	if d.Difficulty != "" {
		v.Set("difficulty", d.Difficulty)
	}
	if d.Count > 0 {
		v.Set("n", strconv.Itoa(d.Count))
	}
	return v.Encode()
}

// DecodeSessionDescriptor parses the query-string form. exam_id, q and end
// are required; everything else is optional.
func DecodeSessionDescriptor(raw string) (SessionDescriptor, error) {
	v, err := url.ParseQuery(raw)
	if err != nil {
		return SessionDescriptor{}, ErrBadDescriptor
	}
	examID, err := strconv.ParseInt(v.Get("exam_id"), 10, 64)
	if err != nil || examID <= 0 {
		return SessionDescriptor{}, ErrBadDescriptor
	}
	ids, err := splitIDs(v.Get("q"))
	if err != nil || len(ids) == 0 {
		return SessionDescriptor{}, ErrBadDescriptor
	}
	end, err := strconv.ParseInt(v.Get("end"), 10, 64)
	if err != nil || end <= 0 {
		return SessionDescriptor{}, ErrBadDescriptor
	}

	d := SessionDescriptor{ExamID: examID, QuestionIDs: ids, Deadline: end}
	if s := v.Get("attempt"); s != "" {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			d.AttemptID = id
		}
	}
	if s := v.Get("topics"); s != "" {
		for _, t := range strings.Split(s, ",") {
			if t = strings.TrimSpace(t); t != "" {
				d.Topics = append(d.Topics, t)
			}
		}
	}
	d.Difficulty = v.Get("difficulty")
	if s := v.Get("n"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			d.Count = n
		}
	}
	return d, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func splitIDs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, ErrBadDescriptor
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 {
			return nil, ErrBadDescriptor
		}
		out = append(out, id)
	}
	return out, nil
}
