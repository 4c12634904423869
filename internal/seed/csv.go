// Package seed loads exams, topics, and questions from headered CSV files:
//
//	exams.csv        title,category,difficulty,time_limit,description
//	topics.csv       exam_title,topic_name
//	questions_*.csv  exam_title,topic_name,question_text,type,options,correct_answers,explanation,difficulty
//
// options is a |-separated list; correct_answers is a ;- or ,-separated list
// of option indices. Loading is get-or-create, so re-running the seeder
// honors the same uniqueness rules as interactive creation.
package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/examprep-pro/examprep/internal/exam"
)

type Summary struct {
	Exams     int
	Topics    int
	Questions int
}

type Loader struct {
	store exam.Store
}

func NewLoader(store exam.Store) *Loader { return &Loader{store: store} }

// LoadDir seeds everything found under dir. Missing files are skipped.
func (l *Loader) LoadDir(ctx context.Context, dir string) (Summary, error) {
	var sum Summary

	n, err := l.loadExams(ctx, filepath.Join(dir, "exams.csv"))
	if err != nil {
		return sum, err
	}
	sum.Exams = n

	n, err = l.loadTopics(ctx, filepath.Join(dir, "topics.csv"))
	if err != nil {
		return sum, err
	}
	sum.Topics = n

	matches, err := filepath.Glob(filepath.Join(dir, "questions_*.csv"))
	if err != nil {
		return sum, err
	}
	for _, path := range matches {
		n, err = l.loadQuestions(ctx, path)
		if err != nil {
			return sum, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		sum.Questions += n
	}
	return sum, nil
}

func (l *Loader) loadExams(ctx context.Context, path string) (int, error) {
	rows, err := readCSV(path)
	if err != nil || rows == nil {
		return 0, err
	}
	n := 0
	for _, row := range rows {
		title := strings.TrimSpace(row["title"])
		if title == "" {
			continue
		}
		if _, err := l.store.GetExamByTitle(ctx, title); err == nil {
			continue
		} else if !errors.Is(err, exam.ErrExamNotFound) {
			return n, err
		}
		timeLimit, _ := strconv.Atoi(orDefault(row["time_limit"], "60"))
		if timeLimit <= 0 {
			timeLimit = 60
		}
		if _, err := l.store.CreateExam(ctx, exam.Exam{
			Title:       title,
			Category:    orDefault(row["category"], "General"),
			Difficulty:  orDefault(row["difficulty"], "Medium"),
			TimeLimit:   timeLimit,
			Description: row["description"],
		}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (l *Loader) loadTopics(ctx context.Context, path string) (int, error) {
	rows, err := readCSV(path)
	if err != nil || rows == nil {
		return 0, err
	}
	n := 0
	for _, row := range rows {
		title := strings.TrimSpace(row["exam_title"])
		name := strings.TrimSpace(row["topic_name"])
		if title == "" || name == "" {
			continue
		}
		ex, err := l.store.GetExamByTitle(ctx, title)
		if errors.Is(err, exam.ErrExamNotFound) {
			continue // topic for unknown exam: skip, don't fail the run
		}
		if err != nil {
			return n, err
		}
		if _, err := l.store.GetOrCreateTopic(ctx, ex.ID, name); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (l *Loader) loadQuestions(ctx context.Context, path string) (int, error) {
	rows, err := readCSV(path)
	if err != nil || rows == nil {
		return 0, err
	}
	byExam := map[int64][]exam.Question{}
	for _, row := range rows {
		title := strings.TrimSpace(row["exam_title"])
		text := strings.TrimSpace(row["question_text"])
		if title == "" || text == "" {
			continue
		}
		ex, err := l.store.GetExamByTitle(ctx, title)
		if errors.Is(err, exam.ErrExamNotFound) {
			continue
		}
		if err != nil {
			return 0, err
		}
		q := exam.Question{
			ExamID:         ex.ID,
			Text:           text,
			Type:           orDefault(strings.TrimSpace(row["type"]), exam.TypeMCQ),
			Options:        ParseOptions(row["options"]),
			CorrectAnswers: ParseCorrect(row["correct_answers"]),
			Explanation:    row["explanation"],
			Difficulty:     strings.TrimSpace(row["difficulty"]),
		}
		if name := strings.TrimSpace(row["topic_name"]); name != "" {
			t, err := l.store.GetOrCreateTopic(ctx, ex.ID, name)
			if err != nil {
				return 0, err
			}
			q.TopicID = &t.ID
		}
		byExam[ex.ID] = append(byExam[ex.ID], q)
	}
	total := 0
	for examID, qs := range byExam {
		n, err := l.store.BulkInsertQuestions(ctx, examID, qs)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// ParseOptions splits the |-separated options cell.
func ParseOptions(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// ParseCorrect parses the correct-answer index list; `;` and `,` both
// separate, non-numeric entries are dropped.
func ParseCorrect(s string) []int {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	s = strings.ReplaceAll(s, ",", ";")
	var out []int
	for _, p := range strings.Split(s, ";") {
		if v, err := strconv.Atoi(strings.TrimSpace(p)); err == nil && v >= 0 {
			out = append(out, v)
		}
	}
	return out
}

// readCSV returns the file's rows keyed by header name, or nil when the file
// does not exist.
func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rows []map[string]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[strings.TrimSpace(h)] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
