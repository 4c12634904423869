package seed

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/examprep-pro/examprep/internal/exam"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "exams.csv",
		"title,category,difficulty,time_limit,description\n"+
			"CISSP,Security,Hard,90,Certified practice\n"+
			"CCNA,Networking,Medium,,\n")
	writeFile(t, dir, "topics.csv",
		"exam_title,topic_name\n"+
			"CISSP,Cryptography\n"+
			"CISSP,Access Control\n"+
			"No Such Exam,Orphan Topic\n")
	writeFile(t, dir, "questions_cissp.csv",
		"exam_title,topic_name,question_text,type,options,correct_answers,explanation,difficulty\n"+
			"CISSP,Cryptography,Which cipher is symmetric?,MCQ,AES|RSA|ECDSA,0,AES uses a shared key,Easy\n"+
			"CISSP,,Pick the hash functions,MULTI_SELECT,SHA-256|RSA|MD5,0;2,,Medium\n"+
			"CISSP,Access Control,MAC is discretionary,TRUE_FALSE,,1,,Easy\n"+
			"No Such Exam,,ignored row,MCQ,a|b,0,,\n")

	store := exam.NewInMemoryStore()
	sum, err := NewLoader(store).LoadDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sum.Exams != 2 || sum.Topics != 2 || sum.Questions != 3 {
		t.Fatalf("summary = %+v, want 2 exams, 2 topics, 3 questions", sum)
	}

	ctx := context.Background()
	ex, err := store.GetExamByTitle(ctx, "CCNA")
	if err != nil {
		t.Fatalf("CCNA not loaded: %v", err)
	}
	if ex.TimeLimit != 60 {
		t.Errorf("blank time_limit = %d, want default 60", ex.TimeLimit)
	}

	cissp, err := store.GetExamByTitle(ctx, "CISSP")
	if err != nil {
		t.Fatalf("CISSP not loaded: %v", err)
	}
	qs, err := store.SampleQuestions(ctx, exam.SampleOpts{ExamID: cissp.ID, Limit: 10})
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if len(qs) != 3 {
		t.Fatalf("CISSP questions = %d, want 3", len(qs))
	}
	for _, q := range qs {
		switch q.Type {
		case exam.TypeMultiSelect:
			if !reflect.DeepEqual(q.CorrectAnswers, []int{0, 2}) {
				t.Errorf("multi-select correct = %v, want [0 2]", q.CorrectAnswers)
			}
		case exam.TypeTrueFalse:
			// Empty options cell falls back to the standard pair.
			if !reflect.DeepEqual(q.Options, []string{"True", "False"}) {
				t.Errorf("true/false options = %v", q.Options)
			}
		}
	}

	// Re-running is idempotent for exams and topics.
	sum, err = NewLoader(store).LoadDir(ctx, dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if sum.Exams != 0 {
		t.Errorf("reload created %d exams, want 0", sum.Exams)
	}
}

func TestLoadDirMissingFiles(t *testing.T) {
	store := exam.NewInMemoryStore()
	sum, err := NewLoader(store).LoadDir(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("empty dir must not fail: %v", err)
	}
	if sum != (Summary{}) {
		t.Errorf("summary = %+v, want zero", sum)
	}
}

func TestParseOptions(t *testing.T) {
	got := ParseOptions(" AES | RSA |ECDSA")
	want := []string{"AES", "RSA", "ECDSA"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseOptions = %v, want %v", got, want)
	}
	if ParseOptions("  ") != nil {
		t.Error("blank cell must parse to nil")
	}
}

func TestParseCorrect(t *testing.T) {
	cases := []struct {
		in   string
		want []int
	}{
		{"0", []int{0}},
		{"0;2", []int{0, 2}},
		{"0,2", []int{0, 2}},
		{"1; x ;3", []int{1, 3}},
		{"", nil},
		{"-1", nil},
	}
	for _, tc := range cases {
		if got := ParseCorrect(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseCorrect(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
