package grading

import (
	"context"
	"testing"
)

func TestSingleChoiceGrading(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{Type: "MCQ", Options: []string{"Paris", "London", "Berlin"}, CorrectAnswers: []int{0}}

	cases := []struct {
		name     string
		selected []string
		want     bool
	}{
		{"correct option", []string{"Paris"}, true},
		{"wrong option", []string{"London"}, false},
		{"absent selection", nil, false},
		{"empty selection", []string{}, false},
		{"value not among options", []string{"Madrid"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := g.Grade(context.Background(), q, tc.selected)
			if err != nil {
				t.Fatalf("grade: %v", err)
			}
			if res.Correct != tc.want {
				t.Errorf("correct = %v, want %v", res.Correct, tc.want)
			}
			if res.CorrectLabel != "Paris" {
				t.Errorf("correct label = %q, want Paris", res.CorrectLabel)
			}
		})
	}
}

func TestTrueFalseGrading(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{Type: "TRUE_FALSE", Options: []string{"True", "False"}, CorrectAnswers: []int{1}}

	if res, _ := g.Grade(context.Background(), q, []string{"False"}); !res.Correct {
		t.Error("selecting the correct value should grade correct")
	}
	if res, _ := g.Grade(context.Background(), q, []string{"True"}); res.Correct {
		t.Error("selecting the wrong value should grade incorrect")
	}
}

func TestMultiSelectExactSet(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{
		Type:           "MULTI_SELECT",
		Options:        []string{"TCP", "UDP", "ICMP", "HTTP"},
		CorrectAnswers: []int{0, 1},
	}

	cases := []struct {
		name     string
		selected []string
		want     bool
	}{
		{"exact set", []string{"TCP", "UDP"}, true},
		{"exact set, different order", []string{"UDP", "TCP"}, true},
		{"duplicates collapse", []string{"TCP", "UDP", "TCP"}, true},
		{"strict subset", []string{"TCP"}, false},
		{"strict superset", []string{"TCP", "UDP", "ICMP"}, false},
		{"disjoint", []string{"ICMP", "HTTP"}, false},
		{"empty", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := g.Grade(context.Background(), q, tc.selected)
			if err != nil {
				t.Fatalf("grade: %v", err)
			}
			if res.Correct != tc.want {
				t.Errorf("correct = %v, want %v", res.Correct, tc.want)
			}
		})
	}
}

// Grading must terminate with a boolean for any input, never an error.
func TestGradingIsTotal(t *testing.T) {
	g := NewDefaultGrader()
	questions := []Q{
		{Type: "MCQ"},                                     // no options, no key
		{Type: "MCQ", Options: []string{"A"}},             // key missing
		{Type: "MCQ", CorrectAnswers: []int{5}},           // index out of range
		{Type: "TRUE_FALSE", CorrectAnswers: []int{-1}},   // negative index
		{Type: "MULTI_SELECT", CorrectAnswers: []int{9}},  // all indices invalid
		{Type: "ESSAY", CorrectAnswers: []int{0}},         // unknown type
		{Type: "", Options: []string{"A", "B"}},           // empty type
	}
	selections := [][]string{nil, {}, {""}, {"A"}, {"A", "A", "B"}}

	for _, q := range questions {
		for _, sel := range selections {
			res, err := g.Grade(context.Background(), q, sel)
			if err != nil {
				t.Fatalf("grade %+v with %v: unexpected error %v", q, sel, err)
			}
			if res.Correct {
				t.Errorf("grade %+v with %v: malformed question graded correct", q, sel)
			}
		}
	}
}

func TestCanonicalLabel(t *testing.T) {
	q := Q{Options: []string{"a", "b", "c"}, CorrectAnswers: []int{2, 0}}
	if got := CanonicalLabel(q); got != "c, a" {
		t.Errorf("label = %q, want %q", got, "c, a")
	}
	if got := CanonicalLabel(Q{Options: []string{"a"}, CorrectAnswers: []int{7}}); got != "—" {
		t.Errorf("label for invalid index = %q, want dash", got)
	}
	if got := CanonicalLabel(Q{}); got != "—" {
		t.Errorf("label for empty key = %q, want dash", got)
	}
}
