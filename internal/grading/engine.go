package grading

import (
	"context"
	"strings"
)

// Q is a minimal view of a question needed for grading.
// Keep this in sync with whatever fields your store uses.
type Q struct {
	Type           string
	Options        []string
	CorrectAnswers []int // indices into Options
}

// Result is the outcome of grading a single question response.
type Result struct {
	Correct      bool
	CorrectLabel string // canonical answer rendered for review ("—" when none)
}

// Strategy grades a single question. Implementations must be total: any
// response, including nil or malformed, yields a Result and a nil error.
type Strategy interface {
	Grade(ctx context.Context, q Q, selected []string) (Result, error)
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, q Q, selected []string) (Result, error)
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(ctx context.Context, q Q, selected []string) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		// Unknown type: grade incorrect rather than abort the pass.
		return Result{CorrectLabel: CanonicalLabel(q)}, nil
	}
	return s.Grade(ctx, q, selected)
}

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader() Grader {
	return &defaultGrader{
		strategies: map[string]Strategy{
			"MCQ":          singleChoiceStrategy{},
			"TRUE_FALSE":   singleChoiceStrategy{},
			"MULTI_SELECT": multiSelectStrategy{},
		},
	}
}

// CanonicalLabel renders the stored correct answers as display text, joining
// the option values at each valid correct index.
func CanonicalLabel(q Q) string {
	labels := make([]string, 0, len(q.CorrectAnswers))
	for _, idx := range q.CorrectAnswers {
		if idx >= 0 && idx < len(q.Options) {
			labels = append(labels, q.Options[idx])
		}
	}
	if len(labels) == 0 {
		return "—"
	}
	return strings.Join(labels, ", ")
}

// --- Strategies ---

type singleChoiceStrategy struct{}

func (singleChoiceStrategy) Grade(_ context.Context, q Q, selected []string) (Result, error) {
	res := Result{CorrectLabel: CanonicalLabel(q)}
	if len(selected) == 0 || len(q.CorrectAnswers) == 0 {
		return res, nil
	}
	correctIdx := q.CorrectAnswers[0]
	if correctIdx < 0 || correctIdx >= len(q.Options) {
		return res, nil
	}
	for i, opt := range q.Options {
		if opt == selected[0] {
			res.Correct = i == correctIdx
			return res, nil
		}
	}
	// Selected value not among the options: incorrect, never an error.
	return res, nil
}

type multiSelectStrategy struct{}

func (multiSelectStrategy) Grade(_ context.Context, q Q, selected []string) (Result, error) {
	res := Result{CorrectLabel: CanonicalLabel(q)}

	correct := map[string]struct{}{}
	for _, idx := range q.CorrectAnswers {
		if idx >= 0 && idx < len(q.Options) {
			correct[q.Options[idx]] = struct{}{}
		}
	}
	if len(correct) == 0 {
		return res, nil
	}

	chosen := map[string]struct{}{}
	for _, s := range selected {
		chosen[s] = struct{}{}
	}

	// Exact set match only: any omission or extra selection fails the item.
	if len(chosen) != len(correct) {
		return res, nil
	}
	for k := range chosen {
		if _, ok := correct[k]; !ok {
			return res, nil
		}
	}
	res.Correct = true
	return res, nil
}
