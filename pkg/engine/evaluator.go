package engine

import (
	"fmt"
)

// FailurePolicy decides what a batch does when one item fails
type FailurePolicy int

const (
	// AbortOnFailure stops the batch at the first failing item
	AbortOnFailure FailurePolicy = iota
	// ContinueOnFailure re-emits the failing item with its error and moves on
	ContinueOnFailure
)

func (p FailurePolicy) String() string {
	if p == ContinueOnFailure {
		return "continue"
	}
	return "abort"
}

// ItemError annotates a per-item failure with the item's position in the batch
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Evaluator assesses controls against one crosswalk. The crosswalk is the
// active table for a batch and is never modified by the evaluator.
type Evaluator struct {
	crosswalk Crosswalk
	policy    FailurePolicy
}

// NewEvaluator creates an evaluator bound to a crosswalk.
// A nil crosswalk selects the built-in default.
func NewEvaluator(cw Crosswalk, policy FailurePolicy) *Evaluator {
	if cw == nil {
		cw = defaultCrosswalk
	}
	return &Evaluator{crosswalk: cw, policy: policy}
}

// Crosswalk returns the active table
func (e *Evaluator) Crosswalk() Crosswalk {
	return e.crosswalk
}

// Evaluate classifies, scores and maps a single control
func (e *Evaluator) Evaluate(in Input) Result {
	categories := Classify(in.ControlText)
	evidenceCount := len(in.EvidenceURLs)
	a := Score(categories, evidenceCount, in.ControlText, in.EvidenceURLs)

	gaps := make([]string, 0, 1)
	if evidenceCount == 0 {
		if a.Status == StatusCompliant {
			a.Status = StatusPartial
		}
		gaps = append(gaps, GapNoEvidence)
	}

	return Result{
		InputControlText:   in.ControlText,
		Categories:         categories,
		Evidence:           nonNil(in.EvidenceURLs),
		Status:             a.Status,
		Score:              a.Score,
		Confidence:         a.Confidence,
		Evaluation:         a.Evaluation,
		Rationale:          a.Rationale,
		MappedRequirements: e.crosswalk.Map(categories, in.Frameworks),
		FrameworksSelected: nonNil(in.Frameworks),
		Gaps:               gaps,
		Actions:            actionsFor(categories, evidenceCount),
		Notes:              Notes,
	}
}

// EvaluateBatch processes items strictly in order. Under AbortOnFailure the
// first failing item stops the batch with an *ItemError; under
// ContinueOnFailure it is re-emitted with its error.
func (e *Evaluator) EvaluateBatch(items []Item) ([]Output, error) {
	outputs := make([]Output, 0, len(items))
	for i, it := range items {
		in, err := ParseItem(it)
		if err != nil {
			if e.policy == ContinueOnFailure {
				outputs = append(outputs, Output{PairedItem: i, Input: it, Error: err.Error()})
				continue
			}
			return outputs, &ItemError{Index: i, Err: err}
		}

		r := e.Evaluate(in)
		outputs = append(outputs, Output{PairedItem: i, Result: &r})
	}
	return outputs, nil
}

// actionsFor lists one recommendation per category, then the evidence reminder
func actionsFor(categories []Category, evidenceCount int) []string {
	actions := make([]string, 0, len(categories)+1)
	for _, c := range Categories() {
		if contains(categories, c) {
			actions = append(actions, c.Action())
		}
	}
	if evidenceCount == 0 {
		actions = append(actions, ActionAddEvidence)
	}
	return actions
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
