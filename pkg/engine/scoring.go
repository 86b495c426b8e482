package engine

import (
	"fmt"
	"regexp"
	"strings"
)

// Status is the tri-state compliance outcome
type Status string

const (
	StatusCompliant    Status = "Compliant"
	StatusPartial      Status = "Partial"
	StatusNonCompliant Status = "Non-Compliant"
)

// Evaluation is the binary compliance outcome
type Evaluation string

const (
	EvaluationCompliant    Evaluation = "Compliant"
	EvaluationNonCompliant Evaluation = "Non-Compliant"
)

// RationaleSeparator joins rationale phrases
const RationaleSeparator = " • "

const (
	compliantThreshold = 85
	partialThreshold   = 60

	categoryScoreCap       = 25
	implementationScoreCap = 10
	diversityBonus         = 5

	minConfidence = 20
	maxConfidence = 100
)

var (
	specificityPattern = regexp.MustCompile(`\d+|all|every|must|require|enforce|minimum|maximum`)
	actionablePattern  = regexp.MustCompile(`(implement|configure|enable|enforce|review|monitor|test|validate|verify)`)
)

var implementationKeywords = []string{
	"configured", "deployed", "enabled", "implemented", "enforced",
	"active", "running", "operational", "production", "documented",
}

// evidence sub-score and confidence base, indexed by evidence count (capped at 4)
var (
	evidenceScoreByCount  = [...]int{0, 15, 22, 28, 35}
	confidenceBaseByCount = [...]int{20, 45, 65, 80, 95}
)

// Breakdown holds the individual sub-scores that make up a total
type Breakdown struct {
	ControlQuality int `json:"control_quality"`
	Category       int `json:"category"`
	Evidence       int `json:"evidence"`
	Implementation int `json:"implementation"`
}

// Sum adds the sub-scores
func (b Breakdown) Sum() int {
	return b.ControlQuality + b.Category + b.Evidence + b.Implementation
}

// Assessment is the scoring engine's output for one control
type Assessment struct {
	Score      int        `json:"score"`
	Status     Status     `json:"status"`
	Confidence int        `json:"confidence"`
	Evaluation Evaluation `json:"evaluation"`
	Rationale  string     `json:"rationale"`
	Breakdown  Breakdown  `json:"breakdown"`
}

// textSignals are the features of control text shared by several sub-scores
type textSignals struct {
	words       int
	specific    bool
	actionable  bool
	implMatches int
}

// countWords splits on tab, line and form feeds, the Unicode space
// separators and U+FEFF. U+0085 is not a separator, unlike unicode.IsSpace.
func countWords(text string) int {
	return len(strings.FieldsFunc(text, isWordSeparator))
}

func isWordSeparator(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', '\u00a0', '\u1680',
		'\u2028', '\u2029', '\u202f', '\u205f', '\u3000', '\ufeff':
		return true
	}
	return r >= '\u2000' && r <= '\u200a'
}

func analyzeText(controlText string) textSignals {
	lower := strings.ToLower(controlText)
	s := textSignals{
		words:      countWords(controlText),
		specific:   specificityPattern.MatchString(lower),
		actionable: actionablePattern.MatchString(lower),
	}
	for _, kw := range implementationKeywords {
		if strings.Contains(lower, kw) {
			s.implMatches++
		}
	}
	return s
}

// Score computes the total, confidence, status, evaluation and rationale
// for a classified control. It is pure: identical inputs give identical output.
func Score(categories []Category, evidenceCount int, controlText string, evidenceURLs []string) Assessment {
	sig := analyzeText(controlText)

	b := Breakdown{
		ControlQuality: controlQualityScore(sig),
		Category:       categoryScore(categories),
		Evidence:       evidenceScore(evidenceCount, evidenceURLs),
		Implementation: min(sig.implMatches*3, implementationScoreCap),
	}

	// The evidence bonus may lift the sum above 100; the total is bounded here.
	total := max(0, min(b.Sum(), 100))

	status := DeriveStatus(total, evidenceCount)
	return Assessment{
		Score:      total,
		Status:     status,
		Confidence: confidence(evidenceCount, sig),
		Evaluation: DeriveEvaluation(total, evidenceCount),
		Rationale:  strings.Join(rationale(status, total, evidenceCount, categories, sig), RationaleSeparator),
		Breakdown:  b,
	}
}

func controlQualityScore(sig textSignals) int {
	score := 0
	switch {
	case sig.words >= 10 && sig.words <= 100:
		score += 10
	case sig.words > 5:
		score += 5
	}
	if sig.specific {
		score += 10
	}
	if sig.actionable {
		score += 10
	}
	return score
}

func categoryScore(categories []Category) int {
	score := 0
	for _, c := range categories {
		score += c.Weight()
	}
	return min(score, categoryScoreCap)
}

// evidenceScore is not capped after the diversity bonus, so it can reach 40.
func evidenceScore(count int, urls []string) int {
	if count <= 0 {
		return 0
	}
	score := evidenceScoreByCount[min(count, len(evidenceScoreByCount)-1)]
	if evidenceDiversity(urls) >= 2 {
		score += diversityBonus
	}
	return score
}

func confidence(evidenceCount int, sig textSignals) int {
	c := confidenceBaseByCount[max(0, min(evidenceCount, len(confidenceBaseByCount)-1))]
	if sig.words < 5 {
		c -= 15
	} else if sig.words >= 20 {
		c += 5
	}
	if sig.specific && sig.actionable {
		c += 5
	}
	return max(minConfidence, min(c, maxConfidence))
}

// DeriveStatus applies the status thresholds in precedence order
func DeriveStatus(total, evidenceCount int) Status {
	switch {
	case total >= compliantThreshold && evidenceCount >= 2:
		return StatusCompliant
	case total >= partialThreshold && evidenceCount >= 1:
		return StatusPartial
	case total >= partialThreshold && evidenceCount == 0:
		return StatusPartial
	default:
		return StatusNonCompliant
	}
}

// DeriveEvaluation is the binary verdict, computed independently of DeriveStatus
func DeriveEvaluation(total, evidenceCount int) Evaluation {
	if total >= compliantThreshold && evidenceCount >= 2 {
		return EvaluationCompliant
	}
	return EvaluationNonCompliant
}

func rationale(status Status, total, evidenceCount int, categories []Category, sig textSignals) []string {
	var parts []string

	switch status {
	case StatusCompliant:
		parts = append(parts, "Strong compliance demonstrated")
	case StatusPartial:
		parts = append(parts, "Partial compliance - improvement needed")
	default:
		parts = append(parts, "Non-compliant - significant gaps")
	}

	parts = append(parts, fmt.Sprintf("Score: %d/100", total))

	switch {
	case evidenceCount == 0:
		parts = append(parts, "No evidence provided")
	case evidenceCount == 1:
		parts = append(parts, "Minimal evidence (1 item)")
	case evidenceCount >= 4:
		parts = append(parts, fmt.Sprintf("Comprehensive evidence (%d items)", evidenceCount))
	default:
		parts = append(parts, fmt.Sprintf("Evidence: %d items", evidenceCount))
	}

	if len(categories) > 0 {
		parts = append(parts, "Categories: "+joinCategories(categories))
	}
	if sig.words < 10 {
		parts = append(parts, "Control text needs more detail")
	}
	if !sig.specific {
		parts = append(parts, "Add specific requirements/thresholds")
	}
	return parts
}
