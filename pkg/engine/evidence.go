package engine

import (
	"regexp"
	"strings"
)

// EvidenceType is a coarse classification of an evidence link
type EvidenceType string

const (
	EvidenceDocument   EvidenceType = "document"
	EvidenceScreenshot EvidenceType = "screenshot"
	EvidenceConfig     EvidenceType = "config"
	EvidencePortal     EvidenceType = "portal"
)

var evidencePatterns = []struct {
	kind    EvidenceType
	pattern *regexp.Regexp
}{
	{EvidenceDocument, regexp.MustCompile(`\.(pdf|docx?|txt)`)},
	{EvidenceScreenshot, regexp.MustCompile(`\.(png|jpe?g|gif|webp)`)},
	{EvidenceConfig, regexp.MustCompile(`\.(json|ya?ml|xml|conf|config)`)},
	{EvidencePortal, regexp.MustCompile(`(dashboard|portal|console|admin)`)},
}

// ClassifyEvidence returns every evidence type whose pattern matches the URL.
// A URL may match none.
func ClassifyEvidence(url string) []EvidenceType {
	lower := strings.ToLower(url)
	var kinds []EvidenceType
	for _, p := range evidencePatterns {
		if p.pattern.MatchString(lower) {
			kinds = append(kinds, p.kind)
		}
	}
	return kinds
}

// evidenceDiversity counts distinct evidence types across all URLs
func evidenceDiversity(urls []string) int {
	seen := make(map[EvidenceType]bool)
	for _, u := range urls {
		for _, k := range ClassifyEvidence(u) {
			seen[k] = true
		}
	}
	return len(seen)
}
