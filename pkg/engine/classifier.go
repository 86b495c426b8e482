package engine

import (
	"regexp"
	"strings"
)

// Category is a control-topic bucket assigned by the classifier
type Category string

const (
	CategoryMFA           Category = "mfa"
	CategoryEncryption    Category = "encryption"
	CategoryLogging       Category = "logging"
	CategoryBackups       Category = "backups"
	CategoryPatching      Category = "patching"
	CategoryAccessReviews Category = "access_reviews"
)

// DefaultCategory is returned when no pattern matches
const DefaultCategory = CategoryLogging

// categoryRule ties a category to its detection pattern, coverage weight
// and recommended action. The table order is the classification order.
type categoryRule struct {
	category Category
	pattern  *regexp.Regexp
	weight   int
	action   string
}

var categoryRules = []categoryRule{
	{
		category: CategoryMFA,
		pattern:  regexp.MustCompile(`(mfa|2fa|two[-\s]?factor|multi[-\s]?factor)`),
		weight:   8,
		action:   "Confirm MFA enforced for all privileged accounts",
	},
	{
		category: CategoryEncryption,
		pattern:  regexp.MustCompile(`(encrypt|aes|rsa|kms|tls|https|at rest|at-rest)`),
		weight:   7,
		action:   "Verify encryption at rest & in transit",
	},
	{
		category: CategoryLogging,
		pattern:  regexp.MustCompile(`(log|logging|siem|monitor|edr|xdr|soc)`),
		weight:   5,
		action:   "Forward critical logs to SIEM & alert on anomalies",
	},
	{
		category: CategoryBackups,
		pattern:  regexp.MustCompile(`(backup|back[-\s]?up|snapshots?|restore|rpo|rto|dr test|disaster recovery)`),
		weight:   5,
		action:   "Test restores to validate RPO/RTO targets",
	},
	{
		category: CategoryPatching,
		pattern:  regexp.MustCompile(`(patch|update|vulnerability|cve|scan|remediate)`),
		weight:   6,
		action:   "Apply critical patches within policy SLA",
	},
	{
		category: CategoryAccessReviews,
		pattern:  regexp.MustCompile(`(access review|recertif|least privilege|privilege review|entitlement)`),
		weight:   6,
		action:   "Perform quarterly access recertifications",
	},
}

// unknownCategoryWeight applies to categories outside the rule table
const unknownCategoryWeight = 3

// Categories returns every known category in classification order
func Categories() []Category {
	out := make([]Category, 0, len(categoryRules))
	for _, r := range categoryRules {
		out = append(out, r.category)
	}
	return out
}

// Classify maps control text to the categories whose patterns match.
// The result is never empty and follows the rule table order.
func Classify(text string) []Category {
	t := strings.ToLower(text)

	var hits []Category
	for _, r := range categoryRules {
		if r.pattern.MatchString(t) {
			hits = append(hits, r.category)
		}
	}
	if len(hits) == 0 {
		return []Category{DefaultCategory}
	}
	return hits
}

// Weight returns the coverage weight of a category
func (c Category) Weight() int {
	if r, ok := lookupRule(c); ok {
		return r.weight
	}
	return unknownCategoryWeight
}

// Action returns the recommended action for a category, or "" when unknown
func (c Category) Action() string {
	if r, ok := lookupRule(c); ok {
		return r.action
	}
	return ""
}

// Known reports whether the category is one of the classifier's buckets
func (c Category) Known() bool {
	_, ok := lookupRule(c)
	return ok
}

func lookupRule(c Category) (categoryRule, bool) {
	for _, r := range categoryRules {
		if r.category == c {
			return r, true
		}
	}
	return categoryRule{}, false
}

func joinCategories(cats []Category) string {
	parts := make([]string, len(cats))
	for i, c := range cats {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}
