package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Category
	}{
		{"empty text falls back to logging", "", []Category{CategoryLogging}},
		{"no keywords falls back to logging", "Staff wear badges", []Category{CategoryLogging}},
		{"mfa synonyms", "Two-factor sign-in for admins", []Category{CategoryMFA}},
		{"multi factor with space", "multi factor everywhere", []Category{CategoryMFA}},
		{"encryption at rest", "Databases are protected AT REST", []Category{CategoryEncryption}},
		{"backups", "Nightly snapshots with disaster recovery drills", []Category{CategoryBackups}},
		{"access reviews", "Quarterly access review of entitlements", []Category{CategoryAccessReviews}},
		{
			name: "several categories in rule order",
			text: "Patch servers, ship logs to the SIEM and require MFA",
			want: []Category{CategoryMFA, CategoryLogging, CategoryPatching},
		},
		{
			name: "order does not follow text order",
			text: "entitlement recertification, then TLS",
			want: []Category{CategoryEncryption, CategoryAccessReviews},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text))
		})
	}
}

func TestClassifyNeverEmpty(t *testing.T) {
	for _, text := range []string{"", " ", "\n\t", "???", "1234", "Lorem ipsum dolor sit amet"} {
		require.NotEmpty(t, Classify(text), "text %q", text)
	}
}

func TestCategoryWeightsAndActions(t *testing.T) {
	assert.Equal(t, 8, CategoryMFA.Weight())
	assert.Equal(t, 7, CategoryEncryption.Weight())
	assert.Equal(t, 6, CategoryAccessReviews.Weight())
	assert.Equal(t, 6, CategoryPatching.Weight())
	assert.Equal(t, 5, CategoryLogging.Weight())
	assert.Equal(t, 5, CategoryBackups.Weight())
	assert.Equal(t, 3, Category("physical").Weight())

	assert.Equal(t, "Forward critical logs to SIEM & alert on anomalies", CategoryLogging.Action())
	assert.Empty(t, Category("physical").Action())
	assert.False(t, Category("physical").Known())
	assert.True(t, CategoryBackups.Known())
}

func TestCategoriesOrder(t *testing.T) {
	assert.Equal(t, []Category{
		CategoryMFA, CategoryEncryption, CategoryLogging,
		CategoryBackups, CategoryPatching, CategoryAccessReviews,
	}, Categories())
}

func TestClassifyEvidence(t *testing.T) {
	assert.Equal(t, []EvidenceType{EvidenceDocument}, ClassifyEvidence("https://files.example.com/policy.PDF"))
	assert.Equal(t, []EvidenceType{EvidenceScreenshot, EvidencePortal}, ClassifyEvidence("https://portal.example.com/dashboard.png"))
	assert.Equal(t, []EvidenceType{EvidenceConfig}, ClassifyEvidence("https://git.example.com/sshd.conf"))
	assert.Empty(t, ClassifyEvidence("https://example.com/ticket/42"))
}
