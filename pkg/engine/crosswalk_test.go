package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCrosswalkCoversEveryCategoryAndFramework(t *testing.T) {
	cw := DefaultCrosswalk()
	for _, c := range Categories() {
		for _, fw := range SupportedFrameworks {
			clauses := cw.Lookup(c, fw)
			require.Len(t, clauses, 1, "%s/%s", c, fw)
			assert.Equal(t, fw, clauses[0].Framework)
		}
	}
	assert.Equal(t, []Framework{
		FrameworkEssentialEight, FrameworkGDPR, FrameworkISO27001,
		FrameworkNISTCSF, FrameworkPCIDSS, FrameworkSOC2,
	}, cw.Frameworks())
}

func TestDefaultCrosswalkIsNotShared(t *testing.T) {
	cw := DefaultCrosswalk()
	cw[CategoryMFA][FrameworkISO27001][0].Clause = "changed"
	delete(cw, CategoryLogging)

	fresh := DefaultCrosswalk()
	assert.Equal(t, "A.5.17", fresh.Lookup(CategoryMFA, FrameworkISO27001)[0].Clause)
	assert.NotEmpty(t, fresh.Lookup(CategoryLogging, FrameworkISO27001))
}

func TestLookupMissingKeys(t *testing.T) {
	cw := DefaultCrosswalk()
	assert.Empty(t, cw.Lookup("physical", FrameworkISO27001))
	assert.Empty(t, cw.Lookup(CategoryMFA, "HIPAA"))

	var empty Crosswalk
	assert.Empty(t, empty.Lookup(CategoryMFA, FrameworkISO27001))
	assert.Empty(t, empty.Map([]Category{CategoryMFA}, []Framework{FrameworkISO27001}))
}

func TestLoadCrosswalkFile(t *testing.T) {
	y, err := LoadCrosswalkFile(filepath.Join("testdata", "crosswalk.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []Clause{{Framework: FrameworkISO27001, Clause: "A.8.16", Title: "Monitoring activities"}},
		y.Lookup(CategoryLogging, FrameworkISO27001))
	assert.Empty(t, y.Lookup(CategoryMFA, FrameworkISO27001))

	j, err := LoadCrosswalkFile(filepath.Join("testdata", "crosswalk.json"))
	require.NoError(t, err)
	assert.Equal(t, "7.3", j.Lookup(CategoryPatching, "CIS")[0].Clause)
}

func TestLoadCrosswalkFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadCrosswalkFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	txt := filepath.Join(dir, "crosswalk.txt")
	require.NoError(t, os.WriteFile(txt, []byte("{}"), 0600))
	_, err = LoadCrosswalkFile(txt)
	assert.ErrorContains(t, err, "unsupported crosswalk file type")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"mfa": [1, 2]}`), 0600))
	_, err = LoadCrosswalkFile(bad)
	assert.ErrorContains(t, err, "bad.json")
}

func TestLoadCrosswalkDir(t *testing.T) {
	cw, err := LoadCrosswalkDir(filepath.Join("testdata", "frameworks"))
	require.NoError(t, err)

	assert.Equal(t, []Framework{"HIPAA", "Internal Baseline"}, cw.Frameworks())
	assert.Equal(t, []Clause{
		{Framework: "Internal Baseline", Clause: "SEC-BCP-2", Title: "Quarterly restore test"},
		{Framework: "Internal Baseline", Clause: "SEC-BCP-3", Title: "Offsite copies"},
	}, cw.Lookup(CategoryBackups, "Internal Baseline"))
	assert.Equal(t, "164.312(a)(2)(iv)", cw.Lookup(CategoryEncryption, "HIPAA")[0].Clause)

	// built-in frameworks are not merged in
	assert.Empty(t, cw.Lookup(CategoryMFA, FrameworkISO27001))
}

func TestLoadCrosswalkDirRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	profile := []byte("framework: Internal\nmappings:\n  mfa:\n    - clause: A\n      title: B\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), profile, 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), profile, 0600))

	_, err := LoadCrosswalkDir(dir)
	assert.ErrorContains(t, err, "already defined")
}

func TestParseCrosswalkJSONNull(t *testing.T) {
	cw, err := ParseCrosswalkJSON([]byte("null"))
	require.NoError(t, err)
	assert.Nil(t, cw)
}
