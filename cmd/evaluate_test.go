package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cyberpulse/pkg/engine"
)

func parseEvaluateFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "evaluate"}
	addEvaluateFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestBuildBatchFromText(t *testing.T) {
	cmd := parseEvaluateFlags(t,
		"--text", "All admin accounts must enforce MFA",
		"--evidence", "https://portal.example.com/mfa.png",
		"--framework", "NIST CSF",
	)

	b, err := buildBatch(cmd, []engine.Framework{engine.FrameworkISO27001}, "")
	require.NoError(t, err)
	require.Len(t, b.Items, 1)

	in, err := engine.ParseItem(b.Items[0])
	require.NoError(t, err)
	assert.Equal(t, "All admin accounts must enforce MFA", in.ControlText)
	assert.Equal(t, []string{"https://portal.example.com/mfa.png"}, in.EvidenceURLs)
	assert.Equal(t, []engine.Framework{engine.FrameworkNISTCSF}, in.Frameworks)
	assert.Equal(t, engine.AbortOnFailure, b.Policy)
}

func TestBuildBatchDefaultFrameworksAndEmptyText(t *testing.T) {
	cmd := parseEvaluateFlags(t, "--text", "", "--continue-on-fail")

	b, err := buildBatch(cmd, []engine.Framework{engine.FrameworkSOC2}, "")
	require.NoError(t, err)

	in, err := engine.ParseItem(b.Items[0])
	require.NoError(t, err)
	assert.Empty(t, in.ControlText)
	assert.Empty(t, in.EvidenceURLs)
	assert.Equal(t, []engine.Framework{engine.FrameworkSOC2}, in.Frameworks)
	assert.Equal(t, engine.ContinueOnFailure, b.Policy)
}

func TestBuildBatchNeedsInput(t *testing.T) {
	_, err := buildBatch(parseEvaluateFlags(t), nil, "")
	assert.EqualError(t, err, "either --text or --input is required")
}

func TestBuildBatchCrosswalkURLPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`crosswalk_url: https://file.example.com/cw.json
items:
  - control_text: backups
`), 0644))

	b, err := buildBatch(parseEvaluateFlags(t, "--input", path), nil, "https://config.example.com/cw.json")
	require.NoError(t, err)
	assert.Equal(t, "https://file.example.com/cw.json", b.CrosswalkURL)
	assert.Len(t, b.Items, 1)

	b, err = buildBatch(parseEvaluateFlags(t, "--input", path, "--crosswalk-url", "https://flag.example.com/cw.json"),
		nil, "https://config.example.com/cw.json")
	require.NoError(t, err)
	assert.Equal(t, "https://flag.example.com/cw.json", b.CrosswalkURL)

	b, err = buildBatch(parseEvaluateFlags(t, "--text", "mfa"), nil, "https://config.example.com/cw.json")
	require.NoError(t, err)
	assert.Equal(t, "https://config.example.com/cw.json", b.CrosswalkURL)
}

func TestBuildBatchCrosswalkDirectory(t *testing.T) {
	dir := filepath.Join("..", "pkg", "engine", "testdata", "frameworks")

	b, err := buildBatch(parseEvaluateFlags(t, "--text", "mfa", "--crosswalk-file", dir), nil, "")
	require.NoError(t, err)
	assert.Equal(t, "file:"+dir, b.CrosswalkSource)
	assert.Equal(t, []engine.Clause{{Framework: "Internal Baseline", Clause: "SEC-AUTH-1", Title: "Phishing-resistant sign-in"}},
		b.Crosswalk.Lookup(engine.CategoryMFA, "Internal Baseline"))
}

func TestLoadCrosswalkPath(t *testing.T) {
	cw, err := loadCrosswalkPath(filepath.Join("..", "pkg", "engine", "testdata", "crosswalk.json"))
	require.NoError(t, err)
	assert.Equal(t, "7.3", cw.Lookup(engine.CategoryPatching, "CIS")[0].Clause)

	_, err = loadCrosswalkPath(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuildBatchCrosswalkFileOverridesConfiguredURL(t *testing.T) {
	file := filepath.Join("..", "pkg", "engine", "testdata", "crosswalk.yaml")

	b, err := buildBatch(parseEvaluateFlags(t, "--text", "mfa", "--framework", "ISO 27001", "--crosswalk-file", file),
		nil, "https://config.example.com/cw.json")
	require.NoError(t, err)
	assert.Empty(t, b.CrosswalkURL)
	assert.Equal(t, "file:"+file, b.CrosswalkSource)
	assert.Equal(t, "A.8.16", b.Crosswalk.Lookup(engine.CategoryLogging, engine.FrameworkISO27001)[0].Clause)
}

func TestBuildBatchCrosswalkFileOverridesBatchFileURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`crosswalk_url: https://file.example.com/cw.json
items:
  - control_text: patch servers
`), 0644))
	file := filepath.Join("..", "pkg", "engine", "testdata", "crosswalk.json")

	b, err := buildBatch(parseEvaluateFlags(t, "--input", path, "--crosswalk-file", file), nil, "")
	require.NoError(t, err)
	assert.Empty(t, b.CrosswalkURL)
	assert.Equal(t, "file:"+file, b.CrosswalkSource)
}

func TestBuildBatchRejectsBothCrosswalkSources(t *testing.T) {
	_, err := buildBatch(parseEvaluateFlags(t, "--text", "mfa",
		"--crosswalk-url", "https://flag.example.com/cw.json",
		"--crosswalk-file", filepath.Join("..", "pkg", "engine", "testdata", "crosswalk.yaml")), nil, "")
	assert.EqualError(t, err, "--crosswalk-url and --crosswalk-file cannot be used together")
}
