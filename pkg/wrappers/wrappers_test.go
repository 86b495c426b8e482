package wrappers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cyberpulse/pkg/adk"
	"github.com/user/cyberpulse/pkg/engine"
	"github.com/user/cyberpulse/pkg/history"
	"github.com/user/cyberpulse/pkg/meter"
	"github.com/user/cyberpulse/pkg/runner"
)

var (
	_ adk.Tool = (*EvaluateWrapper)(nil)
	_ adk.Tool = (*ClausesWrapper)(nil)
	_ adk.Tool = (*RunsWrapper)(nil)
)

type stubUpstream struct {
	gateErr error
}

func (s stubUpstream) Gate(ctx context.Context) error { return s.gateErr }

func (s stubUpstream) FetchCrosswalk(ctx context.Context, url string) (engine.Crosswalk, error) {
	return nil, nil
}

func TestEvaluateWrapper(t *testing.T) {
	w := &EvaluateWrapper{
		Runner:     runner.New(stubUpstream{}),
		Frameworks: []engine.Framework{engine.FrameworkPCIDSS},
	}

	out, err := w.Execute(context.Background(), map[string]any{
		"control_text":  "Password policy requires MFA and 12+ characters, enforced and documented",
		"evidence_urls": []any{"https://portal.example.com/dashboard.png", "https://portal.example.com/report.pdf"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "[PARTIAL]")
	assert.Contains(t, out, "Score: 71/100")
	assert.Contains(t, out, "PCI DSS 8.4")
	assert.NotContains(t, out, "ISO 27001")
}

func TestEvaluateWrapperBadArgs(t *testing.T) {
	w := &EvaluateWrapper{Runner: runner.New(stubUpstream{})}
	_, err := w.Execute(context.Background(), map[string]any{"control_text": 5.0})
	var itemErr *engine.ItemError
	assert.True(t, errors.As(err, &itemErr))
}

func TestEvaluateWrapperGateError(t *testing.T) {
	gateErr := &meter.OperationError{Message: "Too many requests – rate limited", Description: "slow down"}
	w := &EvaluateWrapper{Runner: runner.New(stubUpstream{gateErr: gateErr})}

	_, err := w.Execute(context.Background(), map[string]any{"control_text": "mfa"})
	assert.EqualError(t, err, "Too many requests – rate limited: slow down")

	out, err := (&EvaluateWrapper{}).Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, out, "not initialized")
}

func TestClausesWrapper(t *testing.T) {
	w := &ClausesWrapper{Crosswalk: engine.DefaultCrosswalk}
	ctx := context.Background()

	out, err := w.Execute(ctx, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "Available categories: mfa, encryption, logging, backups, patching, access_reviews", out)

	out, err = w.Execute(ctx, map[string]any{"category": "MFA", "framework": "iso 27001"})
	require.NoError(t, err)
	assert.Equal(t, "Clauses for mfa:\n- ISO 27001 A.5.17: Authentication information\n", out)

	out, err = w.Execute(ctx, map[string]any{"category": "backups"})
	require.NoError(t, err)
	assert.Contains(t, out, "- GDPR ")
	assert.Contains(t, out, "- SOC 2 ")

	out, err = w.Execute(ctx, map[string]any{"category": "physical"})
	require.NoError(t, err)
	assert.Equal(t, "No clauses mapped for category 'physical'.", out)
}

type stubLister struct {
	limit int
	runs  []history.Summary
	err   error
}

func (s *stubLister) List(ctx context.Context, limit int) ([]history.Summary, error) {
	s.limit = limit
	return s.runs, s.err
}

func TestRunsWrapper(t *testing.T) {
	store := &stubLister{runs: []history.Summary{{ID: "run-a", CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), Items: 1}}}
	w := &RunsWrapper{Store: store}

	out, err := w.Execute(context.Background(), map[string]any{"limit": 3.0})
	require.NoError(t, err)
	assert.Equal(t, 3, store.limit)
	assert.Contains(t, out, "run-a  2026-01-02 03:04:05  items=1")

	_, err = w.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, defaultRunLimit, store.limit)

	store.err = errors.New("db locked")
	_, err = w.Execute(context.Background(), nil)
	assert.EqualError(t, err, "db locked")

	out, err = (&RunsWrapper{}).Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, out, "--record")
}
