package wrappers

import (
	"context"
	"strings"

	"github.com/user/cyberpulse/pkg/history"
	"github.com/user/cyberpulse/pkg/report"
)

const defaultRunLimit = 10

// RunLister is the read side of the history store
type RunLister interface {
	List(ctx context.Context, limit int) ([]history.Summary, error)
}

// RunsWrapper implements the Tool interface for browsing recorded runs
type RunsWrapper struct {
	Store RunLister
}

func (r *RunsWrapper) Name() string {
	return "ListRuns"
}

func (r *RunsWrapper) Description() string {
	return "Lists recently recorded evaluation runs, newest first, with status counts and average score."
}

func (r *RunsWrapper) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of runs to list (default 10).",
			},
		},
	}
}

func (r *RunsWrapper) Execute(ctx context.Context, args map[string]any) (string, error) {
	if r.Store == nil {
		return "History is not enabled. Run evaluations with --record to keep them.", nil
	}

	limit := defaultRunLimit
	switch v := args["limit"].(type) {
	case float64:
		limit = int(v)
	case int:
		limit = v
	}

	runs, err := r.Store.List(ctx, limit)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := report.Runs(&sb, runs); err != nil {
		return "", err
	}
	return sb.String(), nil
}
