package wrappers

import (
	"context"
	"errors"
	"strings"

	"github.com/user/cyberpulse/pkg/engine"
	"github.com/user/cyberpulse/pkg/meter"
	"github.com/user/cyberpulse/pkg/report"
	"github.com/user/cyberpulse/pkg/runner"
)

// EvaluateWrapper implements the Tool interface for scoring one control
type EvaluateWrapper struct {
	Runner *runner.Runner
	// Frameworks is used when the model does not name any
	Frameworks []engine.Framework
}

func (e *EvaluateWrapper) Name() string {
	return "EvaluateControl"
}

func (e *EvaluateWrapper) Description() string {
	return "Scores a compliance control statement with optional evidence links. Returns status, score, confidence, rationale, mapped framework clauses, gaps and recommended actions."
}

func (e *EvaluateWrapper) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"control_text"},
		"properties": map[string]any{
			"control_text": map[string]any{
				"type":        "string",
				"description": "The control statement to assess.",
			},
			"evidence_urls": map[string]any{
				"type":        "array",
				"description": "Links to evidence such as policies, screenshots or config exports.",
				"items":       map[string]any{"type": "string"},
			},
			"frameworks": map[string]any{
				"type":        "array",
				"description": "Frameworks to map clauses for (e.g. 'ISO 27001', 'PCI DSS'). Defaults to the configured list.",
				"items":       map[string]any{"type": "string"},
			},
		},
	}
}

func (e *EvaluateWrapper) Execute(ctx context.Context, args map[string]any) (string, error) {
	if e.Runner == nil {
		return "Error: evaluator not initialized.", nil
	}

	item := engine.Item{}
	for _, key := range []string{"control_text", "evidence_urls", "frameworks"} {
		if v, ok := args[key]; ok {
			item[key] = v
		}
	}
	if _, ok := item["frameworks"]; !ok {
		fws := make([]any, len(e.Frameworks))
		for i, fw := range e.Frameworks {
			fws[i] = string(fw)
		}
		item["frameworks"] = fws
	}

	rep, err := e.Runner.Run(ctx, runner.Batch{Items: []engine.Item{item}})
	if err != nil {
		var opErr *meter.OperationError
		if errors.As(err, &opErr) && opErr.Description != "" {
			return "", errors.New(opErr.Message + ": " + opErr.Description)
		}
		return "", err
	}

	var sb strings.Builder
	if err := report.Results(&sb, rep.Outputs); err != nil {
		return "", err
	}
	return sb.String(), nil
}
