package wrappers

import (
	"context"
	"fmt"
	"strings"

	"github.com/user/cyberpulse/pkg/engine"
)

// ClausesWrapper implements the Tool interface for crosswalk lookups
type ClausesWrapper struct {
	// Crosswalk returns the active table
	Crosswalk func() engine.Crosswalk
}

func (c *ClausesWrapper) Name() string {
	return "LookupClauses"
}

func (c *ClausesWrapper) Description() string {
	return "Lists the framework clauses a control category maps to. If category is omitted, lists the categories."
}

func (c *ClausesWrapper) Schema() map[string]any {
	cats := engine.Categories()
	names := make([]string, len(cats))
	for i, cat := range cats {
		names[i] = string(cat)
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"category": map[string]any{
				"type":        "string",
				"description": "Control category.",
				"enum":        names,
			},
			"framework": map[string]any{
				"type":        "string",
				"description": "Only list clauses for this framework. If omitted, every framework in the crosswalk.",
			},
		},
	}
}

func (c *ClausesWrapper) Execute(ctx context.Context, args map[string]any) (string, error) {
	if c.Crosswalk == nil {
		return "Error: crosswalk not loaded.", nil
	}
	cw := c.Crosswalk()

	category, _ := args["category"].(string)
	if category == "" {
		cats := engine.Categories()
		names := make([]string, len(cats))
		for i, cat := range cats {
			names[i] = string(cat)
		}
		return "Available categories: " + strings.Join(names, ", "), nil
	}
	cat := engine.Category(strings.ToLower(strings.TrimSpace(category)))

	frameworks := cw.Frameworks()
	if fw, _ := args["framework"].(string); fw != "" {
		frameworks = []engine.Framework{matchFramework(frameworks, fw)}
	}

	clauses := cw.Map([]engine.Category{cat}, frameworks)
	if len(clauses) == 0 {
		return fmt.Sprintf("No clauses mapped for category '%s'.", cat), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Clauses for %s:\n", cat)
	for _, cl := range clauses {
		fmt.Fprintf(&sb, "- %s %s: %s\n", cl.Framework, cl.Clause, cl.Title)
	}
	return sb.String(), nil
}

// matchFramework resolves a loosely typed framework name such as "iso 27001"
func matchFramework(known []engine.Framework, name string) engine.Framework {
	for _, fw := range known {
		if strings.EqualFold(string(fw), strings.TrimSpace(name)) {
			return fw
		}
	}
	return engine.Framework(name)
}
