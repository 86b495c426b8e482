package adk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/user/cyberpulse/pkg/logging"
)

// maxToolSteps bounds the tool-call loop of a single Chat turn
const maxToolSteps = 8

// Roles used in Message
const (
	RoleSystem   = "system"
	RoleUser     = "user"
	RoleModel    = "model"
	RoleFunction = "function"
)

// Tool represents an executable action for the agent
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args map[string]any) (string, error)
	Schema() map[string]any // JSON schema for arguments
}

// ToolCall represents a request from the LLM to execute a tool
type ToolCall struct {
	ToolName string
	Args     map[string]any
}

// Message represents a chat message
type Message struct {
	Role    string
	Content string
}

// LLMProvider is the model backend of the agent
type LLMProvider interface {
	GenerateResponse(ctx context.Context, history []Message, tools []Tool) (string, *ToolCall, error)
	ListModels(ctx context.Context) ([]string, error)
}

// Agent runs a chat session where the model may call registered tools
type Agent struct {
	llm     LLMProvider
	tools   map[string]Tool
	history []Message
	log     *slog.Logger
}

func NewAgent(llm LLMProvider, log *slog.Logger) *Agent {
	if log == nil {
		log = logging.Discard()
	}
	return &Agent{
		llm:   llm,
		tools: make(map[string]Tool),
		log:   log.With("component", "agent"),
	}
}

// RegisterTool adds a tool to the agent's registry
func (a *Agent) RegisterTool(t Tool) {
	a.tools[t.Name()] = t
}

// SetSystemPrompt replaces any previous system message
func (a *Agent) SetSystemPrompt(prompt string) {
	rest := make([]Message, 0, len(a.history)+1)
	rest = append(rest, Message{Role: RoleSystem, Content: prompt})
	for _, m := range a.history {
		if m.Role != RoleSystem {
			rest = append(rest, m)
		}
	}
	a.history = rest
}

// History returns a copy of the conversation so far
func (a *Agent) History() []Message {
	return append([]Message(nil), a.history...)
}

// Chat sends a message and returns the model's final text answer. progress,
// when non-nil, is told about every tool invocation.
func (a *Agent) Chat(ctx context.Context, input string, progress func(string)) (string, error) {
	a.history = append(a.history, Message{Role: RoleUser, Content: input})
	tools := a.toolList()

	for step := 0; step < maxToolSteps; step++ {
		respText, call, err := a.llm.GenerateResponse(ctx, a.history, tools)
		if err != nil {
			return "", err
		}
		if call == nil {
			a.history = append(a.history, Message{Role: RoleModel, Content: respText})
			return respText, nil
		}

		args, _ := json.Marshal(call.Args)
		a.log.Debug("executing tool", "tool", call.ToolName, "args", string(args))
		if progress != nil {
			progress(fmt.Sprintf("running %s", call.ToolName))
		}
		a.history = append(a.history, Message{
			Role:    RoleModel,
			Content: fmt.Sprintf("I will call tool %s with args %s", call.ToolName, args),
		})

		a.history = append(a.history, Message{Role: RoleFunction, Content: a.runTool(ctx, call)})
	}
	return "", fmt.Errorf("no answer after %d tool calls", maxToolSteps)
}

func (a *Agent) runTool(ctx context.Context, call *ToolCall) string {
	tool, ok := a.tools[call.ToolName]
	if !ok {
		return fmt.Sprintf("Error: tool %s not found", call.ToolName)
	}
	result, err := tool.Execute(ctx, call.Args)
	if err != nil {
		a.log.Warn("tool failed", "tool", call.ToolName, "error", err)
		return fmt.Sprintf("Tool %s failed: %v", call.ToolName, err)
	}
	return fmt.Sprintf("Tool %s returned: %s", call.ToolName, result)
}

// toolList is sorted so the declarations sent to the model are stable
func (a *Agent) toolList() []Tool {
	names := make([]string, 0, len(a.tools))
	for n := range a.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	list := make([]Tool, len(names))
	for i, n := range names {
		list[i] = a.tools[n]
	}
	return list
}
