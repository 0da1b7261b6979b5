package toolloop

import (
	"context"
	"io"
	"maps"
)

// Message roles. A tool turn must carry the Name of the tool that produced it.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleSystem    = "system"
)

// Message is a single conversation turn. The conversation passed to Run is
// never mutated; the loop works on a private copy and appends turns to it.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	// Name identifies the tool that produced this turn; set only when Role is RoleTool.
	Name string `json:"name,omitempty"`
}

// InvokerFunc executes a tool with the arguments the model produced and
// returns the result as text. Errors are reported as a return value, never
// as a panic; the loop converts them into an error tool turn.
type InvokerFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool describes an LLM-callable instrument: a name (unique within a run),
// a description, a JSON Schema for its parameters, and an optional Invoker.
// A Tool with a nil Invoker is schema-only: the loop offers it to the model
// but skips any call to it (the caller executes such tools out of band).
// Descriptors are read-only for the duration of a run.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Invoker     InvokerFunc
}

// Offer is the invoker-stripped view of a Tool sent to the model. The model
// must never see, or be able to serialize, the executable function.
type Offer struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is a single tool invocation request emitted by the model. It is
// not guaranteed to name a real tool nor to satisfy the declared schema;
// both are recoverable conditions, not fatal errors.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ChatRequest is one model call. A nil Tools slice means tools are omitted
// entirely (the final call of a run offers no tools so the model synthesizes
// a natural-language answer instead of requesting more calls).
type ChatRequest struct {
	Messages []Message `json:"messages"`
	Tools    []Offer   `json:"tools,omitempty"`
	Stream   bool      `json:"stream"`
}

// ChatResponse is the model's reply. For a streaming final call the endpoint
// sets Stream and leaves Content empty; Run returns the response verbatim
// either way.
type ChatResponse struct {
	Content   string        `json:"response,omitempty"`
	ToolCalls []ToolCall    `json:"tool_calls,omitempty"`
	Stream    io.ReadCloser `json:"-"`
}

// Endpoint is the model-side contract. The loop depends only on this shape:
// how the model is hosted or reached is the implementation's concern.
// Tool-calling rounds always pass Stream=false; only the final call may stream.
type Endpoint interface {
	Chat(ctx context.Context, model string, req ChatRequest) (*ChatResponse, error)
}

// SelectorRequest carries everything a tool selector may consult when
// narrowing the candidate set for a run.
type SelectorRequest struct {
	Endpoint Endpoint
	Model    string
	Tools    []Tool
	Messages []Message
}

// SelectorFunc narrows a tool set to the subset relevant to the conversation.
// Selection happens once per top-level run, before the first model call.
// A selector must fail open: on any unusable outcome it returns the input
// set unchanged rather than dropping tools.
type SelectorFunc func(ctx context.Context, req SelectorRequest) ([]Tool, error)

// offersFor builds the offer list for a model call, stripping invokers.
func offersFor(tools []Tool) []Offer {
	if len(tools) == 0 {
		return nil
	}
	offers := make([]Offer, len(tools))
	for i, t := range tools {
		offers[i] = Offer{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  maps.Clone(t.Parameters),
		}
	}
	return offers
}

// findTool resolves a tool-call name against the descriptor list.
func findTool(tools []Tool, name string) (Tool, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}
