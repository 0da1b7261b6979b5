// Package toolloop orchestrates tool calling between a text-generation model
// and externally defined tools.
//
// # Overview
//
// A model emits tool calls as structured requests. This package drives the
// conversation around them: send the conversation and the tool offers to the
// model, dispatch each requested call to its invoker, append the outcomes as
// tool turns, repeat within a bounded number of rounds, then issue one final
// call with no tools offered and return its output.
//
// Pipeline: []Tool + []Message → Run → (optional selector) → model call →
// concurrent tool dispatch → tool turns → … → final no-tools call.
//
// # Key concepts
//
//   - Failure isolation: a hallucinated tool name, invalid arguments, or a
//     failing invoker never abort the run; they degrade to a logged skip or
//     an error tool turn the model can react to.
//   - Bounded recursion: WithMaxToolRuns caps the extra rounds a
//     tool-hungry model can force; the final call omits tools entirely.
//   - Fail-open selection: AutoTrim narrows large tool sets with one extra
//     model call and falls back to the full set on any unusable response.
//
// The openapi subpackage derives []Tool from an OpenAPI description, with
// invokers that perform the matching HTTP requests.
//
// # Example
//
//	tools := []toolloop.Tool{{
//	    Name:        "getUser",
//	    Description: "Look up a user",
//	    Parameters:  map[string]any{"type": "object"},
//	    Invoker: func(ctx context.Context, args map[string]any) (string, error) {
//	        return `{"name":"X"}`, nil
//	    },
//	}}
//	resp, err := toolloop.Run(ctx, endpoint, "llama3.2",
//	    []toolloop.Message{{Role: toolloop.RoleUser, Content: "Who is X?"}},
//	    tools, toolloop.WithMaxToolRuns(2))
package toolloop
