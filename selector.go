package toolloop

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// autoTrimThreshold is the candidate-set size below which trimming is not
// worth an extra model call.
const autoTrimThreshold = 4

const chooseToolName = "chooseTool"

// AutoTrim returns a selector that narrows a large tool set with one extra
// model call. Sets of autoTrimThreshold tools or fewer pass through
// unchanged. Otherwise the model is offered a single synthetic chooseTool
// tool whose parameter is an array of tool names, together with the
// candidate list and the conversation so far; the names in the returned
// tool call become the narrowed set.
//
// AutoTrim fails open: a failed model call, a response without a chooseTool
// call, malformed arguments, or a selection matching no candidates all yield
// the full candidate set. Losing tools silently would break the caller's
// intent more than over-offering them.
func AutoTrim(logger *zap.Logger) SelectorFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "auto_trim"))
	return func(ctx context.Context, req SelectorRequest) ([]Tool, error) {
		if len(req.Tools) <= autoTrimThreshold {
			logger.Debug("candidate set too small, trimming not useful",
				zap.Int("tools", len(req.Tools)))
			return req.Tools, nil
		}

		names := make([]string, len(req.Tools))
		for i, t := range req.Tools {
			names[i] = t.Name
		}

		messages := make([]Message, 0, len(req.Messages)+1)
		messages = append(messages, req.Messages...)
		messages = append(messages, Message{
			Role: RoleUser,
			Content: fmt.Sprintf(
				"Call %s with the names of the tools relevant to the conversation above. Available tools: %s",
				chooseToolName, strings.Join(names, ", ")),
		})

		resp, err := req.Endpoint.Chat(ctx, req.Model, ChatRequest{
			Messages: messages,
			Tools:    []Offer{chooseToolOffer()},
			Stream:   false,
		})
		if err != nil {
			logger.Warn("trim call failed, keeping full tool set", zap.Error(err))
			return req.Tools, nil
		}

		chosen := chosenNames(resp)
		if len(chosen) == 0 {
			logger.Debug("no usable tool selection in response, keeping full tool set")
			return req.Tools, nil
		}

		narrowed := make([]Tool, 0, len(chosen))
		for _, t := range req.Tools {
			if _, ok := chosen[t.Name]; ok {
				narrowed = append(narrowed, t)
			}
		}
		if len(narrowed) == 0 {
			logger.Debug("selection matched no candidates, keeping full tool set",
				zap.Int("chosen", len(chosen)))
			return req.Tools, nil
		}
		logger.Debug("narrowed tool set",
			zap.Int("before", len(req.Tools)), zap.Int("after", len(narrowed)))
		return narrowed, nil
	}
}

// chooseToolOffer declares the synthetic selection tool.
func chooseToolOffer() Offer {
	return Offer{
		Name:        chooseToolName,
		Description: "Choose the tools relevant to the conversation",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"tools": map[string]any{
					"type":        "array",
					"description": "Names of the relevant tools",
					"items":       map[string]any{"type": "string"},
				},
			},
			"required": []any{"tools"},
		},
	}
}

// chosenNames extracts the tool names from a chooseTool call, tolerating a
// missing call or malformed arguments (both yield an empty set).
func chosenNames(resp *ChatResponse) map[string]struct{} {
	if resp == nil {
		return nil
	}
	for _, call := range resp.ToolCalls {
		if call.Name != chooseToolName {
			continue
		}
		raw, ok := call.Arguments["tools"].([]any)
		if !ok {
			continue
		}
		chosen := make(map[string]struct{}, len(raw))
		for _, item := range raw {
			if name, ok := item.(string); ok {
				chosen[name] = struct{}{}
			}
		}
		if len(chosen) > 0 {
			return chosen
		}
	}
	return nil
}
