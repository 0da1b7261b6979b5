package toolloop

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Run drives a model/tool conversation to completion and returns the final
// model output verbatim.
//
// The loop offers the tools to the model (invokers stripped), dispatches the
// tool calls the model requests, appends the outcomes to a private copy of
// the conversation, and repeats while the round budget allows. It then
// issues one final model call with no tools offered, so the model has to
// synthesize an answer instead of requesting more calls, and returns that
// response.
//
// Per-tool-call failures (hallucinated names, schema-invalid arguments,
// failing invokers) never abort the run; only a failing model call does.
func Run(ctx context.Context, endpoint Endpoint, model string, messages []Message, tools []Tool, opts ...RunOption) (*ChatResponse, error) {
	if endpoint == nil {
		return nil, ErrNilEndpoint
	}
	o := newRunOptions(opts...)

	r := &runner{
		endpoint: endpoint,
		model:    model,
		opts:     o,
		logger: o.logger.With(
			zap.String("component", "toolloop"),
			zap.String("run_id", uuid.NewString()),
		),
	}

	// Private copy: the caller's conversation is never mutated.
	r.conversation = make([]Message, len(messages))
	copy(r.conversation, messages)

	r.tools = tools
	if o.selector != nil {
		narrowed, err := o.selector(ctx, SelectorRequest{
			Endpoint: endpoint,
			Model:    model,
			Tools:    tools,
			Messages: r.conversation,
		})
		if err != nil {
			// Losing tools breaks the caller's intent more than over-offering
			// them, so an unusable selector keeps the full set.
			r.logger.Warn("selector failed, keeping full tool set", zap.Error(err))
		} else if narrowed != nil {
			r.tools = narrowed
		}
	}
	r.offers = offersFor(r.tools)

	if o.strict {
		if err := r.compileValidators(); err != nil {
			return nil, err
		}
	}

	return r.run(ctx)
}

// runner is the mutable state of one run: the private conversation copy, the
// narrowed tool set, the compiled validators, and the diagnostic character
// budget. It is owned by a single goroutine; dispatch workers write only to
// their own pre-allocated outcome slots.
type runner struct {
	endpoint     Endpoint
	model        string
	opts         runOptions
	logger       *zap.Logger
	conversation []Message
	tools        []Tool
	offers       []Offer
	validators   map[string]*argumentValidator
	charBudget   int
}

// callOutcome is the result of dispatching a single tool call. Skipped calls
// (unknown tool, missing invoker, failed validation) append no turn.
type callOutcome struct {
	turn Message
	skip bool
}

func (r *runner) run(ctx context.Context) (*ChatResponse, error) {
	remaining := r.opts.maxToolRuns

	for {
		resp, err := r.chat(ctx, ChatRequest{
			Messages: r.conversation,
			Tools:    r.offers,
			Stream:   false,
		})
		if err != nil {
			return nil, &OrchestrationError{Phase: "tool round", Err: err}
		}

		if len(resp.ToolCalls) == 0 {
			r.logger.Debug("no tool calls requested, finishing")
			break
		}

		r.dispatch(ctx, resp.ToolCalls)

		if remaining <= 0 {
			r.logger.Debug("tool round budget exhausted, finishing")
			break
		}
		remaining--
	}

	final, err := r.chat(ctx, ChatRequest{
		Messages: r.conversation,
		Stream:   r.opts.streamFinal,
	})
	if err != nil {
		return nil, &OrchestrationError{Phase: "final call", Err: err}
	}
	r.logger.Debug("run complete", zap.Int("char_budget", r.charBudget))
	return final, nil
}

// chat performs one model call and charges the serialized request to the
// diagnostic character budget. The budget has no enforcement behavior.
func (r *runner) chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if data, err := json.Marshal(req.Messages); err == nil {
		r.charBudget += len(data)
	}
	if req.Tools != nil {
		if data, err := json.Marshal(req.Tools); err == nil {
			r.charBudget += len(data)
		}
	}
	return r.endpoint.Chat(ctx, r.model, req)
}

// dispatch executes one round of tool calls. Each call's assistant-request
// turn is appended before any execution starts; execution fans out
// concurrently into pre-allocated slots and the resulting tool turns are
// appended in call order once all calls complete. Callers must not depend
// on the relative order of turns across calls within a round.
func (r *runner) dispatch(ctx context.Context, calls []ToolCall) {
	for _, call := range calls {
		r.conversation = append(r.conversation, Message{
			Role:    RoleAssistant,
			Content: serializeCall(call),
		})
	}

	outcomes := make([]callOutcome, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			outcomes[i] = r.execute(gctx, call)
			return nil
		})
	}
	_ = g.Wait() // workers record outcomes, never errors

	for _, out := range outcomes {
		if out.skip {
			continue
		}
		r.conversation = append(r.conversation, out.turn)
	}
}

// execute runs a single tool call. Every failure mode here is recoverable:
// the call degrades to a skip or to an error tool turn and the run goes on.
func (r *runner) execute(ctx context.Context, call ToolCall) callOutcome {
	tool, ok := findTool(r.tools, call.Name)
	if !ok {
		r.logger.Info("model requested unknown tool, skipping", zap.String("tool", call.Name))
		return callOutcome{skip: true}
	}
	if tool.Invoker == nil {
		r.logger.Info("tool has no invoker, skipping", zap.String("tool", call.Name))
		return callOutcome{skip: true}
	}
	if r.opts.strict {
		if v := r.validators[tool.Name]; v != nil && !v.validate(call.Arguments) {
			r.logger.Info("arguments failed validation, skipping", zap.String("tool", call.Name))
			return callOutcome{skip: true}
		}
	}

	start := time.Now()
	result, err := tool.Invoker(ctx, call.Arguments)
	if err != nil {
		r.logger.Info("tool invocation failed",
			zap.String("tool", call.Name), zap.Error(err), zap.Duration("duration", time.Since(start)))
		return callOutcome{turn: Message{
			Role:    RoleTool,
			Content: errorTurnContent(tool.Name, err),
			Name:    tool.Name,
		}}
	}
	r.logger.Debug("tool invoked",
		zap.String("tool", call.Name), zap.Duration("duration", time.Since(start)))

	return callOutcome{turn: Message{
		Role:    RoleTool,
		Content: serializeResult(result),
		Name:    tool.Name,
	}}
}

// compileValidators builds one validator per offered tool up front, so a
// malformed declaration fails the run before any model call instead of
// surfacing as a skipped argument check mid-conversation.
func (r *runner) compileValidators() error {
	r.validators = make(map[string]*argumentValidator, len(r.tools))
	for _, t := range r.tools {
		v, err := newArgumentValidator(t.Name, t.Parameters, r.logger)
		if err != nil {
			return err
		}
		r.validators[t.Name] = v
	}
	return nil
}

// serializeCall renders a tool-call request for its assistant turn.
func serializeCall(call ToolCall) string {
	data, err := json.Marshal(call)
	if err != nil {
		return call.Name
	}
	return string(data)
}

// serializeResult JSON-encodes an invoker result for its tool turn, so the
// model receives a well-formed JSON string value.
func serializeResult(result string) string {
	data, err := json.Marshal(result)
	if err != nil {
		return result
	}
	return string(data)
}
