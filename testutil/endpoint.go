// Package testutil provides test helpers for toolloop (e.g. ScriptedEndpoint).
package testutil

import (
	"context"
	"sync"

	"github.com/skosovsky/toolloop"
)

// ScriptedEndpoint is a deterministic Endpoint for tests: it replays a fixed
// sequence of responses and records every request it receives. When the
// script is exhausted it keeps returning an empty response. Safe for
// concurrent use.
type ScriptedEndpoint struct {
	mu        sync.Mutex
	responses []*toolloop.ChatResponse
	requests  []toolloop.ChatRequest
	next      int

	// Err, when set, is returned by every Chat call instead of a response.
	Err error
}

// NewScriptedEndpoint creates an endpoint replaying the given responses in order.
func NewScriptedEndpoint(responses ...*toolloop.ChatResponse) *ScriptedEndpoint {
	return &ScriptedEndpoint{responses: responses}
}

// Chat records the request and returns the next scripted response.
func (e *ScriptedEndpoint) Chat(_ context.Context, _ string, req toolloop.ChatRequest) (*toolloop.ChatResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, req)
	if e.Err != nil {
		return nil, e.Err
	}
	if e.next >= len(e.responses) {
		return &toolloop.ChatResponse{}, nil
	}
	resp := e.responses[e.next]
	e.next++
	return resp, nil
}

// Calls returns how many Chat calls the endpoint has received.
func (e *ScriptedEndpoint) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.requests)
}

// Request returns the i-th recorded request.
func (e *ScriptedEndpoint) Request(i int) toolloop.ChatRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requests[i]
}

// Ensure ScriptedEndpoint implements Endpoint.
var _ toolloop.Endpoint = (*ScriptedEndpoint)(nil)
