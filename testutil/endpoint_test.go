package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skosovsky/toolloop"
)

func TestScriptedEndpoint_ReplaysInOrder(t *testing.T) {
	endpoint := NewScriptedEndpoint(
		&toolloop.ChatResponse{Content: "first"},
		&toolloop.ChatResponse{Content: "second"},
	)
	ctx := context.Background()

	resp, err := endpoint.Chat(ctx, "m", toolloop.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Content)

	resp, err = endpoint.Chat(ctx, "m", toolloop.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Content)

	// Exhausted script keeps answering with empty responses.
	resp, err = endpoint.Chat(ctx, "m", toolloop.ChatRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Content)

	assert.Equal(t, 3, endpoint.Calls())
}

func TestScriptedEndpoint_RecordsRequests(t *testing.T) {
	endpoint := NewScriptedEndpoint(&toolloop.ChatResponse{})
	req := toolloop.ChatRequest{
		Messages: []toolloop.Message{{Role: toolloop.RoleUser, Content: "hi"}},
		Stream:   true,
	}
	_, err := endpoint.Chat(context.Background(), "m", req)
	require.NoError(t, err)
	got := endpoint.Request(0)
	assert.Equal(t, req.Messages, got.Messages)
	assert.True(t, got.Stream)
}

func TestScriptedEndpoint_Err(t *testing.T) {
	endpoint := NewScriptedEndpoint(&toolloop.ChatResponse{Content: "never"})
	endpoint.Err = errors.New("down")
	_, err := endpoint.Chat(context.Background(), "m", toolloop.ChatRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, endpoint.Calls(), "failed calls are still recorded")
}
