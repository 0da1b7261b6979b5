package openapi

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skosovsky/toolloop"
)

func buildPetstore(t *testing.T, opts ...BuilderOption) []toolloop.Tool {
	t.Helper()
	doc, err := Load(context.Background(), petstoreJSON)
	require.NoError(t, err)
	tools, err := NewBuilder(opts...).Build(doc)
	require.NoError(t, err)
	return tools
}

func toolByName(t *testing.T, tools []toolloop.Tool, name string) toolloop.Tool {
	t.Helper()
	for _, tool := range tools {
		if tool.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %q not generated", name)
	return toolloop.Tool{}
}

func TestBuilder_GeneratesToolPerOperation(t *testing.T) {
	tools := buildPetstore(t)
	require.Len(t, tools, 4)

	getUser := toolByName(t, tools, "getUser")
	assert.Equal(t, "Look up a user", getUser.Description)
	require.NotNil(t, getUser.Invoker)

	// An operation without an operationId falls back to method_path naming.
	list := toolByName(t, tools, "get_users")
	assert.Equal(t, "List users", list.Description)

	create := toolByName(t, tools, "createUser")
	assert.Equal(t, "Create a user", create.Description)
}

func TestBuilder_ParameterSchemaGrouping(t *testing.T) {
	getUser := toolByName(t, buildPetstore(t), "getUser")

	schema := getUser.Parameters
	assert.Equal(t, "object", schema["type"])
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)

	for _, group := range []string{"path", "query", "header", "cookie"} {
		require.Contains(t, props, group, "parameter location %q", group)
	}
	pathGroup := props["path"].(map[string]any)
	pathProps := pathGroup["properties"].(map[string]any)
	require.Contains(t, pathProps, "id")
	assert.Equal(t, []any{"id"}, pathGroup["required"])

	// Required path parameters make the whole group required.
	assert.Contains(t, schema["required"], "path")
}

func TestBuilder_RequestBodySchema(t *testing.T) {
	create := toolByName(t, buildPetstore(t), "createUser")

	props := create.Parameters["properties"].(map[string]any)
	body, ok := props["body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", body["type"])
	bodyProps := body["properties"].(map[string]any)
	assert.Contains(t, bodyProps, "name")
	assert.Contains(t, create.Parameters["required"], "body")
}

func TestBuilder_AllowPatternFilters(t *testing.T) {
	tools := buildPetstore(t, WithAllowPattern(regexp.MustCompile(`/users`)))
	require.Len(t, tools, 3)
	for _, tool := range tools {
		assert.NotEqual(t, "resetEverything", tool.Name)
	}
}

func TestBuilder_BaseURLOverride(t *testing.T) {
	// Declared server is https://example.org/api; the override wins. Observed
	// indirectly through the invoker in request_test.go; here just ensure
	// building with the option succeeds.
	tools := buildPetstore(t, WithBaseURL("http://localhost:9999/"))
	require.Len(t, tools, 4)
}

func TestBuilder_NilDocument(t *testing.T) {
	_, err := NewBuilder().Build(nil)
	require.Error(t, err)
}

func TestSanitizePath(t *testing.T) {
	assert.Equal(t, "users_id", sanitizePath("/users/{id}"))
	assert.Equal(t, "a_b_c", sanitizePath("/a/b/c"))
}
