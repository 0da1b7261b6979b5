package openapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const petstoreJSON = `{
  "openapi": "3.0.0",
  "info": {"title": "Petstore", "version": "1.0.0"},
  "servers": [{"url": "https://example.org/api"}],
  "paths": {
    "/users/{id}": {
      "get": {
        "operationId": "getUser",
        "summary": "Look up a user",
        "parameters": [
          {"name": "id", "in": "path", "required": true, "schema": {"type": "string"}},
          {"name": "expand", "in": "query", "schema": {"type": "boolean"}},
          {"name": "X-Trace", "in": "header", "schema": {"type": "string"}},
          {"name": "session", "in": "cookie", "schema": {"type": "string"}}
        ],
        "responses": {"200": {"description": "ok"}}
      }
    },
    "/users": {
      "get": {
        "summary": "List users",
        "responses": {"200": {"description": "ok"}}
      },
      "post": {
        "operationId": "createUser",
        "description": "Create a user",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "properties": {"name": {"type": "string"}},
                "required": ["name"]
              }
            }
          }
        },
        "responses": {"201": {"description": "created"}}
      }
    },
    "/admin/reset": {
      "post": {
        "operationId": "resetEverything",
        "responses": {"204": {"description": "done"}}
      }
    }
  }
}`

const weatherYAML = `
openapi: 3.0.0
info:
  title: Weather
  version: 1.0.0
paths:
  /forecast:
    get:
      operationId: getForecast
      parameters:
        - name: city
          in: query
          required: true
          schema:
            type: string
      responses:
        "200":
          description: ok
`

func TestLoad_InlineJSON(t *testing.T) {
	doc, err := Load(context.Background(), petstoreJSON)
	require.NoError(t, err)
	assert.Equal(t, "Petstore", doc.Info.Title)
	assert.Len(t, doc.Paths.Map(), 3)
}

func TestLoad_InlineYAML(t *testing.T) {
	doc, err := Load(context.Background(), weatherYAML)
	require.NoError(t, err)
	assert.Equal(t, "Weather", doc.Info.Title)
	require.Contains(t, doc.Paths.Map(), "/forecast")
}

func TestLoad_FallsBackToFetchableLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(petstoreJSON))
	}))
	defer server.Close()

	doc, err := Load(context.Background(), server.URL+"/spec.json")
	require.NoError(t, err)
	assert.Equal(t, "Petstore", doc.Info.Title)
}

func TestLoad_Garbage(t *testing.T) {
	_, err := Load(context.Background(), "definitely not a spec {{{")
	require.Error(t, err)
}
