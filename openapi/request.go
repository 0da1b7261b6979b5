package openapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// argument group keys recognized in a tool call's arguments.
var groupKeys = []string{"path", "query", "header", "cookie", "formData", "body"}

// invoker performs the HTTP request for one OpenAPI operation.
type invoker struct {
	method    string
	path      string
	baseURL   string
	client    *http.Client
	logger    *zap.Logger
	overrides []Override
}

// requestParts is the resolved request input: model-supplied arguments split
// by location, with overrides already applied.
type requestParts struct {
	path     map[string]string
	query    map[string]string
	header   map[string]string
	cookie   map[string]string
	formData map[string]string
	body     any
	hasBody  bool
}

// invoke builds and performs the request and returns the response body as
// text. Non-2xx statuses are errors; the orchestration loop renders them as
// error tool turns.
func (inv *invoker) invoke(ctx context.Context, args map[string]any) (string, error) {
	parts := inv.split(args)
	inv.applyOverrides(&parts)

	reqURL, err := inv.buildURL(parts)
	if err != nil {
		return "", err
	}

	var bodyReader io.Reader
	contentType := ""
	switch {
	case len(parts.formData) > 0:
		form := url.Values{}
		for k, v := range parts.formData {
			form.Set(k, v)
		}
		bodyReader = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case parts.hasBody:
		data, err := json.Marshal(parts.body)
		if err != nil {
			return "", fmt.Errorf("encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, inv.method, reqURL, bodyReader)
	if err != nil {
		return "", err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range parts.header {
		req.Header.Set(k, v)
	}
	for k, v := range parts.cookie {
		req.AddCookie(&http.Cookie{Name: k, Value: v})
	}

	inv.logger.Debug("invoking operation", zap.String("method", inv.method), zap.String("url", reqURL))

	resp, err := inv.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%s %s: HTTP %d", inv.method, reqURL, resp.StatusCode)
	}
	return string(data), nil
}

// split distributes the call arguments into request locations. Arguments are
// expected grouped under path/query/header/cookie/formData/body keys; a flat
// object with none of those keys is treated, best effort, as query
// parameters. Models get locations wrong often enough that guessing query
// beats failing the call; this stays a documented heuristic, not a contract.
func (inv *invoker) split(args map[string]any) requestParts {
	parts := requestParts{
		path:     map[string]string{},
		query:    map[string]string{},
		header:   map[string]string{},
		cookie:   map[string]string{},
		formData: map[string]string{},
	}
	if len(args) == 0 {
		return parts
	}

	grouped := false
	for _, key := range groupKeys {
		if _, ok := args[key]; ok {
			grouped = true
			break
		}
	}
	if !grouped {
		inv.logger.Debug("no recognized argument groups, treating arguments as query parameters")
		fillStringMap(parts.query, args)
		return parts
	}

	if m, ok := args["path"].(map[string]any); ok {
		fillStringMap(parts.path, m)
	}
	if m, ok := args["query"].(map[string]any); ok {
		fillStringMap(parts.query, m)
	}
	if m, ok := args["header"].(map[string]any); ok {
		fillStringMap(parts.header, m)
	}
	if m, ok := args["cookie"].(map[string]any); ok {
		fillStringMap(parts.cookie, m)
	}
	if m, ok := args["formData"].(map[string]any); ok {
		fillStringMap(parts.formData, m)
	}
	if body, ok := args["body"]; ok {
		parts.body = body
		parts.hasBody = true
	}
	return parts
}

// applyOverrides injects configured values after the model's arguments, so
// overrides win on key collisions.
func (inv *invoker) applyOverrides(parts *requestParts) {
	for _, o := range inv.overrides {
		for k, v := range o.Path {
			parts.path[k] = v
		}
		for k, v := range o.Query {
			parts.query[k] = v
		}
		for k, v := range o.Headers {
			parts.header[k] = v
		}
		for k, v := range o.Cookies {
			parts.cookie[k] = v
		}
		if o.Body != nil {
			parts.body = o.Body
			parts.hasBody = true
		}
	}
}

// buildURL substitutes path parameters and encodes the query string.
func (inv *invoker) buildURL(parts requestParts) (string, error) {
	path := inv.path
	for name, value := range parts.path {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	if i := strings.IndexByte(path, '{'); i >= 0 {
		return "", fmt.Errorf("missing path parameter in %s", inv.path)
	}

	full := inv.baseURL + path
	if len(parts.query) > 0 {
		q := url.Values{}
		for k, v := range parts.query {
			q.Set(k, v)
		}
		full += "?" + q.Encode()
	}
	return full, nil
}

// fillStringMap renders argument values as strings: strings verbatim,
// everything else as its JSON encoding.
func fillStringMap(dst map[string]string, src map[string]any) {
	for k, v := range src {
		dst[k] = stringify(v)
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
