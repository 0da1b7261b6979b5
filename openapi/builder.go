package openapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/skosovsky/toolloop"
)

// Matcher selects the operations an Override applies to. A nil URLPattern
// matches every URL; an empty Method matches every method.
type Matcher struct {
	URLPattern *regexp.Regexp
	Method     string
}

func (m Matcher) matches(method, fullURL string) bool {
	if m.Method != "" && !strings.EqualFold(m.Method, method) {
		return false
	}
	if m.URLPattern != nil && !m.URLPattern.MatchString(fullURL) {
		return false
	}
	return true
}

// Override injects fixed request values into every matching operation's
// requests. Overrides are applied after the model-supplied arguments, so an
// override always wins over an argument with the same name. A non-nil Body
// replaces the request body entirely.
type Override struct {
	Matcher Matcher
	Headers map[string]string
	Query   map[string]string
	Cookies map[string]string
	Path    map[string]string
	Body    any
}

// Builder turns a parsed OpenAPI document into toolloop tools.
type Builder struct {
	baseURL   string
	client    *http.Client
	logger    *zap.Logger
	allow     []*regexp.Regexp
	overrides []Override
}

// BuilderOption configures a Builder (e.g. WithBaseURL, WithOverride).
type BuilderOption func(*Builder)

// WithBaseURL overrides the server URL declared in the document.
func WithBaseURL(u string) BuilderOption {
	return func(b *Builder) {
		b.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets the client invokers use. Default: 30s timeout client.
func WithHTTPClient(c *http.Client) BuilderOption {
	return func(b *Builder) {
		if c != nil {
			b.client = c
		}
	}
}

// WithLogger sets the logger for the builder and the invokers it produces.
// Default: zap.NewNop().
func WithLogger(logger *zap.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithAllowPattern adds a URL allow filter. When at least one pattern is
// configured, only operations whose full URL matches some pattern become
// tools. May be repeated.
func WithAllowPattern(p *regexp.Regexp) BuilderOption {
	return func(b *Builder) {
		if p != nil {
			b.allow = append(b.allow, p)
		}
	}
}

// WithOverride adds an override rule. May be repeated; all matching rules
// apply, in the order they were added.
func WithOverride(o Override) BuilderOption {
	return func(b *Builder) {
		b.overrides = append(b.overrides, o)
	}
}

// NewBuilder creates a Builder with the given options.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(zap.String("component", "openapi_builder"))
	return b
}

// supported HTTP methods, in the order tools are generated for a path.
var methods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch,
}

// Build generates one tool per operation in the document. Operations
// filtered out by allow patterns are skipped, not errors.
func (b *Builder) Build(doc *openapi3.T) ([]toolloop.Tool, error) {
	if doc == nil || doc.Paths == nil {
		return nil, fmt.Errorf("openapi: document has no paths")
	}

	baseURL := b.baseURL
	if baseURL == "" && len(doc.Servers) > 0 {
		baseURL = strings.TrimRight(doc.Servers[0].URL, "/")
	}

	var tools []toolloop.Tool
	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		ops := item.Operations()
		for _, method := range methods {
			op, ok := ops[method]
			if !ok || op == nil {
				continue
			}
			fullURL := baseURL + path
			if !b.allowed(fullURL) {
				b.logger.Debug("operation filtered out", zap.String("url", fullURL))
				continue
			}
			tool, err := b.operationTool(method, path, baseURL, op)
			if err != nil {
				return nil, fmt.Errorf("openapi: operation %s %s: %w", method, path, err)
			}
			tools = append(tools, tool)
		}
	}

	b.logger.Info("generated tools", zap.Int("count", len(tools)))
	return tools, nil
}

func (b *Builder) allowed(fullURL string) bool {
	if len(b.allow) == 0 {
		return true
	}
	for _, p := range b.allow {
		if p.MatchString(fullURL) {
			return true
		}
	}
	return false
}

// operationTool builds the descriptor and invoker for one operation.
func (b *Builder) operationTool(method, path, baseURL string, op *openapi3.Operation) (toolloop.Tool, error) {
	name := op.OperationID
	if name == "" {
		name = fmt.Sprintf("%s_%s", strings.ToLower(method), sanitizePath(path))
	}

	description := op.Summary
	if description == "" {
		description = op.Description
	}
	if description == "" {
		description = fmt.Sprintf("%s %s", method, path)
	}

	params, err := parameterSchema(op)
	if err != nil {
		return toolloop.Tool{}, err
	}

	inv := &invoker{
		method:    method,
		path:      path,
		baseURL:   baseURL,
		client:    b.client,
		logger:    b.logger.With(zap.String("tool", name)),
		overrides: b.matchingOverrides(method, baseURL+path),
	}

	return toolloop.Tool{
		Name:        name,
		Description: description,
		Parameters:  params,
		Invoker:     inv.invoke,
	}, nil
}

func (b *Builder) matchingOverrides(method, fullURL string) []Override {
	var matched []Override
	for _, o := range b.overrides {
		if o.Matcher.matches(method, fullURL) {
			matched = append(matched, o)
		}
	}
	return matched
}

// parameterSchema builds the tool's parameter schema: one object property
// per parameter location (path, query, header, cookie), plus body for a
// JSON request body.
func parameterSchema(op *openapi3.Operation) (map[string]any, error) {
	groups := map[string]map[string]any{}
	groupRequired := map[string][]any{}
	properties := map[string]any{}
	var required []any

	for _, ref := range op.Parameters {
		if ref == nil || ref.Value == nil {
			continue
		}
		p := ref.Value
		sch, err := schemaMap(p.Schema)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		if p.Description != "" {
			sch["description"] = p.Description
		}
		if groups[p.In] == nil {
			groups[p.In] = map[string]any{}
		}
		groups[p.In][p.Name] = sch
		if p.Required {
			groupRequired[p.In] = append(groupRequired[p.In], p.Name)
		}
	}

	for _, in := range []string{"path", "query", "header", "cookie"} {
		props, ok := groups[in]
		if !ok {
			continue
		}
		group := map[string]any{
			"type":       "object",
			"properties": props,
		}
		if req := groupRequired[in]; len(req) > 0 {
			group["required"] = req
			required = append(required, in)
		}
		properties[in] = group
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		if mt, ok := op.RequestBody.Value.Content["application/json"]; ok && mt != nil && mt.Schema != nil {
			sch, err := schemaMap(mt.Schema)
			if err != nil {
				return nil, fmt.Errorf("request body: %w", err)
			}
			properties["body"] = sch
			if op.RequestBody.Value.Required {
				required = append(required, "body")
			}
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema, nil
}

// schemaMap converts an OpenAPI schema into a plain JSON Schema map.
// A missing schema defaults to a string parameter.
func schemaMap(ref *openapi3.SchemaRef) (map[string]any, error) {
	if ref == nil || ref.Value == nil {
		return map[string]any{"type": "string"}, nil
	}
	data, err := json.Marshal(ref.Value)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func sanitizePath(path string) string {
	path = strings.ReplaceAll(path, "/", "_")
	path = strings.ReplaceAll(path, "{", "")
	path = strings.ReplaceAll(path, "}", "")
	return strings.Trim(path, "_")
}
