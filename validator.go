package toolloop

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"
)

// supportedTypes are the JSON Schema primitive kinds a tool may declare for
// its parameters. Anything else in a declaration is a configuration error.
var supportedTypes = map[string]struct{}{
	"string":  {},
	"number":  {},
	"integer": {},
	"boolean": {},
	"array":   {},
	"object":  {},
	"null":    {},
}

// argumentValidator checks candidate arguments against a tool's declared
// parameter schema. The schema is compiled once, when the validator is
// built; Run caches one validator per tool for the whole run.
type argumentValidator struct {
	resolved *jsonschema.Resolved
	logger   *zap.Logger
}

// newArgumentValidator compiles the declared parameter schema of a tool.
// It fails fast on unsupported declared types: that indicates a malformed
// tool declaration, not a bad argument, so it must not wait for a call.
func newArgumentValidator(toolName string, schemaMap map[string]any, logger *zap.Logger) (*argumentValidator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schemaMap == nil {
		schemaMap = map[string]any{"type": "object"}
	}
	if _, hasType := schemaMap["type"]; !hasType {
		if _, hasProps := schemaMap["properties"]; hasProps {
			next := make(map[string]any, len(schemaMap)+1)
			for k, v := range schemaMap {
				next[k] = v
			}
			next["type"] = "object"
			schemaMap = next
		} else {
			// A bare properties map is a common shorthand for an object schema.
			schemaMap = map[string]any{"type": "object", "properties": schemaMap}
		}
	}
	if err := checkDeclaredTypes(schemaMap); err != nil {
		return nil, &ConfigError{Tool: toolName, Err: err}
	}
	resolved, err := compileRawSchema(schemaMap)
	if err != nil {
		return nil, &ConfigError{Tool: toolName, Err: err}
	}
	return &argumentValidator{
		resolved: resolved,
		logger:   logger.With(zap.String("component", "validator"), zap.String("tool", toolName)),
	}, nil
}

// validate reports whether args satisfy the compiled schema. It never panics
// or returns an error: internal failures are logged and count as invalid.
func (v *argumentValidator) validate(args map[string]any) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			v.logger.Debug("argument validation panicked", zap.Any("panic", p))
			ok = false
		}
	}()
	if args == nil {
		args = map[string]any{}
	}
	// Round-trip through JSON so argument values are in the normalized form
	// the schema validator expects (numbers as float64 and so on).
	data, err := json.Marshal(args)
	if err != nil {
		v.logger.Debug("arguments not serializable", zap.Error(err))
		return false
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		v.logger.Debug("arguments not deserializable", zap.Error(err))
		return false
	}
	if err := v.resolved.Validate(normalized); err != nil {
		v.logger.Debug("arguments failed schema validation", zap.Error(err))
		return false
	}
	return true
}

// checkDeclaredTypes walks the schema tree and rejects any "type" value
// outside the supported JSON Schema primitives. Nested objects and arrays
// recurse via walkSchema.
func checkDeclaredTypes(schemaMap map[string]any) error {
	var bad error
	walkSchema(schemaMap, func(n map[string]any) {
		if bad != nil {
			return
		}
		raw, present := n["type"]
		if !present {
			return
		}
		typ, ok := raw.(string)
		if !ok {
			bad = fmt.Errorf("%w: %v", ErrUnsupportedType, raw)
			return
		}
		if _, ok := supportedTypes[typ]; !ok {
			bad = fmt.Errorf("%w: %q", ErrUnsupportedType, typ)
		}
	})
	return bad
}

// walkSchema recursively visits every map node in the schema tree
// (including $defs and definitions).
func walkSchema(schemaMap map[string]any, visit func(map[string]any)) {
	if schemaMap == nil {
		return
	}
	visit(schemaMap)
	for _, val := range schemaMap {
		switch v := val.(type) {
		case map[string]any:
			walkSchema(v, visit)
		case []any:
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					walkSchema(m, visit)
				}
			}
		}
	}
}

// compileRawSchema compiles a raw JSON Schema map into a resolved validator.
// The map is not mutated; ids are stripped from the working copy so
// resolution does not depend on them.
func compileRawSchema(schemaMap map[string]any) (*jsonschema.Resolved, error) {
	data, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, err
	}
	var working map[string]any
	if err := json.Unmarshal(data, &working); err != nil {
		return nil, err
	}
	stripSchemaIDs(working)
	data, err = json.Marshal(working)
	if err != nil {
		return nil, err
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return s.Resolve(nil)
}

// stripSchemaIDs removes id and $id from the schema tree.
func stripSchemaIDs(schemaMap map[string]any) {
	walkSchema(schemaMap, func(n map[string]any) {
		delete(n, "id")
		delete(n, "$id")
	})
}
