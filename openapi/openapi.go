// Package openapi derives toolloop tools from an OpenAPI 3.x description.
//
// Each API operation becomes one toolloop.Tool: the operation's parameters
// and request body form the parameter schema offered to the model, and the
// invoker performs the matching HTTP request, substituting path, query,
// header, cookie, and body arguments and applying any configured override
// rules. URL-pattern allow filters restrict which operations become tools.
//
// Parsing accepts JSON and YAML interchangeably; an input that does not
// parse as a document is treated as a fetchable location.
package openapi

import (
	"context"
	"fmt"
	"net/url"

	"github.com/getkin/kin-openapi/openapi3"
)

// Load parses an OpenAPI description. The source is first treated as an
// inline document (JSON or YAML); if that fails it is treated as a location
// to fetch the document from.
func Load(ctx context.Context, source string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = true

	doc, dataErr := loader.LoadFromData([]byte(source))
	if dataErr == nil {
		return doc, nil
	}

	u, err := url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse spec: %w", dataErr)
	}
	doc, err = loader.LoadFromURI(u)
	if err != nil {
		return nil, fmt.Errorf("load spec from %s: %w", source, err)
	}
	return doc, nil
}
