// Package schemas embeds the proxy's OpenAPI document.
package schemas

import _ "embed"

// OpenAPISpec is the raw OpenAPI 3 document served and enforced by the proxy.
//
//go:embed openapi.yaml
var OpenAPISpec []byte
