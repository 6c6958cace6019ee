// Package schemas embeds the repofetch HTTP API description.
package schemas

import _ "embed"

// OpenAPISpec is the OpenAPI 3 document the server validates requests against.
//
//go:embed openapi.yaml
var OpenAPISpec []byte
