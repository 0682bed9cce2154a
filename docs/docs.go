// Package docs ships the OpenAPI description of the tracker REST API.
package docs

import _ "embed"

//go:embed swagger.yaml
var SwaggerYAML []byte
