// Package openapi carries the HTTP API description served at /api/v1/openapi.{yaml,json}.
package openapi

import _ "embed"

// Document is the OpenAPI document in YAML
//
//go:embed openapi.yaml
var Document []byte
