// Package schema provides the embedded JSON schema for dashboard
// configuration files and validation against it.
package schema

import "embed"

// FS contains the embedded schema files.
//
//go:embed *.schema.json
var FS embed.FS
