package task

import (
	_ "embed"

	"github.com/invopop/jsonschema"
)

//go:embed schema.json
var embeddedSchemaData []byte

// SchemaJSON returns the embedded JSON schema describing the on-disk
// document format. Regenerate with go run ./app/task/internal/schema.
func SchemaJSON() []byte { return embeddedSchemaData }

// GenerateSchema reflects the persisted document into a JSON schema
func GenerateSchema() *jsonschema.Schema {
	return jsonschema.Reflect(&Document{})
}
