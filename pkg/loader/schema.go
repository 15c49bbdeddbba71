package loader

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/OFFIS-RIT/docgraph/pkg/common"
)

// DocumentSchema returns the JSON Schema of an input document file.
func DocumentSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&common.Document{})
	schema.Title = "docgraph input document"
	return json.MarshalIndent(schema, "", "  ")
}
