package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema generates the JSON Schema for slotsync.yml.
// Unknown top-level keys stay allowed so extensions such as `logging` validate.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
		DoNotReference:            true,
	}

	schema := r.Reflect(&Config{})
	schema.Title = "slotsync Configuration"
	schema.Description = "Schema for slotsync.yml."
	schema.Version = "http://json-schema.org/draft-07/schema#"
	schema.AdditionalProperties = jsonschema.TrueSchema

	return json.MarshalIndent(schema, "", "  ")
}
