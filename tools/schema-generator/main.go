package main

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"github.com/grovetools/slotsync/config"
	"github.com/grovetools/slotsync/logging"
	"github.com/invopop/jsonschema"
)

// Generates schema/slotsync.embedded.schema.json: the base config schema
// with the logging extension composed in.
func main() {
	baseBytes, err := config.GenerateSchema()
	if err != nil {
		log.Fatalf("Error generating schema: %v", err)
	}

	var base map[string]interface{}
	if err := json.Unmarshal(baseBytes, &base); err != nil {
		log.Fatalf("Error decoding base schema: %v", err)
	}

	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
		DoNotReference:            true,
	}
	loggingSchema := r.Reflect(&logging.Config{})
	loggingSchema.Version = ""
	loggingSchema.Description = "Logging extension."
	// Extension fields are all optional
	loggingSchema.Required = nil

	loggingBytes, err := json.Marshal(loggingSchema)
	if err != nil {
		log.Fatalf("Error marshaling logging schema: %v", err)
	}
	var loggingDoc map[string]interface{}
	if err := json.Unmarshal(loggingBytes, &loggingDoc); err != nil {
		log.Fatalf("Error decoding logging schema: %v", err)
	}

	props, _ := base["properties"].(map[string]interface{})
	if props == nil {
		props = make(map[string]interface{})
		base["properties"] = props
	}
	props["logging"] = loggingDoc

	data, err := json.MarshalIndent(base, "", "  ")
	if err != nil {
		log.Fatalf("Error marshaling schema: %v", err)
	}

	outputDir := "schema"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		log.Fatalf("Error creating schema directory: %v", err)
	}

	outputPath := filepath.Join(outputDir, "slotsync.embedded.schema.json")
	if err := os.WriteFile(outputPath, append(data, '\n'), 0644); err != nil {
		log.Fatalf("Error writing schema file: %v", err)
	}

	log.Printf("Successfully generated schema at %s", outputPath)
}
