package config

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
)

const schemaID = "https://github.com/haasonsaas/introspect/schema/config.json"

// configSchema is built once; the Config type never changes at runtime.
var configSchema = sync.OnceValues(func() ([]byte, error) {
	r := &jsonschema.Reflector{
		FieldNameTag:              "yaml",
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
	schema := r.Reflect(&Config{})
	schema.ID = jsonschema.ID(schemaID)
	schema.Title = "introspect configuration"
	schema.Description = "Storage, embedding, generation and analysis settings for the introspect journal engine."
	return json.MarshalIndent(schema, "", "  ")
})

// JSONSchema returns the JSON Schema for the config file, keyed by the yaml
// field names. Editors can point at it with a yaml-language-server comment.
func JSONSchema() ([]byte, error) {
	return configSchema()
}
