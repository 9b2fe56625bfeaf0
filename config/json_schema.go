package config

import (
	"errors"

	"github.com/invopop/jsonschema"
)

var ErrGeneratedSchemaIsNil = errors.New("generated JSON Schema is nil")

// JSONSchema describes config.yaml for editor validation. Properties follow the
// json tags, so secrets tagged "-" stay out of the schema. Unknown keys are
// rejected and nested sections are inlined.
func JSONSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		DoNotReference:             true,
		AllowAdditionalProperties:  false,
		RequiredFromJSONSchemaTags: true,
	}
	schema := r.Reflect(&Config{})
	if schema == nil {
		return nil, ErrGeneratedSchemaIsNil
	}
	schema.Title = "lifeembedding configuration"
	return schema.MarshalJSON()
}
