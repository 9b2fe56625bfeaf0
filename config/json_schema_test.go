package config

import (
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSchema(t *testing.T) {
	schemaJSON, err := JSONSchema()

	require.NoError(t, err)
	assert.NotNil(t, schemaJSON)
	unmarshalledSchema := &jsonschema.Schema{}
	err = unmarshalledSchema.UnmarshalJSON(schemaJSON)
	assert.NoError(t, err)

	// secrets are never part of the schema
	assert.NotContains(t, string(schemaJSON), "openai_api_key")
	assert.NotContains(t, string(schemaJSON), "\"secret\"")
}

func TestJSONSchemaDescribesSections(t *testing.T) {
	schemaJSON, err := JSONSchema()
	require.NoError(t, err)

	schema := &jsonschema.Schema{}
	require.NoError(t, schema.UnmarshalJSON(schemaJSON))
	assert.Equal(t, "lifeembedding configuration", schema.Title)

	for _, section := range []string{"store", "embeddings", "reduction", "search", "server", "log", "auth", "tracing"} {
		_, ok := schema.Properties.Get(section)
		assert.True(t, ok, section)
	}
}
