// internal/common/validation/schema_test.go
package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "object",
  "required": ["sessionId"],
  "properties": {
    "sessionId": {"type": "string", "minLength": 1},
    "days": {"type": "integer", "minimum": 1}
  }
}`

func TestValidator_ValidateBytes(t *testing.T) {
	v, err := NewValidator(testSchema)
	require.NoError(t, err)

	tests := []struct {
		name      string
		doc       string
		wantValid bool
		wantField string
	}{
		{name: "valid", doc: `{"sessionId":"s-1","days":3}`, wantValid: true},
		{name: "missing required", doc: `{"days":3}`, wantField: "(root)"},
		{name: "wrong type", doc: `{"sessionId":"s-1","days":"three"}`, wantField: "days"},
		{name: "below minimum", doc: `{"sessionId":"s-1","days":0}`, wantField: "days"},
		{name: "not json", doc: `{"sessionId":`, wantField: "(root)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.ValidateBytes([]byte(tt.doc))
			assert.Equal(t, tt.wantValid, res.Valid)
			if tt.wantValid {
				assert.NoError(t, res.Err())
				return
			}
			require.NotEmpty(t, res.Errors)
			assert.Equal(t, tt.wantField, res.Errors[0].Field)
			assert.Error(t, res.Err())
		})
	}
}

func TestValidator_GoValueSchema(t *testing.T) {
	v, err := NewValidator(map[string]interface{}{
		"type":     "array",
		"minItems": 1,
	})
	require.NoError(t, err)

	assert.True(t, v.Validate([]string{"a"}).Valid)
	assert.False(t, v.Validate([]string{}).Valid)
}

func TestNewValidator_InvalidSchema(t *testing.T) {
	_, err := NewValidator(`{"type": 12}`)
	assert.Error(t, err)
}
