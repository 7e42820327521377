// internal/lifecycle/payload.go
package lifecycle

import (
	"strings"

	apperrors "credit-lifecycle/internal/common/errors"
	"credit-lifecycle/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

const payloadSchema = `{
	"type": "object",
	"properties": {
		"description": {"type": "string", "minLength": 1},
		"location": {"type": "string"},
		"activityData": {"type": "object"}
	},
	"required": ["description"],
	"additionalProperties": true
}`

var payloadSchemaLoader = gojsonschema.NewStringLoader(payloadSchema)

// ValidatePayload checks the structured payload against the schema. Content
// of the activity data is not inspected; that belongs to the document
// pipeline.
func ValidatePayload(p models.Payload) error {
	result, err := gojsonschema.Validate(payloadSchemaLoader, gojsonschema.NewGoLoader(p))
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return apperrors.NewValidationError("payload: " + strings.Join(msgs, "; "))
}
