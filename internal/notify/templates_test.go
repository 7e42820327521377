package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_SubstitutesPlaceholders(t *testing.T) {
	subject, body, err := Render(&Event{
		Type:          EventMissingDocuments,
		ApplicationID: "app-1",
		ProjectID:     "proj-1",
		Data: map[string]interface{}{
			"submittedDocuments": 1,
			"requiredDocuments":  3,
		},
	})
	require.NoError(t, err)
	assert.Contains(t, subject, "app-1")
	assert.Contains(t, body, "1 of 3 required documents")
}

func TestRender_EveryEventTypeHasATemplate(t *testing.T) {
	types := []EventType{
		EventSubmissionConfirmation,
		EventMissingDocuments,
		EventStatusChange,
		EventIssuance,
		EventApproval,
		EventNextSteps,
		EventRejection,
		EventResubmissionGuidance,
	}
	for _, typ := range types {
		t.Run(string(typ), func(t *testing.T) {
			subject, body, err := Render(&Event{Type: typ, ApplicationID: "app-1"})
			require.NoError(t, err)
			assert.NotEmpty(t, subject)
			assert.NotEmpty(t, body)
		})
	}
}

func TestRender_UnknownTypeFails(t *testing.T) {
	_, _, err := Render(&Event{Type: EventType("nope")})
	assert.Error(t, err)
}

func TestRender_StatusChange(t *testing.T) {
	_, body, err := Render(&Event{
		Type:          EventStatusChange,
		ApplicationID: "app-9",
		Data: map[string]interface{}{
			"fromStatus": "submitted",
			"toStatus":   "under_review",
			"reason":     "assigned to reviewer",
		},
	})
	require.NoError(t, err)
	assert.Contains(t, body, "from submitted to under_review")
	assert.Contains(t, body, "assigned to reviewer")
}
