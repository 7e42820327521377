// internal/notify/templates.go
package notify

import (
	"fmt"
	"strings"
)

type template struct {
	Subject string
	Body    string
}

var templates = map[EventType]template{
	EventSubmissionConfirmation: {
		Subject: "Application {{applicationId}} submitted",
		Body:    "Your credit application {{applicationId}} has been submitted for review. Review period: {{reviewPeriodDays}} days.",
	},
	EventMissingDocuments: {
		Subject: "Missing documents for application {{applicationId}}",
		Body:    "Application {{applicationId}} was submitted with {{submittedDocuments}} of {{requiredDocuments}} required documents. Please upload the remaining documents before approval.",
	},
	EventStatusChange: {
		Subject: "Application {{applicationId}} status changed",
		Body:    "Application {{applicationId}} moved from {{fromStatus}} to {{toStatus}}. {{reason}}",
	},
	EventIssuance: {
		Subject: "Credits issued for application {{applicationId}}",
		Body:    "{{quantity}} credits have been issued for application {{applicationId}}.",
	},
	EventApproval: {
		Subject: "Application {{applicationId}} approved",
		Body:    "Application {{applicationId}} was approved for {{quantity}} units. {{comments}}",
	},
	EventNextSteps: {
		Subject: "Next steps for application {{applicationId}}",
		Body:    "Your application {{applicationId}} is approved. Issuance will follow once registry checks complete.",
	},
	EventRejection: {
		Subject: "Application {{applicationId}} rejected",
		Body:    "Application {{applicationId}} was rejected. Reason: {{reason}}",
	},
	EventResubmissionGuidance: {
		Subject: "Resubmitting application {{applicationId}}",
		Body:    "You may address the rejection reason and submit a new application for the same project.",
	},
}

// Render produces the subject and body for an event, substituting
// {{placeholder}} tokens from the event data.
func Render(event *Event) (subject, body string, err error) {
	tpl, ok := templates[event.Type]
	if !ok {
		return "", "", fmt.Errorf("template not found for type: %s", event.Type)
	}

	data := map[string]interface{}{
		"applicationId": event.ApplicationID,
		"projectId":     event.ProjectID,
	}
	for k, v := range event.Data {
		data[k] = v
	}

	return renderTemplate(tpl.Subject, data), renderTemplate(tpl.Body, data), nil
}

func renderTemplate(tpl string, data map[string]interface{}) string {
	out := tpl
	for k, v := range data {
		out = strings.ReplaceAll(out, "{{"+k+"}}", fmt.Sprintf("%v", v))
	}
	return out
}
