// internal/lifecycle/collaborators.go
package lifecycle

import (
	"context"
	"time"

	"credit-lifecycle/internal/models"
	"credit-lifecycle/internal/notify"
	"credit-lifecycle/internal/store"
)

// MethodologyLookup resolves methodology requirements.
type MethodologyLookup interface {
	Lookup(ctx context.Context, methodologyID string) (*models.MethodologyRequirements, error)
}

// ProjectLookup resolves owning projects.
type ProjectLookup interface {
	Get(ctx context.Context, projectID string) (*models.Project, error)
}

// DocumentCounter reports how many documents a project has on file.
type DocumentCounter interface {
	Count(ctx context.Context, projectID string) (int, error)
}

// DeadlineManager creates and reads project deadlines.
type DeadlineManager interface {
	CreateDeadline(ctx context.Context, projectID, title string, date time.Time) (string, error)
	NextDeadline(ctx context.Context, projectID string) (*models.Deadline, error)
}

// ApplicationRepository is the persistence boundary of the engine. The
// store guarantees that Transition applies the status write, the ledger
// append and the notification enqueue atomically, compare-and-set on the
// expected current status.
type ApplicationRepository interface {
	Create(ctx context.Context, app *models.Application, entry models.StatusHistoryEntry) error
	Get(ctx context.Context, id string) (*models.Application, error)
	UpdateDraft(ctx context.Context, app *models.Application) error
	Transition(ctx context.Context, app *models.Application, expectedFrom models.Status, entry models.StatusHistoryEntry, events []*notify.Event) error
	List(ctx context.Context, filter store.ListFilter) ([]models.Application, error)
	GetHistory(ctx context.Context, applicationID string) ([]models.StatusHistoryEntry, error)
}
