// internal/registry/methodology.go
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	apperrors "credit-lifecycle/internal/common/errors"
	"credit-lifecycle/internal/common/logger"
	"credit-lifecycle/internal/models"

	"github.com/redis/go-redis/v9"
)

// MethodologyRegistry resolves methodology requirements. Lookups are
// read-through cached in redis since requirements change rarely but are hit
// on every guard evaluation.
type MethodologyRegistry struct {
	db     *sql.DB
	cache  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewMethodologyRegistry(db *sql.DB, cache *redis.Client, ttl time.Duration, log logger.Logger) *MethodologyRegistry {
	return &MethodologyRegistry{
		db:     db,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "methodology-registry"}),
	}
}

func cacheKey(methodologyID string) string {
	return "methodology:requirements:" + methodologyID
}

// Lookup returns the requirements for a methodology, or NotFound.
func (r *MethodologyRegistry) Lookup(ctx context.Context, methodologyID string) (*models.MethodologyRequirements, error) {
	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, cacheKey(methodologyID)).Result(); err == nil {
			var req models.MethodologyRequirements
			if err := json.Unmarshal([]byte(cached), &req); err == nil {
				return &req, nil
			}
		}
	}

	var req models.MethodologyRequirements
	req.MethodologyID = methodologyID
	err := r.db.QueryRowContext(ctx, `
		SELECT max_units, required_documents_count, review_period_days
		FROM methodologies
		WHERE id = $1`,
		methodologyID,
	).Scan(&req.MaxUnits, &req.RequiredDocumentsCount, &req.ReviewPeriodDays)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("methodology", methodologyID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError(err)
	}

	if r.cache != nil {
		if data, err := json.Marshal(&req); err == nil {
			if err := r.cache.Set(ctx, cacheKey(methodologyID), data, r.ttl).Err(); err != nil {
				r.logger.Warn("methodology cache write failed", map[string]interface{}{
					"methodologyId": methodologyID,
					"error":         err,
				})
			}
		}
	}
	return &req, nil
}
