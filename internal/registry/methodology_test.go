package registry

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	apperrors "credit-lifecycle/internal/common/errors"
	"credit-lifecycle/internal/common/logger"
	"credit-lifecycle/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistryWithMocks(t *testing.T) (*MethodologyRegistry, sqlmock.Sqlmock, *miniredis.Miniredis) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	reg := NewMethodologyRegistry(db, cache, 5*time.Minute, logger.NewTestLogger(t))
	return reg, mock, mr
}

func TestMethodologyRegistry_Lookup_MissReadsPostgresAndFillsCache(t *testing.T) {
	reg, mock, mr := newRegistryWithMocks(t)

	mock.ExpectQuery("SELECT max_units, required_documents_count, review_period_days").
		WithArgs("meth-1").
		WillReturnRows(sqlmock.NewRows([]string{"max_units", "required_documents_count", "review_period_days"}).
			AddRow(1000.0, 3, 90))

	req, err := reg.Lookup(context.Background(), "meth-1")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, req.MaxUnits)
	assert.Equal(t, 3, req.RequiredDocumentsCount)
	assert.Equal(t, 90, req.ReviewPeriodDays)
	assert.NoError(t, mock.ExpectationsWereMet())

	// The result landed in the cache with the configured TTL.
	cached, err := mr.Get("methodology:requirements:meth-1")
	require.NoError(t, err)
	var fromCache models.MethodologyRequirements
	require.NoError(t, json.Unmarshal([]byte(cached), &fromCache))
	assert.Equal(t, 1000.0, fromCache.MaxUnits)
	assert.Greater(t, mr.TTL("methodology:requirements:meth-1"), time.Duration(0))
}

func TestMethodologyRegistry_Lookup_HitSkipsPostgres(t *testing.T) {
	reg, mock, mr := newRegistryWithMocks(t)

	seeded, _ := json.Marshal(&models.MethodologyRequirements{
		MethodologyID:          "meth-1",
		MaxUnits:               500,
		RequiredDocumentsCount: 2,
		ReviewPeriodDays:       60,
	})
	require.NoError(t, mr.Set("methodology:requirements:meth-1", string(seeded)))

	// No query expectation registered: a postgres hit would fail the test.
	req, err := reg.Lookup(context.Background(), "meth-1")
	require.NoError(t, err)
	assert.Equal(t, 500.0, req.MaxUnits)
	assert.Equal(t, 60, req.ReviewPeriodDays)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMethodologyRegistry_Lookup_CorruptCacheFallsThrough(t *testing.T) {
	reg, mock, mr := newRegistryWithMocks(t)
	require.NoError(t, mr.Set("methodology:requirements:meth-1", "not-json"))

	mock.ExpectQuery("SELECT max_units, required_documents_count, review_period_days").
		WithArgs("meth-1").
		WillReturnRows(sqlmock.NewRows([]string{"max_units", "required_documents_count", "review_period_days"}).
			AddRow(1000.0, 3, 90))

	req, err := reg.Lookup(context.Background(), "meth-1")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, req.MaxUnits)
}

func TestMethodologyRegistry_Lookup_NotFound(t *testing.T) {
	reg, mock, _ := newRegistryWithMocks(t)

	mock.ExpectQuery("SELECT max_units, required_documents_count, review_period_days").
		WithArgs("meth-missing").
		WillReturnRows(sqlmock.NewRows([]string{"max_units", "required_documents_count", "review_period_days"}))

	_, err := reg.Lookup(context.Background(), "meth-missing")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestMethodologyRegistry_Lookup_RedisDownDegradesToPostgres(t *testing.T) {
	reg, mock, mr := newRegistryWithMocks(t)
	mr.Close()

	mock.ExpectQuery("SELECT max_units, required_documents_count, review_period_days").
		WithArgs("meth-1").
		WillReturnRows(sqlmock.NewRows([]string{"max_units", "required_documents_count", "review_period_days"}).
			AddRow(1000.0, 3, 90))

	req, err := reg.Lookup(context.Background(), "meth-1")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, req.MaxUnits)
}
