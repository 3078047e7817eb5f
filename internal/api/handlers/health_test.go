package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hugh/inkpress/internal/api/handlers"
	"github.com/hugh/inkpress/internal/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestHealthHandler(t *testing.T) {
	t.Run("database up, cache disabled", func(t *testing.T) {
		h := handlers.NewHealthHandler(testutil.SetupTestDB(t), nil)

		rr := httptest.NewRecorder()
		h.Health(rr, httptest.NewRequest("GET", "/health", nil))
		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp handlers.HealthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "disabled", resp.Services["redis"])
	})

	t.Run("redis unreachable is degraded", func(t *testing.T) {
		rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
		t.Cleanup(func() { rdb.Close() })
		h := handlers.NewHealthHandler(testutil.SetupTestDB(t), rdb)

		rr := httptest.NewRecorder()
		h.Health(rr, httptest.NewRequest("GET", "/health", nil))
		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp handlers.HealthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "unhealthy", resp.Services["redis"])
	})

	t.Run("database closed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		sqlDB, _ := db.DB()
		sqlDB.Close()
		h := handlers.NewHealthHandler(db, nil)

		rr := httptest.NewRecorder()
		h.Health(rr, httptest.NewRequest("GET", "/health", nil))
		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
	})
}
