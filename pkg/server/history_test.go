package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/raterudder/luzygas/pkg/types"
)

func TestParseTimeRange(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		start, end, err := parseTimeRange(httptest.NewRequest(http.MethodGet, "/api/history", nil))
		require.NoError(t, err)
		assert.Equal(t, 24*time.Hour, end.Sub(start))
	})

	t.Run("Explicit", func(t *testing.T) {
		start, end, err := parseTimeRange(httptest.NewRequest(http.MethodGet, "/api/history?start=2024-03-01T00:00:00Z&end=2024-03-08T00:00:00Z", nil))
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("Too Long", func(t *testing.T) {
		_, _, err := parseTimeRange(httptest.NewRequest(http.MethodGet, "/api/history?start=2024-03-01T00:00:00Z&end=2024-03-08T00:00:01Z", nil))
		assert.EqualError(t, err, "time range cannot exceed 7 days")
	})

	t.Run("Reversed", func(t *testing.T) {
		_, _, err := parseTimeRange(httptest.NewRequest(http.MethodGet, "/api/history?start=2024-03-02T00:00:00Z&end=2024-03-01T00:00:00Z", nil))
		assert.EqualError(t, err, "start time must be before end time")
	})

	t.Run("Invalid", func(t *testing.T) {
		_, _, err := parseTimeRange(httptest.NewRequest(http.MethodGet, "/api/history?start=yesterday&end=2024-03-01T00:00:00Z", nil))
		assert.ErrorContains(t, err, "invalid start time")
	})
}

func TestHandleHistory(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	target := "/api/history?sensorID=h1_e1_amount&start=2024-03-01T00:00:00Z&end=2024-03-02T00:00:00Z"

	t.Run("Success", func(t *testing.T) {
		ts := newTestServer(t)
		ts.storage.On("GetReadingHistory", mock.Anything, "entry1", "h1_e1_amount", start, end).Return([]types.Reading{
			{SensorID: "h1_e1_amount", Value: types.NumberValue(42.1), Timestamp: start},
		}, nil)

		w := ts.do(t, http.MethodGet, target)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "private, max-age=86400", w.Header().Get("Cache-Control"))
		res := decode[[]types.Reading](t, w)
		require.Len(t, res, 1)
		assert.Equal(t, 42.1, res[0].Value.Number)
		ts.storage.AssertExpectations(t)
	})

	t.Run("Missing Sensor", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(t, http.MethodGet, "/api/history")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error": "missing sensorID"}`, w.Body.String())
	})

	t.Run("Bad Range", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(t, http.MethodGet, "/api/history?sensorID=x&start=2024-03-01T00:00:00Z&end=2024-04-01T00:00:00Z")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		ts.storage.AssertNotCalled(t, "GetReadingHistory", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Storage Error", func(t *testing.T) {
		ts := newTestServer(t)
		ts.storage.On("GetReadingHistory", mock.Anything, "entry1", "h1_e1_amount", start, end).Return(nil, errors.New("unavailable"))

		w := ts.do(t, http.MethodGet, target)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error": "failed to get readings"}`, w.Body.String())
	})
}
