package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/raterudder/luzygas/pkg/coordinator"
	"github.com/raterudder/luzygas/pkg/sensor"
	"github.com/raterudder/luzygas/pkg/storage/storagemock"
	"github.com/raterudder/luzygas/pkg/types"
)

type fetcherFunc func(ctx context.Context) (*types.Snapshot, error)

func (f fetcherFunc) FetchAll(ctx context.Context) (*types.Snapshot, error) {
	return f(ctx)
}

func doc(t *testing.T, s string) types.Document {
	t.Helper()
	d, err := types.ParseDocument([]byte(s))
	require.NoError(t, err)
	return d
}

func testSnapshot(t *testing.T) *types.Snapshot {
	return &types.Snapshot{
		FetchedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Contracts: map[string]types.Bundle{
			"e1": {
				Contract: types.Contract{
					ContractID:   "e1",
					ContractType: types.ContractTypeElectricity,
					CUPS:         "ES001",
					Active:       true,
					HouseID:      "h1",
					Raw:          doc(t, `{"code": "e1", "status": "ACTIVE", "fee": "2.0TD"}`),
				},
				House: doc(t, `{"code": "h1", "contracts": [{
					"code": "e1",
					"power": 4.6,
					"sva": [{"code": "SVA1", "name": "Mantenimiento"}]
				}]}`),
				Invoices:    doc(t, `[{"totalAmount": 61.2, "status": "PENDING"}]`),
				Costs:       types.NewCosts(doc(t, `{"amount": 42.1, "consumption": 210, "totalDays": 30}`)),
				NextInvoice: types.NewNextInvoice(doc(t, `{"amount": 55}`)),
			},
		},
	}
}

type testServer struct {
	*Server
	coord   *coordinator.Coordinator
	storage *storagemock.MockDatabase
	err     error
}

func newTestServer(t *testing.T) *testServer {
	ts := &testServer{storage: &storagemock.MockDatabase{}}
	snap := testSnapshot(t)
	ts.coord = coordinator.New(fetcherFunc(func(ctx context.Context) (*types.Snapshot, error) {
		if ts.err != nil {
			return nil, ts.err
		}
		return snap, nil
	}), time.Minute)
	ts.Server = New(ts.coord, sensor.NewMapper("EUR"), ts.storage, "entry1", ":0")
	return ts
}

func (ts *testServer) refresh(t *testing.T) {
	t.Helper()
	_, err := ts.coord.Refresh(context.Background())
	require.NoError(t, err)
}

func (ts *testServer) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	ts.setupHandler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("Server"))
}

func TestSensors(t *testing.T) {
	ts := newTestServer(t)

	t.Run("No Snapshot", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/sensors")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	ts.refresh(t)

	t.Run("List", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/sensors")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		res := decode[[]map[string]any](t, w)
		byID := map[string]map[string]any{}
		for _, s := range res {
			byID[s["id"].(string)] = s
		}
		require.Contains(t, byID, "h1_e1_amount")
		assert.Equal(t, 42.1, byID["h1_e1_amount"]["state"])
		assert.Equal(t, "ACTIVE", byID["h1_e1_status"]["state"])
		assert.Equal(t, "SVA1", byID["h1_SVA1"]["state"])
		assert.NotContains(t, byID, "h1_e1_kwhAvailable_vb")
	})

	t.Run("Get", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/sensors/h1_e1_amount")
		require.Equal(t, http.StatusOK, w.Code)
		res := decode[map[string]any](t, w)
		assert.Equal(t, "Repsol ES001 Amount", res["name"])
		assert.Equal(t, "EUR", res["unit"])
		assert.Equal(t, 42.1, res["state"])
		device := res["device"].(map[string]any)
		assert.Equal(t, "h1_e1", device["identifier"])
	})

	t.Run("Unavailable", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/sensors/h1_e1_pricesEnergyAmount")
		require.Equal(t, http.StatusOK, w.Code)
		res := decode[map[string]any](t, w)
		assert.Nil(t, res["state"])
	})

	t.Run("Not Found", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/sensors/missing")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error": "sensor not found"}`, w.Body.String())
	})
}

func TestContracts(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/contracts")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	ts.refresh(t)
	w = ts.do(t, http.MethodGet, "/api/contracts")
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[[]map[string]any](t, w)
	require.Len(t, res, 1)
	assert.Equal(t, "e1", res[0]["contract_id"])
	assert.Equal(t, "ELECTRICITY", res[0]["contractType"])
	assert.Equal(t, "h1", res[0]["house_id"])
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.refresh(t)
	ts.storage.On("GetLatestReadingTime", mock.Anything, "entry1").Return(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), nil).Once()

	w := ts.do(t, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[map[string]any](t, w)
	assert.Equal(t, "EUR", res["currency"])
	assert.Equal(t, "2024-03-01T00:00:00Z", res["fetchedAt"])
	assert.Equal(t, "2024-03-01T00:00:00Z", res["lastRecorded"])
	assert.Greater(t, res["sensors"].(float64), 0.0)
	status := res["status"].(map[string]any)
	assert.Equal(t, true, status["success"])
	assert.Equal(t, 1.0, status["contracts"])
	assert.Equal(t, "1m0s", status["interval"])

	t.Run("Storage Error", func(t *testing.T) {
		ts.storage.On("GetLatestReadingTime", mock.Anything, "entry1").Return(time.Time{}, errors.New("unavailable")).Once()
		w := ts.do(t, http.MethodGet, "/api/status")
		require.Equal(t, http.StatusOK, w.Code)
		res := decode[map[string]any](t, w)
		assert.NotContains(t, res, "lastRecorded")
	})
}

func TestUpdate(t *testing.T) {
	ts := newTestServer(t)

	t.Run("Success", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/update")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"fetchedAt": "2024-03-01T00:00:00Z", "contracts": 1}`, w.Body.String())
		assert.NotNil(t, ts.coord.Snapshot())
	})

	t.Run("Failure", func(t *testing.T) {
		ts.err = errors.New("boom")
		defer func() { ts.err = nil }()

		w := ts.do(t, http.MethodPost, "/api/update")
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.JSONEq(t, `{"error": "error fetching data: boom"}`, w.Body.String())

		// previous snapshot is still served
		w = ts.do(t, http.MethodGet, "/api/sensors/h1_e1_amount")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Wrong Method", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/update")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestRecordReadings(t *testing.T) {
	ts := newTestServer(t)
	snap := testSnapshot(t)

	ts.storage.On("UpsertReadings", context.Background(), "entry1", mock.MatchedBy(func(readings []types.Reading) bool {
		if len(readings) == 0 {
			return false
		}
		for _, r := range readings {
			if !r.Timestamp.Equal(snap.FetchedAt) {
				return false
			}
			if r.SensorID == "h1_e1_amount" && r.Value.Number != 42.1 {
				return false
			}
		}
		return true
	})).Return(nil).Once()

	ts.RecordReadings(context.Background(), snap)
	ts.storage.AssertExpectations(t)

	t.Run("Error", func(t *testing.T) {
		ts.storage.On("UpsertReadings", context.Background(), "entry1", mock.MatchedBy(func([]types.Reading) bool {
			return true
		})).Return(errors.New("unavailable")).Once()

		assert.NotPanics(t, func() {
			ts.RecordReadings(context.Background(), snap)
		})
		ts.storage.AssertExpectations(t)
	})
}
