package server

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raterudder/luzygas/pkg/coordinator"
	"github.com/raterudder/luzygas/pkg/sensor"
	"github.com/raterudder/luzygas/pkg/types"
)

func gather(t *testing.T, c prometheus.Collector) map[string]*dto.MetricFamily {
	t.Helper()
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	families, err := reg.Gather()
	require.NoError(t, err)
	byName := map[string]*dto.MetricFamily{}
	for _, f := range families {
		byName[f.GetName()] = f
	}
	return byName
}

func labelsOf(m *dto.Metric) map[string]string {
	labels := map[string]string{}
	for _, l := range m.GetLabel() {
		labels[l.GetName()] = l.GetValue()
	}
	return labels
}

func TestCollector(t *testing.T) {
	t.Run("No Snapshot", func(t *testing.T) {
		coord := coordinator.New(fetcherFunc(func(ctx context.Context) (*types.Snapshot, error) {
			return nil, errors.New("boom")
		}), time.Minute)
		_, err := coord.Refresh(context.Background())
		require.Error(t, err)

		families := gather(t, newCollector(coord, sensor.NewMapper("EUR")))
		assert.NotContains(t, families, "luzygas_sensor_value")
		assert.NotContains(t, families, "luzygas_sensor_info")
		assert.Equal(t, 0.0, families["luzygas_update_success"].GetMetric()[0].GetGauge().GetValue())
		assert.Equal(t, 0.0, families["luzygas_snapshot_contracts"].GetMetric()[0].GetGauge().GetValue())
		assert.Equal(t, 0.0, families["luzygas_last_update_timestamp_seconds"].GetMetric()[0].GetGauge().GetValue())
	})

	t.Run("Snapshot", func(t *testing.T) {
		ts := newTestServer(t)
		ts.refresh(t)

		families := gather(t, newCollector(ts.coord, ts.mapper))
		assert.Equal(t, 1.0, families["luzygas_update_success"].GetMetric()[0].GetGauge().GetValue())
		assert.Equal(t, 1.0, families["luzygas_snapshot_contracts"].GetMetric()[0].GetGauge().GetValue())
		assert.Greater(t, families["luzygas_last_update_timestamp_seconds"].GetMetric()[0].GetGauge().GetValue(), 0.0)

		values := map[string]*dto.Metric{}
		for _, m := range families["luzygas_sensor_value"].GetMetric() {
			values[labelsOf(m)["sensor_id"]] = m
		}
		require.Contains(t, values, "h1_e1_amount")
		amount := values["h1_e1_amount"]
		assert.Equal(t, 42.1, amount.GetGauge().GetValue())
		assert.Equal(t, map[string]string{
			"sensor_id":   "h1_e1_amount",
			"house_id":    "h1",
			"contract_id": "e1",
			"variable":    "amount",
			"kind":        "standard",
			"unit":        "EUR",
		}, labelsOf(amount))
		assert.NotContains(t, values, "h1_e1_pricesEnergyAmount")

		states := map[string]string{}
		for _, m := range families["luzygas_sensor_info"].GetMetric() {
			l := labelsOf(m)
			states[l["sensor_id"]] = l["value"]
			assert.Equal(t, 1.0, m.GetGauge().GetValue())
		}
		assert.Equal(t, "ACTIVE", states["h1_e1_status"])
		assert.Equal(t, "2.0TD", states["h1_e1_fee"])
		assert.Equal(t, "SVA1", states["h1_SVA1"])
	})
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.refresh(t)

	w := ts.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "luzygas_snapshot_contracts 1")
	assert.Contains(t, body, "luzygas_update_success 1")
	assert.Contains(t, body, `luzygas_sensor_value{contract_id="e1",house_id="h1",kind="standard",sensor_id="h1_e1_amount",unit="EUR",variable="amount"} 42.1`)
	assert.Contains(t, body, "go_goroutines")
}
