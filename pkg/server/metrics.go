package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/raterudder/luzygas/pkg/sensor"
)

var sensorLabels = []string{"sensor_id", "house_id", "contract_id", "variable", "kind", "unit"}

// collector implements prometheus.Collector over the current snapshot.
type collector struct {
	updater Updater
	mapper  *sensor.Mapper

	value      *prometheus.Desc
	info       *prometheus.Desc
	contracts  *prometheus.Desc
	lastUpdate *prometheus.Desc
	success    *prometheus.Desc
}

func newCollector(u Updater, m *sensor.Mapper) *collector {
	return &collector{
		updater: u,
		mapper:  m,
		value: prometheus.NewDesc(
			"luzygas_sensor_value",
			"Current numeric value of a sensor",
			sensorLabels,
			nil,
		),
		info: prometheus.NewDesc(
			"luzygas_sensor_info",
			"Current text value of a sensor in the value label (always 1)",
			append(append([]string{}, sensorLabels...), "value"),
			nil,
		),
		contracts: prometheus.NewDesc(
			"luzygas_snapshot_contracts",
			"Number of contracts in the current snapshot",
			nil,
			nil,
		),
		lastUpdate: prometheus.NewDesc(
			"luzygas_last_update_timestamp_seconds",
			"Unix time of the last successful update",
			nil,
			nil,
		),
		success: prometheus.NewDesc(
			"luzygas_update_success",
			"Whether the last update succeeded (1=yes, 0=no)",
			nil,
			nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.value
	ch <- c.info
	ch <- c.contracts
	ch <- c.lastUpdate
	ch <- c.success
}

// Collect implements prometheus.Collector
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.updater.Snapshot()
	status := c.updater.Status()

	var contracts, lastUpdate, success float64
	if snap != nil {
		contracts = float64(len(snap.Contracts))
	}
	if !status.LastSuccess.IsZero() {
		lastUpdate = float64(status.LastSuccess.Unix())
	}
	if status.Success {
		success = 1
	}
	ch <- prometheus.MustNewConstMetric(c.contracts, prometheus.GaugeValue, contracts)
	ch <- prometheus.MustNewConstMetric(c.lastUpdate, prometheus.GaugeValue, lastUpdate)
	ch <- prometheus.MustNewConstMetric(c.success, prometheus.GaugeValue, success)

	for _, s := range c.mapper.Enumerate(snap) {
		v := s.Value(snap)
		if !v.Valid {
			continue
		}
		labels := []string{s.ID, s.HouseID, s.ContractID, s.Variable, string(s.Kind), s.Unit}
		if v.Numeric {
			ch <- prometheus.MustNewConstMetric(c.value, prometheus.GaugeValue, v.Number, labels...)
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.info, prometheus.GaugeValue, 1, append(labels, v.Text)...)
	}
}
