package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/raterudder/luzygas/pkg/coordinator"
	"github.com/raterudder/luzygas/pkg/log"
	"github.com/raterudder/luzygas/pkg/sensor"
	"github.com/raterudder/luzygas/pkg/types"
)

type sensorResponse struct {
	sensor.Sensor
	State any         `json:"state"`
	Value types.Value `json:"value"`
}

func newSensorResponse(s sensor.Sensor, snap *types.Snapshot) sensorResponse {
	v := s.Value(snap)
	return sensorResponse{
		Sensor: s,
		State:  v.Any(),
		Value:  v,
	}
}

func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	snap := s.updater.Snapshot()
	sensors := s.mapper.Enumerate(snap)
	res := make([]sensorResponse, 0, len(sensors))
	for _, sn := range sensors {
		res = append(res, newSensorResponse(sn, snap))
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, res)
}

func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	snap := s.updater.Snapshot()
	sn, ok := sensor.Find(s.mapper.Enumerate(snap), r.PathValue("id"))
	if !ok {
		writeJSONError(w, "sensor not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, newSensorResponse(sn, snap))
}

func (s *Server) handleListContracts(w http.ResponseWriter, r *http.Request) {
	snap := s.updater.Snapshot()
	contracts := []types.Contract{}
	if snap != nil {
		for _, id := range snap.ContractIDs() {
			contracts = append(contracts, snap.Contracts[id].Contract)
		}
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, contracts)
}

type statusResponse struct {
	Status       coordinator.Status `json:"status"`
	FetchedAt    time.Time          `json:"fetchedAt,omitzero"`
	LastRecorded time.Time          `json:"lastRecorded,omitzero"`
	Currency     string             `json:"currency"`
	Sensors      int                `json:"sensors"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := s.updater.Snapshot()
	res := statusResponse{
		Status:   s.updater.Status(),
		Currency: s.mapper.Currency(),
		Sensors:  len(s.mapper.Enumerate(snap)),
	}
	if snap != nil {
		res.FetchedAt = snap.FetchedAt
	}
	if lastRecorded, err := s.storage.GetLatestReadingTime(ctx, s.entryID); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to get latest reading time", slog.Any("error", err))
	} else {
		res.LastRecorded = lastRecorded
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, res)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	snap, err := s.updater.Refresh(r.Context())
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, struct {
		FetchedAt time.Time `json:"fetchedAt"`
		Contracts int       `json:"contracts"`
	}{
		FetchedAt: snap.FetchedAt,
		Contracts: len(snap.Contracts),
	})
}
