package server

import (
	"context"
	"log/slog"

	"github.com/raterudder/luzygas/pkg/log"
	"github.com/raterudder/luzygas/pkg/sensor"
	"github.com/raterudder/luzygas/pkg/types"
)

// RecordReadings stores every sensor's value in snap. It is meant to be added
// as a coordinator listener.
func (s *Server) RecordReadings(ctx context.Context, snap *types.Snapshot) {
	readings := sensor.Readings(s.mapper.Enumerate(snap), snap, snap.FetchedAt)
	if len(readings) == 0 {
		return
	}
	if err := s.storage.UpsertReadings(ctx, s.entryID, readings); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to record readings", slog.Int("readings", len(readings)), slog.Any("error", err))
		return
	}
	log.Ctx(ctx).DebugContext(ctx, "recorded readings", slog.Int("readings", len(readings)))
}
