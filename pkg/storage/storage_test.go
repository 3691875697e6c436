package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raterudder/luzygas/pkg/types"
)

func TestNone(t *testing.T) {
	ctx := context.Background()
	var db Database = None{}

	require.NoError(t, db.UpsertReadings(ctx, "entry", []types.Reading{{SensorID: "a", Timestamp: time.Now()}}))

	got, err := db.GetReadingHistory(ctx, "entry", "a", time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	latest, err := db.GetLatestReadingTime(ctx, "entry")
	require.NoError(t, err)
	assert.True(t, latest.IsZero())

	assert.NoError(t, db.Close())
}

func TestReadingDocID(t *testing.T) {
	ts := time.Date(2024, 2, 10, 8, 30, 0, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, "h1_e1_amount_2024-02-10T07:30:00Z", readingDocID("h1_e1_amount", ts))
}
