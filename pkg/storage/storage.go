package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/raterudder/luzygas/pkg/types"
)

// Database persists derived sensor readings. Readings are a record only, they
// are never read back into a snapshot.
type Database interface {
	// UpsertReadings adds or replaces readings for the entry. A reading is
	// keyed by its sensor and timestamp.
	UpsertReadings(ctx context.Context, entryID string, readings []types.Reading) error

	// GetReadingHistory returns a sensor's readings in [start, end) ordered by
	// timestamp.
	GetReadingHistory(ctx context.Context, entryID, sensorID string, start, end time.Time) ([]types.Reading, error)

	// GetLatestReadingTime returns the timestamp of the newest reading or the
	// zero time if there are none.
	GetLatestReadingTime(ctx context.Context, entryID string) (time.Time, error)

	// Lifecycle
	Close() error
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "none", "Storage provider to use (available: none, firestore)")

	var p struct{ Database }

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "none", "":
			p.Database = None{}
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}

// None discards readings.
type None struct{}

var _ Database = None{}

// UpsertReadings implements Database.
func (None) UpsertReadings(context.Context, string, []types.Reading) error {
	return nil
}

// GetReadingHistory implements Database.
func (None) GetReadingHistory(context.Context, string, string, time.Time, time.Time) ([]types.Reading, error) {
	return []types.Reading{}, nil
}

// GetLatestReadingTime implements Database.
func (None) GetLatestReadingTime(context.Context, string) (time.Time, error) {
	return time.Time{}, nil
}

// Close implements Database.
func (None) Close() error {
	return nil
}
