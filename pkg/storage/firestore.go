package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/raterudder/luzygas/pkg/log"
	"github.com/raterudder/luzygas/pkg/types"
)

// FirestoreProvider implements the Database interface using Google Cloud
// Firestore. Readings are stored under entries/{entryID}/readings.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

var _ Database = (*FirestoreProvider)(nil)

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// the project ID can be inferred from the environment
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) getCollection(entryID, name string) (*firestore.CollectionRef, error) {
	if entryID == "" {
		return nil, fmt.Errorf("entryID cannot be empty")
	}
	return f.client.Collection("entries").Doc(entryID).Collection(name), nil
}

// readingDocID sorts a sensor's readings by time so history can be read with
// a document ID range.
func readingDocID(sensorID string, ts time.Time) string {
	return sensorID + "_" + ts.UTC().Format(time.RFC3339)
}

// UpsertReadings writes every reading with a bulk writer.
func (f *FirestoreProvider) UpsertReadings(ctx context.Context, entryID string, readings []types.Reading) error {
	if len(readings) == 0 {
		return nil
	}
	coll, err := f.getCollection(entryID, "readings")
	if err != nil {
		return err
	}

	bw := f.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(readings))
	for _, r := range readings {
		if r.SensorID == "" || r.Timestamp.IsZero() {
			bw.End()
			return fmt.Errorf("reading missing sensorID or timestamp")
		}
		jsonBytes, err := json.Marshal(r)
		if err != nil {
			bw.End()
			return fmt.Errorf("failed to marshal reading: %w", err)
		}
		job, err := bw.Set(coll.Doc(readingDocID(r.SensorID, r.Timestamp)), map[string]interface{}{
			"json":      string(jsonBytes),
			"sensorID":  r.SensorID,
			"timestamp": r.Timestamp,
		})
		if err != nil {
			bw.End()
			return fmt.Errorf("failed to queue reading %s: %w", r.SensorID, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("failed to upsert reading: %w", err)
		}
	}
	return nil
}

// GetReadingHistory uses a document ID range over {sensorID}_{timestamp}.
func (f *FirestoreProvider) GetReadingHistory(ctx context.Context, entryID, sensorID string, start, end time.Time) ([]types.Reading, error) {
	if sensorID == "" {
		return nil, fmt.Errorf("sensorID cannot be empty")
	}
	coll, err := f.getCollection(entryID, "readings")
	if err != nil {
		return nil, err
	}
	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(readingDocID(sensorID, start))).
		Where(firestore.DocumentID, "<", coll.Doc(readingDocID(sensorID, end))).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	readings := []types.Reading{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating readings: %w", err)
		}

		val, err := doc.DataAt("json")
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "reading doc missing json", slog.String("docID", doc.Ref.ID), slog.String("entryID", entryID), slog.Any("err", err))
			return nil, fmt.Errorf("reading doc %s missing 'json' field: %w", doc.Ref.ID, err)
		}
		jsonStr, ok := val.(string)
		if !ok {
			log.Ctx(ctx).WarnContext(ctx, "reading doc json not string", slog.String("docID", doc.Ref.ID), slog.String("entryID", entryID))
			return nil, fmt.Errorf("reading doc %s 'json' field is not string", doc.Ref.ID)
		}

		var r types.Reading
		if err := json.Unmarshal([]byte(jsonStr), &r); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal reading", slog.String("docID", doc.Ref.ID), slog.String("entryID", entryID), slog.Any("err", err))
			return nil, fmt.Errorf("failed to unmarshal reading (id=%s): %w", doc.Ref.ID, err)
		}
		if r.SensorID != sensorID {
			continue
		}
		readings = append(readings, r)
	}
	return readings, nil
}

// GetLatestReadingTime retrieves the timestamp of the newest reading.
func (f *FirestoreProvider) GetLatestReadingTime(ctx context.Context, entryID string) (time.Time, error) {
	coll, err := f.getCollection(entryID, "readings")
	if err != nil {
		return time.Time{}, err
	}
	iter := coll.
		OrderBy("timestamp", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return time.Time{}, nil
	}
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to get latest reading doc: %w", err)
	}

	v, err := doc.DataAt("timestamp")
	if err != nil {
		return time.Time{}, fmt.Errorf("reading doc %s missing timestamp: %w", doc.Ref.ID, err)
	}
	ts, ok := v.(time.Time)
	if !ok {
		return time.Time{}, fmt.Errorf("reading doc %s timestamp is not a time", doc.Ref.ID)
	}
	return ts, nil
}
