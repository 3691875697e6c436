package storagemock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/raterudder/luzygas/pkg/storage"
	"github.com/raterudder/luzygas/pkg/types"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) UpsertReadings(ctx context.Context, entryID string, readings []types.Reading) error {
	args := m.Called(ctx, entryID, readings)
	return args.Error(0)
}

func (m *MockDatabase) GetReadingHistory(ctx context.Context, entryID, sensorID string, start, end time.Time) ([]types.Reading, error) {
	args := m.Called(ctx, entryID, sensorID, start, end)
	if v := args.Get(0); v != nil {
		return v.([]types.Reading), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDatabase) GetLatestReadingTime(ctx context.Context, entryID string) (time.Time, error) {
	args := m.Called(ctx, entryID)
	if len(args) > 0 {
		return args.Get(0).(time.Time), args.Error(1)
	}
	return time.Time{}, nil
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
