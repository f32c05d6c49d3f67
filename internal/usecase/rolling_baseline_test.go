package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"farewatch-service/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPartition = entity.Partition{Origin: "ICN", Dest: "NRT", Airline: "KE"}

func seed(store *memStore, p entity.Partition, recs ...*entity.FareRecord) {
	for _, rec := range recs {
		_ = store.Append(context.Background(), p, rec)
	}
}

func TestRollingAverage_EmptyPartitionIsAbsent(t *testing.T) {
	b := NewRollingBaseline(newMemStore(), clock)

	avg, found, err := b.RollingAverage(context.Background(), testPartition, 7)

	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, avg.IsZero())
}

func TestRollingAverage_NothingInWindowIsAbsent(t *testing.T) {
	store := newMemStore()
	seed(store, testPartition, fare("100000", fixedNow.AddDate(0, 0, -10)))

	_, found, err := NewRollingBaseline(store, clock).RollingAverage(context.Background(), testPartition, 7)

	require.NoError(t, err)
	assert.False(t, found)
}

func TestRollingAverage_MeanOfWindow(t *testing.T) {
	store := newMemStore()
	seed(store, testPartition,
		fare("10", fixedNow.AddDate(0, 0, -10)),
		fare("90000", fixedNow.AddDate(0, 0, -7)),
		fare("100000", fixedNow.AddDate(0, 0, -2)),
		fare("110000", fixedNow),
		fare("1", fixedNow.Add(time.Hour)),
	)

	avg, found, err := NewRollingBaseline(store, clock).RollingAverage(context.Background(), testPartition, 7)

	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "100000", avg.String())
}

func TestRollingAverage_ZeroMeanIsPresent(t *testing.T) {
	store := newMemStore()
	seed(store, testPartition, fare("0", fixedNow.Add(-time.Hour)))

	avg, found, err := NewRollingBaseline(store, clock).RollingAverage(context.Background(), testPartition, 7)

	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, avg.IsZero())
}

func TestRollingAverage_ReadErrorPropagates(t *testing.T) {
	store := newMemStore()
	store.readErr = errors.New("disk gone")

	_, _, err := NewRollingBaseline(store, clock).RollingAverage(context.Background(), testPartition, 7)

	assert.ErrorIs(t, err, store.readErr)
}

func TestHistoricalMin(t *testing.T) {
	store := newMemStore()
	b := NewRollingBaseline(store, clock)

	_, found, err := b.HistoricalMin(context.Background(), testPartition)
	require.NoError(t, err)
	assert.False(t, found)

	seed(store, testPartition,
		fare("100000", fixedNow.AddDate(0, -3, 0)),
		fare("88000", fixedNow.AddDate(0, -2, 0)),
		fare("95000", fixedNow),
	)

	low, found, err := b.HistoricalMin(context.Background(), testPartition)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "88000", low.String())
}
