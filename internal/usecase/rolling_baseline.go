package usecase

import (
	"context"
	"fmt"
	"time"

	"farewatch-service/internal/domain/entity"
	"farewatch-service/internal/domain/repository"

	"github.com/shopspring/decimal"
)

// RollingBaseline computes reference statistics over a partition's history
type RollingBaseline struct {
	store repository.FareRecordRepository
	now   func() time.Time
}

// NewRollingBaseline creates a baseline reader. A nil clock uses time.Now.
func NewRollingBaseline(store repository.FareRecordRepository, now func() time.Time) *RollingBaseline {
	if now == nil {
		now = time.Now
	}
	return &RollingBaseline{store: store, now: now}
}

// RollingAverage returns the mean price of the records collected within the
// last windowDays days. found is false when no record falls in the window.
func (b *RollingBaseline) RollingAverage(ctx context.Context, p entity.Partition, windowDays int) (decimal.Decimal, bool, error) {
	now := b.now().UTC()
	from := now.Add(-time.Duration(windowDays) * 24 * time.Hour)

	sum := decimal.Zero
	count := int64(0)
	for rec, err := range b.store.ReadAll(ctx, p) {
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("failed to read partition %s: %w", p.Key(), err)
		}
		if rec.CollectedAt.Before(from) || rec.CollectedAt.After(now) {
			continue
		}
		sum = sum.Add(rec.Price)
		count++
	}

	if count == 0 {
		return decimal.Zero, false, nil
	}
	return sum.Div(decimal.NewFromInt(count)), true, nil
}

// HistoricalMin returns the lowest price ever stored for the partition
func (b *RollingBaseline) HistoricalMin(ctx context.Context, p entity.Partition) (decimal.Decimal, bool, error) {
	low := decimal.Zero
	found := false
	for rec, err := range b.store.ReadAll(ctx, p) {
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("failed to read partition %s: %w", p.Key(), err)
		}
		if !found || rec.Price.LessThan(low) {
			low = rec.Price
			found = true
		}
	}
	return low, found, nil
}
