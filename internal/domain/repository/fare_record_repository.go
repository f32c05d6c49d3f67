package repository

import (
	"context"
	"iter"

	"farewatch-service/internal/domain/entity"
)

// FareRecordRepository is the append-only fare history store
type FareRecordRepository interface {
	// Append adds rec as the newest entry of the partition, creating the
	// partition on first write.
	Append(ctx context.Context, p entity.Partition, rec *entity.FareRecord) error

	// ReadAll yields the partition's records in append order. Each range over
	// the sequence reads the store afresh. Malformed entries are skipped.
	ReadAll(ctx context.Context, p entity.Partition) iter.Seq2[*entity.FareRecord, error]

	// LastRecord returns the newest record, or found=false when the partition
	// is empty or absent.
	LastRecord(ctx context.Context, p entity.Partition) (rec *entity.FareRecord, found bool, err error)
}
