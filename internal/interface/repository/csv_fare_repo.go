package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"farewatch-service/internal/domain/entity"
	"farewatch-service/internal/domain/repository"
	"farewatch-service/pkg/logger"
	"farewatch-service/pkg/utils"

	"github.com/shopspring/decimal"
)

// FareCSVHeader is the fixed column order of every partition file.
var FareCSVHeader = []string{
	"collected_at_utc", "travel_date", "origin", "dest", "airline",
	"flight_no", "dep_time", "arr_time", "stops", "duration", "price", "currency",
}

// CSVFareRecordRepository stores each partition as an append-only CSV file
type CSVFareRecordRepository struct {
	dataDir string
	logger  logger.Logger
}

// NewCSVFareRecordRepository creates the data directory if needed
func NewCSVFareRecordRepository(dataDir string, logger logger.Logger) (repository.FareRecordRepository, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir %s: %w", dataDir, err)
	}
	return &CSVFareRecordRepository{
		dataDir: dataDir,
		logger:  logger.With("component", "csv_fare_store"),
	}, nil
}

// PartitionPath returns the file backing a partition: prices_<key>.csv for
// direct series, month_<key>.csv for cheapest-of-month series.
func (r *CSVFareRecordRepository) PartitionPath(p entity.Partition) string {
	prefix := "prices"
	if p.IsMonthly() {
		prefix = "month"
	}
	return filepath.Join(r.dataDir, fmt.Sprintf("%s_%s.csv", prefix, p.Key()))
}

// Append writes rec as the last row, writing the header first on a new file
func (r *CSVFareRecordRepository) Append(ctx context.Context, p entity.Partition, rec *entity.FareRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	path := r.PartitionPath(p)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open partition %s: %w", p.Key(), err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat partition %s: %w", p.Key(), err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(FareCSVHeader); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	} else {
		// A run killed mid-write can leave a row without its newline.
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, info.Size()-1); err != nil {
			return fmt.Errorf("failed to read partition tail: %w", err)
		}
		if last[0] != '\n' {
			r.logger.Warn("Terminating partial trailing row", "partition", p.Key())
			if _, err := f.WriteString("\n"); err != nil {
				return fmt.Errorf("failed to terminate partial row: %w", err)
			}
		}
	}

	if err := w.Write(encodeFareRow(rec)); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush row: %w", err)
	}
	return f.Sync()
}

// ReadAll streams the partition file row by row
func (r *CSVFareRecordRepository) ReadAll(ctx context.Context, p entity.Partition) iter.Seq2[*entity.FareRecord, error] {
	return func(yield func(*entity.FareRecord, error) bool) {
		f, err := os.Open(r.PartitionPath(p))
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		if err != nil {
			yield(nil, fmt.Errorf("failed to open partition %s: %w", p.Key(), err))
			return
		}
		defer f.Close()

		reader := csv.NewReader(f)
		reader.FieldsPerRecord = -1

		for line := 1; ; line++ {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			row, err := reader.Read()
			if err == io.EOF {
				return
			}
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				r.logger.Debug("Skipping unparsable row", "partition", p.Key(), "line", line, "error", err)
				continue
			}
			if err != nil {
				yield(nil, fmt.Errorf("failed to read partition %s: %w", p.Key(), err))
				return
			}
			if len(row) > 0 && row[0] == FareCSVHeader[0] {
				continue
			}

			rec, err := decodeFareRow(row)
			if err != nil {
				r.logger.Debug("Skipping malformed row", "partition", p.Key(), "line", line, "error", err)
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// LastRecord scans the partition and keeps the final well-formed row
func (r *CSVFareRecordRepository) LastRecord(ctx context.Context, p entity.Partition) (*entity.FareRecord, bool, error) {
	var last *entity.FareRecord
	for rec, err := range r.ReadAll(ctx, p) {
		if err != nil {
			return nil, false, err
		}
		last = rec
	}
	return last, last != nil, nil
}

func encodeFareRow(rec *entity.FareRecord) []string {
	return []string{
		rec.CollectedAt.UTC().Format(time.RFC3339),
		utils.FormatDate(rec.TravelDate),
		rec.Origin,
		rec.Dest,
		rec.Airline,
		rec.FlightNo,
		rec.DepTime,
		rec.ArrTime,
		strconv.Itoa(rec.Stops),
		rec.Duration,
		rec.Price.String(),
		rec.Currency,
	}
}

func decodeFareRow(row []string) (*entity.FareRecord, error) {
	if len(row) != len(FareCSVHeader) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(FareCSVHeader), len(row))
	}
	collectedAt, err := time.Parse(time.RFC3339, row[0])
	if err != nil {
		return nil, fmt.Errorf("collected_at_utc: %w", err)
	}
	travelDate, err := utils.ParseDate(row[1])
	if err != nil {
		return nil, fmt.Errorf("travel_date: %w", err)
	}
	stops, err := strconv.Atoi(row[8])
	if err != nil {
		return nil, fmt.Errorf("stops: %w", err)
	}
	price, err := decimal.NewFromString(row[10])
	if err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}
	if len(row[11]) != 3 {
		return nil, fmt.Errorf("currency: invalid code %q", row[11])
	}

	rec := &entity.FareRecord{
		CollectedAt: collectedAt.UTC(),
		TravelDate:  travelDate,
		Origin:      row[2],
		Dest:        row[3],
		Airline:     row[4],
		FlightNo:    row[5],
		DepTime:     row[6],
		ArrTime:     row[7],
		Stops:       stops,
		Duration:    row[9],
		Price:       price,
		Currency:    row[11],
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}
