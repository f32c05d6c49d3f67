package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"farewatch-service/internal/domain/entity"
	"farewatch-service/internal/domain/repository"
	"farewatch-service/pkg/logger"

	"gorm.io/gorm"
)

// ErrLookupNotFound is returned for codes missing from the master tables
var ErrLookupNotFound = errors.New("lookup: code not found")

// airlineRow GORM model for m_airlines
type airlineRow struct {
	ID        uint           `gorm:"primaryKey"`
	Code      string         `gorm:"column:code;unique"`
	Name      string         `gorm:"column:name;unique"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (airlineRow) TableName() string {
	return "m_airlines"
}

// airportRow GORM model; airport master data lives in the timezone table
type airportRow struct {
	ID          uint           `gorm:"primaryKey"`
	AirportCode string         `gorm:"column:airportcode;unique"`
	AirportName string         `gorm:"column:airport_name"`
	CityCode    string         `gorm:"column:citycode"`
	CityName    string         `gorm:"column:cityname"`
	TzName      string         `gorm:"column:tzname"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName overrides the default table name
func (airportRow) TableName() string {
	return "m_timezone_list"
}

// GormLookupRepository resolves airline and airport names from Postgres.
// Results, misses included, are cached for the life of the process.
type GormLookupRepository struct {
	db       *gorm.DB
	airlines *lookupCache[entity.Airline]
	airports *lookupCache[entity.Airport]
	logger   logger.Logger
}

var (
	_ repository.AirlineRepository = (*GormLookupRepository)(nil)
	_ repository.AirportRepository = (*GormLookupRepository)(nil)
)

// NewGormLookupRepository creates a new lookup repository
func NewGormLookupRepository(db *gorm.DB, logger logger.Logger) *GormLookupRepository {
	r := &GormLookupRepository{
		db:     db,
		logger: logger.With("component", "lookup"),
	}
	r.airlines = newLookupCache(r.loadAirline)
	r.airports = newLookupCache(r.loadAirport)
	return r
}

// GetByCode finds an airline by IATA code
func (r *GormLookupRepository) GetByCode(ctx context.Context, code string) (*entity.Airline, error) {
	return r.airlines.get(ctx, code)
}

// GetByAirportCode finds an airport by IATA code
func (r *GormLookupRepository) GetByAirportCode(ctx context.Context, code string) (*entity.Airport, error) {
	return r.airports.get(ctx, code)
}

func (r *GormLookupRepository) loadAirline(ctx context.Context, code string) (*entity.Airline, error) {
	var row airlineRow
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&row).Error; err != nil {
		return nil, lookupError("airline", code, err)
	}

	return &entity.Airline{Code: row.Code, Name: row.Name}, nil
}

func (r *GormLookupRepository) loadAirport(ctx context.Context, code string) (*entity.Airport, error) {
	var row airportRow
	if err := r.db.WithContext(ctx).Where("airportcode = ?", code).First(&row).Error; err != nil {
		return nil, lookupError("airport", code, err)
	}

	return &entity.Airport{
		AirportCode: row.AirportCode,
		AirportName: row.AirportName,
		CityCode:    row.CityCode,
		CityName:    row.CityName,
		TzName:      row.TzName,
	}, nil
}

func lookupError(kind, code string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", kind, code, ErrLookupNotFound)
	}
	return fmt.Errorf("failed to look up %s %s: %w", kind, code, err)
}

// lookupCache memoizes a loader by upper-cased code. Not-found results are
// remembered; other errors are retried on the next call.
type lookupCache[T any] struct {
	mu      sync.Mutex
	entries map[string]*T
	load    func(ctx context.Context, code string) (*T, error)
}

func newLookupCache[T any](load func(ctx context.Context, code string) (*T, error)) *lookupCache[T] {
	return &lookupCache[T]{entries: make(map[string]*T), load: load}
}

func (c *lookupCache[T]) get(ctx context.Context, code string) (*T, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	c.mu.Lock()
	v, ok := c.entries[code]
	c.mu.Unlock()
	if ok {
		if v == nil {
			return nil, fmt.Errorf("%s: %w", code, ErrLookupNotFound)
		}
		return v, nil
	}

	v, err := c.load(ctx, code)
	if err != nil && !errors.Is(err, ErrLookupNotFound) {
		return nil, err
	}

	c.mu.Lock()
	c.entries[code] = v
	c.mu.Unlock()
	return v, err
}
