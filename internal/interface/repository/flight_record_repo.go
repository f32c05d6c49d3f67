package repository

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"farewatch-service/internal/domain/entity"
	"farewatch-service/internal/domain/repository"
	"farewatch-service/pkg/logger"
	"farewatch-service/pkg/utils"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// fareDocument is the MongoDB shape of a fare record
type fareDocument struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Partition   string               `bson:"partition"`
	CollectedAt time.Time            `bson:"collectedAt"`
	TravelDate  string               `bson:"travelDate"`
	Origin      string               `bson:"origin"`
	Dest        string               `bson:"dest"`
	Airline     string               `bson:"airline"`
	FlightNo    string               `bson:"flightNo"`
	DepTime     string               `bson:"depTime"`
	ArrTime     string               `bson:"arrTime"`
	Stops       int                  `bson:"stops"`
	Duration    string               `bson:"duration"`
	Price       primitive.Decimal128 `bson:"price"`
	Currency    string               `bson:"currency"`
}

// MongoFareRecordRepository implements FareRecordRepository on a collection
type MongoFareRecordRepository struct {
	collection *mongo.Collection
	logger     logger.Logger
}

// NewMongoFareRecordRepository creates a new fare record repository
func NewMongoFareRecordRepository(db *mongo.Database, logger logger.Logger) repository.FareRecordRepository {
	collection := db.Collection("fare_records")
	log := logger.With("component", "mongo_fare_store")

	// Index on partition + collectedAt for ordered partition scans
	ctx := context.Background()
	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "partition", Value: 1},
			{Key: "collectedAt", Value: 1},
		},
	}
	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		log.Warn("Failed to create fare record index", "error", err)
	}

	return &MongoFareRecordRepository{
		collection: collection,
		logger:     log,
	}
}

// Append inserts a new document for the partition
func (r *MongoFareRecordRepository) Append(ctx context.Context, p entity.Partition, rec *entity.FareRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	doc, err := toFareDocument(p, rec)
	if err != nil {
		return err
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert fare record: %w", err)
	}
	return nil
}

// ReadAll iterates the partition with a cursor in collection order
func (r *MongoFareRecordRepository) ReadAll(ctx context.Context, p entity.Partition) iter.Seq2[*entity.FareRecord, error] {
	return func(yield func(*entity.FareRecord, error) bool) {
		opts := options.Find().SetSort(bson.D{
			{Key: "collectedAt", Value: 1},
			{Key: "_id", Value: 1},
		})
		cursor, err := r.collection.Find(ctx, bson.M{"partition": p.Key()}, opts)
		if err != nil {
			yield(nil, fmt.Errorf("failed to query partition %s: %w", p.Key(), err))
			return
		}
		defer cursor.Close(ctx)

		for cursor.Next(ctx) {
			var doc fareDocument
			if err := cursor.Decode(&doc); err != nil {
				r.logger.Debug("Skipping undecodable document", "partition", p.Key(), "error", err)
				continue
			}
			rec, err := fromFareDocument(&doc)
			if err != nil {
				r.logger.Debug("Skipping malformed document", "partition", p.Key(), "error", err)
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := cursor.Err(); err != nil {
			yield(nil, fmt.Errorf("failed to iterate partition %s: %w", p.Key(), err))
		}
	}
}

// LastRecord finds the newest document of the partition
func (r *MongoFareRecordRepository) LastRecord(ctx context.Context, p entity.Partition) (*entity.FareRecord, bool, error) {
	opts := options.FindOne().SetSort(bson.D{
		{Key: "collectedAt", Value: -1},
		{Key: "_id", Value: -1},
	})
	var doc fareDocument
	err := r.collection.FindOne(ctx, bson.M{"partition": p.Key()}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err == nil {
		if rec, convErr := fromFareDocument(&doc); convErr == nil {
			return rec, true, nil
		}
	}

	// The newest document is unreadable; fall back to the last good one.
	r.logger.Warn("Newest fare document unreadable, scanning partition", "partition", p.Key(), "error", err)
	var last *entity.FareRecord
	for rec, scanErr := range r.ReadAll(ctx, p) {
		if scanErr != nil {
			return nil, false, scanErr
		}
		last = rec
	}
	return last, last != nil, nil
}

func toFareDocument(p entity.Partition, rec *entity.FareRecord) (*fareDocument, error) {
	price, err := primitive.ParseDecimal128(rec.Price.String())
	if err != nil {
		return nil, fmt.Errorf("failed to convert price %s: %w", rec.Price, err)
	}
	return &fareDocument{
		Partition:   p.Key(),
		CollectedAt: rec.CollectedAt.UTC(),
		TravelDate:  utils.FormatDate(rec.TravelDate),
		Origin:      rec.Origin,
		Dest:        rec.Dest,
		Airline:     rec.Airline,
		FlightNo:    rec.FlightNo,
		DepTime:     rec.DepTime,
		ArrTime:     rec.ArrTime,
		Stops:       rec.Stops,
		Duration:    rec.Duration,
		Price:       price,
		Currency:    rec.Currency,
	}, nil
}

func fromFareDocument(doc *fareDocument) (*entity.FareRecord, error) {
	travelDate, err := utils.ParseDate(doc.TravelDate)
	if err != nil {
		return nil, fmt.Errorf("travelDate: %w", err)
	}
	price, err := decimal.NewFromString(doc.Price.String())
	if err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}
	rec := &entity.FareRecord{
		CollectedAt: doc.CollectedAt.UTC(),
		TravelDate:  travelDate,
		Origin:      doc.Origin,
		Dest:        doc.Dest,
		Airline:     doc.Airline,
		FlightNo:    doc.FlightNo,
		DepTime:     doc.DepTime,
		ArrTime:     doc.ArrTime,
		Stops:       doc.Stops,
		Duration:    doc.Duration,
		Price:       price,
		Currency:    doc.Currency,
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}
