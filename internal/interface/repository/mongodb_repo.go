package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"farewatch-service/internal/domain/entity"
	"farewatch-service/internal/domain/repository"
	"farewatch-service/pkg/utils"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// alertDocument is the MongoDB shape of a fired alert
type alertDocument struct {
	ID             primitive.ObjectID    `bson:"_id,omitempty"`
	Partition      string                `bson:"partition"`
	Reasons        []string              `bson:"reasons"`
	Route          string                `bson:"route"`
	TravelDate     string                `bson:"travelDate"`
	Airline        string                `bson:"airline"`
	FlightNo       string                `bson:"flightNo"`
	Currency       string                `bson:"currency"`
	Price          primitive.Decimal128  `bson:"price"`
	PreviousPrice  *primitive.Decimal128 `bson:"previousPrice,omitempty"`
	Baseline       *primitive.Decimal128 `bson:"baseline,omitempty"`
	AllTimeLow     *primitive.Decimal128 `bson:"allTimeLow,omitempty"`
	ThresholdRatio float64               `bson:"thresholdRatio"`
	Status         string                `bson:"status"`
	ErrorDetail    string                `bson:"errorDetail,omitempty"`
	CollectedAt    time.Time             `bson:"collectedAt"`
	CreatedAt      time.Time             `bson:"createdAt"`
}

// MongoAlertRepository implements the AlertRepository interface
type MongoAlertRepository struct {
	collection *mongo.Collection
}

// NewMongoAlertRepository creates a new MongoDB alert repository
func NewMongoAlertRepository(db *mongo.Database) repository.AlertRepository {
	collection := db.Collection("fare_alerts")

	// Compound index for listing a partition's alerts newest first
	ctx := context.Background()
	collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "partition", Value: 1},
			{Key: "createdAt", Value: -1},
		},
	})

	return &MongoAlertRepository{
		collection: collection,
	}
}

// Save stores an alert
func (r *MongoAlertRepository) Save(ctx context.Context, alert *entity.FareAlert) error {
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	doc, err := toAlertDocument(alert)
	if err != nil {
		return err
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		alert.ID = oid.Hex()
	}
	return nil
}

// FindByPartition returns the newest alerts of a partition
func (r *MongoAlertRepository) FindByPartition(ctx context.Context, partitionKey string, limit int) ([]*entity.FareAlert, error) {
	limit64 := int64(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"partition": partitionKey}, &options.FindOptions{
		Limit: &limit64,
		Sort:  bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []alertDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	alerts := make([]*entity.FareAlert, 0, len(docs))
	for i := range docs {
		alerts = append(alerts, fromAlertDocument(&docs[i]))
	}
	return alerts, nil
}

func toAlertDocument(alert *entity.FareAlert) (*alertDocument, error) {
	price, err := primitive.ParseDecimal128(alert.Record.Price.String())
	if err != nil {
		return nil, fmt.Errorf("failed to convert price: %w", err)
	}
	reasons := make([]string, len(alert.Reasons))
	for i, reason := range alert.Reasons {
		reasons[i] = string(reason)
	}
	return &alertDocument{
		Partition:      alert.PartitionKey,
		Reasons:        reasons,
		Route:          alert.Record.Route(),
		TravelDate:     alert.Record.TravelDateString(),
		Airline:        alert.Record.Airline,
		FlightNo:       alert.Record.FlightNo,
		Currency:       alert.Record.Currency,
		Price:          price,
		PreviousPrice:  optionalDecimal128(alert.PreviousPrice),
		Baseline:       optionalDecimal128(alert.Baseline),
		AllTimeLow:     optionalDecimal128(alert.AllTimeLow),
		ThresholdRatio: alert.ThresholdRate,
		Status:         alert.Status,
		ErrorDetail:    alert.ErrorDetail,
		CollectedAt:    alert.Record.CollectedAt,
		CreatedAt:      alert.CreatedAt,
	}, nil
}

func fromAlertDocument(doc *alertDocument) *entity.FareAlert {
	reasons := make([]entity.AlertReason, len(doc.Reasons))
	for i, reason := range doc.Reasons {
		reasons[i] = entity.AlertReason(reason)
	}
	price, _ := decimal.NewFromString(doc.Price.String())
	origin, dest, _ := strings.Cut(doc.Route, "-")
	travelDate, _ := utils.ParseDate(doc.TravelDate)
	return &entity.FareAlert{
		ID:           doc.ID.Hex(),
		PartitionKey: doc.Partition,
		Reasons:      reasons,
		Record: entity.FareRecord{
			CollectedAt: doc.CollectedAt,
			TravelDate:  travelDate,
			Origin:      origin,
			Dest:        dest,
			Airline:     doc.Airline,
			FlightNo:    doc.FlightNo,
			Price:       price,
			Currency:    doc.Currency,
		},
		PreviousPrice: optionalDecimal(doc.PreviousPrice),
		Baseline:      optionalDecimal(doc.Baseline),
		AllTimeLow:    optionalDecimal(doc.AllTimeLow),
		ThresholdRate: doc.ThresholdRatio,
		Status:        doc.Status,
		ErrorDetail:   doc.ErrorDetail,
		CreatedAt:     doc.CreatedAt,
	}
}

func optionalDecimal128(d *decimal.Decimal) *primitive.Decimal128 {
	if d == nil {
		return nil
	}
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return nil
	}
	return &v
}

func optionalDecimal(d *primitive.Decimal128) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v, err := decimal.NewFromString(d.String())
	if err != nil {
		return nil
	}
	return &v
}
