package persistence

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoSettings describes how to reach the fare and alert database
type MongoSettings struct {
	URI            string
	Username       string
	Password       string
	Database       string
	ConnectTimeout time.Duration
}

// MongoStore owns a connected client and the selected database
type MongoStore struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// NewMongoStore connects, verifies the primary is reachable and selects the database
func NewMongoStore(ctx context.Context, s MongoSettings) (*MongoStore, error) {
	opts := options.Client().
		ApplyURI(s.URI).
		SetAppName("farewatch").
		SetRetryWrites(true)
	if s.Username != "" && s.Password != "" {
		opts.SetAuth(options.Credential{Username: s.Username, Password: s.Password})
	}

	timeout := s.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoStore{Client: client, DB: client.Database(s.Database)}, nil
}

// Close disconnects within a bounded time
func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Client.Disconnect(ctx)
}
