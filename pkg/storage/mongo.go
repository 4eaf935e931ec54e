package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultBatchSize bounds a single InsertMany call.
const DefaultBatchSize = 1000

// MongoStorage handles all MongoDB operations.
type MongoStorage struct {
	client *mongo.Client
	dbName string
}

// NewMongoStorage connects to uri and writes into the database named after
// the run.
func NewMongoStorage(ctx context.Context, uri string, runID string) (*MongoStorage, error) {
	if runID == "" {
		return nil, fmt.Errorf("mongo: empty database name")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	return &MongoStorage{
		client: client,
		dbName: runID,
	}, nil
}

// Database returns the database name.
func (s *MongoStorage) Database() string { return s.dbName }

// Close disconnects from MongoDB.
func (s *MongoStorage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// StoreResults stores documents in the named collection.
func (s *MongoStorage) StoreResults(ctx context.Context, results []interface{}, collectionName string) error {
	if len(results) == 0 {
		return nil
	}

	collection := s.client.Database(s.dbName).Collection(collectionName)
	return s.bulkInsert(ctx, collection, results, DefaultBatchSize)
}

// bulkInsert performs batch insertion of documents into a MongoDB collection.
func (s *MongoStorage) bulkInsert(ctx context.Context, collection *mongo.Collection, docs []interface{}, batchSize int) error {
	for _, batch := range batches(docs, batchSize) {
		if _, err := collection.InsertMany(ctx, batch, options.InsertMany().SetOrdered(false)); err != nil {
			return fmt.Errorf("insert into %s: %w", collection.Name(), err)
		}
	}
	return nil
}

// batches splits docs into consecutive slices of at most size elements.
func batches(docs []interface{}, size int) [][]interface{} {
	if size < 1 {
		size = DefaultBatchSize
	}
	var out [][]interface{}
	for i := 0; i < len(docs); i += size {
		end := i + size
		if end > len(docs) {
			end = len(docs)
		}
		batch := make([]interface{}, end-i)
		copy(batch, docs[i:end])
		out = append(out, batch)
	}
	return out
}
