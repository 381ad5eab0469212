package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore maps each collection onto a MongoDB collection with string _id values.
type MongoStore struct {
	client   *mongo.Client
	database *mongo.Database
}

// ConnectMongo opens a client for uri and verifies it with a ping.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoStore{
		client:   client,
		database: client.Database(database),
	}, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect mongodb: %w", err)
	}
	return nil
}

// Drop removes a whole collection. Used by tests and maintenance tooling.
func (s *MongoStore) Drop(ctx context.Context, collection string) error {
	return s.database.Collection(collection).Drop(ctx)
}

// GetAll returns every document ordered by _id.
func (s *MongoStore) GetAll(ctx context.Context, collection string) ([]Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.database.Collection(collection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	return decodeCursor(ctx, cursor)
}

// GetByID returns the document or nil when it does not exist.
func (s *MongoStore) GetByID(ctx context.Context, collection, id string) (*Document, error) {
	filter := bson.D{{Key: "_id", Value: id}}

	var raw bson.M
	err := s.database.Collection(collection).FindOne(ctx, filter).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	doc := toDocument(raw)
	return &doc, nil
}

// Create inserts a document and returns its id.
func (s *MongoStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id, data := splitID(fields)

	doc := bson.D{{Key: "_id", Value: id}}
	for _, k := range sortedKeys(data) {
		doc = append(doc, bson.E{Key: k, Value: data[k]})
	}

	if _, err := s.database.Collection(collection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("failed to create %s document %s: %w", collection, id, ErrConflict)
		}
		return "", fmt.Errorf("failed to create %s document: %w", collection, err)
	}
	return id, nil
}

// Update applies fields with $set.
func (s *MongoStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	coll := s.database.Collection(collection)
	filter := bson.D{{Key: "_id", Value: id}}

	// $set rejects an empty document, so an empty update is an existence check.
	if len(fields) == 0 {
		n, err := coll.CountDocuments(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	}

	set := bson.D{}
	for _, k := range sortedKeys(fields) {
		if k == "id" || k == "_id" {
			continue
		}
		set = append(set, bson.E{Key: k, Value: fields[k]})
	}

	result, err := coll.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the document if present.
func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	filter := bson.D{{Key: "_id", Value: id}}
	if _, err := s.database.Collection(collection).DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Count returns the number of documents in the collection.
func (s *MongoStore) Count(ctx context.Context, collection string) (int64, error) {
	n, err := s.database.Collection(collection).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", collection, err)
	}
	return n, nil
}

// GetPage returns one page of documents ordered by _id.
func (s *MongoStore) GetPage(ctx context.Context, collection string, limit, offset int) ([]Document, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := s.database.Collection(collection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to page %s: %w", collection, err)
	}
	return decodeCursor(ctx, cursor)
}

// FindOne returns the first document whose field equals value.
func (s *MongoStore) FindOne(ctx context.Context, collection, field, value string) (*Document, error) {
	filter := bson.D{{Key: field, Value: value}}

	var raw bson.M
	err := s.database.Collection(collection).FindOne(ctx, filter).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find %s by %s: %w", collection, field, err)
	}
	doc := toDocument(raw)
	return &doc, nil
}

func decodeCursor(ctx context.Context, cursor *mongo.Cursor) ([]Document, error) {
	defer cursor.Close(ctx)

	var results []bson.M
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}

	docs := make([]Document, 0, len(results))
	for _, raw := range results {
		docs = append(docs, toDocument(raw))
	}
	return docs, nil
}

func toDocument(raw bson.M) Document {
	id := fmt.Sprint(raw["_id"])
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		fields[k] = v
	}
	return Document{ID: id, Fields: fields}
}
