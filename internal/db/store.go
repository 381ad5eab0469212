// Package db provides document store access for the job tracker.
//
// Every backend stores schemaless documents addressed by collection name and
// document id. Backends: MongoDB, PostgreSQL (JSONB) and an in-process map.
package db

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Update when the document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrConflict is returned by Create when a document with the id already exists.
var ErrConflict = errors.New("document already exists")

// Drivers accepted by Open.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Document is a stored document with its id kept apart from its fields.
type Document struct {
	ID     string
	Fields map[string]any
}

// DocumentStore is the narrow persistence contract consumed by the services.
type DocumentStore interface {
	// GetAll returns every document in the collection.
	GetAll(ctx context.Context, collection string) ([]Document, error)
	// GetByID returns nil, nil when no document has the id.
	GetByID(ctx context.Context, collection, id string) (*Document, error)
	// Create stores fields and returns the document id. A non-empty string
	// "id" field is used as the id; otherwise one is generated. Returns
	// ErrConflict when the id is taken.
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)
	// Update merges fields into the document. Returns ErrNotFound when absent.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes the document. Deleting a missing id is not an error.
	Delete(ctx context.Context, collection, id string) error
	// Count returns the number of documents in the collection.
	Count(ctx context.Context, collection string) (int64, error)
	// GetPage returns up to limit documents starting at offset, in a stable order.
	GetPage(ctx context.Context, collection string, limit, offset int) ([]Document, error)
	// FindOne returns the first document whose field equals value, or nil, nil.
	FindOne(ctx context.Context, collection, field, value string) (*Document, error)
	// Close releases the underlying connections.
	Close(ctx context.Context) error
}

// Options configures Open.
type Options struct {
	Driver      string
	MongoURL    string
	MongoDB     string
	DatabaseURL string
}

// Open connects to the document store selected by opts.Driver.
func Open(ctx context.Context, opts Options) (DocumentStore, error) {
	switch opts.Driver {
	case DriverMongo:
		store, err := ConnectMongo(ctx, opts.MongoURL, opts.MongoDB)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverPostgres:
		store, err := Connect(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close(ctx)
			return nil, err
		}
		return store, nil
	case DriverMemory, "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %q", opts.Driver)
	}
}

// splitID separates a caller-supplied id from the fields to store.
// The returned map is a copy; the input is not modified.
func splitID(fields map[string]any) (string, map[string]any) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	id, _ := out["id"].(string)
	delete(out, "id")
	if id == "" {
		id = uuid.New().String()
	}
	return id, out
}

// sortedKeys returns the keys of m in lexical order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
