// Package store is the document-store adapter: named collections of schemaless
// documents with CRUD, equality/range filters and single-field ordering.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
)

// Document is a flat map of field name to value. Supported value types are
// string, bool, float64 (and the other Go numeric types) and time.Time.
type Document map[string]any

// Snapshot is a document together with its id.
type Snapshot struct {
	ID   string
	Data Document
}

type Op string

const (
	OpEq  Op = "=="
	OpGt  Op = ">"
	OpGte Op = ">="
	OpLt  Op = "<"
	OpLte Op = "<="
)

type Filter struct {
	Field string
	Op    Op
	Value any
}

type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Query is a conjunction of filters with an optional ordering. The zero Query
// matches every document in a collection.
type Query struct {
	Filters   []Filter
	OrderBy   string
	Direction Direction
}

// Where returns a copy of q with one more filter appended.
func (q Query) Where(field string, op Op, value any) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// Order returns a copy of q sorted by field.
func (q Query) Order(field string, dir Direction) Query {
	q.OrderBy = field
	q.Direction = dir
	return q
}

type Collection interface {
	// Add stores doc under a store-generated id and returns that id.
	Add(ctx context.Context, doc Document) (string, error)
	// Create stores doc under id, failing with ErrAlreadyExists if id is taken.
	Create(ctx context.Context, id string, doc Document) error
	Get(ctx context.Context, id string) (Document, error)
	// Merge overwrites only the given fields of an existing document.
	Merge(ctx context.Context, id string, fields Document) error
	Delete(ctx context.Context, id string) error
	Find(ctx context.Context, q Query) ([]Snapshot, error)
}

type Store interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close() error
}

var fieldName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Validate rejects malformed field names, unknown operators and unsupported values.
func (q Query) Validate() error {
	for _, f := range q.Filters {
		if !fieldName.MatchString(f.Field) {
			return fmt.Errorf("invalid filter field %q", f.Field)
		}
		switch f.Op {
		case OpEq, OpGt, OpGte, OpLt, OpLte:
		default:
			return fmt.Errorf("invalid filter operator %q", f.Op)
		}
		if _, ok := kindOf(f.Value); !ok {
			return fmt.Errorf("unsupported filter value %T for %s", f.Value, f.Field)
		}
	}
	if q.OrderBy != "" && !fieldName.MatchString(q.OrderBy) {
		return fmt.Errorf("invalid order field %q", q.OrderBy)
	}
	return nil
}

type kind int

const (
	kindString kind = iota
	kindNumber
	kindTime
	kindBool
)

func kindOf(v any) (kind, bool) {
	switch v.(type) {
	case string:
		return kindString, true
	case float64, float32, int, int32, int64:
		return kindNumber, true
	case time.Time:
		return kindTime, true
	case bool:
		return kindBool, true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func cloneDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
