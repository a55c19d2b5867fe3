package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore maps each collection onto a MongoDB collection with _id as the
// document id. Times round-trip as BSON dates (UTC, millisecond precision).
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetConnectTimeout(10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return &MongoStore{client: client, db: client.Database(database)}, nil
}

func (s *MongoStore) Collection(name string) Collection {
	return &mongoCollection{coll: s.db.Collection(name)}
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c *mongoCollection) Add(ctx context.Context, doc Document) (string, error) {
	id := uuid.NewString()
	if err := c.Create(ctx, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (c *mongoCollection) Create(ctx context.Context, id string, doc Document) error {
	m := bson.M{"_id": id}
	for k, v := range doc {
		m[k] = v
	}
	if _, err := c.coll.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert into %s: %w", c.coll.Name(), err)
	}
	return nil
}

func (c *mongoCollection) Get(ctx context.Context, id string) (Document, error) {
	var m bson.M
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from %s: %w", c.coll.Name(), err)
	}
	_, doc := fromBSON(m)
	return doc, nil
}

func (c *mongoCollection) Merge(ctx context.Context, id string, fields Document) error {
	res, err := c.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", c.coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *mongoCollection) Delete(ctx context.Context, id string) error {
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", c.coll.Name(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *mongoCollection) Find(ctx context.Context, q Query) ([]Snapshot, error) {
	filter, err := buildMongoFilter(q)
	if err != nil {
		return nil, err
	}
	opts := options.Find()
	if sort := buildMongoSort(q); sort != nil {
		opts.SetSort(sort)
	}

	cursor, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.coll.Name(), err)
	}
	defer cursor.Close(ctx)

	var out []Snapshot
	for cursor.Next(ctx) {
		var m bson.M
		if err := cursor.Decode(&m); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", c.coll.Name(), err)
		}
		id, doc := fromBSON(m)
		out = append(out, Snapshot{ID: id, Data: doc})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", c.coll.Name(), err)
	}
	return out, nil
}

var mongoOps = map[Op]string{
	OpEq:  "$eq",
	OpGt:  "$gt",
	OpGte: "$gte",
	OpLt:  "$lt",
	OpLte: "$lte",
}

func buildMongoFilter(q Query) (bson.D, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if len(q.Filters) == 0 {
		return bson.D{}, nil
	}
	clauses := make(bson.A, 0, len(q.Filters))
	for _, f := range q.Filters {
		clauses = append(clauses, bson.D{{Key: f.Field, Value: bson.D{{Key: mongoOps[f.Op], Value: f.Value}}}})
	}
	return bson.D{{Key: "$and", Value: clauses}}, nil
}

func buildMongoSort(q Query) bson.D {
	if q.OrderBy == "" {
		return nil
	}
	dir := 1
	if q.Direction == Descending {
		dir = -1
	}
	return bson.D{{Key: q.OrderBy, Value: dir}, {Key: "_id", Value: 1}}
}

func fromBSON(m bson.M) (string, Document) {
	id, _ := m["_id"].(string)
	doc := make(Document, len(m))
	for k, v := range m {
		if k == "_id" {
			continue
		}
		if dt, ok := v.(primitive.DateTime); ok {
			v = dt.Time().UTC()
		}
		doc[k] = v
	}
	return id, doc
}
