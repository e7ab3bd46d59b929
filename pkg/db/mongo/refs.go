package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListUpdate is the outcome of a single-document set edit.
type ListUpdate struct {
	Matched bool
	Changed bool
}

// AddToSet adds value to the array field of the document with the given hex
// id. Adding a value already present leaves the array unchanged.
func AddToSet(ctx context.Context, coll *mongo.Collection, id, field, value string) (ListUpdate, error) {
	return editSet(ctx, coll, id, bson.M{"$addToSet": bson.M{field: value}})
}

// Pull removes every occurrence of value from the array field.
func Pull(ctx context.Context, coll *mongo.Collection, id, field, value string) (ListUpdate, error) {
	return editSet(ctx, coll, id, bson.M{"$pull": bson.M{field: value}})
}

func editSet(ctx context.Context, coll *mongo.Collection, id string, update bson.M) (ListUpdate, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ListUpdate{}, nil
	}

	ctx, cancel := WithTimeout(ctx, DefaultOpTimeout)
	defer cancel()

	res, err := coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return ListUpdate{}, fmt.Errorf("failed to update %s: %w", coll.Name(), err)
	}
	return ListUpdate{Matched: res.MatchedCount > 0, Changed: res.ModifiedCount > 0}, nil
}

// FindByIDs loads the documents whose hex ids are listed, decoded into T.
// Malformed ids are skipped.
func FindByIDs[T any](ctx context.Context, coll *mongo.Collection, ids []string, projection bson.M) ([]T, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return nil, nil
	}

	ctx, cancel := WithTimeout(ctx, DefaultOpTimeout)
	defer cancel()

	opts := options.Find()
	if projection != nil {
		opts.SetProjection(projection)
	}
	cursor, err := coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	var out []T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

// ForEachList streams (id, array) pairs for every document that has a
// non-empty array field.
func ForEachList(ctx context.Context, coll *mongo.Collection, field string, fn func(id string, values []string) error) error {
	filter := bson.M{field + ".0": bson.M{"$exists": true}}
	opts := options.Find().SetProjection(bson.M{field: 1})

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		id, ok := cursor.Current.Lookup("_id").ObjectIDOK()
		if !ok {
			continue
		}
		var values []string
		if err := cursor.Current.Lookup(field).Unmarshal(&values); err != nil {
			return fmt.Errorf("failed to decode %s.%s: %w", coll.Name(), field, err)
		}
		if err := fn(id.Hex(), values); err != nil {
			return err
		}
	}
	return cursor.Err()
}
