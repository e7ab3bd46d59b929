package mongo

import (
	"strconv"
	"strings"
	"time"

	"hotelbook/pkg/query"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type FieldKind int

const (
	KindString FieldKind = iota
	KindObjectID
	KindTime
	KindNumber
)

// FieldSchema tells the adapter how to coerce string values per field.
// Unlisted fields compare as strings.
type FieldSchema map[string]FieldKind

var comparisonOps = map[query.Operator]string{
	query.OpGreaterThan:    "$gt",
	query.OpGreaterOrEqual: "$gte",
	query.OpLessThan:       "$lt",
	query.OpLessOrEqual:    "$lte",
	query.OpIn:             "$in",
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// FilterToBSON renders f as a Mongo filter document. Fields starting with "$"
// are dropped; "id" addresses "_id".
func FilterToBSON(f query.Filter, schema FieldSchema) bson.M {
	var clauses []bson.M
	for _, c := range f.Conditions() {
		field := storageField(c.Field)
		if field == "" {
			continue
		}
		kind := schema[c.Field]
		if field == "_id" {
			kind = KindObjectID
		}

		switch c.Op {
		case query.OpEqual:
			clauses = append(clauses, bson.M{field: coerce(c.Value(), kind)})
		case query.OpIn:
			values := make(bson.A, 0, len(c.Values))
			for _, v := range c.Values {
				values = append(values, coerce(v, kind))
			}
			clauses = append(clauses, bson.M{field: bson.M{"$in": values}})
		default:
			op, ok := comparisonOps[c.Op]
			if !ok {
				continue
			}
			clauses = append(clauses, bson.M{field: bson.M{op: coerce(c.Value(), kind)}})
		}
	}

	switch len(clauses) {
	case 0:
		return bson.M{}
	case 1:
		return clauses[0]
	default:
		and := make(bson.A, len(clauses))
		for i, c := range clauses {
			and[i] = c
		}
		return bson.M{"$and": and}
	}
}

// SortToBSON renders s with an _id tie-breaker so paging is stable.
func SortToBSON(s query.Sort) bson.D {
	out := make(bson.D, 0, len(s)+1)
	hasID := false
	for _, sf := range s {
		field := storageField(sf.Field)
		if field == "" {
			continue
		}
		dir := 1
		if sf.Descending {
			dir = -1
		}
		if field == "_id" {
			hasID = true
		}
		out = append(out, bson.E{Key: field, Value: dir})
	}
	if !hasID {
		out = append(out, bson.E{Key: "_id", Value: -1})
	}
	return out
}

// ProjectionToBSON returns nil for an empty projection, meaning all fields.
func ProjectionToBSON(p query.Projection) bson.M {
	if len(p) == 0 {
		return nil
	}
	out := bson.M{}
	for _, f := range p {
		field := storageField(f)
		if field == "" || field == "_id" {
			continue
		}
		out[field] = 1
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func storageField(name string) string {
	if name == "" || strings.HasPrefix(name, "$") {
		return ""
	}
	if name == "id" {
		return "_id"
	}
	return name
}

func coerce(v string, kind FieldKind) any {
	switch kind {
	case KindObjectID:
		if oid, err := primitive.ObjectIDFromHex(v); err == nil {
			return oid
		}
	case KindTime:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC()
			}
		}
	case KindNumber:
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return v
}
