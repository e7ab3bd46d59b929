package mongo

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"hotelbook/pkg/query"
)

var bookingSchema = FieldSchema{
	"checkIn":   KindTime,
	"checkOut":  KindTime,
	"createdAt": KindTime,
}

func translate(t *testing.T, raw string) query.Filter {
	t.Helper()
	values, err := url.ParseQuery(raw)
	require.NoError(t, err)
	return query.Translate(values)
}

func TestFilterToBSON_Empty(t *testing.T) {
	assert.Equal(t, bson.M{}, FilterToBSON(query.Filter{}, bookingSchema))
}

func TestFilterToBSON_SingleEquality(t *testing.T) {
	got := FilterToBSON(translate(t, "hotel=h1"), bookingSchema)

	assert.Equal(t, bson.M{"hotel": "h1"}, got)
}

func TestFilterToBSON_ComparisonWithTime(t *testing.T) {
	got := FilterToBSON(translate(t, "checkIn[gte]=2030-01-01"), bookingSchema)

	want := bson.M{"checkIn": bson.M{"$gte": time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}}
	assert.Equal(t, want, got)
}

func TestFilterToBSON_UnparseableTimeFallsBackToString(t *testing.T) {
	got := FilterToBSON(translate(t, "checkIn[lt]=tomorrow"), bookingSchema)

	assert.Equal(t, bson.M{"checkIn": bson.M{"$lt": "tomorrow"}}, got)
}

func TestFilterToBSON_InAndConjunction(t *testing.T) {
	got := FilterToBSON(translate(t, "hotel[in]=a,b&user=u1"), bookingSchema)

	want := bson.M{"$and": bson.A{
		bson.M{"hotel": bson.M{"$in": bson.A{"a", "b"}}},
		bson.M{"user": "u1"},
	}}
	assert.Equal(t, want, got)
}

func TestFilterToBSON_IDBecomesObjectID(t *testing.T) {
	hex := "65a1f0c2e4b0a1b2c3d4e5f6"
	oid, err := primitive.ObjectIDFromHex(hex)
	require.NoError(t, err)

	got := FilterToBSON(translate(t, "id="+hex), bookingSchema)

	assert.Equal(t, bson.M{"_id": oid}, got)
}

func TestFilterToBSON_NumberCoercion(t *testing.T) {
	got := FilterToBSON(translate(t, "price[gt]=10.5"), FieldSchema{"price": KindNumber})

	assert.Equal(t, bson.M{"price": bson.M{"$gt": 10.5}}, got)
}

func TestFilterToBSON_UnknownOperatorIsLiteralEquality(t *testing.T) {
	got := FilterToBSON(translate(t, "price[ne]=5"), bookingSchema)

	assert.Equal(t, bson.M{"price[ne]": "5"}, got)
}

func TestFilterToBSON_DropsOperatorFields(t *testing.T) {
	got := FilterToBSON(translate(t, "$where=1&hotel=h1"), bookingSchema)

	assert.Equal(t, bson.M{"hotel": "h1"}, got)
}

func TestSortToBSON(t *testing.T) {
	got := SortToBSON(query.ParseSort("-checkIn,hotel"))

	want := bson.D{{Key: "checkIn", Value: -1}, {Key: "hotel", Value: 1}, {Key: "_id", Value: -1}}
	assert.Equal(t, want, got)

	got = SortToBSON(query.ParseSort("id"))
	assert.Equal(t, bson.D{{Key: "_id", Value: 1}}, got)
}

func TestProjectionToBSON(t *testing.T) {
	assert.Nil(t, ProjectionToBSON(nil))
	assert.Nil(t, ProjectionToBSON(query.Projection{"id"}))
	assert.Equal(t, bson.M{"checkIn": 1, "hotel": 1}, ProjectionToBSON(query.Projection{"checkIn", "hotel", "$x"}))
}

func TestSequentialManager(t *testing.T) {
	called := false
	err := NewSequentialManager().ExecuteTransaction(context.Background(), func(ctx context.Context) error {
		called = true
		assert.False(t, InTransaction(ctx))
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
}

func TestWithTimeout_OutsideTransaction(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, ok := ctx.Deadline()
	assert.True(t, ok)
}
