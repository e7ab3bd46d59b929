package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "hotelbook/internal/bookings/errors"
	"hotelbook/internal/integrity"
	"hotelbook/pkg/config"
	mongotx "hotelbook/pkg/db/mongo"
	"hotelbook/pkg/model"
	"hotelbook/pkg/query"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "bookings"
)

// Schema drives type coercion of query-string filters on bookings.
var Schema = mongotx.FieldSchema{
	"checkIn":   mongotx.KindTime,
	"checkOut":  mongotx.KindTime,
	"createdAt": mongotx.KindTime,
	"updatedAt": mongotx.KindTime,
}

type mongoBookingRepository struct {
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	Find(ctx context.Context, req query.Request) ([]*model.Booking, error)
	Count(ctx context.Context, filter query.Filter) (int64, error)
	Update(ctx context.Context, booking *model.Booking) error
	Delete(ctx context.Context, id string) error
	FindByHotel(ctx context.Context, hotelID string) ([]*model.Booking, error)
	FindByUser(ctx context.Context, userID string) ([]*model.Booking, error)
	ForEachRef(ctx context.Context, fn func(integrity.BookingRef) error) error
	LookupRef(ctx context.Context, id string) (integrity.BookingRef, bool, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewManager(cfg.Client.Mongo, cfg.MongoUseTransactions),
	}
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, mongotx.DefaultOpTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	booking.CreatedAt = now
	booking.UpdatedAt = now
	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, mongotx.DefaultOpTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) Find(ctx context.Context, req query.Request) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, mongotx.DefaultOpTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(mongotx.SortToBSON(req.Sort)).
		SetLimit(int64(req.Page.Limit)).
		SetSkip(req.Page.Offset())
	if proj := mongotx.ProjectionToBSON(req.Projection); proj != nil {
		opts.SetProjection(proj)
	}

	cursor, err := r.collection.Find(ctx, mongotx.FilterToBSON(req.Filter, Schema), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) Count(ctx context.Context, filter query.Filter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, mongotx.DefaultOpTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, mongotx.FilterToBSON(filter, Schema))
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

// Update persists the mutable fields of booking and stamps UpdatedAt.
func (r *mongoBookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, mongotx.DefaultOpTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(booking.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, booking.ID)
	}

	booking.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{
		"$set": bson.M{
			"hotel":     booking.Hotel,
			"checkIn":   booking.CheckIn,
			"checkOut":  booking.CheckOut,
			"updatedAt": booking.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *mongoBookingRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, mongotx.DefaultOpTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if result.DeletedCount == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *mongoBookingRepository) FindByHotel(ctx context.Context, hotelID string) ([]*model.Booking, error) {
	return r.findBy(ctx, "hotel", hotelID)
}

func (r *mongoBookingRepository) FindByUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	return r.findBy(ctx, "user", userID)
}

func (r *mongoBookingRepository) findBy(ctx context.Context, field, ownerID string) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, mongotx.DefaultOpTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{field: ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings by %s: %w", field, err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

// ForEachRef streams every booking's owner references. No timeout is applied;
// callers bound the scan through ctx.
func (r *mongoBookingRepository) ForEachRef(ctx context.Context, fn func(integrity.BookingRef) error) error {
	opts := options.Find().SetProjection(bson.M{"hotel": 1, "user": 1})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return fmt.Errorf("failed to scan bookings: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var b model.Booking
		if err := cursor.Decode(&b); err != nil {
			return fmt.Errorf("failed to decode booking: %w", err)
		}
		if err := fn(integrity.BookingRef{ID: b.ID, Hotel: b.Hotel, User: b.User}); err != nil {
			return err
		}
	}
	return cursor.Err()
}

// LookupRef reads the current owners of one booking. An id that is not an
// ObjectID cannot name a booking and reports false.
func (r *mongoBookingRepository) LookupRef(ctx context.Context, id string) (integrity.BookingRef, bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, mongotx.DefaultOpTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return integrity.BookingRef{}, false, nil
	}

	var b model.Booking
	opts := options.FindOne().SetProjection(bson.M{"hotel": 1, "user": 1})
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}, opts).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return integrity.BookingRef{}, false, nil
	}
	if err != nil {
		return integrity.BookingRef{}, false, fmt.Errorf("failed to look up booking: %w", err)
	}
	return integrity.BookingRef{ID: b.ID, Hotel: b.Hotel, User: b.User}, true, nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
