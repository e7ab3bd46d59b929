package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	hotelserrors "hotelbook/internal/hotels/errors"
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
	CollectionName = "hotels"
	bookingsField  = "bookings"
)

var Schema = mongotx.FieldSchema{
	"createdAt": mongotx.KindTime,
	"updatedAt": mongotx.KindTime,
}

var summaryProjection = bson.M{"name": 1, "address": 1, "tel": 1}

type HotelRepository interface {
	Create(ctx context.Context, hotel *model.Hotel) error
	FindByID(ctx context.Context, id string) (*model.Hotel, error)
	Find(ctx context.Context, req query.Request) ([]*model.Hotel, error)
	Count(ctx context.Context, filter query.Filter) (int64, error)
	Update(ctx context.Context, id string, patch model.HotelPatch) (*model.Hotel, error)
	Delete(ctx context.Context, id string) error
	FindSummaries(ctx context.Context, ids []string) (map[string]model.HotelSummary, error)
	integrity.Owners
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoHotelRepository struct {
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoHotelRepository(cfg *config.Config) HotelRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoHotelRepository{
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewManager(cfg.Client.Mongo, cfg.MongoUseTransactions),
	}
}

func (r *mongoHotelRepository) Create(ctx context.Context, hotel *model.Hotel) error {
	ctx, cancel := mongotx.WithTimeout(ctx, mongotx.DefaultOpTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	hotel.CreatedAt = now
	hotel.UpdatedAt = now
	if hotel.Bookings == nil {
		hotel.Bookings = []string{}
	}

	result, err := r.collection.InsertOne(ctx, hotel)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return hotelserrors.ErrDuplicateName
		}
		return fmt.Errorf("failed to create hotel: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		hotel.ID = oid.Hex()
	}
	return nil
}

func (r *mongoHotelRepository) FindByID(ctx context.Context, id string) (*model.Hotel, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, mongotx.DefaultOpTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", hotelserrors.ErrInvalidID, id)
	}

	var hotel model.Hotel
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&hotel); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, hotelserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find hotel: %w", err)
	}
	return &hotel, nil
}

func (r *mongoHotelRepository) Find(ctx context.Context, req query.Request) ([]*model.Hotel, error) {
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
		return nil, fmt.Errorf("failed to find hotels: %w", err)
	}
	defer cursor.Close(ctx)

	var hotels []*model.Hotel
	if err := cursor.All(ctx, &hotels); err != nil {
		return nil, fmt.Errorf("failed to decode hotels: %w", err)
	}
	return hotels, nil
}

func (r *mongoHotelRepository) Count(ctx context.Context, filter query.Filter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, mongotx.DefaultOpTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, mongotx.FilterToBSON(filter, Schema))
	if err != nil {
		return 0, fmt.Errorf("failed to count hotels: %w", err)
	}
	return count, nil
}

// Update sets the non-nil patch fields and returns the stored document
// after the change.
func (r *mongoHotelRepository) Update(ctx context.Context, id string, patch model.HotelPatch) (*model.Hotel, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, mongotx.DefaultOpTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", hotelserrors.ErrInvalidID, id)
	}

	set := bson.M{"updatedAt": time.Now().UTC().Truncate(time.Millisecond)}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Address != nil {
		set["address"] = *patch.Address
	}
	if patch.Tel != nil {
		set["tel"] = *patch.Tel
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var hotel model.Hotel
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, bson.M{"$set": set}, opts).Decode(&hotel)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, hotelserrors.ErrNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, hotelserrors.ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to update hotel: %w", err)
	}
	return &hotel, nil
}

func (r *mongoHotelRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, mongotx.DefaultOpTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", hotelserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete hotel: %w", err)
	}
	if result.DeletedCount == 0 {
		return hotelserrors.ErrNotFound
	}
	return nil
}

func (r *mongoHotelRepository) FindSummaries(ctx context.Context, ids []string) (map[string]model.HotelSummary, error) {
	summaries, err := mongotx.FindByIDs[model.HotelSummary](ctx, r.collection, ids, summaryProjection)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.HotelSummary, len(summaries))
	for _, s := range summaries {
		out[s.ID] = s
	}
	return out, nil
}

func (r *mongoHotelRepository) AddBooking(ctx context.Context, hotelID, bookingID string) (bool, error) {
	res, err := mongotx.AddToSet(ctx, r.collection, hotelID, bookingsField, bookingID)
	if err != nil {
		return false, err
	}
	if !res.Matched {
		return false, integrity.ErrOwnerNotFound
	}
	return res.Changed, nil
}

func (r *mongoHotelRepository) RemoveBooking(ctx context.Context, hotelID, bookingID string) (bool, error) {
	res, err := mongotx.Pull(ctx, r.collection, hotelID, bookingsField, bookingID)
	if err != nil {
		return false, err
	}
	if !res.Matched {
		return false, integrity.ErrOwnerNotFound
	}
	return res.Changed, nil
}

func (r *mongoHotelRepository) ForEachOwner(ctx context.Context, fn func(string, []string) error) error {
	return mongotx.ForEachList(ctx, r.collection, bookingsField, fn)
}

func (r *mongoHotelRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
