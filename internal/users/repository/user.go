package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hotelbook/internal/integrity"
	userserrors "hotelbook/internal/users/errors"
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
	CollectionName = "users"
	bookingsField  = "bookings"
)

var Schema = mongotx.FieldSchema{
	"createdAt": mongotx.KindTime,
	"updatedAt": mongotx.KindTime,
}

var summaryProjection = bson.M{"name": 1, "email": 1}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	Find(ctx context.Context, req query.Request) ([]*model.User, error)
	Count(ctx context.Context, filter query.Filter) (int64, error)
	Update(ctx context.Context, id string, patch model.UserPatch) (*model.User, error)
	Delete(ctx context.Context, id string) error
	FindSummaries(ctx context.Context, ids []string) (map[string]model.UserSummary, error)
	integrity.Owners
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoUserRepository struct {
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoUserRepository(cfg *config.Config) UserRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoUserRepository{
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewManager(cfg.Client.Mongo, cfg.MongoUseTransactions),
	}
}

// Create inserts user. A preset ID is stored as an ObjectID so the profile
// matches the token subject it was registered for.
func (r *mongoUserRepository) Create(ctx context.Context, user *model.User) error {
	ctx, cancel := mongotx.WithTimeout(ctx, mongotx.DefaultOpTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Bookings == nil {
		user.Bookings = []string{}
	}

	doc := bson.M{
		"name":        user.Name,
		"email":       user.Email,
		"tel":         user.Tel,
		"role":        user.Role,
		bookingsField: user.Bookings,
		"createdAt":   user.CreatedAt,
		"updatedAt":   user.UpdatedAt,
	}
	if user.ID != "" {
		objectID, err := primitive.ObjectIDFromHex(user.ID)
		if err != nil {
			return fmt.Errorf("%w: %s", userserrors.ErrInvalidID, user.ID)
		}
		doc["_id"] = objectID
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return userserrors.ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid.Hex()
	}
	return nil
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, mongotx.DefaultOpTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", userserrors.ErrInvalidID, id)
	}

	var user model.User
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, userserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (r *mongoUserRepository) Find(ctx context.Context, req query.Request) ([]*model.User, error) {
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
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []*model.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (r *mongoUserRepository) Count(ctx context.Context, filter query.Filter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, mongotx.DefaultOpTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, mongotx.FilterToBSON(filter, Schema))
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (r *mongoUserRepository) Update(ctx context.Context, id string, patch model.UserPatch) (*model.User, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, mongotx.DefaultOpTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", userserrors.ErrInvalidID, id)
	}

	set := bson.M{"updatedAt": time.Now().UTC().Truncate(time.Millisecond)}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.Tel != nil {
		set["tel"] = *patch.Tel
	}
	if patch.Role != nil {
		set["role"] = *patch.Role
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user model.User
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, userserrors.ErrNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, userserrors.ErrDuplicate
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &user, nil
}

func (r *mongoUserRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, mongotx.DefaultOpTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", userserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.DeletedCount == 0 {
		return userserrors.ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) FindSummaries(ctx context.Context, ids []string) (map[string]model.UserSummary, error) {
	summaries, err := mongotx.FindByIDs[model.UserSummary](ctx, r.collection, ids, summaryProjection)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.UserSummary, len(summaries))
	for _, s := range summaries {
		out[s.ID] = s
	}
	return out, nil
}

func (r *mongoUserRepository) AddBooking(ctx context.Context, userID, bookingID string) (bool, error) {
	res, err := mongotx.AddToSet(ctx, r.collection, userID, bookingsField, bookingID)
	if err != nil {
		return false, err
	}
	if !res.Matched {
		return false, integrity.ErrOwnerNotFound
	}
	return res.Changed, nil
}

func (r *mongoUserRepository) RemoveBooking(ctx context.Context, userID, bookingID string) (bool, error) {
	res, err := mongotx.Pull(ctx, r.collection, userID, bookingsField, bookingID)
	if err != nil {
		return false, err
	}
	if !res.Matched {
		return false, integrity.ErrOwnerNotFound
	}
	return res.Changed, nil
}

func (r *mongoUserRepository) ForEachOwner(ctx context.Context, fn func(string, []string) error) error {
	return mongotx.ForEachList(ctx, r.collection, bookingsField, fn)
}

func (r *mongoUserRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
