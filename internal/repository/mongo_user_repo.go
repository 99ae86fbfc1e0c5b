package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/marcwilliam910/scm/internal/domain"
)

// MongoUserRepository implements UserRepository on the users collection.
type MongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository creates a new mongo-backed user repository.
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(collUsers)}
}

func (r *MongoUserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	var user domain.User
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *MongoUserRepository) SetVerified(ctx context.Context, id primitive.ObjectID) error {
	return r.updateOne(ctx, id, bson.M{"verified": true})
}

func (r *MongoUserRepository) UpdateName(ctx context.Context, id primitive.ObjectID, name string) error {
	return r.updateOne(ctx, id, bson.M{"name": name})
}

func (r *MongoUserRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, hashed string) error {
	return r.updateOne(ctx, id, bson.M{"password": hashed})
}

func (r *MongoUserRepository) UpdateAvatar(ctx context.Context, id primitive.ObjectID, avatar *domain.Avatar) error {
	return r.updateOne(ctx, id, bson.M{"avatar": avatar})
}

func (r *MongoUserRepository) AddRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error {
	res, err := r.coll.UpdateByID(ctx, id, bson.M{
		"$push": bson.M{"tokens": token},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *MongoUserRepository) RemoveRefreshToken(ctx context.Context, id primitive.ObjectID, token string) (bool, error) {
	res, err := r.coll.UpdateByID(ctx, id, bson.M{
		"$pull": bson.M{"tokens": token},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		return false, ErrUserNotFound
	}
	return res.ModifiedCount > 0, nil
}

func (r *MongoUserRepository) HasRefreshToken(ctx context.Context, id primitive.ObjectID, token string) (bool, error) {
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "tokens": token}).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *MongoUserRepository) ClearRefreshTokens(ctx context.Context, id primitive.ObjectID) error {
	return r.updateOne(ctx, id, bson.M{"tokens": []string{}})
}

func (r *MongoUserRepository) updateOne(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
