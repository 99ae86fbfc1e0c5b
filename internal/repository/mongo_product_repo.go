package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marcwilliam910/scm/internal/domain"
)

// MongoProductRepository implements ProductRepository on the products collection.
type MongoProductRepository struct {
	coll *mongo.Collection
}

// NewMongoProductRepository creates a new mongo-backed product repository.
func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{coll: db.Collection(collProducts)}
}

func (r *MongoProductRepository) Create(ctx context.Context, product *domain.Product) error {
	now := time.Now().UTC()
	product.ID = primitive.NewObjectID()
	product.CreatedAt = now
	product.UpdatedAt = now

	_, err := r.coll.InsertOne(ctx, product)
	return err
}

func (r *MongoProductRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	var product domain.Product
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *MongoProductRepository) Update(ctx context.Context, id, owner primitive.ObjectID, in domain.ProductInput) (*domain.Product, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if in.Name != "" {
		set["name"] = in.Name
	}
	if in.Price > 0 {
		set["price"] = in.Price
	}
	if !in.PurchasingDate.IsZero() {
		set["purchasing_date"] = in.PurchasingDate
	}
	if in.Category != "" {
		set["category"] = in.Category
	}
	if in.Description != "" {
		set["description"] = in.Description
	}
	if in.Thumbnail != "" {
		set["thumbnail"] = in.Thumbnail
	}

	return r.findOneAndUpdate(ctx, bson.M{"_id": id, "owner": owner}, bson.M{"$set": set})
}

func (r *MongoProductRepository) AddImages(ctx context.Context, id, owner primitive.ObjectID, images []domain.ProductImage, thumbnail string) (*domain.Product, error) {
	update := bson.M{
		"$push": bson.M{"images": bson.M{"$each": images}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	if thumbnail != "" {
		update["$set"].(bson.M)["thumbnail"] = thumbnail
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id, "owner": owner}, update)
}

func (r *MongoProductRepository) RemoveImage(ctx context.Context, id, owner primitive.ObjectID, imageID string) (*domain.Product, error) {
	update := bson.M{
		"$pull": bson.M{"images": bson.M{"id": imageID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id, "owner": owner}, update)
}

func (r *MongoProductRepository) SetThumbnail(ctx context.Context, id primitive.ObjectID, thumbnail string) error {
	res, err := r.coll.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"thumbnail": thumbnail, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *MongoProductRepository) Delete(ctx context.Context, id, owner primitive.ObjectID) (*domain.Product, error) {
	var product domain.Product
	err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id, "owner": owner}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *MongoProductRepository) ListByCategory(ctx context.Context, category string, page, limit int64) ([]domain.Product, error) {
	return r.list(ctx, bson.M{"category": category}, page, limit)
}

func (r *MongoProductRepository) ListLatest(ctx context.Context, page, limit int64) ([]domain.Product, error) {
	return r.list(ctx, bson.M{}, page, limit)
}

func (r *MongoProductRepository) ListByOwner(ctx context.Context, owner primitive.ObjectID, page, limit int64) ([]domain.Product, error) {
	return r.list(ctx, bson.M{"owner": owner}, page, limit)
}

func (r *MongoProductRepository) Search(ctx context.Context, query string) ([]domain.Product, error) {
	filter := bson.M{"name": bson.M{
		"$regex":   regexp.QuoteMeta(query),
		"$options": "i",
	}}
	return r.list(ctx, filter, 1, 0)
}

func (r *MongoProductRepository) list(ctx context.Context, filter bson.M, page, limit int64) ([]domain.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetSkip((page - 1) * limit).SetLimit(limit)
	}

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var products []domain.Product
	if err := cur.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *MongoProductRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*domain.Product, error) {
	res := r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After))

	var product domain.Product
	if err := res.Decode(&product); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}
