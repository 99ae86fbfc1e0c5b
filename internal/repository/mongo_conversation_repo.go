package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marcwilliam910/scm/internal/domain"
)

// MongoConversationRepository implements ConversationRepository on the
// conversations collection. One document per unordered user pair, keyed by
// the unique participants_key index; messages are embedded in order.
type MongoConversationRepository struct {
	coll *mongo.Collection
}

// NewMongoConversationRepository creates a new mongo-backed conversation store.
func NewMongoConversationRepository(db *mongo.Database) *MongoConversationRepository {
	return &MongoConversationRepository{coll: db.Collection(collConversations)}
}

// GetOrCreate finds or atomically inserts the conversation for the pair.
// The upsert is keyed on participants_key, so concurrent calls for the same
// pair race to insert and the loser decodes the winner's document; a
// duplicate-key conflict is resolved by re-fetching, never surfaced.
func (r *MongoConversationRepository) GetOrCreate(ctx context.Context, a, b primitive.ObjectID) (*domain.Conversation, error) {
	key := domain.ParticipantsKey(a.Hex(), b.Hex())
	now := time.Now().UTC()

	res := r.coll.FindOneAndUpdate(ctx,
		bson.M{"participants_key": key},
		bson.M{"$setOnInsert": bson.M{
			"participants":     []primitive.ObjectID{a, b},
			"participants_key": key,
			"chats":            []domain.Message{},
			"created_at":       now,
			"updated_at":       now,
		}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)

	var conv domain.Conversation
	if err := res.Decode(&conv); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost the insert race; the document exists now.
			return r.getByKey(ctx, key)
		}
		return nil, err
	}
	return &conv, nil
}

func (r *MongoConversationRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// AppendMessage appends a message to the conversation's history. The store
// assigns the message id and timestamp; client-supplied values never reach
// the document. The filter requires the sender to be a participant, so an
// append into someone else's conversation matches nothing.
func (r *MongoConversationRepository) AppendMessage(ctx context.Context, id, sender primitive.ObjectID, text string) (*domain.Message, error) {
	now := time.Now().UTC()
	msg := domain.Message{
		ID:        primitive.NewObjectID(),
		SentBy:    sender,
		Text:      text,
		Viewed:    false,
		CreatedAt: now,
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "participants": sender},
		bson.M{
			"$push": bson.M{"chats": msg},
			"$set":  bson.M{"updated_at": now},
		})
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, ErrConversationNotFound
	}
	return &msg, nil
}

func (r *MongoConversationRepository) ListForUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]domain.Conversation, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(limit)

	cur, err := r.coll.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var convs []domain.Conversation
	if err := cur.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// MarkViewed flags every unviewed message not sent by viewer as viewed.
// MatchedCount distinguishes a missing conversation from one with nothing
// to update: the filter matches the document itself, the array filter only
// scopes which embedded messages change.
func (r *MongoConversationRepository) MarkViewed(ctx context.Context, id, viewer primitive.ObjectID) (int64, error) {
	res, err := r.coll.UpdateByID(ctx, id,
		bson.M{"$set": bson.M{"chats.$[elem].viewed": true}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{
				bson.M{"elem.viewed": false, "elem.sent_by": bson.M{"$ne": viewer}},
			},
		}),
	)
	if err != nil {
		return 0, err
	}
	if res.MatchedCount == 0 {
		return 0, ErrConversationNotFound
	}
	return res.ModifiedCount, nil
}

func (r *MongoConversationRepository) getByKey(ctx context.Context, key string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.coll.FindOne(ctx, bson.M{"participants_key": key}).Decode(&conv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conv, nil
}
