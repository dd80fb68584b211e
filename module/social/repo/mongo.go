package repo

import (
	"context"
	"time"

	"SocialProject/module/social/model"
	"SocialProject/tools/ids"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const messageColl = "messages"

// MessageStore 通知落库（messages 集合）。落库先于实时推送，推送失败不回滚。
type MessageStore struct {
	db *mongo.Database
}

func NewMessageStore(db *mongo.Database) *MessageStore {
	return &MessageStore{db: db}
}

// Insert assigns the id and created-at, then writes the record.
// The filled-in message is returned so the live push reuses the same fields.
func (s *MessageStore) Insert(ctx context.Context, m *model.Message) (*model.Message, error) {
	if m.ID == 0 {
		m.ID = ids.Generate()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if _, err := s.db.Collection(messageColl).InsertOne(ctx, m); err != nil {
		return nil, errors.Wrapf(err, "insert message to=%d type=%s", m.ToUserID, m.Type)
	}
	return m, nil
}

// ListByUser 用户通知列表（倒序），给站内信页面用
func (s *MessageStore) ListByUser(ctx context.Context, userID int64, limit int64) ([]*model.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	cur, err := s.db.Collection(messageColl).Find(ctx,
		bson.M{"to_user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, errors.Wrapf(err, "list messages user=%d", userID)
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []*model.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrapf(err, "decode messages user=%d", userID)
	}
	return out, nil
}

// MarkRead 翻转已读标记；幂等
func (s *MessageStore) MarkRead(ctx context.Context, userID, messageID int64) error {
	_, err := s.db.Collection(messageColl).UpdateOne(ctx,
		bson.M{"_id": messageID, "to_user_id": userID},
		bson.M{"$set": bson.M{"is_read": true}})
	return errors.Wrapf(err, "mark read message=%d", messageID)
}
