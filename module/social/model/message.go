package model

import "time"

// MessageType 通知类型
type MessageType string

const (
	MessageLike        MessageType = "LIKE"
	MessageComment     MessageType = "COMMENT"
	MessageFollow      MessageType = "FOLLOW"
	MessageSystem      MessageType = "SYSTEM"
	MessageActivity    MessageType = "ACTIVITY"
	MessageMaintenance MessageType = "MAINTENANCE"
	MessageOther       MessageType = "OTHER"
)

// Message 站内通知的持久化记录。构造后不可变；只有 IsRead 会被后续翻转。
// FromUserID 为 0 表示系统通知。
type Message struct {
	ID            int64       `bson:"_id" json:"id"`
	FromUserID    int64       `bson:"from_user_id,omitempty" json:"fromUserId,omitempty"`
	ToUserID      int64       `bson:"to_user_id" json:"toUserId"`
	Title         string      `bson:"title,omitempty" json:"title,omitempty"`
	Content       string      `bson:"content" json:"content"`
	Type          MessageType `bson:"type" json:"type"`
	RelatedPostID int64       `bson:"related_post_id,omitempty" json:"relatedPostId,omitempty"`
	IsRead        bool        `bson:"is_read" json:"isRead"`
	CreatedAt     time.Time   `bson:"created_at" json:"createdAt"`
}
