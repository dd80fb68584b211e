package notify

import (
	"context"
	"fmt"

	"SocialProject/logger"
	"SocialProject/module/social/model"
	"SocialProject/service/gateway"
)

const systemName = "系统"

// UserFinder 发送方信息查询；(nil, nil) 表示用户不存在
type UserFinder interface {
	FindUser(ctx context.Context, userID int64) (*model.User, error)
	AllUserIDs(ctx context.Context) ([]int64, error)
}

// MessageSaver 通知落库
type MessageSaver interface {
	Insert(ctx context.Context, m *model.Message) (*model.Message, error)
}

// Sender 实时下发口（Dispatcher 实现；单测替换成假的）
type Sender interface {
	SendToUser(userID int64, p *gateway.NotificationPayload) Outcome
}

// Bridge 把领域事件翻译成通知：先落库，再尽力实时推送。
// 任何失败都不会让触发事件的业务动作失败——点赞成功与否和通知无关。
type Bridge struct {
	users  UserFinder
	store  MessageSaver
	sender Sender
}

func NewBridge(users UserFinder, store MessageSaver, sender Sender) *Bridge {
	return &Bridge{users: users, store: store, sender: sender}
}

// SendLikeNotification 点赞通知（A 赞了 B 的动态 P）
func (b *Bridge) SendLikeNotification(ctx context.Context, fromUserID, toUserID, postID int64) {
	fromUser, err := b.users.FindUser(ctx, fromUserID)
	if err != nil || fromUser == nil {
		logger.Errorf("[bridge] like: from user=%d missing err=%v", fromUserID, err)
		return
	}

	content := fmt.Sprintf("%s 点赞了你的动态", fromUser.DisplayName())
	b.persistAndPush(ctx, &model.Message{
		FromUserID:    fromUserID,
		ToUserID:      toUserID,
		Content:       content,
		Type:          model.MessageLike,
		RelatedPostID: postID,
	}, fromUser.Username)
}

// SendCommentNotification 评论通知；评论原文超过 20 个字截断
func (b *Bridge) SendCommentNotification(ctx context.Context, fromUserID, toUserID, postID int64, comment string) {
	fromUser, err := b.users.FindUser(ctx, fromUserID)
	if err != nil || fromUser == nil {
		logger.Errorf("[bridge] comment: from user=%d missing err=%v", fromUserID, err)
		return
	}

	content := fmt.Sprintf("%s 评论了你的动态: %s", fromUser.DisplayName(), truncate(comment, 20))
	b.persistAndPush(ctx, &model.Message{
		FromUserID:    fromUserID,
		ToUserID:      toUserID,
		Content:       content,
		Type:          model.MessageComment,
		RelatedPostID: postID,
	}, fromUser.Username)
}

// SendFollowNotification 关注通知
func (b *Bridge) SendFollowNotification(ctx context.Context, fromUserID, toUserID int64) {
	fromUser, err := b.users.FindUser(ctx, fromUserID)
	if err != nil || fromUser == nil {
		logger.Errorf("[bridge] follow: from user=%d missing err=%v", fromUserID, err)
		return
	}

	content := fmt.Sprintf("%s 关注了你", fromUser.DisplayName())
	b.persistAndPush(ctx, &model.Message{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Content:    content,
		Type:       model.MessageFollow,
	}, fromUser.Username)
}

// SendSystemNotification 系统通知（无发送人）
func (b *Bridge) SendSystemNotification(ctx context.Context, toUserID int64, content string) {
	b.persistAndPush(ctx, &model.Message{
		ToUserID: toUserID,
		Content:  content,
		Type:     model.MessageSystem,
	}, systemName)
}

// PublishNotification 管理端按类型群发；targetIDs 为空表示全员。
// 逐用户独立落库+推送，单个失败不影响其余。
func (b *Bridge) PublishNotification(ctx context.Context, msgType model.MessageType, title, content string, targetIDs []int64) int {
	if len(targetIDs) == 0 {
		all, err := b.users.AllUserIDs(ctx)
		if err != nil {
			logger.Errorf("[bridge] publish: enumerate users err=%v", err)
			return 0
		}
		targetIDs = all
	}

	sent := 0
	for _, uid := range targetIDs {
		b.persistAndPush(ctx, &model.Message{
			ToUserID: uid,
			Title:    title,
			Content:  content,
			Type:     msgType,
		}, systemName)
		sent++
	}
	return sent
}

// persistAndPush 先落库（拿到 id / createdAt），再实时推送。
// 落库失败整条放弃；推送结果只记日志。
func (b *Bridge) persistAndPush(ctx context.Context, m *model.Message, fromName string) {
	saved, err := b.store.Insert(ctx, m)
	if err != nil {
		logger.Errorf("[bridge] persist to=%d type=%s err=%v", m.ToUserID, m.Type, err)
		return
	}

	outcome := b.sender.SendToUser(saved.ToUserID, &gateway.NotificationPayload{
		ID:            saved.ID,
		Type:          string(saved.Type),
		Title:         saved.Title,
		Content:       saved.Content,
		FromUser:      fromName,
		CreatedAt:     gateway.FormatTime(saved.CreatedAt),
		IsRead:        saved.IsRead,
		RelatedPostID: saved.RelatedPostID,
	})
	logger.Infof("[bridge] notify to=%d type=%s outcome=%s", saved.ToUserID, saved.Type, outcome)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
