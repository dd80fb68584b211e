package ranking

import (
	"context"

	"SocialProject/logger"
	"SocialProject/module/social/model"
)

// 综合评分权重：动态数×10 + 总点赞×5 + 总评论×3
const (
	weightPostCount = 10
	weightLikes     = 5
	weightComments  = 3
)

// AggregateSource 权威关系库里的聚合读取口（module/social/repo.SocialRepo 实现）
type AggregateSource interface {
	PostCount(ctx context.Context, userID int64) (int64, error)
	PostStats(ctx context.Context, userID int64) ([]model.PostStat, error)
	AllUserIDs(ctx context.Context) ([]int64, error)
}

// Coordinator 把权威库的聚合重算进排行榜缓存。
// 排行榜只是派生缓存：事件触发的单维度重算允许短暂不一致，
// 周期性全量 sweep 是兜底的收敛机制。
type Coordinator struct {
	store Store
	src   AggregateSource
}

func NewCoordinator(store Store, src AggregateSource) *Coordinator {
	return &Coordinator{store: store, src: src}
}

func (c *Coordinator) Store() Store { return c.store }

func CompositeScore(postCount, totalLikes, totalComments int64) float64 {
	return float64(postCount*weightPostCount + totalLikes*weightLikes + totalComments*weightComments)
}

func sumStats(stats []model.PostStat) (likes, comments int64) {
	for _, s := range stats {
		likes += s.LikeCount
		comments += s.CommentCount
	}
	return
}

// UpdatePostCount 重算用户动态数维度
func (c *Coordinator) UpdatePostCount(ctx context.Context, userID int64) error {
	n, err := c.src.PostCount(ctx, userID)
	if err != nil {
		return err
	}
	return c.store.Upsert(ctx, DimPostCount, userID, float64(n))
}

// UpdatePostLikes 重算用户动态总点赞维度
func (c *Coordinator) UpdatePostLikes(ctx context.Context, userID int64) error {
	stats, err := c.src.PostStats(ctx, userID)
	if err != nil {
		return err
	}
	likes, _ := sumStats(stats)
	return c.store.Upsert(ctx, DimPostLikes, userID, float64(likes))
}

// UpdatePostComments 重算用户动态总评论维度
func (c *Coordinator) UpdatePostComments(ctx context.Context, userID int64) error {
	stats, err := c.src.PostStats(ctx, userID)
	if err != nil {
		return err
	}
	_, comments := sumStats(stats)
	return c.store.Upsert(ctx, DimPostComments, userID, float64(comments))
}

// UpdateCompositeScore 重算综合评分。聚合全部重新读库，
// 不复用其它维度的缓存值，避免某一维度更新失败把综合分带偏。
func (c *Coordinator) UpdateCompositeScore(ctx context.Context, userID int64) error {
	postCount, err := c.src.PostCount(ctx, userID)
	if err != nil {
		return err
	}
	stats, err := c.src.PostStats(ctx, userID)
	if err != nil {
		return err
	}
	likes, comments := sumStats(stats)
	return c.store.Upsert(ctx, DimCompositeScore, userID, CompositeScore(postCount, likes, comments))
}

// RefreshUser 四个维度全部重算（管理端单用户触发口）。
// 单维度失败记日志继续算其余维度，返回最后一个错误。
func (c *Coordinator) RefreshUser(ctx context.Context, userID int64) error {
	var last error
	for _, f := range []struct {
		dim Dimension
		fn  func(context.Context, int64) error
	}{
		{DimPostCount, c.UpdatePostCount},
		{DimPostLikes, c.UpdatePostLikes},
		{DimPostComments, c.UpdatePostComments},
		{DimCompositeScore, c.UpdateCompositeScore},
	} {
		if err := f.fn(ctx, userID); err != nil {
			logger.Errorf("[ranking] refresh dim=%s user=%d err=%v", f.dim, userID, err)
			last = err
		}
	}
	return last
}

// ===== 领域事件触发口（与业务动作同步内联调用，绝不让业务动作失败） =====

// OnPostChanged 发/删动态后调用（作者）
func (c *Coordinator) OnPostChanged(ctx context.Context, authorID int64) {
	if err := c.UpdatePostCount(ctx, authorID); err != nil {
		logger.Errorf("[ranking] post count user=%d err=%v", authorID, err)
	}
	if err := c.UpdateCompositeScore(ctx, authorID); err != nil {
		logger.Errorf("[ranking] composite user=%d err=%v", authorID, err)
	}
}

// OnLikeChanged 点赞/取消后调用（动态作者）
func (c *Coordinator) OnLikeChanged(ctx context.Context, authorID int64) {
	if err := c.UpdatePostLikes(ctx, authorID); err != nil {
		logger.Errorf("[ranking] post likes user=%d err=%v", authorID, err)
	}
	if err := c.UpdateCompositeScore(ctx, authorID); err != nil {
		logger.Errorf("[ranking] composite user=%d err=%v", authorID, err)
	}
}

// OnCommentChanged 评论增删后调用（动态作者）
func (c *Coordinator) OnCommentChanged(ctx context.Context, authorID int64) {
	if err := c.UpdatePostComments(ctx, authorID); err != nil {
		logger.Errorf("[ranking] post comments user=%d err=%v", authorID, err)
	}
	if err := c.UpdateCompositeScore(ctx, authorID); err != nil {
		logger.Errorf("[ranking] composite user=%d err=%v", authorID, err)
	}
}

// SweepAll 全量校准：枚举所有用户，四个维度各重算一遍。
// 单个用户失败只记日志，不中断剩余用户。
func (c *Coordinator) SweepAll(ctx context.Context) error {
	userIDs, err := c.src.AllUserIDs(ctx)
	if err != nil {
		return err
	}
	ok := 0
	for _, uid := range userIDs {
		if err := c.RefreshUser(ctx, uid); err != nil {
			logger.Errorf("[ranking] sweep skip user=%d err=%v", uid, err)
			continue
		}
		ok++
	}
	logger.Infof("[ranking] sweep done users=%d ok=%d", len(userIDs), ok)
	return nil
}
