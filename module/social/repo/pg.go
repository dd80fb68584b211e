package repo

import (
	"context"

	"SocialProject/module/social/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// SocialRepo is the authoritative relational store: users plus per-post
// engagement counters. The ranking layer only ever reads aggregates from here.
type SocialRepo struct {
	pool *pgxpool.Pool
}

func NewSocialRepo(pool *pgxpool.Pool) *SocialRepo {
	return &SocialRepo{pool: pool}
}

// PostCount 用户动态总数
func (r *SocialRepo) PostCount(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM posts WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, errors.Wrapf(err, "post count user=%d", userID)
	}
	return n, nil
}

// PostStats 用户全部动态的点赞/评论计数，按发布时间倒序
func (r *SocialRepo) PostStats(ctx context.Context, userID int64) ([]model.PostStat, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT like_count, comment_count FROM posts WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, errors.Wrapf(err, "post stats user=%d", userID)
	}
	defer rows.Close()

	var out []model.PostStat
	for rows.Next() {
		var s model.PostStat
		if err := rows.Scan(&s.LikeCount, &s.CommentCount); err != nil {
			return nil, errors.Wrapf(err, "scan post stat user=%d", userID)
		}
		out = append(out, s)
	}
	return out, errors.Wrap(rows.Err(), "post stats rows")
}

// AllUserIDs 全量用户枚举，供校准 sweep 使用
func (r *SocialRepo) AllUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "all user ids")
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan user id")
		}
		out = append(out, id)
	}
	return out, errors.Wrap(rows.Err(), "user id rows")
}

// FindUser 返回 (nil, nil) 表示用户不存在；上层按“缺失”处理而不是错误
func (r *SocialRepo) FindUser(ctx context.Context, userID int64) (*model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, COALESCE(nickname,''), COALESCE(avatar,''), created_at
		   FROM users WHERE id = $1`, userID).
		Scan(&u.ID, &u.Username, &u.Nickname, &u.Avatar, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find user=%d", userID)
	}
	return &u, nil
}

// FindUsersByIDs 批量取用户；查不到的 id 直接缺席（排行榜 join 时静默丢弃）。
// 返回顺序与入参顺序一致。
func (r *SocialRepo) FindUsersByIDs(ctx context.Context, userIDs []int64) ([]*model.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, username, COALESCE(nickname,''), COALESCE(avatar,''), created_at
		   FROM users WHERE id = ANY($1)`, userIDs)
	if err != nil {
		return nil, errors.Wrap(err, "find users by ids")
	}
	defer rows.Close()

	byID := make(map[int64]*model.User, len(userIDs))
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Nickname, &u.Avatar, &u.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan user")
		}
		byID[u.ID] = &u
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "user rows")
	}

	out := make([]*model.User, 0, len(byID))
	for _, id := range userIDs {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}
