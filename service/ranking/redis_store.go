package ranking

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore ZSET 实现；生产环境用
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func member(id int64) string { return strconv.FormatInt(id, 10) }

func (s *RedisStore) Upsert(ctx context.Context, dim Dimension, m int64, score float64) error {
	err := s.rdb.ZAdd(ctx, dim.Key(), redis.Z{Score: score, Member: member(m)}).Err()
	return errors.Wrapf(err, "zadd %s member=%d", dim.Key(), m)
}

func (s *RedisStore) TopRange(ctx context.Context, dim Dimension, start, end int64) ([]int64, error) {
	if end < start {
		// 全量哨兵
		start, end = 0, -1
	}
	vals, err := s.rdb.ZRevRange(ctx, dim.Key(), start, end).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "zrevrange %s [%d,%d]", dim.Key(), start, end)
	}
	out := make([]int64, 0, len(vals))
	for _, v := range vals {
		id, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			// 脏 member 不应该出现；跳过而不是整页失败
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (s *RedisStore) RankOf(ctx context.Context, dim Dimension, m int64) (int64, bool, error) {
	rank, err := s.rdb.ZRevRank(ctx, dim.Key(), member(m)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "zrevrank %s member=%d", dim.Key(), m)
	}
	return rank, true, nil
}

func (s *RedisStore) ScoreOf(ctx context.Context, dim Dimension, m int64) (float64, bool, error) {
	score, err := s.rdb.ZScore(ctx, dim.Key(), member(m)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "zscore %s member=%d", dim.Key(), m)
	}
	return score, true, nil
}

func (s *RedisStore) Size(ctx context.Context, dim Dimension) (int64, error) {
	n, err := s.rdb.ZCard(ctx, dim.Key()).Result()
	return n, errors.Wrapf(err, "zcard %s", dim.Key())
}
