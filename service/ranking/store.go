package ranking

import "context"

// Dimension 排行榜维度；值即 Redis key 后缀
type Dimension string

const (
	DimPostCount      Dimension = "post_count"
	DimPostLikes      Dimension = "post_likes"
	DimPostComments   Dimension = "post_comments"
	DimCompositeScore Dimension = "composite_score"
)

// Dimensions 固定的全部维度，校准 sweep 按此顺序跑
var Dimensions = []Dimension{DimPostCount, DimPostLikes, DimPostComments, DimCompositeScore}

func (d Dimension) Key() string { return "ranking:" + string(d) }

// ParseDimension maps an API ranking-type string to a Dimension,
// falling back to composite_score for anything unknown.
func ParseDimension(s string) Dimension {
	switch Dimension(s) {
	case DimPostCount, DimPostLikes, DimPostComments, DimCompositeScore:
		return Dimension(s)
	default:
		return DimCompositeScore
	}
}

// Store 每个维度一张有序表：member(用户ID) -> score。
// 同一维度内的操作是原子的；跨维度没有事务。
//
// TopRange 的 start/end 是 0 基、含两端的名次窗口（按 score 降序）。
// end < start 作为“取全量”的哨兵。同分成员的相对顺序由存储决定，调用方不得依赖。
type Store interface {
	Upsert(ctx context.Context, dim Dimension, member int64, score float64) error
	TopRange(ctx context.Context, dim Dimension, start, end int64) ([]int64, error)
	RankOf(ctx context.Context, dim Dimension, member int64) (int64, bool, error)
	ScoreOf(ctx context.Context, dim Dimension, member int64) (float64, bool, error)
	Size(ctx context.Context, dim Dimension) (int64, error)
}
