package model

// PostStat 单条动态的互动计数；排行榜重算只需要这两个数字
type PostStat struct {
	LikeCount    int64 `json:"likeCount"`
	CommentCount int64 `json:"commentCount"`
}
