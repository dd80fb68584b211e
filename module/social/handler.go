package social

import (
	"net/http"
	"strconv"

	"SocialProject/logger"
	"SocialProject/module/social/model"
	"SocialProject/module/social/repo"
	"SocialProject/service/gateway"
	"SocialProject/service/notify"
	"SocialProject/service/ranking"

	"github.com/gin-gonic/gin"
)

// Handler 排行榜查询、管理触发、在线统计、站内信的 HTTP 入口
type Handler struct {
	coord  *ranking.Coordinator
	store  ranking.Store
	social *repo.SocialRepo
	msgs   *repo.MessageStore
	mgr    *gateway.ConnManager
	bridge *notify.Bridge
}

func NewHandler(coord *ranking.Coordinator, social *repo.SocialRepo, msgs *repo.MessageStore,
	mgr *gateway.ConnManager, bridge *notify.Bridge) *Handler {
	return &Handler{
		coord:  coord,
		store:  coord.Store(),
		social: social,
		msgs:   msgs,
		mgr:    mgr,
		bridge: bridge,
	}
}

func (h *Handler) Register(r *gin.Engine, ws *gateway.Server) {
	r.GET("/ws", ws.HandleWS)

	rk := r.Group("/api/ranking")
	{
		rk.GET("/post-count", h.rankingFor(ranking.DimPostCount))
		rk.GET("/post-likes", h.rankingFor(ranking.DimPostLikes))
		rk.GET("/post-comments", h.rankingFor(ranking.DimPostComments))
		rk.GET("/composite-score", h.compositeRanking)
		rk.GET("/user/:userId", h.userRank)
		rk.GET("/user/:userId/details", h.userRankDetails)
		rk.POST("/update", h.forceSweep)
		rk.POST("/update/user/:userId", h.forceUserRefresh)
	}

	nt := r.Group("/api/notifications")
	{
		nt.GET("/:userId", h.listNotifications)
		nt.POST("/:userId/:messageId/read", h.markRead)
		nt.POST("/admin/publish", h.adminPublish)
	}

	r.GET("/api/ws/online", h.onlineStats)
}

// rankWindow page 窗口；默认前 10 名
func rankWindow(c *gin.Context) (start, end int64) {
	start, _ = strconv.ParseInt(c.DefaultQuery("start", "0"), 10, 64)
	end, _ = strconv.ParseInt(c.DefaultQuery("end", "9"), 10, 64)
	return
}

// rankingFor 单维度榜单：取名次窗口内的 member，join 用户展示数据。
// 关系库里已不存在的 member 直接从结果里消失，但仍计入 total。
func (h *Handler) rankingFor(dim ranking.Dimension) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start, end := rankWindow(c)

		memberIDs, err := h.store.TopRange(ctx, dim, start, end)
		if err != nil {
			logger.Errorf("[ranking] top range dim=%s err=%v", dim, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "排行榜读取失败"})
			return
		}
		users, err := h.social.FindUsersByIDs(ctx, memberIDs)
		if err != nil {
			logger.Errorf("[ranking] join users dim=%s err=%v", dim, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "排行榜读取失败"})
			return
		}
		total, err := h.store.Size(ctx, dim)
		if err != nil {
			logger.Errorf("[ranking] size dim=%s err=%v", dim, err)
		}

		c.JSON(http.StatusOK, gin.H{
			"users": users,
			"total": total,
			"type":  string(dim),
		})
	}
}

// compositeRanking 综合评分榜带分数和各项指标
func (h *Handler) compositeRanking(c *gin.Context) {
	ctx := c.Request.Context()
	start, end := rankWindow(c)

	memberIDs, err := h.store.TopRange(ctx, ranking.DimCompositeScore, start, end)
	if err != nil {
		logger.Errorf("[ranking] composite range err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "排行榜读取失败"})
		return
	}
	users, err := h.social.FindUsersByIDs(ctx, memberIDs)
	if err != nil {
		logger.Errorf("[ranking] composite join err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "排行榜读取失败"})
		return
	}

	rankings := make([]gin.H, 0, len(users))
	for _, u := range users {
		score, _, serr := h.store.ScoreOf(ctx, ranking.DimCompositeScore, u.ID)
		if serr != nil {
			logger.Errorf("[ranking] composite score user=%d err=%v", u.ID, serr)
		}
		postCount, _ := h.social.PostCount(ctx, u.ID)
		stats, _ := h.social.PostStats(ctx, u.ID)
		var likes, comments int64
		for _, s := range stats {
			likes += s.LikeCount
			comments += s.CommentCount
		}
		rankings = append(rankings, gin.H{
			"user":           u,
			"compositeScore": score,
			"postCount":      postCount,
			"totalLikes":     likes,
			"totalComments":  comments,
		})
	}

	total, _ := h.store.Size(ctx, ranking.DimCompositeScore)
	c.JSON(http.StatusOK, gin.H{
		"userRankings": rankings,
		"total":        total,
		"type":         string(ranking.DimCompositeScore),
	})
}

// userRank 返回 1 基名次；没有条目时 rank 为 null
func (h *Handler) userRank(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "非法用户ID"})
		return
	}
	dim := ranking.ParseDimension(c.DefaultQuery("type", string(ranking.DimCompositeScore)))

	rank, ok, rerr := h.store.RankOf(c.Request.Context(), dim, userID)
	if rerr != nil {
		logger.Errorf("[ranking] rank user=%d dim=%s err=%v", userID, dim, rerr)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "排名读取失败"})
		return
	}

	resp := gin.H{"userId": userID, "type": string(dim)}
	if ok {
		resp["rank"] = rank + 1
	} else {
		resp["rank"] = nil
	}
	c.JSON(http.StatusOK, resp)
}

// userRankDetails 四个维度的名次加权威库里的实时聚合
func (h *Handler) userRankDetails(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "非法用户ID"})
		return
	}
	ctx := c.Request.Context()

	data := gin.H{}
	for _, d := range ranking.Dimensions {
		rank, ok, rerr := h.store.RankOf(ctx, d, userID)
		if rerr != nil {
			logger.Errorf("[ranking] detail rank user=%d dim=%s err=%v", userID, d, rerr)
		}
		key := string(d) + "Rank"
		if ok {
			data[key] = rank + 1
		} else {
			data[key] = nil
		}
	}

	postCount, _ := h.social.PostCount(ctx, userID)
	stats, _ := h.social.PostStats(ctx, userID)
	var likes, comments int64
	for _, s := range stats {
		likes += s.LikeCount
		comments += s.CommentCount
	}
	data["postCount"] = postCount
	data["totalLikes"] = likes
	data["totalComments"] = comments
	data["compositeScore"] = ranking.CompositeScore(postCount, likes, comments)

	c.JSON(http.StatusOK, gin.H{"userId": userID, "data": data})
}

// forceSweep 管理端强制全量校准
func (h *Handler) forceSweep(c *gin.Context) {
	if err := h.coord.SweepAll(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "排行榜更新失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "排行榜更新成功"})
}

// forceUserRefresh 管理端强制单用户四维度重算
func (h *Handler) forceUserRefresh(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "非法用户ID"})
		return
	}
	if err := h.coord.RefreshUser(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "更新失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "更新成功", "userId": userID})
}

// onlineStats 在线用户统计
func (h *Handler) onlineStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"onlineUserCount":    h.mgr.OnlineUserCount(),
		"activeSessionCount": h.mgr.SessionCount(),
		"onlineUserIds":      h.mgr.OnlineUserIDs(),
	})
}

func (h *Handler) listNotifications(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "非法用户ID"})
		return
	}
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)

	msgs, err := h.msgs.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		logger.Errorf("[notify] list user=%d err=%v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "通知读取失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs, "total": len(msgs)})
}

func (h *Handler) markRead(c *gin.Context) {
	userID, err1 := strconv.ParseInt(c.Param("userId"), 10, 64)
	messageID, err2 := strconv.ParseInt(c.Param("messageId"), 10, 64)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "非法参数"})
		return
	}
	if err := h.msgs.MarkRead(c.Request.Context(), userID, messageID); err != nil {
		logger.Errorf("[notify] mark read user=%d msg=%d err=%v", userID, messageID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "标记失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已读"})
}

// adminPublish 管理端群发；targetUserIds 缺省为全员
func (h *Handler) adminPublish(c *gin.Context) {
	var req struct {
		Type          string  `json:"type"`
		Title         string  `json:"title"`
		Content       string  `json:"content"`
		TargetUserIDs []int64 `json:"targetUserIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "非法请求体"})
		return
	}
	msgType := model.MessageType(req.Type)
	if msgType == "" {
		msgType = model.MessageSystem
	}

	sent := h.bridge.PublishNotification(c.Request.Context(), msgType, req.Title, req.Content, req.TargetUserIDs)
	c.JSON(http.StatusOK, gin.H{"message": "通知发布成功", "sent": sent})
}
