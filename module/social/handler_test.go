package social_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"SocialProject/module/social"
	"SocialProject/module/social/model"
	"SocialProject/service/gateway"
	"SocialProject/service/notify"
	"SocialProject/service/ranking"

	"github.com/gin-gonic/gin"
)

type stubSource struct {
	posts map[int64]int64
	stats map[int64][]model.PostStat
}

func (s *stubSource) PostCount(_ context.Context, id int64) (int64, error) { return s.posts[id], nil }
func (s *stubSource) PostStats(_ context.Context, id int64) ([]model.PostStat, error) {
	return s.stats[id], nil
}
func (s *stubSource) AllUserIDs(context.Context) ([]int64, error) {
	out := make([]int64, 0, len(s.posts))
	for id := range s.posts {
		out = append(out, id)
	}
	return out, nil
}

type stubUsers struct{ all []int64 }

func (s *stubUsers) FindUser(_ context.Context, id int64) (*model.User, error) {
	return &model.User{ID: id, Username: "u"}, nil
}
func (s *stubUsers) AllUserIDs(context.Context) ([]int64, error) { return s.all, nil }

type stubSaver struct{ saved int }

func (s *stubSaver) Insert(_ context.Context, m *model.Message) (*model.Message, error) {
	s.saved++
	cp := *m
	cp.ID = int64(s.saved)
	cp.CreatedAt = time.Now()
	return &cp, nil
}

type stubSender struct{}

func (stubSender) SendToUser(int64, *gateway.NotificationPayload) notify.Outcome {
	return notify.UserOffline
}

// 只装配不依赖关系库/Mongo 的那部分端点
func newRouter(t *testing.T, store ranking.Store, src ranking.AggregateSource, saver *stubSaver) (*gin.Engine, *gateway.ConnManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mgr := gateway.NewConnManager(gateway.ManagerConf{SweepEvery: time.Hour})
	t.Cleanup(mgr.Close)

	coord := ranking.NewCoordinator(store, src)
	bridge := notify.NewBridge(&stubUsers{all: []int64{1, 2, 3}}, saver, stubSender{})

	h := social.NewHandler(coord, nil, nil, mgr, bridge)
	r := gin.New()
	h.Register(r, gateway.NewServer(mgr))
	return r, mgr
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var m map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
			t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
		}
	}
	return w.Code, m
}

func TestUserRankEndpoint(t *testing.T) {
	store := ranking.NewMemoryStore()
	ctx := context.Background()
	_ = store.Upsert(ctx, ranking.DimCompositeScore, 1, 100)
	_ = store.Upsert(ctx, ranking.DimCompositeScore, 2, 50)
	r, _ := newRouter(t, store, &stubSource{}, &stubSaver{})

	code, body := doJSON(t, r, http.MethodGet, "/api/ranking/user/2?type=composite_score", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["rank"] != float64(2) { // API 名次 1 基
		t.Fatalf("rank = %v, want 2", body["rank"])
	}
	if body["type"] != "composite_score" {
		t.Fatalf("type = %v", body["type"])
	}
}

func TestUserRankMissingIsNull(t *testing.T) {
	r, _ := newRouter(t, ranking.NewMemoryStore(), &stubSource{}, &stubSaver{})

	code, body := doJSON(t, r, http.MethodGet, "/api/ranking/user/99", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["rank"] != nil {
		t.Fatalf("rank = %v, want null", body["rank"])
	}
}

func TestUserRankBadID(t *testing.T) {
	r, _ := newRouter(t, ranking.NewMemoryStore(), &stubSource{}, &stubSaver{})
	if code, _ := doJSON(t, r, http.MethodGet, "/api/ranking/user/abc", ""); code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
}

// 未知 type 参数回落到综合评分维度
func TestUserRankUnknownTypeFallsBack(t *testing.T) {
	store := ranking.NewMemoryStore()
	_ = store.Upsert(context.Background(), ranking.DimCompositeScore, 5, 10)
	r, _ := newRouter(t, store, &stubSource{}, &stubSaver{})

	_, body := doJSON(t, r, http.MethodGet, "/api/ranking/user/5?type=bogus", "")
	if body["type"] != "composite_score" || body["rank"] != float64(1) {
		t.Fatalf("body = %v", body)
	}
}

func TestForceUserRefresh(t *testing.T) {
	store := ranking.NewMemoryStore()
	src := &stubSource{
		posts: map[int64]int64{7: 2},
		stats: map[int64][]model.PostStat{7: {{LikeCount: 1, CommentCount: 1}}},
	}
	r, _ := newRouter(t, store, src, &stubSaver{})

	code, _ := doJSON(t, r, http.MethodPost, "/api/ranking/update/user/7", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	score, ok, _ := store.ScoreOf(context.Background(), ranking.DimCompositeScore, 7)
	if !ok || score != 28 { // 2*10 + 1*5 + 1*3
		t.Fatalf("composite = (%v, %v), want 28", score, ok)
	}
}

func TestForceSweep(t *testing.T) {
	store := ranking.NewMemoryStore()
	src := &stubSource{posts: map[int64]int64{1: 1, 2: 2}, stats: map[int64][]model.PostStat{}}
	r, _ := newRouter(t, store, src, &stubSaver{})

	code, _ := doJSON(t, r, http.MethodPost, "/api/ranking/update", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if n, _ := store.Size(context.Background(), ranking.DimPostCount); n != 2 {
		t.Fatalf("size = %d, want 2", n)
	}
}

func TestOnlineStatsEmpty(t *testing.T) {
	r, _ := newRouter(t, ranking.NewMemoryStore(), &stubSource{}, &stubSaver{})

	code, body := doJSON(t, r, http.MethodGet, "/api/ws/online", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["onlineUserCount"] != float64(0) || body["activeSessionCount"] != float64(0) {
		t.Fatalf("body = %v", body)
	}
}

func TestAdminPublishTargets(t *testing.T) {
	saver := &stubSaver{}
	r, _ := newRouter(t, ranking.NewMemoryStore(), &stubSource{}, saver)

	code, body := doJSON(t, r, http.MethodPost, "/api/notifications/admin/publish",
		`{"type":"ACTIVITY","title":"活动","content":"上线了","targetUserIds":[5,6]}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["sent"] != float64(2) || saver.saved != 2 {
		t.Fatalf("sent = %v, saved = %d", body["sent"], saver.saved)
	}
}

func TestAdminPublishAllUsersByDefault(t *testing.T) {
	saver := &stubSaver{}
	r, _ := newRouter(t, ranking.NewMemoryStore(), &stubSource{}, saver)

	code, body := doJSON(t, r, http.MethodPost, "/api/notifications/admin/publish",
		`{"content":"全员通知"}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["sent"] != float64(3) || saver.saved != 3 {
		t.Fatalf("sent = %v, saved = %d", body["sent"], saver.saved)
	}
}

func TestAdminPublishBadBody(t *testing.T) {
	r, _ := newRouter(t, ranking.NewMemoryStore(), &stubSource{}, &stubSaver{})
	if code, _ := doJSON(t, r, http.MethodPost, "/api/notifications/admin/publish", "{{{"); code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
}
