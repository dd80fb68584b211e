// Package metrics 暴露 Prometheus 指标；/metrics 由 gin 路由挂载
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	onlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "social_online_users",
		Help: "当前已认证在线用户数",
	})
	activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "social_active_sessions",
		Help: "当前 WebSocket 会话数（含未认证）",
	})
	deliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "social_notification_deliveries_total",
		Help: "通知实时投递结果计数",
	}, []string{"outcome"})
	sweepSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "social_ranking_sweep_seconds",
		Help:    "排行榜全量校准耗时（秒）",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(onlineUsers, activeSessions, deliveries, sweepSeconds)
}

func SetOnlineUsers(n int) { onlineUsers.Set(float64(n)) }

func SetSessions(n int) { activeSessions.Set(float64(n)) }

func RecordDelivery(outcome string) { deliveries.WithLabelValues(outcome).Inc() }

func ObserveSweep(d time.Duration) { sweepSeconds.Observe(d.Seconds()) }

// Handler Prometheus 抓取端点
func Handler() http.Handler {
	return promhttp.Handler()
}
