package ranking

import (
	"context"
	"time"

	"SocialProject/logger"
	"SocialProject/metrics"
)

// Sweeper 周期性全量校准。默认 5 分钟一轮；除进程退出外没有取消路径，
// 一轮之内跑到结束（单用户失败在 Coordinator 里消化）。
type Sweeper struct {
	coord    *Coordinator
	interval time.Duration
}

func NewSweeper(coord *Coordinator, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{coord: coord, interval: interval}
}

// Run blocks until ctx is done. The first sweep fires immediately so a fresh
// node converges without waiting a full interval.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	start := time.Now()
	if err := s.coord.SweepAll(ctx); err != nil {
		logger.Errorf("[ranking] sweep err=%v", err)
	}
	metrics.ObserveSweep(time.Since(start))
}
