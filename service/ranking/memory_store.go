package ranking

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore 内存实现，行为对齐 RedisStore（同分按 member 倒序，
// 与 ZREVRANGE 的字典序一致）。单测和无 Redis 的本地环境用。
type MemoryStore struct {
	mu   sync.RWMutex
	dims map[Dimension]map[int64]float64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{dims: make(map[Dimension]map[int64]float64)}
}

func (s *MemoryStore) Upsert(_ context.Context, dim Dimension, member int64, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.dims[dim]
	if m == nil {
		m = make(map[int64]float64)
		s.dims[dim] = m
	}
	m[member] = score
	return nil
}

// ranked 当前维度按 score 降序的 member 快照
func (s *MemoryStore) ranked(dim Dimension) []int64 {
	m := s.dims[dim]
	out := make([]int64, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := m[out[i]], m[out[j]]
		if si != sj {
			return si > sj
		}
		return out[i] > out[j]
	})
	return out
}

func (s *MemoryStore) TopRange(_ context.Context, dim Dimension, start, end int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.ranked(dim)
	n := int64(len(all))
	if end < start {
		start, end = 0, n-1
	}
	if start >= n || start < 0 {
		return nil, nil
	}
	if end >= n {
		end = n - 1
	}
	return all[start : end+1], nil
}

func (s *MemoryStore) RankOf(_ context.Context, dim Dimension, member int64) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.dims[dim][member]; !ok {
		return 0, false, nil
	}
	for i, id := range s.ranked(dim) {
		if id == member {
			return int64(i), true, nil
		}
	}
	return 0, false, nil
}

func (s *MemoryStore) ScoreOf(_ context.Context, dim Dimension, member int64) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.dims[dim][member]
	return score, ok, nil
}

func (s *MemoryStore) Size(_ context.Context, dim Dimension) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.dims[dim])), nil
}
