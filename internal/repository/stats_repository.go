package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sara-smart-go/internal/model"
	"sync"

	"github.com/go-redis/redis/v8"
)

const statsKey = "sara:analytics:global"

// StatsRepository 保存全局累计统计。
type StatsRepository interface {
	Load(ctx context.Context) (model.GlobalStats, error)
	Save(ctx context.Context, stats model.GlobalStats) error
}

type redisStatsRepository struct {
	redisClient *redis.Client
}

// NewStatsRepository 创建基于 Redis 的实现，统计以 JSON 保存在单个键中且不过期。
func NewStatsRepository(redisClient *redis.Client) StatsRepository {
	return &redisStatsRepository{redisClient: redisClient}
}

// Load 读取统计，不存在时返回初始统计。
func (r *redisStatsRepository) Load(ctx context.Context) (model.GlobalStats, error) {
	raw, err := r.redisClient.Get(ctx, statsKey).Bytes()
	if err == redis.Nil {
		return model.NewGlobalStats(), nil
	}
	if err != nil {
		return model.GlobalStats{}, fmt.Errorf("failed to get global stats: %w", err)
	}
	stats := model.NewGlobalStats()
	if err := json.Unmarshal(raw, &stats); err != nil {
		return model.GlobalStats{}, fmt.Errorf("failed to unmarshal global stats: %w", err)
	}
	return stats, nil
}

func (r *redisStatsRepository) Save(ctx context.Context, stats model.GlobalStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal global stats: %w", err)
	}
	if err := r.redisClient.Set(ctx, statsKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set global stats: %w", err)
	}
	return nil
}

type memoryStatsRepository struct {
	mu    sync.Mutex
	stats model.GlobalStats
}

// NewMemoryStatsRepository 创建进程内实现。
func NewMemoryStatsRepository() StatsRepository {
	return &memoryStatsRepository{stats: model.NewGlobalStats()}
}

func (r *memoryStatsRepository) Load(_ context.Context) (model.GlobalStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneStats(r.stats), nil
}

func (r *memoryStatsRepository) Save(_ context.Context, stats model.GlobalStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = cloneStats(stats)
	return nil
}

func cloneStats(s model.GlobalStats) model.GlobalStats {
	out := s
	out.LeadsByQuality = cloneCounts(s.LeadsByQuality)
	out.Outcomes = cloneCounts(s.Outcomes)
	out.Methodologies = cloneCounts(s.Methodologies)
	out.ProjectTypes = cloneCounts(s.ProjectTypes)
	return out
}

func cloneCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
