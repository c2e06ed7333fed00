// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sara-smart-go/internal/model"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// ConversationRepository 保存每个会话的对话历史与线索资料。
type ConversationRepository interface {
	GetHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
	AppendMessages(ctx context.Context, sessionID string, messages ...model.ChatMessage) error
	GetProfile(ctx context.Context, sessionID string) (model.LeadProfile, error)
	SaveProfile(ctx context.Context, sessionID string, profile model.LeadProfile) error
	ListSessionIDs(ctx context.Context) ([]string, error)
}

const sessionKeyPrefix = "sara:session:"

func historyKey(sessionID string) string { return sessionKeyPrefix + sessionID + ":history" }
func profileKey(sessionID string) string { return sessionKeyPrefix + sessionID + ":profile" }

type redisConversationRepository struct {
	redisClient *redis.Client
	limit       int
	ttl         time.Duration
}

// NewConversationRepository 创建基于 Redis 的实现，limit 为保留的最近消息条数。
func NewConversationRepository(redisClient *redis.Client, limit int, ttl time.Duration) ConversationRepository {
	if limit <= 0 {
		limit = 20
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &redisConversationRepository{redisClient: redisClient, limit: limit, ttl: ttl}
}

// GetHistory 从 Redis 获取对话历史记录。
func (r *redisConversationRepository) GetHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	jsonData, err := r.redisClient.Get(ctx, historyKey(sessionID)).Result()
	if err == redis.Nil {
		return []model.ChatMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation history: %w", err)
	}
	var messages []model.ChatMessage
	if err := json.Unmarshal([]byte(jsonData), &messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation history: %w", err)
	}
	return messages, nil
}

// AppendMessages 追加消息并只保留最近 limit 条。
// WATCH 事务保证同一会话的并发追加不会互相覆盖。
func (r *redisConversationRepository) AppendMessages(ctx context.Context, sessionID string, messages ...model.ChatMessage) error {
	key := historyKey(sessionID)
	txf := func(tx *redis.Tx) error {
		var history []model.ChatMessage
		raw, err := tx.Get(ctx, key).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &history); err != nil {
				return fmt.Errorf("failed to unmarshal conversation history: %w", err)
			}
		}
		history = append(history, messages...)
		if len(history) > r.limit {
			history = history[len(history)-r.limit:]
		}
		jsonData, err := json.Marshal(history)
		if err != nil {
			return fmt.Errorf("failed to marshal conversation history: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, jsonData, r.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < 3; i++ {
		err := r.redisClient.Watch(ctx, txf, key)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to set conversation history: %w", err)
		}
		return nil
	}
	return fmt.Errorf("failed to set conversation history: %w", redis.TxFailedErr)
}

// GetProfile 读取会话的线索资料，不存在时返回空资料。
func (r *redisConversationRepository) GetProfile(ctx context.Context, sessionID string) (model.LeadProfile, error) {
	var profile model.LeadProfile
	raw, err := r.redisClient.Get(ctx, profileKey(sessionID)).Bytes()
	if err == redis.Nil {
		return profile, nil
	}
	if err != nil {
		return profile, fmt.Errorf("failed to get lead profile: %w", err)
	}
	if err := json.Unmarshal(raw, &profile); err != nil {
		return profile, fmt.Errorf("failed to unmarshal lead profile: %w", err)
	}
	return profile, nil
}

// SaveProfile 覆盖保存线索资料。
func (r *redisConversationRepository) SaveProfile(ctx context.Context, sessionID string, profile model.LeadProfile) error {
	jsonData, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal lead profile: %w", err)
	}
	if err := r.redisClient.Set(ctx, profileKey(sessionID), jsonData, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set lead profile: %w", err)
	}
	return nil
}

// ListSessionIDs 通过 SCAN 列出所有仍有历史记录的会话。
func (r *redisConversationRepository) ListSessionIDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := r.redisClient.Scan(ctx, 0, sessionKeyPrefix+"*:history", 100).Iterator()
	for iter.Next(ctx) {
		k := strings.TrimPrefix(iter.Val(), sessionKeyPrefix)
		ids = append(ids, strings.TrimSuffix(k, ":history"))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan session keys: %w", err)
	}
	return ids, nil
}
