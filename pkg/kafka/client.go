// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sara-smart-go/internal/config"
	"sara-smart-go/internal/model"
	"sara-smart-go/pkg/database"
	"sara-smart-go/pkg/events"
	"sara-smart-go/pkg/log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// maxAttempts 是同一事件处理失败后重试的上限。
const maxAttempts = 3

// SessionProcessor 处理一条已结束会话事件，使消费者与归档实现解耦。
type SessionProcessor interface {
	Process(ctx context.Context, record model.SessionRecord) error
}

var producer *kafka.Writer

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(cfg.Brokers, ",")...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	log.Info("Kafka 生产者初始化成功")
}

// ProduceSessionEvent 发送一个会话结束事件，以 session id 作为消息 key 保证同一会话有序。
func ProduceSessionEvent(ctx context.Context, ev events.SessionEnded) error {
	if producer == nil {
		return errors.New("kafka producer not initialized")
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Record.SessionID),
		Value: payload,
	})
}

// CloseProducer 刷新并关闭生产者。
func CloseProducer() error {
	if producer == nil {
		return nil
	}
	return producer.Close()
}

// SessionPublisher 把已结束的会话发布到 Kafka。
type SessionPublisher struct{}

func (SessionPublisher) Publish(ctx context.Context, record model.SessionRecord) error {
	return ProduceSessionEvent(ctx, events.NewSessionEnded(record))
}

// StartConsumer 启动一个 Kafka 消费者来处理会话事件，ctx 取消时退出。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor SessionProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  strings.Split(cfg.Brokers, ","),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Error("从 Kafka 读取消息失败", err)
			}
			break
		}

		var ev events.SessionEnded
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			commit(r, m)
			continue
		}

		if err := processor.Process(ctx, ev.Record); err != nil {
			log.Errorf("处理会话事件失败: session=%s, Error: %v", ev.Record.SessionID, err)
			if giveUp(ev.EventID) {
				log.Errorf("会话事件多次失败(>=%d)，提交 offset 终止重试: session=%s", maxAttempts, ev.Record.SessionID)
				commit(r, m)
			}
			continue
		}

		log.Infof("会话事件处理成功: session=%s, offset=%d", ev.Record.SessionID, m.Offset)
		if database.RDB != nil {
			_ = database.RDB.Del(context.Background(), attemptsKey(ev.EventID)).Err()
		}
		commit(r, m)
	}

	if err := r.Close(); err != nil {
		log.Errorf("关闭 Kafka 消费者失败: %v", err)
	}
}

func attemptsKey(eventID string) string {
	return fmt.Sprintf("kafka:attempts:%s", eventID)
}

// giveUp 用 Redis 计数失败次数。Redis 不可用时保守处理：不提交 offset，让 Kafka 重投。
func giveUp(eventID string) bool {
	if database.RDB == nil {
		return false
	}
	key := attemptsKey(eventID)
	attempts, err := database.RDB.Incr(context.Background(), key).Result()
	if err != nil {
		return false
	}
	_ = database.RDB.Expire(context.Background(), key, 24*time.Hour).Err()
	return attempts >= maxAttempts
}

func commit(r *kafka.Reader, m kafka.Message) {
	if err := r.CommitMessages(context.Background(), m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}
