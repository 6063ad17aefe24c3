// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"hotel-insights-go/internal/config"
	"hotel-insights-go/pkg/log"
	"hotel-insights-go/pkg/tasks"
)

// EventHandler defines the interface for anything that reacts to booking change events.
// This decouples the Kafka consumer from the refresh pipeline.
type EventHandler interface {
	HandleBookingChange(ctx context.Context, event tasks.BookingChangeEvent) error
}

var producer *kafka.Writer

// 处理失败时的重试退避
var (
	retryBaseDelay = time.Second
	retryMaxDelay  = 30 * time.Second
)

// handleWithRetry 反复调用 handler 直到成功或 ctx 取消。
// 消费者不能跳过失败的消息，否则后续的提交会让 offset 越过它。
func handleWithRetry(ctx context.Context, handler EventHandler, event tasks.BookingChangeEvent) error {
	delay := retryBaseDelay
	for attempt := 1; ; attempt++ {
		err := handler.HandleBookingChange(ctx, event)
		if err == nil {
			return nil
		}
		log.Errorf("[Kafka] 处理预订变更事件失败 (第 %d 次), %s 后重试: %v", attempt, delay, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay *= 2; delay > retryMaxDelay {
			delay = retryMaxDelay
		}
	}
}

func brokers(cfg config.KafkaConfig) []string {
	var out []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:     kafka.TCP(brokers(cfg)...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
}

// CloseProducer 关闭 Kafka 生产者。
func CloseProducer() error {
	if producer == nil {
		return nil
	}
	return producer.Close()
}

// PublishBookingChange 发送一个预订变更事件到 Kafka。
func PublishBookingChange(ctx context.Context, event tasks.BookingChangeEvent) error {
	if producer == nil {
		return errors.New("kafka producer not initialized")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return producer.WriteMessages(ctx, kafka.Message{Value: eventBytes})
}

// StartConsumer 启动一个 Kafka 消费者来处理预订变更事件，ctx 取消时退出。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, handler EventHandler) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	log.Infof("[Kafka] 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Error("[Kafka] 从 Kafka 读取消息失败", err)
			}
			break
		}

		var event tasks.BookingChangeEvent
		if err := json.Unmarshal(m.Value, &event); err != nil {
			log.Errorf("[Kafka] 无法解析消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			if err := r.CommitMessages(ctx, m); err != nil {
				log.Errorf("[Kafka] 提交错误消息失败: %v", err)
			}
			continue
		}

		log.Infof("[Kafka] 收到预订变更事件: op=%s offset=%d", event.Op, m.Offset)
		if err := handleWithRetry(ctx, handler, event); err != nil {
			// ctx 已取消，未提交的消息在下次启动时重新投递
			break
		}
		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("[Kafka] 提交消息 offset 失败: %v", err)
		}
	}

	if err := r.Close(); err != nil {
		log.Errorf("[Kafka] 关闭消费者失败: %v", err)
	}
}
