package producer

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/Xushengqwer/go-common/core"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Xushengqwer/article_service/config"
	"github.com/Xushengqwer/article_service/models/events"
)

// SyncEventPublisher 是服务层发布同步事件的接口，便于测试时替换。
type SyncEventPublisher interface {
	PublishSyncEvent(ctx context.Context, event *events.SyncEvent) error
}

// KafkaProducer Kafka 消息生产者
type KafkaProducer struct {
	writer *kafka.Writer
	logger *core.ZapLogger
	topics config.Topics
}

// NewKafkaProducer 创建一个新的 Kafka 生产者实例。
// 使用 Hash 分区器并以文章 ID 作为消息 Key：同一篇文章的事件总是落在
// 同一分区，消费侧按分区顺序读取即保持单篇文章的事件产生顺序。
func NewKafkaProducer(config config.KafkaConfig, logger *core.ZapLogger) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(config.Brokers...),
		Balancer: &kafka.Hash{},
	}
	return &KafkaProducer{
		writer: writer,
		logger: logger,
		topics: config.Topics,
	}
}

// PublishSyncEvent 发送一条索引同步事件到 ArticleSync 主题。
// - 意图: 主存储事务提交后，把变更通知给索引同步消费者
// - 输入: ctx context.Context 上下文, event *events.SyncEvent 同步事件
// - 输出: error 错误信息
func (p *KafkaProducer) PublishSyncEvent(ctx context.Context, event *events.SyncEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("同步事件序列化失败",
			zap.Error(err),
			zap.Uint64("articleID", event.ArticleID),
		)
		return err
	}

	p.logger.Debug("发送同步事件",
		zap.String("topic", p.topics.ArticleSync),
		zap.String("eventID", event.EventID),
		zap.ByteString("payload", eventBytes),
	)

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topics.ArticleSync,
		Key:   []byte(strconv.FormatUint(event.ArticleID, 10)),
		Value: eventBytes,
	})
	if err != nil {
		p.logger.Error("写入 Kafka 消息失败",
			zap.Error(err),
			zap.String("topic", p.topics.ArticleSync),
			zap.String("eventID", event.EventID),
		)
		return err
	}
	return nil
}

// Close 关闭底层 writer。
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
