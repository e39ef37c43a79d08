// File: repo/redis/dead_letter.go
package redis

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/Xushengqwer/go-common/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Xushengqwer/article_service/constant"
	"github.com/Xushengqwer/article_service/models/events"
)

// DeadLetterStore 定义了同步死信记录的操作接口。
// 重试耗尽的同步事件进入这里，对账任务每轮按主存储当前状态修复后清除对应条目。
// 以文章 ID 为 Hash 字段：同一篇文章只保留最后一条失败事件，旧的失败记录被覆盖，
// 修复时反正以主存储当前快照为准。
type DeadLetterStore interface {
	// Record 记录一条重试耗尽的同步事件。
	Record(ctx context.Context, event *events.SyncEvent) error

	// List 取出当前全部死信事件。
	List(ctx context.Context) ([]*events.SyncEvent, error)

	// Remove 清除指定文章的死信记录。条目不存在时静默成功。
	Remove(ctx context.Context, articleID uint64) error
}

// deadLetterStoreImpl 是 DeadLetterStore 接口的 Redis 实现。
type deadLetterStoreImpl struct {
	redisClient *redis.Client
	logger      *core.ZapLogger
}

// NewDeadLetterStore 创建 DeadLetterStore 的新实例。
func NewDeadLetterStore(redisClient *redis.Client, logger *core.ZapLogger) DeadLetterStore {
	return &deadLetterStoreImpl{
		redisClient: redisClient,
		logger:      logger,
	}
}

func (s *deadLetterStoreImpl) Record(ctx context.Context, event *events.SyncEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		// 事件结构体序列化失败属于编程错误，记下并返回。
		s.logger.Error("死信事件序列化失败", zap.Error(err), zap.Uint64("articleID", event.ArticleID))
		return err
	}

	field := strconv.FormatUint(event.ArticleID, 10)
	if err := s.redisClient.HSet(ctx, constant.SyncDeadLetterKey, field, payload).Err(); err != nil {
		s.logger.Error("写入死信记录失败",
			zap.Error(err),
			zap.Uint64("articleID", event.ArticleID),
			zap.String("eventID", event.EventID),
		)
		return err
	}

	s.logger.Warn("同步事件重试耗尽，已记入死信",
		zap.Uint64("articleID", event.ArticleID),
		zap.String("eventID", event.EventID),
		zap.String("kind", string(event.Kind)),
		zap.Int64("sourceVersion", event.SourceVersion),
	)
	return nil
}

func (s *deadLetterStoreImpl) List(ctx context.Context) ([]*events.SyncEvent, error) {
	raw, err := s.redisClient.HGetAll(ctx, constant.SyncDeadLetterKey).Result()
	if err != nil {
		s.logger.Error("读取死信记录失败", zap.Error(err))
		return nil, err
	}

	result := make([]*events.SyncEvent, 0, len(raw))
	for field, payload := range raw {
		var event events.SyncEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			// 坏记录跳过；对应文章的漂移由主存储扫描阶段兜底修复。
			s.logger.Warn("死信记录反序列化失败，跳过",
				zap.Error(err),
				zap.String("field", field),
			)
			continue
		}
		result = append(result, &event)
	}
	return result, nil
}

func (s *deadLetterStoreImpl) Remove(ctx context.Context, articleID uint64) error {
	field := strconv.FormatUint(articleID, 10)
	if err := s.redisClient.HDel(ctx, constant.SyncDeadLetterKey, field).Err(); err != nil {
		s.logger.Error("清除死信记录失败", zap.Error(err), zap.Uint64("articleID", articleID))
		return err
	}
	return nil
}
