package consumer

import (
	"context"
	"encoding/json"

	"github.com/Xushengqwer/go-common/core"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Xushengqwer/article_service/models/events"
	articlesync "github.com/Xushengqwer/article_service/sync"
)

// SyncEventHandler 把 ArticleSync 主题的消息解码后交给同步协调器。
// 协调器内部保证单篇文章串行与合并，这里只做解码与基本校验。
type SyncEventHandler struct {
	logger      *core.ZapLogger
	coordinator articlesync.Submitter
}

func NewSyncEventHandler(logger *core.ZapLogger, coordinator articlesync.Submitter) *SyncEventHandler {
	return &SyncEventHandler{
		logger:      logger,
		coordinator: coordinator,
	}
}

func (h *SyncEventHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var event events.SyncEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("反序列化同步事件失败",
			zap.Error(err),
			zap.ByteString("value", msg.Value),
		)
		return nil // 不重试无法解析的消息，索引差异留给对账兜底
	}
	if event.ArticleID == 0 {
		h.logger.Warn("同步事件缺少文章 ID，已丢弃", zap.String("eventID", event.EventID))
		return nil
	}

	h.logger.Debug("收到同步事件",
		zap.String("eventID", event.EventID),
		zap.Uint64("articleID", event.ArticleID),
		zap.String("kind", string(event.Kind)),
		zap.Int64("sourceVersion", event.SourceVersion),
	)

	// Submit 只在协调器停机时报错；报错的消息不重试，等对账修复。
	if err := h.coordinator.Submit(ctx, &event); err != nil {
		h.logger.Warn("同步事件投递协调器失败",
			zap.Error(err),
			zap.String("eventID", event.EventID),
			zap.Uint64("articleID", event.ArticleID),
		)
	}
	return nil
}
