package events

import (
	"time"

	"github.com/google/uuid"
)

// SyncEventKind 同步事件类型。
type SyncEventKind string

const (
	// SyncUpsert 将文章的最新投影写入/覆盖到搜索索引。
	SyncUpsert SyncEventKind = "upsert"
	// SyncDelete 从搜索索引中移除文章对应的文档。
	SyncDelete SyncEventKind = "delete"
)

// SyncEvent 是主存储到搜索索引的一个传播工作单元。
// - 每次改变了索引投影字段的已提交主存储变更，恰好产生一条事件。
// - SourceVersion 记录产生该事件的那次变更提交后的文章版本号，
//   协调器与索引层据此做过期校验与幂等去重。
// - 事件自创建起由同步协调器独占处理，直至终态（已应用或进入死信）。
type SyncEvent struct {
	EventID       string        `json:"event_id"`       // 事件唯一标识（UUID）
	ArticleID     uint64        `json:"article_id"`     // 文章 ID
	Kind          SyncEventKind `json:"kind"`           // upsert / delete
	SourceVersion int64         `json:"source_version"` // 产生事件的文章版本号
	Timestamp     time.Time     `json:"timestamp"`      // 事件产生时间
}

// NewSyncEvent 创建一条携带新 EventID 的同步事件。
func NewSyncEvent(articleID uint64, kind SyncEventKind, sourceVersion int64) *SyncEvent {
	return &SyncEvent{
		EventID:       uuid.NewString(),
		ArticleID:     articleID,
		Kind:          kind,
		SourceVersion: sourceVersion,
		Timestamp:     time.Now(),
	}
}
