package constant

// Redis Key 相关常量 (导出)
const (
	// PublishScheduleKey 定时发布队列的 Key 名称。
	// 这是一个 Sorted Set (ZSet)，成员是文章 ID (articleID)，分数是计划发布时间的 Unix 秒。
	// 文章以未来时间发布时入队；分钟级任务弹出已到点的成员并触发索引同步。
	// Redis 类型: Sorted Set
	// 示例成员与分数: Member="123", Score=1748800000
	PublishScheduleKey = "article_publish_schedule"

	// SyncDeadLetterKey 同步死信记录的 Key 名称。
	// 这是一个 Hash，Field 是文章 ID，Value 是耗尽重试后的同步事件 JSON。
	// 对账任务每轮扫描该 Hash，按主存储当前状态重新合成事件修复后清除对应条目。
	// Redis 类型: Hash
	// 示例字段与值: Field="123", Value="{\"article_id\":123,\"kind\":\"upsert\",...}"
	SyncDeadLetterKey = "article_sync_dead_letter"
)
