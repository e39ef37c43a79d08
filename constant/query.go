package constant

// 查询与后台任务相关常量
const (
	// DefaultPageSize 列表查询的默认每页数量。
	DefaultPageSize = 20

	// MaxPageSize 列表/搜索查询允许的最大每页数量，超出即被钳制。
	MaxPageSize = 100

	// PublishPromoteSchedule 定时发布检查的调度表达式：每分钟把到点的文章提升为对外可见。
	PublishPromoteSchedule = "@every 1m"

	// ReconcileDefaultSchedule 漂移对账的默认调度表达式。
	ReconcileDefaultSchedule = "@every 30m"
)
