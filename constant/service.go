package constant

// 服务元信息，用于追踪与日志标识。
const (
	ServiceName    = "article_service"
	ServiceVersion = "1.0.0"
)
