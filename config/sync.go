package config

// SyncConfig 同步协调器（主存储 -> 搜索索引）的运行参数。
type SyncConfig struct {
	// Workers 并发应用同步事件的 worker 数量。
	// - 不同文章间完全并行；同一篇文章由准入门闩保证任意时刻至多一个在途写入。
	Workers int `mapstructure:"workers" json:"workers" yaml:"workers"`

	// QueueSize 协调器内部事件队列容量。
	QueueSize int `mapstructure:"queueSize" json:"queueSize" yaml:"queueSize"`

	// MaxAttempts 单个事件的最大尝试次数，耗尽后进入死信。
	MaxAttempts int `mapstructure:"maxAttempts" json:"maxAttempts" yaml:"maxAttempts"`

	// BaseBackoffMs 首次重试前的退避毫秒数，之后按 2 的幂放大。
	BaseBackoffMs int `mapstructure:"baseBackoffMs" json:"baseBackoffMs" yaml:"baseBackoffMs"`

	// AttemptTimeoutSec 单次传播尝试的超时秒数；超时按瞬时失败处理，走同一重试策略。
	AttemptTimeoutSec int `mapstructure:"attemptTimeoutSec" json:"attemptTimeoutSec" yaml:"attemptTimeoutSec"`
}
