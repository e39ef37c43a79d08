package config

// ReconcileConfig 漂移对账任务的运行参数。
type ReconcileConfig struct {
	// Schedule 对账扫描的 cron 表达式（robfig/cron v3 语法，如 "@every 30m"）。
	// 为空时使用 constant.ReconcileDefaultSchedule。
	Schedule string `mapstructure:"schedule" json:"schedule" yaml:"schedule"`

	// BatchSize 每批从主存储/索引扫描的记录数。
	BatchSize int `mapstructure:"batchSize" json:"batchSize" yaml:"batchSize"`

	// TimeBudgetSec 单次扫描的总时间预算（秒）；超出则截断本次扫描，留给下一轮继续。
	TimeBudgetSec int `mapstructure:"timeBudgetSec" json:"timeBudgetSec" yaml:"timeBudgetSec"`
}
