package config

import "github.com/Xushengqwer/go-common/config"

// ArticleConfig 文章服务的聚合配置，由 core.LoadConfig 从 YAML 加载。
type ArticleConfig struct {
	ZapConfig       config.ZapConfig     `mapstructure:"zapConfig" json:"zapConfig" yaml:"zapConfig"`
	GormLogConfig   config.GormLogConfig `mapstructure:"gormLogConfig" json:"gormLogConfig" yaml:"gormLogConfig"`
	ServerConfig    config.ServerConfig  `mapstructure:"serverConfig" json:"serverConfig" yaml:"serverConfig"`
	TracerConfig    config.TracerConfig  `mapstructure:"tracerConfig" json:"tracerConfig" yaml:"tracerConfig"`
	MySQLConfig     MySQLConfig          `mapstructure:"mysqlConfig" json:"mysqlConfig" yaml:"mysqlConfig"`
	RedisConfig     RedisConfig          `mapstructure:"redisConfig" json:"redisConfig" yaml:"redisConfig"`
	KafkaConfig     KafkaConfig          `mapstructure:"kafkaConfig" json:"kafkaConfig" yaml:"kafkaConfig"`
	SearchConfig    SearchConfig         `mapstructure:"searchConfig" json:"searchConfig" yaml:"searchConfig"`
	SyncConfig      SyncConfig           `mapstructure:"syncConfig" json:"syncConfig" yaml:"syncConfig"`
	ReconcileConfig ReconcileConfig      `mapstructure:"reconcileConfig" json:"reconcileConfig" yaml:"reconcileConfig"`
	COSConfig       COSConfig            `mapstructure:"coverImageCosConfig" json:"coverImageCosConfig" yaml:"coverImageCosConfig"`
}
