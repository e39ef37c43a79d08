package config

type KafkaConfig struct {
	Brokers         []string `mapstructure:"brokers" json:"brokers" yaml:"brokers"`
	Topics          Topics   `mapstructure:"topics" json:"topics" yaml:"topics"`
	ConsumerGroupID string   `mapstructure:"consumer_group_id" json:"consumer_group_id" yaml:"consumer_group_id"`
}

type Topics struct {
	// ArticleSync 主存储变更到搜索索引的同步事件主题。
	// - 消息以 articleID 作为 key，保证同一篇文章的事件落在同一分区、保持产生顺序。
	ArticleSync string `mapstructure:"articleSync" yaml:"articleSync"`
}
