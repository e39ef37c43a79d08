package config

// SearchConfig 全文搜索索引（bleve）的配置。
type SearchConfig struct {
	// IndexPath 索引文件的磁盘目录；不存在时自动创建新索引。
	IndexPath string `mapstructure:"indexPath" json:"indexPath" yaml:"indexPath"`
}
