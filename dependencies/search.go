// dependencies/search.go
package dependencies

import (
	"fmt"

	"github.com/Xushengqwer/go-common/core"
	"go.uber.org/zap"

	appConfig "github.com/Xushengqwer/article_service/config"
	"github.com/Xushengqwer/article_service/repo/search"
)

// InitSearchIndex 打开（或创建）本地 bleve 搜索索引。
// 索引是主存储的派生投影，文件损坏或丢失时可以删除目录后靠对账全量重建。
func InitSearchIndex(cfg *appConfig.SearchConfig, logger *core.ZapLogger) (search.ArticleIndex, error) {
	if cfg.IndexPath == "" {
		return nil, fmt.Errorf("搜索索引路径 (search.indexPath) 未配置")
	}

	idx, err := search.OpenArticleIndex(cfg.IndexPath, logger.Logger())
	if err != nil {
		logger.Error("打开搜索索引失败", zap.String("indexPath", cfg.IndexPath), zap.Error(err))
		return nil, fmt.Errorf("打开搜索索引失败: %w", err)
	}

	logger.Info("搜索索引已就绪", zap.String("indexPath", cfg.IndexPath))
	return idx, nil
}
