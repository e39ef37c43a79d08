package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/Xushengqwer/go-common/commonerrors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Xushengqwer/article_service/models/dto"
	"github.com/Xushengqwer/article_service/models/entities" // 引入数据库实体定义
	"github.com/Xushengqwer/article_service/myErrors"
)

// ArticleRepository 定义了文章数据在 MySQL 中的持久化操作接口。
// 接口的设计旨在将数据访问逻辑与业务逻辑（服务层）解耦。
// MySQL 是文章数据的权威来源；搜索索引只是它的派生投影，冲突时以这里的数据为准。
type ArticleRepository interface {
	// CreateArticle 持久化一条新的文章记录。
	// - 这是文章生命周期的起点；新文章处于草稿态，版本号为 1。
	CreateArticle(ctx context.Context, db *gorm.DB, article *entities.Article) error

	// GetArticleByID 根据单个 ID 检索文章信息。
	// - 如果未找到文章（或已被软删除），返回 commonerrors.ErrRepoNotFound 错误。
	GetArticleByID(ctx context.Context, id uint64) (*entities.Article, error)

	// UpdateArticleCAS 以乐观并发控制更新文章字段。
	// - updates 中的列只有在当前行版本等于 expectedVersion 时才会落库，同时版本号加一。
	// - 版本不匹配返回 myErrors.ErrVersionConflict；行不存在返回 commonerrors.ErrRepoNotFound。
	// - 调用方不应自动重试：需要重新读取最新版本后由上层决定。
	// - 返回值为更新成功后的新版本号。
	UpdateArticleCAS(ctx context.Context, db *gorm.DB, articleID uint64, expectedVersion int64, updates map[string]interface{}) (int64, error)

	// DeleteArticle 对指定文章执行软删除。
	// - 软删除是通过 GORM 的约定（填充 deleted_at 字段）实现的，数据本身仍在数据库中。
	// - 软删除后的文章对查询不可见，索引侧的对应文档按孤儿处理。
	DeleteArticle(ctx context.Context, db *gorm.DB, id uint64) error

	// ListArticlesByCondition 分页条件查询文章列表，支持状态/作者/分类等筛选。
	// - 返回: 文章列表, 符合条件的总记录数, 错误。
	ListArticlesByCondition(ctx context.Context, query *dto.ListArticlesByConditionRequest) ([]*entities.Article, int64, error)

	// ScanArticles 按主键键集分页扫描全部未删除文章（含草稿与下线）。
	// - afterID 为 0 表示从头开始；返回的切片按 ID 升序。
	// - 供对账任务逐批遍历主存储使用，避免深分页的偏移开销。
	ScanArticles(ctx context.Context, afterID uint64, limit int) ([]*entities.Article, error)
}

// articleRepository 是 ArticleRepository 接口针对 MySQL 的具体实现。
type articleRepository struct {
	db     *gorm.DB    // GORM 数据库实例
	logger *zap.Logger // 日志记录器实例
}

// NewArticleRepository 是 articleRepository 的构造函数。
func NewArticleRepository(db *gorm.DB, logger *zap.Logger) ArticleRepository {
	return &articleRepository{
		db:     db,
		logger: logger,
	}
}

// CreateArticle 实现文章的数据库插入操作。
func (r *articleRepository) CreateArticle(ctx context.Context, db *gorm.DB, article *entities.Article) error {
	// 使用传入的 db 对象（在这里即为事务对象 tx）执行数据库操作。
	// GORM 会自动处理 BaseModel 中的 CreatedAt 和 UpdatedAt 字段。
	if article.Version == 0 {
		article.Version = 1
	}
	if err := db.WithContext(ctx).Create(article).Error; err != nil {
		// 在仓库层，通常直接返回数据库错误，由服务层决定如何处理或包装。
		return err
	}
	// 创建成功后，article 对象会包含 GORM 自动生成的 ID 和时间戳。
	return nil
}

// GetArticleByID 按主键查询单条文章。
func (r *articleRepository) GetArticleByID(ctx context.Context, id uint64) (*entities.Article, error) {
	var article entities.Article
	err := r.db.WithContext(ctx).First(&article, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 统一转换为服务内约定的未找到错误，屏蔽 GORM 细节。
			return nil, commonerrors.ErrRepoNotFound
		}
		r.logger.Error("按 ID 查询文章失败",
			zap.Error(err),
			zap.Uint64("articleID", id),
		)
		return nil, err
	}
	return &article, nil
}

// UpdateArticleCAS 实现带版本校验的条件更新。
// 核心是把版本比较和字段写入放进同一条 UPDATE，让数据库保证原子性：
//
//	UPDATE articles SET ..., version = version + 1
//	WHERE id = ? AND version = ? AND deleted_at IS NULL
func (r *articleRepository) UpdateArticleCAS(ctx context.Context, db *gorm.DB, articleID uint64, expectedVersion int64, updates map[string]interface{}) (int64, error) {
	if len(updates) == 0 {
		r.logger.Info("没有提供任何有效的字段来更新文章 (更新集为空)",
			zap.Uint64("articleID", articleID),
		)
		return expectedVersion, nil
	}

	newVersion := expectedVersion + 1
	updates["version"] = newVersion
	updates["updated_at"] = time.Now()

	result := db.WithContext(ctx).
		Model(&entities.Article{}).
		Where("id = ? AND version = ?", articleID, expectedVersion).
		Updates(updates)

	if result.Error != nil {
		r.logger.Error("更新文章数据库操作失败",
			zap.Error(result.Error),
			zap.Uint64("articleID", articleID),
			zap.Int64("expectedVersion", expectedVersion),
		)
		return 0, result.Error
	}

	if result.RowsAffected == 0 {
		// 没有命中行有两种可能：行不存在（或被软删除），或版本号已经前进。
		// 再查一次区分这两种情况，调用方需要分别处理。
		// 区分查询必须走同一个 db 句柄：UPDATE 跑在调用方事务里时，
		// 用 r.db 会看不到事务内尚未提交的行。
		var count int64
		if err := db.WithContext(ctx).
			Model(&entities.Article{}).
			Where("id = ?", articleID).
			Count(&count).Error; err != nil {
			return 0, err
		}
		if count == 0 {
			return 0, commonerrors.ErrRepoNotFound
		}
		r.logger.Warn("文章版本冲突，更新被拒绝",
			zap.Uint64("articleID", articleID),
			zap.Int64("expectedVersion", expectedVersion),
		)
		return 0, myErrors.ErrVersionConflict
	}

	return newVersion, nil
}

// DeleteArticle 实现文章的软删除。
func (r *articleRepository) DeleteArticle(ctx context.Context, db *gorm.DB, id uint64) error {
	result := db.WithContext(ctx).Delete(&entities.Article{}, id)
	if result.Error != nil {
		r.logger.Error("软删除文章数据库操作失败",
			zap.Error(result.Error),
			zap.Uint64("articleID", id),
		)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return commonerrors.ErrRepoNotFound
	}
	return nil
}
