package mysql

import (
	"context"

	"go.uber.org/zap"

	"github.com/Xushengqwer/article_service/constant"
	"github.com/Xushengqwer/article_service/models/dto"
	"github.com/Xushengqwer/article_service/models/entities"
)

// allowedOrderColumns 条件查询允许的排序字段白名单，防止把用户输入直接拼进 ORDER BY。
var allowedOrderColumns = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"published_at": true,
}

// ListArticlesByCondition 分页条件查询文章列表。
func (r *articleRepository) ListArticlesByCondition(ctx context.Context, query *dto.ListArticlesByConditionRequest) ([]*entities.Article, int64, error) {
	var articles []*entities.Article
	var totalCount int64

	// 若提供了 ID，直接按主键查询，忽略其他筛选条件。
	if query.ID != nil {
		article, err := r.GetArticleByID(ctx, *query.ID)
		if err != nil {
			// 未找到时返回空结果而不是错误，语义上等价于“没有符合条件的记录”。
			return []*entities.Article{}, 0, nil
		}
		return []*entities.Article{article}, 1, nil
	}

	dbQuery := r.db.WithContext(ctx).Model(&entities.Article{})

	// 应用筛选条件 (检查指针是否为 nil)
	if query.Title != nil {
		dbQuery = dbQuery.Where("title LIKE ?", "%"+*query.Title+"%")
	}
	if query.AuthorID != nil {
		dbQuery = dbQuery.Where("author_id = ?", *query.AuthorID)
	}
	if query.CategoryID != nil {
		dbQuery = dbQuery.Where("category_id = ?", *query.CategoryID)
	}
	if query.Status != nil {
		dbQuery = dbQuery.Where("status = ?", *query.Status)
	}
	if query.IsTop != nil {
		dbQuery = dbQuery.Where("is_top = ?", *query.IsTop)
	}
	if query.IsFeatured != nil {
		dbQuery = dbQuery.Where("is_featured = ?", *query.IsFeatured)
	}

	// 先统计总数，再取当前页数据。
	if err := dbQuery.Count(&totalCount).Error; err != nil {
		r.logger.Error("条件查询文章总数失败",
			zap.Error(err),
			zap.Any("query", query),
		)
		return nil, 0, err
	}

	// 排序字段白名单校验，非法值回退到 created_at。
	orderBy := query.OrderBy
	if !allowedOrderColumns[orderBy] {
		orderBy = "created_at"
	}
	direction := "ASC"
	if query.OrderDesc {
		direction = "DESC"
	}

	limit := query.GetLimit()
	if limit <= 0 || limit > constant.MaxPageSize {
		limit = constant.DefaultPageSize
	}

	err := dbQuery.
		Order(orderBy + " " + direction).
		Order("id DESC"). // 次级排序，保证同值时顺序稳定
		Offset(query.GetOffset()).
		Limit(limit).
		Find(&articles).Error
	if err != nil {
		r.logger.Error("条件查询文章列表失败",
			zap.Error(err),
			zap.Any("query", query),
		)
		return nil, 0, err
	}

	return articles, totalCount, nil
}

// ScanArticles 按主键键集分页扫描全部未删除文章。
func (r *articleRepository) ScanArticles(ctx context.Context, afterID uint64, limit int) ([]*entities.Article, error) {
	var articles []*entities.Article

	if limit <= 0 || limit > constant.MaxPageSize {
		limit = constant.MaxPageSize
	}

	err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&articles).Error
	if err != nil {
		r.logger.Error("键集扫描文章失败",
			zap.Error(err),
			zap.Uint64("afterID", afterID),
			zap.Int("limit", limit),
		)
		return nil, err
	}

	return articles, nil
}
