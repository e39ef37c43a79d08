package service

import (
	"context"

	"github.com/Xushengqwer/go-common/core"
	"go.uber.org/zap"

	"github.com/Xushengqwer/article_service/constant"
	"github.com/Xushengqwer/article_service/models/dto"
	"github.com/Xushengqwer/article_service/models/vo"
	"github.com/Xushengqwer/article_service/repo/mysql"
	"github.com/Xushengqwer/article_service/repo/search"
)

// ArticleQueryService 定义了文章查询类业务逻辑的接口。
// 列表查询走主存储；全文搜索走派生索引，两者的一致性由同步与对账保证。
type ArticleQueryService interface {
	// ListArticlesByCondition 管理端分页条件查询，数据来自 MySQL 权威存储。
	ListArticlesByCondition(ctx context.Context, req *dto.ListArticlesByConditionRequest) (*vo.ListArticlePageVO, error)

	// SearchArticles 全文搜索，数据来自搜索索引。
	// 只返回对外可见的文章；索引短暂落后主存储时结果可能有秒级延迟。
	SearchArticles(ctx context.Context, req *dto.SearchArticlesRequest) (*vo.SearchResultVO, error)

	// FindArticlesByAuthor 按作者查询其所有对外可见的文章，数据来自搜索索引。
	FindArticlesByAuthor(ctx context.Context, req *dto.FindArticlesByAuthorRequest) (*vo.SearchResultVO, error)
}

// articleQueryService 是 ArticleQueryService 接口的具体实现。
type articleQueryService struct {
	articleRepo mysql.ArticleRepository
	index       search.ArticleIndex
	logger      *core.ZapLogger
}

// NewArticleQueryService 是 articleQueryService 的构造函数。
func NewArticleQueryService(
	articleRepo mysql.ArticleRepository,
	index search.ArticleIndex,
	logger *core.ZapLogger,
) ArticleQueryService {
	return &articleQueryService{
		articleRepo: articleRepo,
		index:       index,
		logger:      logger,
	}
}

// ListArticlesByCondition 分页条件查询。
func (s *articleQueryService) ListArticlesByCondition(ctx context.Context, req *dto.ListArticlesByConditionRequest) (*vo.ListArticlePageVO, error) {
	articles, total, err := s.articleRepo.ListArticlesByCondition(ctx, req)
	if err != nil {
		s.logger.Error("条件查询文章列表失败", zap.Error(err))
		return nil, err
	}
	return &vo.ListArticlePageVO{
		Articles: vo.MapArticlesToResponsesVO(articles),
		Total:    total,
	}, nil
}

// SearchArticles 全文搜索。
func (s *articleQueryService) SearchArticles(ctx context.Context, req *dto.SearchArticlesRequest) (*vo.SearchResultVO, error) {
	page := req.Page
	if page <= 0 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = constant.DefaultPageSize
	}
	if pageSize > constant.MaxPageSize {
		pageSize = constant.MaxPageSize
	}
	offset := (page - 1) * pageSize

	hits, total, err := s.index.Search(ctx, req.Query, req.AuthorID, req.Tag, offset, pageSize)
	if err != nil {
		s.logger.Error("全文搜索失败",
			zap.Error(err),
			zap.String("query", req.Query),
		)
		return nil, err
	}

	result := &vo.SearchResultVO{
		Hits:  make([]*vo.SearchHitVO, 0, len(hits)),
		Total: total,
	}
	for _, hit := range hits {
		result.Hits = append(result.Hits, &vo.SearchHitVO{
			ID:       hit.ArticleID,
			AuthorID: hit.AuthorID,
			Tags:     hit.Tags,
			Score:    hit.Score,
		})
	}
	return result, nil
}

// FindArticlesByAuthor 作者维度查询。
func (s *articleQueryService) FindArticlesByAuthor(ctx context.Context, req *dto.FindArticlesByAuthorRequest) (*vo.SearchResultVO, error) {
	page := req.Page
	if page <= 0 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = constant.DefaultPageSize
	}
	if pageSize > constant.MaxPageSize {
		pageSize = constant.MaxPageSize
	}
	offset := (page - 1) * pageSize

	hits, total, err := s.index.FindByAuthorID(ctx, req.AuthorID, offset, pageSize)
	if err != nil {
		s.logger.Error("按作者查询已索引文章失败",
			zap.Error(err),
			zap.String("authorID", req.AuthorID),
		)
		return nil, err
	}

	result := &vo.SearchResultVO{
		Hits:  make([]*vo.SearchHitVO, 0, len(hits)),
		Total: total,
	}
	for _, hit := range hits {
		result.Hits = append(result.Hits, &vo.SearchHitVO{
			ID:       hit.ArticleID,
			AuthorID: hit.AuthorID,
			Tags:     hit.Tags,
			Score:    hit.Score,
		})
	}
	return result, nil
}
