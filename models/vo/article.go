package vo

import (
	"time"

	"github.com/Xushengqwer/article_service/models/entities"
	"github.com/Xushengqwer/article_service/models/enums"
)

// ArticleResponse 定义了文章基础信息的响应数据结构
type ArticleResponse struct {
	ID          uint64       `json:"id"`           // 文章ID
	Title       string       `json:"title"`        // 文章标题
	Slug        string       `json:"slug"`         // URL 别名
	Summary     string       `json:"summary"`      // 摘要
	CoverImage  string       `json:"cover_image"`  // 封面图 URL
	CategoryID  uint64       `json:"category_id"`  // 分类ID
	AuthorID    string       `json:"author_id"`    // 作者ID
	Tags        []string     `json:"tags"`         // 标签列表
	Status      enums.Status `json:"status"`       // 文章状态，0=草稿, 1=发布, 2=下线
	IsTop       bool         `json:"is_top"`       // 是否置顶
	IsFeatured  bool         `json:"is_featured"`  // 是否加精
	PublishedAt *time.Time   `json:"published_at"` // 首次发布时间，未发布过为 null
	Version     int64        `json:"version"`      // 当前版本号，更新时作为 expected_version 回传
	CreatedAt   time.Time    `json:"created_at"`   // 创建时间
	UpdatedAt   time.Time    `json:"updated_at"`   // 更新时间
}

// ArticleDetailVO 定义了文章详情页的完整视图对象。
// 在基础信息之上附带正文内容。
type ArticleDetailVO struct {
	ArticleResponse
	Content string `json:"content"` // 正文内容
}

// ListArticlePageVO 定义了文章条件分页查询的响应结构。
// - 包含当前页的文章列表和总记录数。
type ListArticlePageVO struct {
	Articles []*ArticleResponse `json:"articles"` // 当前页的文章摘要列表
	Total    int64              `json:"total"`    // 符合条件的总记录数
}

// SearchHitVO 定义了全文搜索单条命中的视图对象。
// 命中数据来自搜索索引的派生投影，字段是主存储的子集。
type SearchHitVO struct {
	ID       uint64   `json:"id"`        // 文章ID
	AuthorID string   `json:"author_id"` // 作者ID
	Tags     []string `json:"tags"`      // 标签列表
	Score    float64  `json:"score"`     // 相关度评分
}

// SearchResultVO 定义了全文搜索的响应结构。
type SearchResultVO struct {
	Hits  []*SearchHitVO `json:"hits"`  // 命中列表，按相关度降序
	Total uint64         `json:"total"` // 命中总数
}

// MapArticleToResponseVO 将单个文章实体转换为基础响应VO。
// 此函数会处理输入实体可能为 nil 的情况。
func MapArticleToResponseVO(article *entities.Article) *ArticleResponse {
	if article == nil {
		return nil
	}
	tags := article.Tags
	if tags == nil {
		tags = []string{} // 返回空切片而不是nil，便于前端处理
	}
	return &ArticleResponse{
		ID:          article.ID,
		Title:       article.Title,
		Slug:        article.Slug,
		Summary:     article.Summary,
		CoverImage:  article.CoverImage,
		CategoryID:  article.CategoryID,
		AuthorID:    article.AuthorID,
		Tags:        tags,
		Status:      article.Status,
		IsTop:       article.IsTop,
		IsFeatured:  article.IsFeatured,
		PublishedAt: article.PublishedAt,
		Version:     article.Version,
		CreatedAt:   article.CreatedAt,
		UpdatedAt:   article.UpdatedAt,
	}
}

// MapArticlesToResponsesVO 是一个辅助函数，用于将文章实体列表转换为响应VO列表。
func MapArticlesToResponsesVO(articles []*entities.Article) []*ArticleResponse {
	if len(articles) == 0 {
		return []*ArticleResponse{}
	}

	responses := make([]*ArticleResponse, 0, len(articles))
	for _, article := range articles {
		if article == nil { // 安全检查，尽管不太可能发生
			continue
		}
		responses = append(responses, MapArticleToResponseVO(article))
	}
	return responses
}

// MapArticleToDetailVO 将文章实体转换为详情VO。
func MapArticleToDetailVO(article *entities.Article) *ArticleDetailVO {
	base := MapArticleToResponseVO(article)
	if base == nil {
		return nil
	}
	return &ArticleDetailVO{
		ArticleResponse: *base,
		Content:         article.Content,
	}
}
