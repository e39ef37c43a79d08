package dto

import (
	"github.com/Xushengqwer/article_service/models/enums"
)

// ListArticlesByConditionRequest 定义管理员分页条件查询文章的请求数据结构
type ListArticlesByConditionRequest struct {
	ID         *uint64       `form:"id" json:"id,omitempty"`                               // 文章ID，若存在则按主键查询，可选
	Title      *string       `form:"title" json:"title,omitempty"`                         // 标题模糊查询，可选
	AuthorID   *string       `form:"author_id" json:"author_id,omitempty"`                 // 作者ID精确查询，可选
	CategoryID *uint64       `form:"category_id" json:"category_id,omitempty"`             // 分类筛选，可选
	Status     *enums.Status `form:"status" json:"status,omitempty" swaggertype:"integer"` // 状态筛选，可选（0=草稿, 1=发布, 2=下线）
	IsTop      *bool         `form:"is_top" json:"is_top,omitempty"`                       // 是否置顶筛选，可选
	IsFeatured *bool         `form:"is_featured" json:"is_featured,omitempty"`             // 是否加精筛选，可选
	OrderBy    string        `form:"order_by" json:"order_by"`                             // 排序字段（created_at、updated_at 或 published_at），默认 created_at
	OrderDesc  bool          `form:"order_desc" json:"order_desc"`                         // 是否降序，true 为降序
	Page       int           `form:"page" json:"page" binding:"required,gt=0"`             // 页码，从 1 开始，必填
	PageSize   int           `form:"page_size" json:"page_size" binding:"required,gt=0"`   // 每页大小，必填
}

// GetOffset 计算分页偏移量。
// - (page - 1) * pageSize
func (dto *ListArticlesByConditionRequest) GetOffset() int {
	if dto.Page <= 0 {
		return 0
	}
	return (dto.Page - 1) * dto.PageSize
}

// GetLimit 获取每页数量。
func (dto *ListArticlesByConditionRequest) GetLimit() int {
	return dto.PageSize
}

// SearchArticlesRequest 定义了全文搜索文章的API请求参数。
// - 搜索只命中对外可见的文章（已发布且发布时间已到）；草稿与下线文章不出现在结果中。
type SearchArticlesRequest struct {
	// Query 搜索关键词，对标题/摘要/正文做全文匹配。
	// - binding:"omitempty,max=255"`: 可选，最大长度255字符；
	//   关键词、作者、标签三者至少要提供一个，只按标签或只按作者过滤同样合法。
	Query string `form:"q" binding:"omitempty,max=255"`

	// AuthorID 作者ID精确过滤。
	// - binding:"omitempty,max=64"`: 可选。
	AuthorID *string `form:"author_id" binding:"omitempty,max=64"`

	// Tag 标签精确过滤。
	// - binding:"omitempty,max=50"`: 可选。
	Tag *string `form:"tag" binding:"omitempty,max=50"`

	// Page 页码，从 1 开始。
	// - binding:"omitempty,gte=1"`: 可选，默认 1。
	Page int `form:"page" binding:"omitempty,gte=1"`

	// PageSize 每页数量。
	// - binding:"omitempty,gte=1,lte=100"`: 可选，默认 constant.DefaultPageSize。
	PageSize int `form:"page_size" binding:"omitempty,gte=1,lte=100"`
}

// FindArticlesByAuthorRequest 定义了按作者查询已索引文章的API请求参数。
// - 同样只命中对外可见的文章；作者想看自己的全部文章应走管理端条件查询。
type FindArticlesByAuthorRequest struct {
	// AuthorID 作者ID，必填。
	AuthorID string `form:"author_id" binding:"required,max=64"`

	// Page 页码，从 1 开始。
	Page int `form:"page" binding:"omitempty,gte=1"`

	// PageSize 每页数量。
	PageSize int `form:"page_size" binding:"omitempty,gte=1,lte=100"`
}
