package dto

import (
	"time"

	"github.com/Xushengqwer/article_service/models/enums"
)

// CreateArticleRequest 定义了创建文章草稿的请求数据结构
// - 添加了 binding 标签用于输入验证
// - 新建文章始终处于草稿态，版本号为 1
type CreateArticleRequest struct {
	Title      string   `json:"title" form:"title" binding:"required,max=255"`       // 文章标题，必填，最大255字符
	Slug       string   `json:"slug" form:"slug" binding:"omitempty,max=255"`        // URL 别名，可选
	Summary    string   `json:"summary" form:"summary" binding:"omitempty,max=512"`  // 摘要，可选，最大512字符
	Content    string   `json:"content" form:"content" binding:"required"`           // 正文内容，必填
	CategoryID uint64   `json:"category_id" form:"category_id" binding:"omitempty"`  // 分类ID，可选
	Tags       []string `json:"tags" form:"tags" binding:"omitempty,max=20,dive,max=50"` // 标签列表，可选，最多20个

	// 注意：这里没有 CoverImage 字段，封面图文件是作为 multipart/form-data 的一部分直接上传的，
	// 由服务层写入对象存储后把访问 URL 落到实体上。
}

// UpdateArticleRequest 定义了更新文章内容字段的请求数据结构
// - ExpectedVersion 是调用方读取时看到的版本号；与当前行版本不一致时更新被拒绝，
//   调用方需要重新读取最新版本后再决定是否重试。
type UpdateArticleRequest struct {
	ArticleID       uint64    `json:"article_id" binding:"required" example:"123"`             // 文章ID，必填
	ExpectedVersion int64     `json:"expected_version" binding:"required,gte=1" example:"3"`   // 期望版本号，必填
	Title           *string   `json:"title" binding:"omitempty,max=255"`                       // 新标题，可选
	Slug            *string   `json:"slug" binding:"omitempty,max=255"`                        // 新 URL 别名，可选
	Summary         *string   `json:"summary" binding:"omitempty,max=512"`                     // 新摘要，可选
	Content         *string   `json:"content" binding:"omitempty"`                             // 新正文，可选
	CategoryID      *uint64   `json:"category_id" binding:"omitempty"`                         // 新分类ID，可选
	Tags            *[]string `json:"tags" binding:"omitempty,max=20,dive,max=50"`             // 新标签列表，可选；nil 表示不修改
}

// ChangeArticleStatusRequest 定义了变更文章生命周期状态的请求数据结构
// - 合法迁移：草稿->发布/下线，发布->下线，下线->发布；发布回退草稿被拒绝。
// - PublishAt 仅在目标状态为发布时有意义：传未来时间即定时发布，对外在到点前不可见。
type ChangeArticleStatusRequest struct {
	ArticleID       uint64       `json:"article_id" binding:"required" example:"123"` // 文章ID，必填
	ExpectedVersion int64        `json:"expected_version" binding:"required,gte=1"`   // 期望版本号，必填
	// Status 目标状态。
	// 0: 草稿 (Draft)
	// 1: 发布 (Published)
	// 2: 下线 (Offline)
	Status    enums.Status `json:"status" binding:"min=0,max=2" swaggertype:"integer"`
	PublishAt *time.Time   `json:"publish_at" binding:"omitempty"` // 计划发布时间，可选，RFC3339
}
