package entities

import (
	"time"

	"github.com/Xushengqwer/go-common/models/entities"

	"github.com/Xushengqwer/article_service/models/enums"
)

// Article 文章实体，主存储（MySQL）中的权威数据。
// - 表名: articles (GORM 默认使用结构体名复数形式)
// - 删除永远是软删除（BaseModel 内嵌 DeletedAt）：已发布过的内容不允许物理删除行，
//   这样搜索索引的漂移检测才能区分“仍存在但已下线”和“已经不存在”。
type Article struct {
	entities.BaseModel // 内嵌公共 BaseModel，包含 ID, CreatedAt, UpdatedAt, DeletedAt，支持软删除

	// 标题，必填，最大长度255个字符
	Title string `gorm:"type:varchar(255);not null"`

	// Slug，URL 友好的唯一标识，由标题派生
	Slug string `gorm:"type:varchar(255);not null;index"`

	// 摘要，列表页展示用的简述
	Summary string `gorm:"type:varchar(512)"`

	// 正文，Markdown 文本
	Content string `gorm:"type:longtext;not null"`

	// 封面图 URL，上传到 COS 后回填
	CoverImage string `gorm:"type:varchar(255)"`

	// 分类ID，关联分类表
	CategoryID uint64 `gorm:"index"`

	// 作者ID，来自认证层透传的用户标识（UUID 格式）
	AuthorID string `gorm:"type:char(36);not null;index"`

	// 标签，有序字符串列表，存储为单一文本列（JSON 数组，见 tagcodec 包）
	// - 列内容损坏时解码退化为空列表，不会阻塞文章读取。
	Tags TagList `gorm:"type:text"`

	// 状态，枚举类型：0=草稿, 1=已发布, 2=已下线
	// - 状态流转的合法性由 lifecycle 包校验。
	Status enums.Status `gorm:"type:int;default:0;index"`

	// 是否置顶
	IsTop bool `gorm:"default:false"`

	// 是否精选
	IsFeatured bool `gorm:"default:false"`

	// 发布时间
	// - 不变式: 当且仅当文章曾经进入过 Published 状态时非空；此后下线也不清空（保留首次发布历史）。
	// - 若为未来时间，表示定时发布：到点之前文章不对外可见、不可被搜索。
	PublishedAt *time.Time `gorm:"index"`

	// 版本号，单调递增，从 1 开始
	// - 用于写路径的乐观并发控制（update ... where version = ?）。
	// - 同步协调器与对账任务用它判断搜索索引文档是否过期。
	Version int64 `gorm:"not null;default:1"`
}
