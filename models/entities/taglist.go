package entities

import (
	"database/sql/driver"
	"fmt"

	"github.com/Xushengqwer/article_service/tagcodec"
)

// TagList 是文章标签列的 GORM 类型适配器。
// - 编解码逻辑全部委托给 tagcodec 包，本类型只是持久化框架的薄壳，
//   保证磁盘上始终是一个 JSON 字符串数组（空列表写 "[]"，不写 NULL）。
type TagList []string

// Value 实现 driver.Valuer，写库时编码为规范文本。
func (t TagList) Value() (driver.Value, error) {
	return tagcodec.Encode(t), nil
}

// Scan 实现 sql.Scanner，读库时解码。
// - 永不失败：畸形内容由 tagcodec 吸收并退化为空列表，避免坏数据阻塞整行读取。
func (t *TagList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = TagList{}
	case []byte:
		*t = tagcodec.Decode(string(v))
	case string:
		*t = tagcodec.Decode(v)
	default:
		// 理论上不会出现其他驱动类型；保持读取不失败的策略，仅退化为空列表。
		*t = tagcodec.Decode(fmt.Sprintf("%v", src))
	}
	return nil
}
