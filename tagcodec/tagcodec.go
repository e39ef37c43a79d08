// Package tagcodec 负责文章标签列表与单一文本列之间的编解码。
//
// 磁盘格式：一个 JSON 字符串数组（例如 `["go","分布式"]`），空列表编码为 `[]` 而非 NULL，
// 该格式需要与历史数据字节兼容，不得更改。
//
// 解码是全函数（total）：任何畸形输入都退化为空列表并通过诊断钩子上报，绝不返回错误——
// 一个损坏的标签列不应该阻塞所属文章的读取。
package tagcodec

import "encoding/json"

// emptyList 空标签列表的规范编码。
const emptyList = "[]"

// diagnostic 畸形输入的上报钩子，默认丢弃。
// - main 中会把它接到 zap 上；保持包本身对日志实现零依赖。
var diagnostic = func(raw string, err error) {}

// SetDiagnostic 设置解码失败时的诊断回调。
// - 回调收到原始文本与解析错误；传入 nil 恢复为丢弃。
// - 非并发安全，应在进程初始化阶段调用一次。
func SetDiagnostic(fn func(raw string, err error)) {
	if fn == nil {
		fn = func(string, error) {}
	}
	diagnostic = fn
}

// Encode 将有序标签列表编码为存储文本。
// - 空列表（含 nil）编码为 "[]"，保证 Decode(Encode(x)) == x 对所有可表示的 x 成立。
func Encode(tags []string) string {
	if len(tags) == 0 {
		return emptyList
	}
	data, err := json.Marshal(tags)
	if err != nil {
		// []string 的 JSON 序列化不会失败；保底返回规范空列表。
		diagnostic("", err)
		return emptyList
	}
	return string(data)
}

// Decode 将存储文本解码为有序标签列表。
// - 顺序与重复项保持原样。
// - 空串、NULL 残留、畸形 JSON 一律返回空列表（非 nil），并触发诊断钩子。
func Decode(text string) []string {
	if text == "" || text == emptyList {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(text), &tags); err != nil {
		diagnostic(text, err)
		return []string{}
	}
	if tags == nil {
		// 输入为 JSON 字面量 null 的情况。
		return []string{}
	}
	return tags
}
