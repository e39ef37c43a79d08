package myErrors

import (
	"errors"
	"fmt"
)

// ErrVersionConflict 表示乐观并发控制失败：调用方携带的期望版本号与数据库中的当前版本号不一致。
// - 调用方应当重新读取最新数据后再次提交。
var ErrVersionConflict = errors.New("article: version conflict (optimistic lock lost)")

// ErrStaleIndexWrite 表示搜索索引拒绝了一次版本回退的写入。
// - 当提交的文档版本低于索引中已存在的版本时返回，防止乱序投递（如旧事件的重试）使索引数据回退。
// - 对同步协调器而言这是一个良性信号：更新的文档已经在索引中，直接跳过即可。
var ErrStaleIndexWrite = errors.New("search index: stale write rejected (document version regressed)")

// ErrSyncRetryExhausted 表示某个同步事件在耗尽重试预算后仍未成功应用到搜索索引。
// - 该错误不会返回给原始调用方（主存储的写入早已成功），而是随事件一起记入死信，
//   等待对账任务按自己的节奏重新发现并修复。
var ErrSyncRetryExhausted = errors.New("sync: retry budget exhausted, event dead-lettered")

// TransitionError 表示一次非法的文章状态流转请求。
// - 携带当前状态与目标状态，便于调用方与日志定位非法边。
// - 返回该错误时实体未发生任何变更。
type TransitionError struct {
	From string // 当前状态
	To   string // 请求流转到的状态
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("article: illegal status transition %s -> %s", e.From, e.To)
}

// NewTransitionError 构造一个状态流转错误。
func NewTransitionError(from, to string) *TransitionError {
	return &TransitionError{From: from, To: to}
}

// TransientIndexError 包装一次可重试的搜索索引 I/O 失败（索引暂不可用、单次尝试超时等）。
// - 同步协调器据此决定按指数退避策略重试。
type TransientIndexError struct {
	Err error
}

func (e *TransientIndexError) Error() string {
	return fmt.Sprintf("search index: transient failure: %v", e.Err)
}

func (e *TransientIndexError) Unwrap() error {
	return e.Err
}

// NewTransientIndexError 包装底层索引错误为可重试错误。
func NewTransientIndexError(err error) *TransientIndexError {
	return &TransientIndexError{Err: err}
}

// IsTransient 判断一个错误是否应按瞬时故障处理（重试而非放弃）。
func IsTransient(err error) bool {
	var te *TransientIndexError
	return errors.As(err, &te)
}
