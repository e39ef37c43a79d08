// Package lifecycle 实现文章发布状态机。
//
// 状态图（唯一合法的边）:
//
//	Draft ──► Published ──► Offline ──► Published
//	Draft ──► Offline
//
// Published ──► Draft 被禁止：发布是单向的披露动作，撤回必须经由 Offline。
package lifecycle

import (
	"time"

	"github.com/Xushengqwer/article_service/models/entities"
	"github.com/Xushengqwer/article_service/models/enums"
	"github.com/Xushengqwer/article_service/myErrors"
)

// allowed 合法流转边的邻接表。
var allowed = map[enums.Status][]enums.Status{
	enums.Draft:     {enums.Published, enums.Offline},
	enums.Published: {enums.Offline},
	enums.Offline:   {enums.Published},
}

// CanTransition 判断 from -> to 是否为合法边。
func CanTransition(from, to enums.Status) bool {
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition 校验并在 article 上应用一次状态流转。
//
//   - 非法边返回 *myErrors.TransitionError，实体不发生任何变更。
//   - 进入 Published 时：若 PublishedAt 尚未设置，取 now；若调用方显式给出 publishAt
//     （可以是未来时间，即定时发布），以调用方为准。
//   - PublishedAt 一经设置便不再清空：Draft→Offline、Published→Offline 都保留原值，
//     首次发布的历史是不可抹去的事实。
//   - 对索引而言，"Published 且 PublishedAt 在未来" 等价于 Draft，可见性判定见 EffectivelyVisible。
func Transition(article *entities.Article, to enums.Status, publishAt *time.Time, now time.Time) error {
	from := article.Status
	if !CanTransition(from, to) {
		return myErrors.NewTransitionError(from.String(), to.String())
	}

	if to == enums.Published {
		switch {
		case publishAt != nil:
			t := *publishAt
			article.PublishedAt = &t
		case article.PublishedAt == nil:
			t := now
			article.PublishedAt = &t
		}
		// 重新上线且未指定新发布时间：保留首次发布时间。
	}

	article.Status = to
	return nil
}

// EffectivelyVisible 判断文章此刻是否应当对外可见（即应当存在于搜索索引中）。
// - Published 且发布时间已到达才算可见；定时发布未到点的文章等同草稿。
func EffectivelyVisible(article *entities.Article, now time.Time) bool {
	if article.Status != enums.Published {
		return false
	}
	if article.PublishedAt == nil {
		// Published 必有 PublishedAt；缺失的历史脏数据按不可见处理。
		return false
	}
	return !article.PublishedAt.After(now)
}
