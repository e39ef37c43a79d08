package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xushengqwer/article_service/models/entities"
	"github.com/Xushengqwer/article_service/models/enums"
	"github.com/Xushengqwer/article_service/myErrors"
)

func TestTransition_LegalEdges(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		from enums.Status
		to   enums.Status
	}{
		{"draft to published", enums.Draft, enums.Published},
		{"published to offline", enums.Published, enums.Offline},
		{"offline to published", enums.Offline, enums.Published},
		{"draft to offline", enums.Draft, enums.Offline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			article := &entities.Article{Status: tt.from}
			if tt.from != enums.Draft {
				// 曾经发布过的文章必带发布时间。
				published := now.Add(-24 * time.Hour)
				article.PublishedAt = &published
			}
			err := Transition(article, tt.to, nil, now)
			require.NoError(t, err)
			assert.Equal(t, tt.to, article.Status)
		})
	}
}

func TestTransition_PublishedToDraftRejected(t *testing.T) {
	published := time.Now().Add(-time.Hour)
	article := &entities.Article{Status: enums.Published, PublishedAt: &published, Version: 3}

	err := Transition(article, enums.Draft, nil, time.Now())

	var transitionErr *myErrors.TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, "Published", transitionErr.From)
	assert.Equal(t, "Draft", transitionErr.To)
	// 实体不允许被改动。
	assert.Equal(t, enums.Published, article.Status)
	assert.Equal(t, published, *article.PublishedAt)
}

func TestTransition_FirstPublishSetsPublishTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	article := &entities.Article{Status: enums.Draft}

	require.NoError(t, Transition(article, enums.Published, nil, now))
	require.NotNil(t, article.PublishedAt)
	assert.Equal(t, now, *article.PublishedAt)
}

func TestTransition_ScheduledPublish(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	article := &entities.Article{Status: enums.Draft}

	require.NoError(t, Transition(article, enums.Published, &future, now))
	assert.Equal(t, enums.Published, article.Status)
	require.NotNil(t, article.PublishedAt)
	assert.Equal(t, future, *article.PublishedAt)

	// 定时发布未到点：不可见，等价于草稿。
	assert.False(t, EffectivelyVisible(article, now))
	// 到点后可见。
	assert.True(t, EffectivelyVisible(article, future))
	assert.True(t, EffectivelyVisible(article, future.Add(time.Minute)))
}

func TestTransition_OfflineKeepsPublishTime(t *testing.T) {
	now := time.Now()
	first := now.Add(-72 * time.Hour)
	article := &entities.Article{Status: enums.Published, PublishedAt: &first}

	require.NoError(t, Transition(article, enums.Offline, nil, now))
	require.NotNil(t, article.PublishedAt)
	assert.Equal(t, first, *article.PublishedAt)

	// 重新上线且未显式指定时间：保留首次发布时间。
	require.NoError(t, Transition(article, enums.Published, nil, now))
	assert.Equal(t, first, *article.PublishedAt)
}

func TestTransition_DraftWithdrawalIsPublishTimeNoop(t *testing.T) {
	article := &entities.Article{Status: enums.Draft}
	require.NoError(t, Transition(article, enums.Offline, nil, time.Now()))
	assert.Equal(t, enums.Offline, article.Status)
	assert.Nil(t, article.PublishedAt)
}

func TestEffectivelyVisible(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)

	assert.False(t, EffectivelyVisible(&entities.Article{Status: enums.Draft}, now))
	assert.False(t, EffectivelyVisible(&entities.Article{Status: enums.Offline, PublishedAt: &past}, now))
	assert.True(t, EffectivelyVisible(&entities.Article{Status: enums.Published, PublishedAt: &past}, now))
	// 历史脏数据：Published 但缺发布时间，按不可见处理。
	assert.False(t, EffectivelyVisible(&entities.Article{Status: enums.Published}, now))
}
