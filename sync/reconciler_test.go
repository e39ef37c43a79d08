package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Xushengqwer/article_service/config"
	"github.com/Xushengqwer/article_service/models/enums"
	"github.com/Xushengqwer/article_service/models/events"
	"github.com/Xushengqwer/article_service/repo/search"
)

func testReconcileConfig() *config.ReconcileConfig {
	return &config.ReconcileConfig{
		BatchSize:     10,
		TimeBudgetSec: 30,
	}
}

// newReconcilerHarness 组装一套完整的对账环境：
// 内存主存储 + 真实 bleve 索引 + 内存死信 + 真实协调器作为修复通道。
func newReconcilerHarness(t *testing.T) (*fakeSource, search.ArticleIndex, *fakeDeadLetter, *Reconciler, *Coordinator) {
	t.Helper()
	source := newFakeSource()
	idx := newTestIndex(t)
	dead := newFakeDeadLetter()
	coordinator := NewCoordinator(source, idx, dead, testSyncConfig(), zap.NewNop())
	t.Cleanup(func() { stopCoordinator(t, coordinator) })
	reconciler := NewReconciler(source, idx, dead, coordinator, testReconcileConfig(), zap.NewNop())
	return source, idx, dead, reconciler, coordinator
}

func TestReconciler_RepairsMissingDocument(t *testing.T) {
	source, idx, _, reconciler, _ := newReconcilerHarness(t)
	ctx := context.Background()

	// 可见文章在索引中没有文档（比如事件丢失）。
	source.put(publishedArticle(1, 3, time.Now().Add(-time.Hour)))

	stats, err := reconciler.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Missing)
	require.Equal(t, 1, stats.PrimaryScanned)
	require.False(t, stats.Truncated)

	require.Eventually(t, func() bool {
		doc, exists, err := idx.Get(ctx, 1)
		return err == nil && exists && doc.Version == 3
	}, 3*time.Second, 10*time.Millisecond)
}

func TestReconciler_RepairsStaleDocument(t *testing.T) {
	source, idx, _, reconciler, _ := newReconcilerHarness(t)
	ctx := context.Background()

	article := publishedArticle(1, 5, time.Now().Add(-time.Hour))
	source.put(article)
	// 索引里是落后两个版本的旧投影。
	require.NoError(t, idx.Upsert(ctx, &search.SearchDocument{
		ID: "1", AuthorID: article.AuthorID, Tags: []string{"旧标签"}, Text: "旧内容", Version: 3,
	}))

	stats, err := reconciler.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Stale)

	require.Eventually(t, func() bool {
		doc, exists, err := idx.Get(ctx, 1)
		return err == nil && exists && doc.Version == 5
	}, 3*time.Second, 10*time.Millisecond)
}

func TestReconciler_RemovesInvisibleOrphan(t *testing.T) {
	source, idx, _, reconciler, _ := newReconcilerHarness(t)
	ctx := context.Background()

	// 文章已下线，但索引里还残留文档。
	offline := publishedArticle(1, 4, time.Now().Add(-time.Hour))
	offline.Status = enums.Offline
	source.put(offline)
	require.NoError(t, idx.Upsert(ctx, &search.SearchDocument{
		ID: "1", AuthorID: offline.AuthorID, Text: "残留投影", Version: 3,
	}))

	stats, err := reconciler.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Orphaned)

	require.Eventually(t, func() bool {
		_, exists, err := idx.Get(ctx, 1)
		return err == nil && !exists
	}, 3*time.Second, 10*time.Millisecond)
}

func TestReconciler_RemovesDeletedOrphan(t *testing.T) {
	_, idx, _, reconciler, _ := newReconcilerHarness(t)
	ctx := context.Background()

	// 主存储没有这一行（已被软删除），索引文档成为孤儿，由阶段二发现。
	require.NoError(t, idx.Upsert(ctx, &search.SearchDocument{
		ID: "9", AuthorID: "user-1", Text: "已删除文章的残留", Version: 2,
	}))

	stats, err := reconciler.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Orphaned)
	require.Equal(t, 1, stats.IndexScanned)

	require.Eventually(t, func() bool {
		_, exists, err := idx.Get(ctx, 9)
		return err == nil && !exists
	}, 3*time.Second, 10*time.Millisecond)
}

func TestReconciler_DrainsDeadLetters(t *testing.T) {
	source, idx, dead, reconciler, _ := newReconcilerHarness(t)
	ctx := context.Background()

	// 一条早已过期的死信：文章现在是版本 6。
	source.put(publishedArticle(1, 6, time.Now().Add(-time.Hour)))
	require.NoError(t, dead.Record(ctx, events.NewSyncEvent(1, events.SyncUpsert, 2)))

	stats, err := reconciler.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.DeadLettersDrained)
	require.Zero(t, dead.count())

	// 修复以当前快照为准，而不是死信里的旧版本。
	require.Eventually(t, func() bool {
		doc, exists, err := idx.Get(ctx, 1)
		return err == nil && exists && doc.Version == 6
	}, 3*time.Second, 10*time.Millisecond)
}

func TestReconciler_CleanStateFindsNothing(t *testing.T) {
	source, idx, _, reconciler, coordinator := newReconcilerHarness(t)
	ctx := context.Background()

	// 正常同步后的干净状态：对账不应产生任何修复。
	source.put(publishedArticle(1, 2, time.Now().Add(-time.Hour)))
	require.NoError(t, coordinator.Submit(ctx, events.NewSyncEvent(1, events.SyncUpsert, 2)))
	require.Eventually(t, func() bool {
		doc, exists, err := idx.Get(ctx, 1)
		return err == nil && exists && doc.Version == 2
	}, 3*time.Second, 10*time.Millisecond)

	stats, err := reconciler.Run(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.Missing)
	require.Zero(t, stats.Stale)
	require.Zero(t, stats.Orphaned)
	require.Zero(t, stats.DeadLettersDrained)
	require.False(t, stats.Truncated)
}
