package sync

import (
	"context"
	"path/filepath"
	"sort"
	stdsync "sync"
	"testing"
	"time"

	"github.com/Xushengqwer/go-common/commonerrors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Xushengqwer/article_service/config"
	"github.com/Xushengqwer/article_service/models/entities"
	"github.com/Xushengqwer/article_service/models/enums"
	"github.com/Xushengqwer/article_service/models/events"
	"github.com/Xushengqwer/article_service/myErrors"
	"github.com/Xushengqwer/article_service/repo/search"
)

// fakeSource 内存版的主存储快照源。
type fakeSource struct {
	mu       stdsync.Mutex
	articles map[uint64]*entities.Article
}

func newFakeSource() *fakeSource {
	return &fakeSource{articles: make(map[uint64]*entities.Article)}
}

func (s *fakeSource) put(article *entities.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles[article.ID] = article
}

func (s *fakeSource) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.articles, id)
}

func (s *fakeSource) GetArticleByID(_ context.Context, id uint64) (*entities.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	article, ok := s.articles[id]
	if !ok {
		return nil, commonerrors.ErrRepoNotFound
	}
	copied := *article
	return &copied, nil
}

func (s *fakeSource) ScanArticles(_ context.Context, afterID uint64, limit int) ([]*entities.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uint64
	for id := range s.articles {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]*entities.Article, 0, len(ids))
	for _, id := range ids {
		copied := *s.articles[id]
		out = append(out, &copied)
	}
	return out, nil
}

// fakeDeadLetter 内存版死信存储。
type fakeDeadLetter struct {
	mu      stdsync.Mutex
	letters map[uint64]*events.SyncEvent
}

func newFakeDeadLetter() *fakeDeadLetter {
	return &fakeDeadLetter{letters: make(map[uint64]*events.SyncEvent)}
}

func (d *fakeDeadLetter) Record(_ context.Context, event *events.SyncEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.letters[event.ArticleID] = event
	return nil
}

func (d *fakeDeadLetter) List(_ context.Context) ([]*events.SyncEvent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*events.SyncEvent, 0, len(d.letters))
	for _, event := range d.letters {
		out = append(out, event)
	}
	return out, nil
}

func (d *fakeDeadLetter) Remove(_ context.Context, articleID uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.letters, articleID)
	return nil
}

func (d *fakeDeadLetter) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.letters)
}

// flakyIndex 前 failures 次写入返回瞬时错误，之后转发给真实索引。
type flakyIndex struct {
	search.ArticleIndex
	mu       stdsync.Mutex
	failures int
	calls    int
}

func (f *flakyIndex) Upsert(ctx context.Context, doc *search.SearchDocument) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return myErrors.NewTransientIndexError(context.DeadlineExceeded)
	}
	return f.ArticleIndex.Upsert(ctx, doc)
}

func newTestIndex(t *testing.T) search.ArticleIndex {
	t.Helper()
	idx, err := search.OpenArticleIndex(filepath.Join(t.TempDir(), "articles.bleve"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func testSyncConfig() *config.SyncConfig {
	return &config.SyncConfig{
		Workers:           2,
		QueueSize:         64,
		MaxAttempts:       3,
		BaseBackoffMs:     1,
		AttemptTimeoutSec: 2,
	}
}

func publishedArticle(id uint64, version int64, publishedAt time.Time) *entities.Article {
	a := &entities.Article{
		Title:       "标题",
		Summary:     "摘要",
		Content:     "全文检索内容",
		AuthorID:    "user-1",
		Tags:        []string{"go"},
		Status:      enums.Published,
		PublishedAt: &publishedAt,
		Version:     version,
	}
	a.ID = id
	return a
}

func stopCoordinator(t *testing.T, c *Coordinator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
}

func TestCoordinator_UpsertVisibleArticle(t *testing.T) {
	source := newFakeSource()
	idx := newTestIndex(t)
	dead := newFakeDeadLetter()
	c := NewCoordinator(source, idx, dead, testSyncConfig(), zap.NewNop())
	defer stopCoordinator(t, c)

	source.put(publishedArticle(1, 2, time.Now().Add(-time.Hour)))
	require.NoError(t, c.Submit(context.Background(), events.NewSyncEvent(1, events.SyncUpsert, 2)))

	require.Eventually(t, func() bool {
		doc, exists, err := idx.Get(context.Background(), 1)
		return err == nil && exists && doc.Version == 2
	}, 3*time.Second, 10*time.Millisecond)
	require.Zero(t, dead.count())
}

func TestCoordinator_InvisibleArticleRemoved(t *testing.T) {
	source := newFakeSource()
	idx := newTestIndex(t)
	c := NewCoordinator(source, idx, newFakeDeadLetter(), testSyncConfig(), zap.NewNop())
	defer stopCoordinator(t, c)

	ctx := context.Background()

	// 先写入已发布版本。
	source.put(publishedArticle(1, 1, time.Now().Add(-time.Hour)))
	require.NoError(t, c.Submit(ctx, events.NewSyncEvent(1, events.SyncUpsert, 1)))
	require.Eventually(t, func() bool {
		_, exists, err := idx.Get(ctx, 1)
		return err == nil && exists
	}, 3*time.Second, 10*time.Millisecond)

	// 文章下线后，同一条“事件”驱动的是当前快照：索引文档被移除。
	offline := publishedArticle(1, 2, time.Now().Add(-time.Hour))
	offline.Status = enums.Offline
	source.put(offline)
	require.NoError(t, c.Submit(ctx, events.NewSyncEvent(1, events.SyncUpsert, 2)))

	require.Eventually(t, func() bool {
		_, exists, err := idx.Get(ctx, 1)
		return err == nil && !exists
	}, 3*time.Second, 10*time.Millisecond)
}

func TestCoordinator_ScheduledArticleNotIndexed(t *testing.T) {
	source := newFakeSource()
	idx := newTestIndex(t)
	c := NewCoordinator(source, idx, newFakeDeadLetter(), testSyncConfig(), zap.NewNop())
	defer stopCoordinator(t, c)

	ctx := context.Background()

	// 定时发布：计划时间在未来，事件到达时不得入索引。
	source.put(publishedArticle(1, 2, time.Now().Add(time.Hour)))
	require.NoError(t, c.Submit(ctx, events.NewSyncEvent(1, events.SyncUpsert, 2)))

	time.Sleep(100 * time.Millisecond)
	_, exists, err := idx.Get(ctx, 1)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestCoordinator_DeletedArticleRemoved(t *testing.T) {
	source := newFakeSource()
	idx := newTestIndex(t)
	c := NewCoordinator(source, idx, newFakeDeadLetter(), testSyncConfig(), zap.NewNop())
	defer stopCoordinator(t, c)

	ctx := context.Background()
	source.put(publishedArticle(1, 1, time.Now().Add(-time.Hour)))
	require.NoError(t, c.Submit(ctx, events.NewSyncEvent(1, events.SyncUpsert, 1)))
	require.Eventually(t, func() bool {
		_, exists, err := idx.Get(ctx, 1)
		return err == nil && exists
	}, 3*time.Second, 10*time.Millisecond)

	// 行消失（软删除对查询等价于不存在），快照读不到 -> 删除文档。
	source.remove(1)
	require.NoError(t, c.Submit(ctx, events.NewSyncEvent(1, events.SyncDelete, 2)))
	require.Eventually(t, func() bool {
		_, exists, err := idx.Get(ctx, 1)
		return err == nil && !exists
	}, 3*time.Second, 10*time.Millisecond)
}

func TestCoordinator_RetryThenSucceed(t *testing.T) {
	source := newFakeSource()
	flaky := &flakyIndex{ArticleIndex: newTestIndex(t), failures: 2}
	dead := newFakeDeadLetter()
	c := NewCoordinator(source, flaky, dead, testSyncConfig(), zap.NewNop())
	defer stopCoordinator(t, c)

	source.put(publishedArticle(1, 1, time.Now().Add(-time.Hour)))
	require.NoError(t, c.Submit(context.Background(), events.NewSyncEvent(1, events.SyncUpsert, 1)))

	// 前两次瞬时失败被退避重试吸收，最终写入成功且不产生死信。
	require.Eventually(t, func() bool {
		_, exists, err := flaky.ArticleIndex.Get(context.Background(), 1)
		return err == nil && exists
	}, 3*time.Second, 10*time.Millisecond)
	require.Zero(t, dead.count())
}

func TestCoordinator_ExhaustedRetriesGoToDeadLetter(t *testing.T) {
	source := newFakeSource()
	// 失败次数超过 MaxAttempts，事件必然耗尽重试。
	flaky := &flakyIndex{ArticleIndex: newTestIndex(t), failures: 100}
	dead := newFakeDeadLetter()
	c := NewCoordinator(source, flaky, dead, testSyncConfig(), zap.NewNop())
	defer stopCoordinator(t, c)

	source.put(publishedArticle(1, 1, time.Now().Add(-time.Hour)))
	require.NoError(t, c.Submit(context.Background(), events.NewSyncEvent(1, events.SyncUpsert, 1)))

	require.Eventually(t, func() bool {
		return dead.count() == 1
	}, 3*time.Second, 10*time.Millisecond)

	letters, err := dead.List(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, letters[0].ArticleID)

	// 死信不阻塞同一文章的后续事件：索引恢复后新事件正常应用。
	flaky.mu.Lock()
	flaky.failures = 0
	flaky.mu.Unlock()
	source.put(publishedArticle(1, 2, time.Now().Add(-time.Hour)))
	require.NoError(t, c.Submit(context.Background(), events.NewSyncEvent(1, events.SyncUpsert, 2)))
	require.Eventually(t, func() bool {
		doc, exists, err := flaky.ArticleIndex.Get(context.Background(), 1)
		return err == nil && exists && doc.Version == 2
	}, 3*time.Second, 10*time.Millisecond)
}

func TestCoordinator_CoalescesBurstToLatestState(t *testing.T) {
	source := newFakeSource()
	idx := newTestIndex(t)
	c := NewCoordinator(source, idx, newFakeDeadLetter(), testSyncConfig(), zap.NewNop())
	defer stopCoordinator(t, c)

	ctx := context.Background()

	// 同一篇文章的密集事件风暴：无论多少条事件在途被合并，
	// 终态都必须收敛到主存储的最新快照。
	for v := int64(1); v <= 20; v++ {
		source.put(publishedArticle(1, v, time.Now().Add(-time.Hour)))
		require.NoError(t, c.Submit(ctx, events.NewSyncEvent(1, events.SyncUpsert, v)))
	}

	require.Eventually(t, func() bool {
		doc, exists, err := idx.Get(ctx, 1)
		return err == nil && exists && doc.Version == 20
	}, 5*time.Second, 10*time.Millisecond)
}

func TestCoordinator_SubmitAfterStopRejected(t *testing.T) {
	source := newFakeSource()
	idx := newTestIndex(t)
	c := NewCoordinator(source, idx, newFakeDeadLetter(), testSyncConfig(), zap.NewNop())

	ctx := context.Background()
	stopCoordinator(t, c)

	// 停止后的投递必须拒绝而不是崩溃，即使并发调用也一样。
	var wg stdsync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			err := c.Submit(ctx, events.NewSyncEvent(id, events.SyncUpsert, 1))
			require.Error(t, err)
		}(uint64(i + 1))
	}
	wg.Wait()

	// Stop 幂等，重复调用同样安全。
	require.NoError(t, c.Stop(ctx))
	require.Error(t, c.Submit(ctx, events.NewSyncEvent(99, events.SyncUpsert, 1)))
}

func TestCoordinator_StopDrainsQueuedEvents(t *testing.T) {
	source := newFakeSource()
	idx := newTestIndex(t)
	// 单 worker 放大排队窗口，让停止时队列里还有未取走的事件。
	cfg := testSyncConfig()
	cfg.Workers = 1
	c := NewCoordinator(source, idx, newFakeDeadLetter(), cfg, zap.NewNop())

	ctx := context.Background()
	for id := uint64(1); id <= 10; id++ {
		source.put(publishedArticle(id, 1, time.Now().Add(-time.Hour)))
		require.NoError(t, c.Submit(ctx, events.NewSyncEvent(id, events.SyncUpsert, 1)))
	}

	stopCoordinator(t, c)

	// Stop 返回后队列已清空，所有已接收的事件都应用完毕。
	for id := uint64(1); id <= 10; id++ {
		_, exists, err := idx.Get(ctx, id)
		require.NoError(t, err)
		require.True(t, exists)
	}
}
