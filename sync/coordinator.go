package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/Xushengqwer/go-common/commonerrors"
	"go.uber.org/zap"

	"github.com/Xushengqwer/article_service/config"
	"github.com/Xushengqwer/article_service/lifecycle"
	"github.com/Xushengqwer/article_service/models/entities"
	"github.com/Xushengqwer/article_service/models/events"
	"github.com/Xushengqwer/article_service/myErrors"
	"github.com/Xushengqwer/article_service/repo/search"
)

// ArticleSource 协调器读取权威快照的最小接口，由 MySQL 仓库实现。
// 事件只是触发信号：应用到索引的内容永远来自主存储当前行，而不是事件携带的数据。
type ArticleSource interface {
	GetArticleByID(ctx context.Context, id uint64) (*entities.Article, error)
}

// DeadLetterSink 重试耗尽事件的去处，由 Redis 死信存储实现。
type DeadLetterSink interface {
	Record(ctx context.Context, event *events.SyncEvent) error
}

// Submitter 是向协调器投递事件的入口，供消费者、定时任务与对账任务共用。
type Submitter interface {
	Submit(ctx context.Context, event *events.SyncEvent) error
}

// Coordinator 把主存储的变更事件应用到搜索索引。
//
// 并发模型：
//   - 不同文章的事件由 worker 池完全并行处理。
//   - 同一篇文章任意时刻至多一个在途事件；处理期间到达的后续事件
//     进入合并槽，只保留 SourceVersion 最大的一条。处理完成后合并槽
//     中的事件（若有）由同一 worker 接着处理。
//
// 失败模型：
//   - 单次尝试有独立超时；瞬时失败按指数退避重试，至多 MaxAttempts 次。
//   - 过期写拒绝（ErrStaleIndexWrite）说明更新的投影已在索引中，按成功处理。
//   - 重试耗尽的事件落入死信并告警，不阻塞该文章的后续事件。
type Coordinator struct {
	source ArticleSource
	index  search.ArticleIndex
	dead   DeadLetterSink
	logger *zap.Logger

	workers        int
	maxAttempts    int
	baseBackoff    time.Duration
	attemptTimeout time.Duration

	mu       stdsync.Mutex
	inflight map[uint64]bool
	waiting  map[uint64]*events.SyncEvent
	stopped  bool

	queue    chan *events.SyncEvent
	stopCh   chan struct{}
	stopOnce stdsync.Once
	wg       stdsync.WaitGroup

	// now 可注入的时钟，测试用。
	now func() time.Time
}

// NewCoordinator 构造协调器并启动 worker 池。
func NewCoordinator(
	source ArticleSource,
	index search.ArticleIndex,
	dead DeadLetterSink,
	cfg *config.SyncConfig,
	logger *zap.Logger,
) *Coordinator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	baseBackoff := time.Duration(cfg.BaseBackoffMs) * time.Millisecond
	if baseBackoff <= 0 {
		baseBackoff = 100 * time.Millisecond
	}
	attemptTimeout := time.Duration(cfg.AttemptTimeoutSec) * time.Second
	if attemptTimeout <= 0 {
		attemptTimeout = 5 * time.Second
	}

	c := &Coordinator{
		source:         source,
		index:          index,
		dead:           dead,
		logger:         logger,
		workers:        workers,
		maxAttempts:    maxAttempts,
		baseBackoff:    baseBackoff,
		attemptTimeout: attemptTimeout,
		inflight:       make(map[uint64]bool),
		waiting:        make(map[uint64]*events.SyncEvent),
		queue:          make(chan *events.SyncEvent, queueSize),
		stopCh:         make(chan struct{}),
		now:            time.Now,
	}

	c.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go c.workerLoop(i)
	}
	return c
}

// Submit 投递一条同步事件。
// 该文章已有在途事件时不会排队第二份工作，而是记入合并槽：
// 只保留版本更高的那条，旧的直接作废（反正应用时以主存储快照为准）。
func (c *Coordinator) Submit(ctx context.Context, event *events.SyncEvent) error {
	if event == nil || event.ArticleID == 0 {
		return errors.New("同步事件缺少文章 ID")
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return errors.New("同步协调器已停止")
	}
	if c.inflight[event.ArticleID] {
		if pending, ok := c.waiting[event.ArticleID]; !ok || event.SourceVersion > pending.SourceVersion {
			c.waiting[event.ArticleID] = event
		}
		c.mu.Unlock()
		return nil
	}
	c.inflight[event.ArticleID] = true
	c.mu.Unlock()

	select {
	case c.queue <- event:
		return nil
	case <-c.stopCh:
		c.clearInflight(event.ArticleID)
		return errors.New("同步协调器已停止")
	case <-ctx.Done():
		c.clearInflight(event.ArticleID)
		return ctx.Err()
	}
}

// Stop 停止接收新事件并等待在途事件处理完毕。
// 队列通道永远不关闭：Submit 与 worker 都可能还持有它，
// 停止信号只通过 stopped 标记与 stopCh 传递，worker 退出前会清空队列余量。
// 返回的错误表示等待超出了 ctx 的期限，此时仍可能有事件未完成，
// 由下一次启动后的对账任务兜底。
func (c *Coordinator) Stop(ctx context.Context) error {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.stopped = true
		c.mu.Unlock()
		close(c.stopCh)
	})

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("等待同步 worker 退出超时: %w", ctx.Err())
	}
}

func (c *Coordinator) workerLoop(id int) {
	defer c.wg.Done()
	for {
		select {
		case event := <-c.queue:
			c.handle(event)
		case <-c.stopCh:
			// 停止后清空队列中已接收的事件再退出。
			for {
				select {
				case event := <-c.queue:
					c.handle(event)
				default:
					return
				}
			}
		}
	}
}

func (c *Coordinator) handle(event *events.SyncEvent) {
	for event != nil {
		c.process(event)
		// 处理期间合并槽里若积累了更新的事件，由同一 worker 继续处理，
		// 保证同一篇文章串行、不同文章并行。
		event = c.promoteWaiting(event.ArticleID)
	}
}

// promoteWaiting 取出合并槽中的待处理事件；没有则清除在途标记。
func (c *Coordinator) promoteWaiting(articleID uint64) *events.SyncEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pending, ok := c.waiting[articleID]; ok {
		delete(c.waiting, articleID)
		return pending
	}
	delete(c.inflight, articleID)
	return nil
}

func (c *Coordinator) clearInflight(articleID uint64) {
	c.mu.Lock()
	delete(c.inflight, articleID)
	c.mu.Unlock()
}

// process 以重试与退避执行一条事件，终态为成功或死信。
func (c *Coordinator) process(event *events.SyncEvent) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err := c.applyOnce(event)
		if err == nil {
			return
		}
		if errors.Is(err, myErrors.ErrStaleIndexWrite) {
			// 更新的投影已经在索引里，这条事件的目标已被超越，视为完成。
			c.logger.Debug("同步事件已被更高版本超越",
				zap.Uint64("articleID", event.ArticleID),
				zap.Int64("sourceVersion", event.SourceVersion),
			)
			return
		}
		lastErr = err

		c.logger.Warn("同步事件应用失败，准备重试",
			zap.Error(err),
			zap.Uint64("articleID", event.ArticleID),
			zap.String("eventID", event.EventID),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", c.maxAttempts),
		)

		if attempt < c.maxAttempts {
			// 指数退避: base * 2^(attempt-1)
			backoff := c.baseBackoff << (attempt - 1)
			select {
			case <-time.After(backoff):
			case <-c.stopCh:
				// 停机时不再等待退避，直接把事件送入死信，交给重启后的对账修复。
				c.toDeadLetter(event, lastErr)
				return
			}
		}
	}
	c.toDeadLetter(event, lastErr)
}

// applyOnce 执行一次传播尝试。
// 读取主存储当前快照，按可见性规则决定写入或删除索引文档。
// 事件自身的 Kind 只是产生时刻的快照意图，应用时一律以当前行为准，
// 这使得乱序、重复、过期的事件都收敛到同一个正确终态。
func (c *Coordinator) applyOnce(event *events.SyncEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.attemptTimeout)
	defer cancel()

	article, err := c.source.GetArticleByID(ctx, event.ArticleID)
	if err != nil {
		if errors.Is(err, commonerrors.ErrRepoNotFound) {
			// 行已不存在（硬删或软删），索引文档按孤儿移除。
			return c.index.Delete(ctx, event.ArticleID, event.SourceVersion)
		}
		return fmt.Errorf("读取文章快照失败: %w", err)
	}

	if lifecycle.EffectivelyVisible(article, c.now()) {
		return c.index.Upsert(ctx, BuildSearchDocument(article))
	}
	// 草稿、下线或定时未到点的文章不应出现在索引中。
	return c.index.Delete(ctx, event.ArticleID, article.Version)
}

func (c *Coordinator) toDeadLetter(event *events.SyncEvent, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.attemptTimeout)
	defer cancel()

	c.logger.Error("同步事件重试耗尽",
		zap.Error(errors.Join(myErrors.ErrSyncRetryExhausted, cause)),
		zap.Uint64("articleID", event.ArticleID),
		zap.String("eventID", event.EventID),
		zap.Int64("sourceVersion", event.SourceVersion),
	)
	if err := c.dead.Record(ctx, event); err != nil {
		// 死信都写不进去时只能靠日志与对账兜底。
		c.logger.Error("写入死信失败，事件可能丢失直至下轮对账",
			zap.Error(err),
			zap.Uint64("articleID", event.ArticleID),
			zap.String("eventID", event.EventID),
		)
	}
}

// BuildSearchDocument 从权威快照生成索引投影。
func BuildSearchDocument(article *entities.Article) *search.SearchDocument {
	return &search.SearchDocument{
		ID:       fmt.Sprintf("%d", article.ID),
		AuthorID: article.AuthorID,
		Tags:     append([]string(nil), article.Tags...),
		Text:     article.Title + "\n" + article.Summary + "\n" + article.Content,
		Version:  article.Version,
	}
}
