package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"time"

	"github.com/Xushengqwer/go-common/commonerrors"
	"go.uber.org/zap"

	"github.com/Xushengqwer/article_service/config"
	"github.com/Xushengqwer/article_service/lifecycle"
	"github.com/Xushengqwer/article_service/models/entities"
	"github.com/Xushengqwer/article_service/models/events"
	"github.com/Xushengqwer/article_service/repo/search"
)

// DriftKind 对账发现的漂移类别。
type DriftKind string

const (
	// DriftMissing 主存储中对外可见的文章在索引中没有对应文档。
	DriftMissing DriftKind = "missing"
	// DriftStale 索引文档存在但版本落后于主存储。
	DriftStale DriftKind = "stale"
	// DriftOrphaned 索引中存在主存储已删除或已不可见的文章文档。
	DriftOrphaned DriftKind = "orphaned"
)

// DriftRecord 一条被发现的漂移，修复动作已同时入队。
type DriftRecord struct {
	ArticleID      uint64    `json:"article_id"`
	Kind           DriftKind `json:"kind"`
	PrimaryVersion int64     `json:"primary_version"` // 孤儿文档没有主存储版本，为 0
	IndexVersion   int64     `json:"index_version"`   // 缺失文档没有索引版本，为 0
}

// ReconcileStats 一轮对账的统计结果。
type ReconcileStats struct {
	PrimaryScanned     int           `json:"primary_scanned"`
	IndexScanned       int           `json:"index_scanned"`
	Missing            int           `json:"missing"`
	Stale              int           `json:"stale"`
	Orphaned           int           `json:"orphaned"`
	DeadLettersDrained int           `json:"dead_letters_drained"`
	Truncated          bool          `json:"truncated"`
	Duration           time.Duration `json:"duration"`
}

// ArticleScanner 对账遍历主存储所需的最小接口，由 MySQL 仓库实现。
type ArticleScanner interface {
	ArticleSource
	ScanArticles(ctx context.Context, afterID uint64, limit int) ([]*entities.Article, error)
}

// DeadLetterDrain 对账回放死信所需的最小接口，由 Redis 死信存储实现。
type DeadLetterDrain interface {
	List(ctx context.Context) ([]*events.SyncEvent, error)
	Remove(ctx context.Context, articleID uint64) error
}

// Reconciler 周期性比对主存储与搜索索引，找出漂移并通过协调器修复。
//
// 一轮对账分三个阶段：
//  1. 键集扫描主存储，发现缺失与过期的索引文档，以及已不可见但仍在索引里的孤儿。
//  2. 遍历索引，发现主存储中已（软）删除的孤儿文档。
//  3. 回放死信：按文章当前状态重新入队修复事件，然后清除死信条目。
//
// 修复动作不直接写索引，而是把事件交回协调器，从而天然遵守
// 单文章串行与版本裁决规则，不会与在线同步打架。
type Reconciler struct {
	primary   ArticleScanner
	index     search.ArticleIndex
	dead      DeadLetterDrain
	submitter Submitter
	logger    *zap.Logger

	batchSize  int
	timeBudget time.Duration

	// resumeAfterID 上一轮因超时截断时主存储扫描的断点，下一轮从这里继续。
	// 完整跑完一轮后归零。只在单个任务 goroutine 中访问。
	resumeAfterID uint64

	// running 防止两轮对账重叠执行。
	running stdsync.Mutex

	now func() time.Time
}

// NewReconciler 构造对账器。
func NewReconciler(
	primary ArticleScanner,
	index search.ArticleIndex,
	dead DeadLetterDrain,
	submitter Submitter,
	cfg *config.ReconcileConfig,
	logger *zap.Logger,
) *Reconciler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	timeBudget := time.Duration(cfg.TimeBudgetSec) * time.Second
	if timeBudget <= 0 {
		timeBudget = 5 * time.Minute
	}
	return &Reconciler{
		primary:    primary,
		index:      index,
		dead:       dead,
		submitter:  submitter,
		logger:     logger,
		batchSize:  batchSize,
		timeBudget: timeBudget,
		now:        time.Now,
	}
}

// Run 执行一轮对账，返回统计结果。
// 超出时间预算时截断本轮并记录断点，不报错；下一轮从断点继续。
func (r *Reconciler) Run(ctx context.Context) (*ReconcileStats, error) {
	r.running.Lock()
	defer r.running.Unlock()

	start := r.now()
	ctx, cancel := context.WithTimeout(ctx, r.timeBudget)
	defer cancel()

	stats := &ReconcileStats{}
	var drifts []DriftRecord

	truncated, err := r.scanPrimary(ctx, stats, &drifts)
	if err != nil {
		return stats, err
	}
	if !truncated {
		truncated, err = r.scanIndex(ctx, stats, &drifts)
		if err != nil {
			return stats, err
		}
	}
	if !truncated {
		if err := r.drainDeadLetters(ctx, stats); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				truncated = true
			} else {
				return stats, err
			}
		}
	}

	stats.Truncated = truncated
	stats.Duration = r.now().Sub(start)

	r.logger.Info("对账完成",
		zap.Int("primaryScanned", stats.PrimaryScanned),
		zap.Int("indexScanned", stats.IndexScanned),
		zap.Int("missing", stats.Missing),
		zap.Int("stale", stats.Stale),
		zap.Int("orphaned", stats.Orphaned),
		zap.Int("deadLettersDrained", stats.DeadLettersDrained),
		zap.Bool("truncated", stats.Truncated),
		zap.Duration("duration", stats.Duration),
	)
	for _, d := range drifts {
		r.logger.Warn("发现索引漂移",
			zap.Uint64("articleID", d.ArticleID),
			zap.String("kind", string(d.Kind)),
			zap.Int64("primaryVersion", d.PrimaryVersion),
			zap.Int64("indexVersion", d.IndexVersion),
		)
	}
	return stats, nil
}

// scanPrimary 阶段一：以主存储为基准找缺失、过期与不可见孤儿。
func (r *Reconciler) scanPrimary(ctx context.Context, stats *ReconcileStats, drifts *[]DriftRecord) (bool, error) {
	afterID := r.resumeAfterID
	if afterID > 0 {
		r.logger.Info("从上一轮断点继续主存储扫描", zap.Uint64("afterID", afterID))
	}

	for {
		if ctx.Err() != nil {
			r.resumeAfterID = afterID
			return true, nil
		}

		batch, err := r.primary.ScanArticles(ctx, afterID, r.batchSize)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				r.resumeAfterID = afterID
				return true, nil
			}
			return false, err
		}
		if len(batch) == 0 {
			r.resumeAfterID = 0
			return false, nil
		}

		for _, article := range batch {
			afterID = article.ID
			stats.PrimaryScanned++

			entry, exists, err := r.index.Get(ctx, article.ID)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					r.resumeAfterID = afterID
					return true, nil
				}
				return false, err
			}

			visible := lifecycle.EffectivelyVisible(article, r.now())
			switch {
			case visible && !exists:
				stats.Missing++
				*drifts = append(*drifts, DriftRecord{ArticleID: article.ID, Kind: DriftMissing, PrimaryVersion: article.Version})
				r.repair(ctx, article.ID, events.SyncUpsert, article.Version)

			case visible && exists && entry.Version < article.Version:
				stats.Stale++
				*drifts = append(*drifts, DriftRecord{ArticleID: article.ID, Kind: DriftStale, PrimaryVersion: article.Version, IndexVersion: entry.Version})
				r.repair(ctx, article.ID, events.SyncUpsert, article.Version)

			case visible && exists && entry.Version > article.Version:
				// 索引超前于主存储不该发生，记下来人工排查，不自动降级覆盖。
				r.logger.Error("索引版本超前于主存储",
					zap.Uint64("articleID", article.ID),
					zap.Int64("primaryVersion", article.Version),
					zap.Int64("indexVersion", entry.Version),
				)

			case !visible && exists:
				stats.Orphaned++
				*drifts = append(*drifts, DriftRecord{ArticleID: article.ID, Kind: DriftOrphaned, PrimaryVersion: article.Version, IndexVersion: entry.Version})
				r.repair(ctx, article.ID, events.SyncDelete, article.Version)
			}
		}
	}
}

// scanIndex 阶段二：以索引为基准找主存储已删除的孤儿文档。
func (r *Reconciler) scanIndex(ctx context.Context, stats *ReconcileStats, drifts *[]DriftRecord) (bool, error) {
	offset := 0
	for {
		if ctx.Err() != nil {
			return true, nil
		}

		entries, err := r.index.ScanDocuments(ctx, offset, r.batchSize)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return true, nil
			}
			return false, err
		}
		if len(entries) == 0 {
			return false, nil
		}
		offset += len(entries)
		stats.IndexScanned += len(entries)

		for _, entry := range entries {
			_, err := r.primary.GetArticleByID(ctx, entry.ArticleID)
			if err == nil {
				// 阶段一已经覆盖了行存在的各种情况。
				continue
			}
			if errors.Is(err, commonerrors.ErrRepoNotFound) {
				stats.Orphaned++
				*drifts = append(*drifts, DriftRecord{ArticleID: entry.ArticleID, Kind: DriftOrphaned, IndexVersion: entry.Version})
				r.repair(ctx, entry.ArticleID, events.SyncDelete, entry.Version)
				continue
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return true, nil
			}
			return false, err
		}
	}
}

// drainDeadLetters 阶段三：按当前状态回放死信并清除条目。
func (r *Reconciler) drainDeadLetters(ctx context.Context, stats *ReconcileStats) error {
	letters, err := r.dead.List(ctx)
	if err != nil {
		return err
	}

	for _, letter := range letters {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// 不回放原事件本身：按文章当前快照重新合成修复事件，
		// 原事件可能早已过期。
		article, err := r.primary.GetArticleByID(ctx, letter.ArticleID)
		switch {
		case err == nil:
			r.repair(ctx, article.ID, events.SyncUpsert, article.Version)
		case errors.Is(err, commonerrors.ErrRepoNotFound):
			r.repair(ctx, letter.ArticleID, events.SyncDelete, letter.SourceVersion)
		default:
			return err
		}

		if err := r.dead.Remove(ctx, letter.ArticleID); err != nil {
			return err
		}
		stats.DeadLettersDrained++
	}
	return nil
}

// repair 把修复事件交回协调器。投递失败只记日志，留给下一轮。
func (r *Reconciler) repair(ctx context.Context, articleID uint64, kind events.SyncEventKind, version int64) {
	event := events.NewSyncEvent(articleID, kind, version)
	if err := r.submitter.Submit(ctx, event); err != nil {
		r.logger.Warn("修复事件投递失败，等待下一轮对账",
			zap.Error(err),
			zap.Uint64("articleID", articleID),
			zap.String("kind", string(kind)),
		)
	}
}
