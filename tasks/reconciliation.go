package tasks

import (
	"context"
	"sync/atomic"

	"github.com/Xushengqwer/go-common/core"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Xushengqwer/article_service/config"
	"github.com/Xushengqwer/article_service/constant"
	articlesync "github.com/Xushengqwer/article_service/sync"
)

// ReconciliationTask 周期性执行主存储与搜索索引的漂移对账。
type ReconciliationTask struct {
	reconciler *articlesync.Reconciler
	cron       *cron.Cron
	logger     *core.ZapLogger

	// running 上一轮还没跑完时跳过本轮，而不是排队叠加。
	running atomic.Bool
}

// NewReconciliationTask 初始化并启动对账定时任务。
func NewReconciliationTask(
	reconciler *articlesync.Reconciler,
	cfg *config.ReconcileConfig,
	logger *core.ZapLogger,
) *ReconciliationTask {
	task := &ReconciliationTask{
		reconciler: reconciler,
		cron:       cron.New(),
		logger:     logger,
	}
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = constant.ReconcileDefaultSchedule
	}
	task.startCronJob(schedule)
	return task
}

func (t *ReconciliationTask) startCronJob(schedule string) {
	t.logger.Info("准备启动索引对账任务", zap.String("schedule", schedule))

	entryID, err := t.cron.AddFunc(schedule, func() {
		t.RunOnce(context.Background())
	})
	if err != nil {
		t.logger.Fatal("添加对账 cron 作业失败", zap.Error(err), zap.String("schedule", schedule))
	}

	t.cron.Start()
	t.logger.Info("索引对账任务已启动", zap.Uint("cronEntryID", uint(entryID)))
}

// RunOnce 立即执行一轮对账。
// 管理端的手动触发和 cron 调度走同一入口；上一轮未结束时跳过。
// 返回统计结果；被跳过时返回 nil。
func (t *ReconciliationTask) RunOnce(ctx context.Context) *articlesync.ReconcileStats {
	if !t.running.CompareAndSwap(false, true) {
		t.logger.Warn("上一轮对账尚未结束，本轮跳过")
		return nil
	}
	defer t.running.Store(false)

	stats, err := t.reconciler.Run(ctx)
	if err != nil {
		t.logger.Error("对账执行失败", zap.Error(err))
		return stats
	}
	return stats
}

// Stop 优雅地停止 cron 调度器。
// 返回一个 context，调用者可以使用它来等待正在运行的任务完成。
func (t *ReconciliationTask) Stop() context.Context {
	t.logger.Info("正在停止索引对账任务...")
	stopCtx := t.cron.Stop()
	t.logger.Info("索引对账任务已停止调度。等待正在执行的任务完成...")
	return stopCtx
}
