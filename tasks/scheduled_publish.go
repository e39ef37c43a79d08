package tasks

import (
	"context"
	"time"

	"github.com/Xushengqwer/go-common/core"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Xushengqwer/article_service/constant"
	"github.com/Xushengqwer/article_service/models/events"
	"github.com/Xushengqwer/article_service/repo/mysql"
	"github.com/Xushengqwer/article_service/repo/redis"
	articlesync "github.com/Xushengqwer/article_service/sync"
)

// ScheduledPublishTask 负责把到点的定时发布文章推向对外可见。
// 文章以未来时间发布时，状态已是 Published 但索引侧不可见；
// 本任务每分钟从 Redis 队列弹出到点的文章 ID，向协调器投递同步事件，
// 让索引按当前快照补上投影。主存储不需要任何修改，可见性由发布时间裁决。
type ScheduledPublishTask struct {
	scheduleQueue redis.PublishScheduleQueue // 定时发布队列
	articleRepo   mysql.ArticleRepository    // 读取文章当前版本
	coordinator   articlesync.Submitter      // 同步事件入口
	cron          *cron.Cron                 // cron V3 实例
	logger        *core.ZapLogger            // 日志记录器
}

// NewScheduledPublishTask 初始化并启动定时发布的定时任务。
func NewScheduledPublishTask(
	scheduleQueue redis.PublishScheduleQueue,
	articleRepo mysql.ArticleRepository,
	coordinator articlesync.Submitter,
	logger *core.ZapLogger,
) *ScheduledPublishTask {
	cronV3 := cron.New() // 默认分钟级精度
	task := &ScheduledPublishTask{
		scheduleQueue: scheduleQueue,
		articleRepo:   articleRepo,
		coordinator:   coordinator,
		cron:          cronV3,
		logger:        logger,
	}
	task.startCronJob()
	return task
}

// startCronJob 配置并启动 cron 作业。
func (t *ScheduledPublishTask) startCronJob() {
	schedule := constant.PublishPromoteSchedule
	t.logger.Info("准备启动定时发布任务", zap.String("schedule", schedule))

	entryID, err := t.cron.AddFunc(schedule, func() {
		// 单次执行的超时要远小于调度间隔，避免两轮叠加。
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		t.promoteDueArticles(ctx)
	})
	if err != nil {
		t.logger.Fatal("添加定时发布 cron 作业失败", zap.Error(err), zap.String("schedule", schedule))
	}

	t.cron.Start()
	t.logger.Info("定时发布任务已启动", zap.Uint("cronEntryID", uint(entryID)))
}

// promoteDueArticles 弹出到点的文章并触发索引同步。
func (t *ScheduledPublishTask) promoteDueArticles(ctx context.Context) {
	ids, err := t.scheduleQueue.PopDue(ctx, time.Now(), constant.MaxPageSize)
	if err != nil {
		t.logger.Error("弹出到点发布文章失败，本轮跳过", zap.Error(err))
		return
	}
	if len(ids) == 0 {
		return
	}
	t.logger.Info("开始处理到点发布的文章", zap.Int("count", len(ids)))

	for _, id := range ids {
		article, err := t.articleRepo.GetArticleByID(ctx, id)
		if err != nil {
			// 文章已删除：投递删除事件确保索引侧也干净。
			t.logger.Warn("到点发布的文章读取失败，投递删除事件",
				zap.Error(err),
				zap.Uint64("articleID", id),
			)
			if submitErr := t.coordinator.Submit(ctx, events.NewSyncEvent(id, events.SyncDelete, 0)); submitErr != nil {
				t.logger.Error("删除事件投递失败", zap.Error(submitErr), zap.Uint64("articleID", id))
			}
			continue
		}

		// 事件只是触发信号，协调器会按当前快照和可见性规则决定写入或删除，
		// 文章到点前被下线/改期的情况自然被正确处理。
		if err := t.coordinator.Submit(ctx, events.NewSyncEvent(article.ID, events.SyncUpsert, article.Version)); err != nil {
			t.logger.Error("定时发布同步事件投递失败",
				zap.Error(err),
				zap.Uint64("articleID", article.ID),
			)
		}
	}
}

// Stop 优雅地停止 cron 调度器。
// 返回一个 context，调用者可以使用它来等待正在运行的任务完成。
func (t *ScheduledPublishTask) Stop() context.Context {
	t.logger.Info("正在停止定时发布任务...")
	stopCtx := t.cron.Stop()
	t.logger.Info("定时发布任务已停止调度。等待正在执行的任务完成...")
	return stopCtx
}
