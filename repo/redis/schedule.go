// File: repo/redis/schedule.go
package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/Xushengqwer/go-common/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Xushengqwer/article_service/constant"
)

// PublishScheduleQueue 定义了定时发布队列的操作接口。
// 以未来时间发布的文章在到点前对外不可见；文章 ID 记入该队列，
// 由分钟级任务弹出到点成员并触发可见性同步。
type PublishScheduleQueue interface {
	// Schedule 把文章加入定时发布队列，分数为计划发布时间的 Unix 秒。
	// 重复调用以最新时间为准（ZADD 覆盖分数）。
	Schedule(ctx context.Context, articleID uint64, publishAt time.Time) error

	// Cancel 把文章移出队列。文章被下线、删除或立即发布时调用。
	// 成员不存在时静默成功。
	Cancel(ctx context.Context, articleID uint64) error

	// PopDue 原子性地弹出所有计划时间不晚于 now 的文章 ID，至多 limit 条。
	// 弹出即移除，保证并发的两轮任务不会重复处理同一篇文章。
	PopDue(ctx context.Context, now time.Time, limit int) ([]uint64, error)
}

// publishScheduleQueueImpl 是 PublishScheduleQueue 接口的 Redis 实现。
type publishScheduleQueueImpl struct {
	redisClient *redis.Client
	logger      *core.ZapLogger
}

// NewPublishScheduleQueue 创建 PublishScheduleQueue 的新实例。
func NewPublishScheduleQueue(redisClient *redis.Client, logger *core.ZapLogger) PublishScheduleQueue {
	return &publishScheduleQueueImpl{
		redisClient: redisClient,
		logger:      logger,
	}
}

func (q *publishScheduleQueueImpl) Schedule(ctx context.Context, articleID uint64, publishAt time.Time) error {
	member := strconv.FormatUint(articleID, 10)
	err := q.redisClient.ZAdd(ctx, constant.PublishScheduleKey, redis.Z{
		Score:  float64(publishAt.Unix()),
		Member: member,
	}).Err()
	if err != nil {
		q.logger.Error("写入定时发布队列失败",
			zap.Error(err),
			zap.Uint64("articleID", articleID),
			zap.Time("publishAt", publishAt),
		)
		return err
	}
	return nil
}

func (q *publishScheduleQueueImpl) Cancel(ctx context.Context, articleID uint64) error {
	member := strconv.FormatUint(articleID, 10)
	if err := q.redisClient.ZRem(ctx, constant.PublishScheduleKey, member).Err(); err != nil {
		q.logger.Error("移除定时发布队列成员失败",
			zap.Error(err),
			zap.Uint64("articleID", articleID),
		)
		return err
	}
	return nil
}

// popDueScript 原子地取出并删除到点成员。
// 取出与删除必须在同一脚本内完成，否则两轮并发任务会弹出同一批成员。
var popDueScript = redis.NewScript(`
	-- KEYS[1]: schedule ZSet (constant.PublishScheduleKey)
	-- ARGV[1]: max score (now, unix seconds)
	-- ARGV[2]: limit

	local due = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, tonumber(ARGV[2]))
	if #due > 0 then
		redis.call("ZREM", KEYS[1], unpack(due))
	end
	return due
`)

func (q *publishScheduleQueueImpl) PopDue(ctx context.Context, now time.Time, limit int) ([]uint64, error) {
	if limit <= 0 {
		limit = constant.MaxPageSize
	}

	raw, err := popDueScript.Run(ctx, q.redisClient,
		[]string{constant.PublishScheduleKey},
		now.Unix(), limit,
	).StringSlice()
	if err != nil {
		q.logger.Error("弹出到点发布任务失败", zap.Error(err), zap.Time("now", now))
		return nil, err
	}

	ids := make([]uint64, 0, len(raw))
	for _, member := range raw {
		id, parseErr := strconv.ParseUint(member, 10, 64)
		if parseErr != nil {
			// 队列里出现非法成员只记日志跳过，不影响其余成员的发布。
			q.logger.Warn("定时发布队列中存在非法成员，已丢弃", zap.String("member", member))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
