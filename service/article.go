package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/Xushengqwer/go-common/core"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Xushengqwer/article_service/constant"
	"github.com/Xushengqwer/article_service/dependencies"
	"github.com/Xushengqwer/article_service/lifecycle"
	"github.com/Xushengqwer/article_service/models/dto"
	"github.com/Xushengqwer/article_service/models/entities"
	"github.com/Xushengqwer/article_service/models/enums"
	"github.com/Xushengqwer/article_service/models/events"
	"github.com/Xushengqwer/article_service/models/vo"
	"github.com/Xushengqwer/article_service/mq/producer"
	"github.com/Xushengqwer/article_service/repo/mysql"
	"github.com/Xushengqwer/article_service/repo/redis"
)

// ArticleService 定义了处理文章核心业务逻辑的接口。
type ArticleService interface {
	// CreateArticle 处理作者创建新文章的业务流程。
	// - 新文章始终是草稿：不对外可见，不进入搜索索引。
	// - 可选上传一张封面图，先写入 COS 再落库访问 URL。
	// - 返回 VO，包含成功创建的文章完整信息（含初始版本号）。
	CreateArticle(ctx context.Context, req *dto.CreateArticleRequest, authorID string, coverImage *multipart.FileHeader) (*vo.ArticleDetailVO, error)

	// UpdateArticle 更新文章的内容字段。
	// - 以请求携带的 expected_version 做乐观并发控制：版本不符返回
	//   myErrors.ErrVersionConflict，调用方需重新读取后决定是否重试。
	// - 提交成功后异步触发一条索引同步事件。
	UpdateArticle(ctx context.Context, req *dto.UpdateArticleRequest) (*vo.ArticleDetailVO, error)

	// ChangeArticleStatus 执行文章生命周期状态迁移。
	// - 非法迁移（如发布回退草稿）返回 myErrors.TransitionError，文章不变。
	// - 发布时可携带未来的 publish_at 实现定时发布：状态立即变为已发布，
	//   但在到点之前对外不可见、不进入索引。
	ChangeArticleStatus(ctx context.Context, req *dto.ChangeArticleStatusRequest) (*vo.ArticleResponse, error)

	// DeleteArticle 软删除文章，并触发索引侧文档的移除。
	DeleteArticle(ctx context.Context, id uint64) error

	// GetArticleByID 获取单篇文章的完整信息（含正文）。
	GetArticleByID(ctx context.Context, id uint64) (*vo.ArticleDetailVO, error)
}

// articleService 是 ArticleService 接口的具体实现。
type articleService struct {
	articleRepo   mysql.ArticleRepository         // 文章的 MySQL 操作
	scheduleQueue redis.PublishScheduleQueue      // 定时发布队列
	cosClient     dependencies.COSClientInterface // COS 云存储依赖，封面图上传
	db            *gorm.DB                        // GORM 数据库实例，主要用于事务管理
	publisher     producer.SyncEventPublisher     // 索引同步事件发布者
	logger        *core.ZapLogger                 // 日志记录器
}

// NewArticleService 是 articleService 的构造函数，通过依赖注入初始化服务实例。
// - 这种方式便于单元测试和组件替换。
func NewArticleService(
	db *gorm.DB,
	articleRepo mysql.ArticleRepository,
	scheduleQueue redis.PublishScheduleQueue,
	cosClient dependencies.COSClientInterface,
	publisher producer.SyncEventPublisher,
	logger *core.ZapLogger,
) ArticleService {
	return &articleService{
		articleRepo:   articleRepo,
		scheduleQueue: scheduleQueue,
		cosClient:     cosClient,
		db:            db,
		publisher:     publisher,
		logger:        logger,
	}
}

// generateCoverObjectKey 创建封面图的唯一 COS 对象键。
// 规则: articles/covers/YYYYMMDD/authorID_uuid.ext
func (s *articleService) generateCoverObjectKey(originalFilename string, authorID string) string {
	datePrefix := time.Now().Format("20060102")
	extension := strings.ToLower(filepath.Ext(originalFilename))
	return fmt.Sprintf("%s%s/%s_%s%s",
		constant.COSObjectKeyPrefixArticleCovers,
		datePrefix,
		authorID,
		uuid.NewString(),
		extension,
	)
}

// uploadCover 上传封面图并返回访问 URL。coverImage 为 nil 时返回空串。
func (s *articleService) uploadCover(ctx context.Context, coverImage *multipart.FileHeader, authorID string) (string, string, error) {
	if coverImage == nil {
		return "", "", nil
	}

	file, err := coverImage.Open()
	if err != nil {
		s.logger.Error("打开封面图文件失败",
			zap.String("filename", coverImage.Filename),
			zap.Error(err))
		return "", "", fmt.Errorf("打开封面图 %s 失败: %w", coverImage.Filename, err)
	}
	defer file.Close()

	contentType := coverImage.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
		s.logger.Warn("封面图未提供内容类型，使用默认值",
			zap.String("filename", coverImage.Filename),
			zap.String("defaultContentType", contentType))
	}

	objectKey := s.generateCoverObjectKey(coverImage.Filename, authorID)
	imageURL, err := s.cosClient.UploadFile(ctx, objectKey, file, coverImage.Size, contentType)
	if err != nil {
		s.logger.Error("上传封面图到 COS 失败",
			zap.String("filename", coverImage.Filename),
			zap.String("objectKey", objectKey),
			zap.Error(err))
		return "", "", fmt.Errorf("上传封面图 %s 到 COS 失败: %w", coverImage.Filename, err)
	}
	return imageURL, objectKey, nil
}

// emitSyncEvent 在事务提交成功后异步发送索引同步事件。
// 事件类型按文章当前可见性选择；协调器侧反正以主存储快照为准，
// 类型只影响日志可读性。发送失败只告警，差异由对账任务兜底修复。
func (s *articleService) emitSyncEvent(article *entities.Article, version int64) {
	kind := events.SyncDelete
	if lifecycle.EffectivelyVisible(article, time.Now()) {
		kind = events.SyncUpsert
	}
	event := events.NewSyncEvent(article.ID, kind, version)

	if s.publisher == nil {
		s.logger.Warn("未配置事件发布者，索引同步依赖对账任务",
			zap.Uint64("articleID", article.ID))
		return
	}
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.publisher.PublishSyncEvent(sendCtx, event); err != nil {
			s.logger.Warn("索引同步事件发送失败，等待对账修复",
				zap.Error(err),
				zap.Uint64("articleID", article.ID),
				zap.String("eventID", event.EventID),
			)
		}
	}()
}

// CreateArticle 处理创建新文章的请求，包括封面图上传和数据库操作。
func (s *articleService) CreateArticle(ctx context.Context, req *dto.CreateArticleRequest, authorID string, coverImage *multipart.FileHeader) (*vo.ArticleDetailVO, error) {
	// 1. 先上传封面图（如有）
	coverURL, objectKey, err := s.uploadCover(ctx, coverImage, authorID)
	if err != nil {
		return nil, err
	}

	// 2. 在事务中写入文章
	article := &entities.Article{
		Title:      req.Title,
		Slug:       req.Slug,
		Summary:    req.Summary,
		Content:    req.Content,
		CoverImage: coverURL,
		CategoryID: req.CategoryID,
		AuthorID:   authorID,
		Tags:       req.Tags,
		Status:     enums.Draft, // 新文章始终是草稿
		Version:    1,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if repoErr := s.articleRepo.CreateArticle(ctx, tx, article); repoErr != nil {
			return fmt.Errorf("创建文章失败: %w", repoErr)
		}
		return nil // 提交事务
	})
	if err != nil {
		s.logger.Error("创建文章事务失败", zap.Error(err))
		// 数据库失败时清理已上传的封面图，避免 COS 中留下孤立文件。
		if objectKey != "" {
			if cleanupErr := s.cosClient.DeleteObject(context.Background(), objectKey); cleanupErr != nil {
				s.logger.Error("清理孤立的封面图失败", zap.String("objectKey", objectKey), zap.Error(cleanupErr))
			}
		}
		return nil, err
	}

	// 草稿不可见，无需触发索引同步。
	s.logger.Info("文章创建成功",
		zap.Uint64("articleID", article.ID),
		zap.String("authorID", authorID),
	)
	return vo.MapArticleToDetailVO(article), nil
}

// UpdateArticle 更新文章内容字段。
func (s *articleService) UpdateArticle(ctx context.Context, req *dto.UpdateArticleRequest) (*vo.ArticleDetailVO, error) {
	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Slug != nil {
		updates["slug"] = *req.Slug
	}
	if req.Summary != nil {
		updates["summary"] = *req.Summary
	}
	if req.Content != nil {
		updates["content"] = *req.Content
	}
	if req.CategoryID != nil {
		updates["category_id"] = *req.CategoryID
	}
	if req.Tags != nil {
		// TagList 实现了 driver.Valuer，GORM 写入时按既定编码落库。
		updates["tags"] = entities.TagList(*req.Tags)
	}
	if len(updates) == 0 {
		return s.GetArticleByID(ctx, req.ArticleID)
	}

	var newVersion int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		newVersion, txErr = s.articleRepo.UpdateArticleCAS(ctx, tx, req.ArticleID, req.ExpectedVersion, updates)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	article, err := s.articleRepo.GetArticleByID(ctx, req.ArticleID)
	if err != nil {
		return nil, err
	}

	// 内容字段是索引投影的一部分，提交成功即触发同步。
	s.emitSyncEvent(article, newVersion)
	return vo.MapArticleToDetailVO(article), nil
}

// ChangeArticleStatus 执行生命周期状态迁移。
func (s *articleService) ChangeArticleStatus(ctx context.Context, req *dto.ChangeArticleStatusRequest) (*vo.ArticleResponse, error) {
	article, err := s.articleRepo.GetArticleByID(ctx, req.ArticleID)
	if err != nil {
		return nil, err
	}

	previousPublishedAt := article.PublishedAt

	// 状态机校验并落实迁移，非法迁移在这里被拒绝且不产生任何写入。
	if err := lifecycle.Transition(article, req.Status, req.PublishAt, time.Now()); err != nil {
		s.logger.Warn("非法的文章状态迁移被拒绝",
			zap.Error(err),
			zap.Uint64("articleID", article.ID),
			zap.String("targetStatus", req.Status.String()),
		)
		return nil, err
	}

	updates := map[string]interface{}{
		"status": article.Status,
	}
	if article.PublishedAt != previousPublishedAt {
		updates["published_at"] = article.PublishedAt
	}

	var newVersion int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		newVersion, txErr = s.articleRepo.UpdateArticleCAS(ctx, tx, req.ArticleID, req.ExpectedVersion, updates)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	article.Version = newVersion

	// 维护定时发布队列：
	// - 发布到未来时间：入队等待到点提升可见性。
	// - 立即发布 / 下线 / 退回草稿：移出队列，避免过期的定时动作。
	now := time.Now()
	if article.Status == enums.Published && article.PublishedAt != nil && article.PublishedAt.After(now) {
		if qErr := s.scheduleQueue.Schedule(ctx, article.ID, *article.PublishedAt); qErr != nil {
			s.logger.Error("写入定时发布队列失败，到点可见性依赖对账兜底",
				zap.Error(qErr),
				zap.Uint64("articleID", article.ID),
			)
		}
	} else {
		if qErr := s.scheduleQueue.Cancel(ctx, article.ID); qErr != nil {
			s.logger.Warn("移除定时发布队列成员失败",
				zap.Error(qErr),
				zap.Uint64("articleID", article.ID),
			)
		}
	}

	// 状态与发布时间都是索引可见性的裁决输入，提交成功即触发同步。
	s.emitSyncEvent(article, newVersion)

	s.logger.Info("文章状态迁移成功",
		zap.Uint64("articleID", article.ID),
		zap.String("status", article.Status.String()),
		zap.Int64("version", newVersion),
	)
	return vo.MapArticleToResponseVO(article), nil
}

// DeleteArticle 软删除文章。
func (s *articleService) DeleteArticle(ctx context.Context, id uint64) error {
	article, err := s.articleRepo.GetArticleByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.articleRepo.DeleteArticle(ctx, tx, id)
	})
	if err != nil {
		s.logger.Error("软删除文章事务失败", zap.Error(err), zap.Uint64("articleID", id))
		return err
	}

	// 定时发布队列里的残留成员一并清理。
	if qErr := s.scheduleQueue.Cancel(ctx, id); qErr != nil {
		s.logger.Warn("删除文章时移除定时发布队列成员失败", zap.Error(qErr), zap.Uint64("articleID", id))
	}

	// 行已软删除，协调器读快照会得到未找到，从而移除索引文档。
	event := events.NewSyncEvent(id, events.SyncDelete, article.Version+1)
	if s.publisher == nil {
		s.logger.Warn("未配置事件发布者，索引同步依赖对账任务", zap.Uint64("articleID", id))
		s.logger.Info("文章已软删除", zap.Uint64("articleID", id))
		return nil
	}
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.publisher.PublishSyncEvent(sendCtx, event); err != nil {
			s.logger.Warn("删除同步事件发送失败，等待对账修复",
				zap.Error(err),
				zap.Uint64("articleID", id),
			)
		}
	}()

	s.logger.Info("文章已软删除", zap.Uint64("articleID", id))
	return nil
}

// GetArticleByID 获取单篇文章详情。
func (s *articleService) GetArticleByID(ctx context.Context, id uint64) (*vo.ArticleDetailVO, error) {
	article, err := s.articleRepo.GetArticleByID(ctx, id)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("获取文章详情失败", zap.Error(err), zap.Uint64("articleID", id))
		}
		return nil, err
	}
	return vo.MapArticleToDetailVO(article), nil
}
