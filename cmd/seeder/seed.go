package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/Xushengqwer/go-common/core"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Xushengqwer/article_service/models/dto"
	"github.com/Xushengqwer/article_service/models/enums"
	"github.com/Xushengqwer/article_service/service"
)

// Seed 通过服务层批量生成测试文章。
// 走服务层而不是直接写库，保证版本号、状态机和同步事件的行为与真实流量一致。
func Seed(ctx context.Context, articleSvc service.ArticleService, logger *core.ZapLogger, numArticles int, publishRatio float64) {
	logger.Info("开始填充测试数据 (通过服务层)...", zap.Int("数量", numArticles))

	var wg sync.WaitGroup
	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for i := 0; i < numArticles; i++ {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(itemIndex int) {
			defer wg.Done()
			defer func() { <-semaphore }()

			authorID := uuid.New().String()
			tags := make([]string, 0, 3)
			for t := 0; t < gofakeit.Number(1, 3); t++ {
				tags = append(tags, gofakeit.BuzzWord())
			}

			createReq := &dto.CreateArticleRequest{
				Title:      gofakeit.Sentence(gofakeit.Number(5, 12)),
				Slug:       gofakeit.Username(),
				Summary:    gofakeit.Sentence(gofakeit.Number(10, 20)),
				Content:    gofakeit.Paragraph(3, 5, 20, "\n\n"),
				CategoryID: uint64(gofakeit.Number(1, 10)),
				Tags:       tags,
			}

			resp, err := articleSvc.CreateArticle(ctx, createReq, authorID, nil)
			if err != nil {
				logger.Error(fmt.Sprintf("创建文章 %d/%d 失败", itemIndex+1, numArticles),
					zap.Error(err),
					zap.String("title", createReq.Title),
					zap.String("author_id", authorID))
				return
			}
			logger.Info(fmt.Sprintf("成功创建文章 %d/%d", itemIndex+1, numArticles),
				zap.Uint64("article_id", resp.ID),
				zap.String("title", resp.Title))

			// 按比例把一部分草稿发布出去，让搜索索引里有内容可查。
			if gofakeit.Float64Range(0, 1) >= publishRatio {
				return
			}
			statusReq := &dto.ChangeArticleStatusRequest{
				ArticleID:       resp.ID,
				ExpectedVersion: resp.Version,
				Status:          enums.Published,
			}
			if _, err := articleSvc.ChangeArticleStatus(ctx, statusReq); err != nil {
				logger.Error("发布文章失败",
					zap.Error(err),
					zap.Uint64("article_id", resp.ID))
			}
		}(i)
	}

	wg.Wait()
	logger.Info("测试数据填充完毕 (通过服务层)。")
}
