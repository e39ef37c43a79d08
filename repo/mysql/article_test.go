package mysql

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Xushengqwer/go-common/commonerrors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Xushengqwer/article_service/models/dto"
	"github.com/Xushengqwer/article_service/models/entities"
	"github.com/Xushengqwer/article_service/models/enums"
	"github.com/Xushengqwer/article_service/myErrors"
)

// newTestDB 创建一个独立的内存 SQLite 库并完成建表。
// 以测试名命名内存库并开启 cache=shared，保证连接池内多个连接看到同一份数据，
// 同时不同测试之间互不串库。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Article{}))
	return db
}

func newTestRepo(t *testing.T) (ArticleRepository, *gorm.DB) {
	db := newTestDB(t)
	return NewArticleRepository(db, zap.NewNop()), db
}

func newDraft(title, authorID string, tags []string) *entities.Article {
	return &entities.Article{
		Title:    title,
		Content:  "正文:" + title,
		AuthorID: authorID,
		Tags:     tags,
		Status:   enums.Draft,
	}
}

func TestArticleRepository_CreateAndGet(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	article := newDraft("第一篇", "user-1", []string{"go", "后端"})
	require.NoError(t, repo.CreateArticle(ctx, db, article))
	require.NotZero(t, article.ID)
	require.EqualValues(t, 1, article.Version)

	got, err := repo.GetArticleByID(ctx, article.ID)
	require.NoError(t, err)
	require.Equal(t, "第一篇", got.Title)
	require.Equal(t, []string{"go", "后端"}, []string(got.Tags))
	require.Equal(t, enums.Draft, got.Status)
}

func TestArticleRepository_GetNotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.GetArticleByID(context.Background(), 99999)
	require.ErrorIs(t, err, commonerrors.ErrRepoNotFound)
}

func TestArticleRepository_UpdateArticleCAS(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	article := newDraft("待更新", "user-1", nil)
	require.NoError(t, repo.CreateArticle(ctx, db, article))

	// 版本匹配时更新成功，版本号加一。
	newVersion, err := repo.UpdateArticleCAS(ctx, db, article.ID, 1, map[string]interface{}{
		"title": "已更新",
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, newVersion)

	got, err := repo.GetArticleByID(ctx, article.ID)
	require.NoError(t, err)
	require.Equal(t, "已更新", got.Title)
	require.EqualValues(t, 2, got.Version)

	// 携带陈旧版本号的更新被拒绝，行保持不变。
	_, err = repo.UpdateArticleCAS(ctx, db, article.ID, 1, map[string]interface{}{
		"title": "基于旧版本的更新",
	})
	require.ErrorIs(t, err, myErrors.ErrVersionConflict)

	got, err = repo.GetArticleByID(ctx, article.ID)
	require.NoError(t, err)
	require.Equal(t, "已更新", got.Title)
	require.EqualValues(t, 2, got.Version)
}

func TestArticleRepository_UpdateArticleCAS_ConflictInsideTransaction(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	// 行在事务内创建且尚未提交，只有事务自己的句柄能看到它。
	// 版本冲突的区分查询必须走同一个事务，否则会把冲突误判成行不存在。
	err := db.Transaction(func(tx *gorm.DB) error {
		article := newDraft("事务内创建", "user-1", nil)
		if err := repo.CreateArticle(ctx, tx, article); err != nil {
			return err
		}

		_, casErr := repo.UpdateArticleCAS(ctx, tx, article.ID, 99, map[string]interface{}{
			"title": "陈旧版本的更新",
		})
		require.ErrorIs(t, casErr, myErrors.ErrVersionConflict)
		return nil
	})
	require.NoError(t, err)
}

func TestArticleRepository_UpdateArticleCAS_NotFound(t *testing.T) {
	repo, db := newTestRepo(t)

	_, err := repo.UpdateArticleCAS(context.Background(), db, 12345, 1, map[string]interface{}{
		"title": "无目标",
	})
	require.ErrorIs(t, err, commonerrors.ErrRepoNotFound)
}

func TestArticleRepository_UpdateArticleCAS_PublishedAtNeverCleared(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	article := newDraft("发布后回退", "user-1", nil)
	require.NoError(t, repo.CreateArticle(ctx, db, article))

	publishedAt := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	_, err := repo.UpdateArticleCAS(ctx, db, article.ID, 1, map[string]interface{}{
		"status":       enums.Published,
		"published_at": publishedAt,
	})
	require.NoError(t, err)

	// 下线不触碰 published_at，发布时间一经设置即保留。
	_, err = repo.UpdateArticleCAS(ctx, db, article.ID, 2, map[string]interface{}{
		"status": enums.Offline,
	})
	require.NoError(t, err)

	got, err := repo.GetArticleByID(ctx, article.ID)
	require.NoError(t, err)
	require.Equal(t, enums.Offline, got.Status)
	require.NotNil(t, got.PublishedAt)
	require.True(t, got.PublishedAt.Equal(publishedAt))
}

func TestArticleRepository_SoftDelete(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	article := newDraft("待删除", "user-1", nil)
	require.NoError(t, repo.CreateArticle(ctx, db, article))

	require.NoError(t, repo.DeleteArticle(ctx, db, article.ID))

	_, err := repo.GetArticleByID(ctx, article.ID)
	require.ErrorIs(t, err, commonerrors.ErrRepoNotFound)

	// 软删除的行不出现在键集扫描中。
	rows, err := repo.ScanArticles(ctx, 0, 10)
	require.NoError(t, err)
	require.Empty(t, rows)

	// 重复删除返回未找到。
	require.ErrorIs(t, repo.DeleteArticle(ctx, db, article.ID), commonerrors.ErrRepoNotFound)
}

func TestArticleRepository_ListArticlesByCondition(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	a1 := newDraft("Go 并发模式", "user-1", []string{"go"})
	a2 := newDraft("Go 内存模型", "user-2", []string{"go"})
	a3 := newDraft("数据库索引", "user-1", []string{"mysql"})
	for _, a := range []*entities.Article{a1, a2, a3} {
		require.NoError(t, repo.CreateArticle(ctx, db, a))
	}
	_, err := repo.UpdateArticleCAS(ctx, db, a2.ID, 1, map[string]interface{}{
		"status":       enums.Published,
		"published_at": time.Now(),
	})
	require.NoError(t, err)

	// 标题模糊 + 作者过滤
	author := "user-1"
	title := "Go"
	list, total, err := repo.ListArticlesByCondition(ctx, &dto.ListArticlesByConditionRequest{
		Title:    &title,
		AuthorID: &author,
		Page:     1,
		PageSize: 10,
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	require.Equal(t, "Go 并发模式", list[0].Title)

	// 状态过滤
	published := enums.Published
	list, total, err = repo.ListArticlesByCondition(ctx, &dto.ListArticlesByConditionRequest{
		Status:   &published,
		Page:     1,
		PageSize: 10,
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, a2.ID, list[0].ID)

	// 按主键直查
	list, total, err = repo.ListArticlesByCondition(ctx, &dto.ListArticlesByConditionRequest{
		ID:       &a3.ID,
		Page:     1,
		PageSize: 10,
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "数据库索引", list[0].Title)
}

func TestArticleRepository_ScanArticlesKeyset(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	var ids []uint64
	for i := 0; i < 5; i++ {
		a := newDraft("批量", "user-1", nil)
		require.NoError(t, repo.CreateArticle(ctx, db, a))
		ids = append(ids, a.ID)
	}

	// 第一批
	batch, err := repo.ScanArticles(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.Equal(t, ids[0], batch[0].ID)
	require.Equal(t, ids[1], batch[1].ID)

	// 从上一批末尾继续
	batch, err = repo.ScanArticles(ctx, batch[1].ID, 10)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	require.Equal(t, ids[2], batch[0].ID)
	require.Equal(t, ids[4], batch[2].ID)
}
