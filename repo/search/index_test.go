package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Xushengqwer/article_service/myErrors"
)

func newTestIndex(t *testing.T) ArticleIndex {
	t.Helper()
	idx, err := OpenArticleIndex(filepath.Join(t.TempDir(), "articles.bleve"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func doc(id string, version int64, text string) *SearchDocument {
	return &SearchDocument{
		ID:       id,
		AuthorID: "user-1",
		Tags:     []string{"go", "后端"},
		Text:     text,
		Version:  version,
	}
}

func TestArticleIndex_UpsertAndGet(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, doc("1", 3, "Go 并发模式详解")))

	got, exists, err := idx.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, exists)
	require.EqualValues(t, 3, got.Version)
	require.Equal(t, "user-1", got.AuthorID)
	require.ElementsMatch(t, []string{"go", "后端"}, got.Tags)

	_, exists, err = idx.Get(ctx, 42)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestArticleIndex_StaleWriteRejected(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, doc("1", 5, "新版本内容")))

	// 乱序到达的旧版本写入被拒绝，已存数据不受影响。
	err := idx.Upsert(ctx, doc("1", 4, "旧版本内容"))
	require.ErrorIs(t, err, myErrors.ErrStaleIndexWrite)

	got, exists, err := idx.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, exists)
	require.EqualValues(t, 5, got.Version)

	// 相同版本重复投递是幂等的成功。
	require.NoError(t, idx.Upsert(ctx, doc("1", 5, "新版本内容")))

	// 更高版本正常覆盖。
	require.NoError(t, idx.Upsert(ctx, doc("1", 6, "更新版本内容")))
	got, _, err = idx.Get(ctx, 1)
	require.NoError(t, err)
	require.EqualValues(t, 6, got.Version)
}

func TestArticleIndex_DeleteBlocksStaleResurrection(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, doc("1", 2, "即将下线")))
	require.NoError(t, idx.Delete(ctx, 1, 3))

	_, exists, err := idx.Get(ctx, 1)
	require.NoError(t, err)
	require.False(t, exists)

	// 删除之后到达的旧版本补写不能让文档复活。
	err = idx.Upsert(ctx, doc("1", 2, "旧投影"))
	require.ErrorIs(t, err, myErrors.ErrStaleIndexWrite)

	_, exists, err = idx.Get(ctx, 1)
	require.NoError(t, err)
	require.False(t, exists)

	// 比删除水位更高的版本可以重新写入（重新发布）。
	require.NoError(t, idx.Upsert(ctx, doc("1", 4, "重新发布")))
	got, exists, err := idx.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, exists)
	require.EqualValues(t, 4, got.Version)
}

func TestArticleIndex_DeleteIdempotent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	// 删除不存在的文档视为成功。
	require.NoError(t, idx.Delete(ctx, 7, 1))
	// 重复删除同样成功。
	require.NoError(t, idx.Delete(ctx, 7, 1))
}

func TestArticleIndex_SearchWithFilters(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, &SearchDocument{
		ID: "1", AuthorID: "alice", Tags: []string{"go"}, Text: "golang concurrency patterns", Version: 1,
	}))
	require.NoError(t, idx.Upsert(ctx, &SearchDocument{
		ID: "2", AuthorID: "bob", Tags: []string{"go", "database"}, Text: "golang database indexing", Version: 1,
	}))
	require.NoError(t, idx.Upsert(ctx, &SearchDocument{
		ID: "3", AuthorID: "alice", Tags: []string{"web"}, Text: "frontend rendering", Version: 1,
	}))

	// 纯关键词
	hits, total, err := idx.Search(ctx, "golang", nil, nil, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, hits, 2)

	// 关键词 + 作者过滤
	author := "alice"
	hits, total, err = idx.Search(ctx, "golang", &author, nil, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.EqualValues(t, 1, hits[0].ArticleID)
	require.Equal(t, "alice", hits[0].AuthorID)

	// 关键词 + 标签过滤
	tag := "database"
	hits, total, err = idx.Search(ctx, "golang", nil, &tag, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.EqualValues(t, 2, hits[0].ArticleID)
}

func TestArticleIndex_SearchWithoutKeyword(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, &SearchDocument{
		ID: "1", AuthorID: "alice", Tags: []string{"go"}, Text: "golang concurrency patterns", Version: 1,
	}))
	require.NoError(t, idx.Upsert(ctx, &SearchDocument{
		ID: "2", AuthorID: "bob", Tags: []string{"go", "database"}, Text: "golang database indexing", Version: 1,
	}))
	require.NoError(t, idx.Upsert(ctx, &SearchDocument{
		ID: "3", AuthorID: "alice", Tags: []string{"web"}, Text: "frontend rendering", Version: 1,
	}))

	// 纯标签过滤，不带关键词
	tag := "go"
	hits, total, err := idx.Search(ctx, "", nil, &tag, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, hits, 2)

	// 作者 + 标签，不带关键词
	author := "alice"
	hits, total, err = idx.Search(ctx, "", &author, &tag, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.EqualValues(t, 1, hits[0].ArticleID)

	// 纯作者过滤
	hits, total, err = idx.Search(ctx, "", &author, nil, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, hits, 2)

	// 三个条件全空不匹配任何文档
	hits, total, err = idx.Search(ctx, "", nil, nil, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 0, total)
	require.Empty(t, hits)
}

func TestArticleIndex_FindByAuthorID(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, &SearchDocument{
		ID: "1", AuthorID: "alice", Tags: []string{"go"}, Text: "第一篇", Version: 1,
	}))
	require.NoError(t, idx.Upsert(ctx, &SearchDocument{
		ID: "2", AuthorID: "bob", Tags: []string{"go"}, Text: "别人的文章", Version: 1,
	}))
	require.NoError(t, idx.Upsert(ctx, &SearchDocument{
		ID: "3", AuthorID: "alice", Tags: []string{"web"}, Text: "第二篇", Version: 1,
	}))

	hits, total, err := idx.FindByAuthorID(ctx, "alice", 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, hits, 2)
	// 按文档ID稳定排序
	require.EqualValues(t, 1, hits[0].ArticleID)
	require.EqualValues(t, 3, hits[1].ArticleID)

	// 翻页
	hits, total, err = idx.FindByAuthorID(ctx, "alice", 1, 1)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, hits, 1)
	require.EqualValues(t, 3, hits[0].ArticleID)

	// 无结果作者
	hits, total, err = idx.FindByAuthorID(ctx, "carol", 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 0, total)
	require.Empty(t, hits)
}

func TestArticleIndex_ScanDocuments(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, idx.Upsert(ctx, doc(id, 1, "内容 "+id)))
	}

	entries, err := idx.ScanDocuments(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.EqualValues(t, 1, entries[0].ArticleID)
	require.EqualValues(t, 2, entries[1].ArticleID)

	entries, err = idx.ScanDocuments(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.EqualValues(t, 3, entries[0].ArticleID)
	require.EqualValues(t, 1, entries[0].Version)
}
