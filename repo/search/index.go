package search

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"go.uber.org/zap"

	"github.com/Xushengqwer/article_service/myErrors"
)

// SearchDocument 是搜索索引中的文章投影。
// 字段是主存储行的子集；Version 是生成该投影时的主存储版本号，
// 索引侧的写入顺序完全由它裁决，而不是事件到达顺序。
type SearchDocument struct {
	ID       string   `json:"id"`        // 文章ID的十进制字符串形式，同时作为 bleve 文档ID
	AuthorID string   `json:"author_id"` // 作者ID，精确匹配
	Tags     []string `json:"tags"`      // 标签列表，精确匹配
	Text     string   `json:"text"`      // 标题/摘要/正文拼接后的全文字段
	Version  int64    `json:"version"`   // 主存储版本号
}

// SearchHit 一次全文检索的单条命中。
type SearchHit struct {
	ArticleID uint64
	AuthorID  string
	Tags      []string
	Score     float64
}

// IndexEntry 索引扫描时返回的轻量条目，供对账任务与主存储做差异比对。
type IndexEntry struct {
	ArticleID uint64
	Version   int64
}

// ArticleIndex 定义了文章搜索索引的操作接口。
// 索引是派生数据：任何与主存储的分歧都以主存储为准，由同步与对账流程修复。
type ArticleIndex interface {
	// Upsert 写入或覆盖一篇文章的投影。
	// - 幂等：相同版本重复写入等价于一次写入。
	// - 携带比已存版本更低的版本号时拒绝写入并返回 myErrors.ErrStaleIndexWrite，
	//   防止乱序到达的旧事件覆盖新数据。
	Upsert(ctx context.Context, doc *SearchDocument) error

	// Delete 从索引中移除一篇文章。
	// - version 是触发删除的主存储版本号；删除后更低版本的补写同样被拒绝。
	// - 文档本就不存在时视为成功（幂等）。
	Delete(ctx context.Context, articleID uint64, version int64) error

	// Get 读取一篇文章当前的投影。
	// - 第二个返回值表示文档是否存在。
	Get(ctx context.Context, articleID uint64) (*SearchDocument, bool, error)

	// Search 全文检索，只在已写入索引的文档（即对外可见的文章）中匹配。
	// - query 为空时仅按 authorID / tag 过滤；三者全空返回空结果。
	Search(ctx context.Context, query string, authorID *string, tag *string, offset, limit int) ([]*SearchHit, uint64, error)

	// FindByAuthorID 按作者精确匹配，返回该作者所有已索引（即对外可见）的文章。
	FindByAuthorID(ctx context.Context, authorID string, offset, limit int) ([]*SearchHit, uint64, error)

	// ScanDocuments 按文档ID顺序分页遍历索引中的全部条目，供对账任务使用。
	ScanDocuments(ctx context.Context, offset, limit int) ([]IndexEntry, error)

	// Close 关闭底层索引文件。
	Close() error
}

// bleveArticleIndex 是 ArticleIndex 基于 bleve 的实现。
type bleveArticleIndex struct {
	index  bleve.Index
	logger *zap.Logger

	// mu 串行化写入路径上的“读版本-写文档”两步，保证版本裁决的原子性。
	// bleve 本身的单文档写入是原子的，但版本比较需要跨读写两个操作。
	mu sync.Mutex

	// tombstones 记录已删除文档的删除版本号。
	// 删除之后乱序到达的旧版本 Upsert 必须被拒绝，而 bleve 删除后无从比较版本，
	// 故在内存中保留删除水位。进程重启后由对账任务兜底。
	tombstones map[string]int64
}

// OpenArticleIndex 打开或创建指定路径上的 bleve 索引。
func OpenArticleIndex(path string, logger *zap.Logger) (ArticleIndex, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &bleveArticleIndex{
		index:      idx,
		logger:     logger,
		tombstones: make(map[string]int64),
	}, nil
}

// buildIndexMapping 构建文档映射：
// - AuthorID / Tags 使用 keyword 分析器做精确匹配过滤。
// - Text 使用标准分析器做全文匹配。
// - Version 为数值字段，存储原值以便读回比较。
func buildIndexMapping() mapping.IndexMapping {
	keywordFieldMapping := bleve.NewKeywordFieldMapping()

	textFieldMapping := bleve.NewTextFieldMapping()

	versionFieldMapping := bleve.NewNumericFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("author_id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("tags", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	docMapping.AddFieldMappingsAt("version", versionFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

func docID(articleID uint64) string {
	return strconv.FormatUint(articleID, 10)
}

func (b *bleveArticleIndex) Close() error {
	return b.index.Close()
}

// Upsert 带版本裁决的写入。
func (b *bleveArticleIndex) Upsert(ctx context.Context, doc *SearchDocument) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// 先比删除水位：删除之后到达的旧版本补写必须被拒绝。
	if deletedVersion, ok := b.tombstones[doc.ID]; ok {
		if doc.Version <= deletedVersion {
			return myErrors.ErrStaleIndexWrite
		}
		// 更新的版本重新出现，墓碑作废。
		delete(b.tombstones, doc.ID)
	}

	current, exists, err := b.getLocked(ctx, doc.ID)
	if err != nil {
		return err
	}
	if exists {
		if doc.Version < current.Version {
			return myErrors.ErrStaleIndexWrite
		}
		if doc.Version == current.Version {
			// 相同版本重复投递，视为已完成。
			return nil
		}
	}

	if err := b.index.Index(doc.ID, doc); err != nil {
		b.logger.Error("索引写入失败",
			zap.Error(err),
			zap.String("docID", doc.ID),
			zap.Int64("version", doc.Version),
		)
		// bleve 的 IO 类错误按瞬时失败处理，交给上层重试。
		return myErrors.NewTransientIndexError(err)
	}
	return nil
}

// Delete 带版本记录的删除。
func (b *bleveArticleIndex) Delete(ctx context.Context, articleID uint64, version int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := docID(articleID)

	if deletedVersion, ok := b.tombstones[id]; ok && version <= deletedVersion {
		// 已按更高版本删除过，旧的删除事件无事可做。
		return nil
	}

	current, exists, err := b.getLocked(ctx, id)
	if err != nil {
		return err
	}
	if exists && version < current.Version {
		return myErrors.ErrStaleIndexWrite
	}

	if err := b.index.Delete(id); err != nil {
		b.logger.Error("索引删除失败",
			zap.Error(err),
			zap.String("docID", id),
			zap.Int64("version", version),
		)
		return myErrors.NewTransientIndexError(err)
	}
	b.tombstones[id] = version
	return nil
}

// Get 读取单篇文章的投影。
func (b *bleveArticleIndex) Get(ctx context.Context, articleID uint64) (*SearchDocument, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.getLocked(ctx, docID(articleID))
}

// getLocked 是 Get 的无锁内部版本，调用方必须持有 b.mu。
func (b *bleveArticleIndex) getLocked(ctx context.Context, id string) (*SearchDocument, bool, error) {
	query := bleve.NewDocIDQuery([]string{id})
	req := bleve.NewSearchRequestOptions(query, 1, 0, false)
	req.Fields = []string{"author_id", "tags", "version"}

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, false, myErrors.NewTransientIndexError(err)
	}
	if len(res.Hits) == 0 {
		return nil, false, nil
	}

	hit := res.Hits[0]
	doc := &SearchDocument{ID: id}
	if authorID, ok := hit.Fields["author_id"].(string); ok {
		doc.AuthorID = authorID
	}
	doc.Tags = fieldAsStrings(hit.Fields["tags"])
	// 数值字段从存储中读回时是 float64。
	if version, ok := hit.Fields["version"].(float64); ok {
		doc.Version = int64(version)
	}
	return doc, true, nil
}

// Search 全文检索。合取式只由调用方实际提供的条件组成：
// 关键词、作者、标签均可单独使用，也可任意组合。
func (b *bleveArticleIndex) Search(ctx context.Context, queryStr string, authorID *string, tag *string, offset, limit int) ([]*SearchHit, uint64, error) {
	boolQuery := bleve.NewConjunctionQuery()
	if queryStr != "" {
		textQuery := bleve.NewMatchQuery(queryStr)
		textQuery.SetField("text")
		boolQuery.AddQuery(textQuery)
	}
	if authorID != nil {
		authorQuery := bleve.NewTermQuery(*authorID)
		authorQuery.SetField("author_id")
		boolQuery.AddQuery(authorQuery)
	}
	if tag != nil {
		tagQuery := bleve.NewTermQuery(*tag)
		tagQuery.SetField("tags")
		boolQuery.AddQuery(tagQuery)
	}
	if len(boolQuery.Conjuncts) == 0 {
		// 没有任何条件的合取在 bleve 中不匹配任何文档，直接返回空结果。
		return []*SearchHit{}, 0, nil
	}

	req := bleve.NewSearchRequestOptions(boolQuery, limit, offset, false)
	req.Fields = []string{"author_id", "tags"}

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, 0, myErrors.NewTransientIndexError(err)
	}

	hits := make([]*SearchHit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		articleID, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			b.logger.Warn("索引中存在非法文档ID，跳过", zap.String("docID", hit.ID))
			continue
		}
		sh := &SearchHit{
			ArticleID: articleID,
			Score:     hit.Score,
			Tags:      fieldAsStrings(hit.Fields["tags"]),
		}
		if author, ok := hit.Fields["author_id"].(string); ok {
			sh.AuthorID = author
		}
		hits = append(hits, sh)
	}
	return hits, res.Total, nil
}

// FindByAuthorID 作者维度的精确查询。
// 按文档ID排序而不是相关性评分，作者自己的文章列表需要稳定的翻页顺序。
func (b *bleveArticleIndex) FindByAuthorID(ctx context.Context, authorID string, offset, limit int) ([]*SearchHit, uint64, error) {
	authorQuery := bleve.NewTermQuery(authorID)
	authorQuery.SetField("author_id")

	req := bleve.NewSearchRequestOptions(authorQuery, limit, offset, false)
	req.Fields = []string{"author_id", "tags"}
	req.SortBy([]string{"_id"})

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, 0, myErrors.NewTransientIndexError(err)
	}

	hits := make([]*SearchHit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		articleID, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			b.logger.Warn("索引中存在非法文档ID，跳过", zap.String("docID", hit.ID))
			continue
		}
		sh := &SearchHit{
			ArticleID: articleID,
			AuthorID:  authorID,
			Score:     hit.Score,
			Tags:      fieldAsStrings(hit.Fields["tags"]),
		}
		hits = append(hits, sh)
	}
	return hits, res.Total, nil
}

// ScanDocuments 按文档ID顺序分页遍历索引。
func (b *bleveArticleIndex) ScanDocuments(ctx context.Context, offset, limit int) ([]IndexEntry, error) {
	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), limit, offset, false)
	req.Fields = []string{"version"}
	req.SortBy([]string{"_id"})

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, myErrors.NewTransientIndexError(err)
	}

	entries := make([]IndexEntry, 0, len(res.Hits))
	for _, hit := range res.Hits {
		articleID, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			b.logger.Warn("索引中存在非法文档ID，跳过", zap.String("docID", hit.ID))
			continue
		}
		entry := IndexEntry{ArticleID: articleID}
		if version, ok := hit.Fields["version"].(float64); ok {
			entry.Version = int64(version)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// fieldAsStrings 把 bleve 读回的字段值还原为字符串切片。
// 单元素数组会被 bleve 压平成单个 string。
func fieldAsStrings(v interface{}) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
