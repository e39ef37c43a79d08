package constant

// COS 对象键前缀
const (
	// COSObjectKeyPrefixArticleCovers 文章封面图在 COS 中的对象键前缀。
	// 完整键形如: articles/covers/YYYYMMDD/authorID_uuid.ext
	COSObjectKeyPrefixArticleCovers = "articles/covers/"
)
