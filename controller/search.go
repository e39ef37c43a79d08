package controller

import (
	"net/http"

	"github.com/Xushengqwer/go-common/response"
	"github.com/gin-gonic/gin"

	"github.com/Xushengqwer/article_service/models/dto"
	"github.com/Xushengqwer/article_service/service"
)

// SearchController 定义搜索控制器的结构体
type SearchController struct {
	queryService service.ArticleQueryService
}

// NewSearchController 构造函数，用于创建 SearchController 实例
func NewSearchController(queryService service.ArticleQueryService) *SearchController {
	return &SearchController{
		queryService: queryService,
	}
}

// SearchArticles 全文搜索文章
// @Summary      全文搜索文章 (公开)
// @Description  在搜索索引中按关键词检索对外可见的文章，支持作者与标签过滤。索引是主存储的派生投影，结果可能有秒级延迟。
// @Tags         search (搜索)
// @Accept       json
// @Produce      json
// @Param        q query string false "搜索关键词 (最大长度 255)；关键词/作者/标签至少提供一个" maxLength(255)
// @Param        author_id query string false "作者 ID 精确过滤"
// @Param        tag query string false "标签精确过滤"
// @Param        page query int false "页码 (从1开始)" format(int32) minimum(1) default(1)
// @Param        page_size query int false "每页数量" format(int32) minimum(1) maximum(100) default(20)
// @Success      200 {object} vo.SearchResultResponseWrapper "搜索成功，包含命中列表与总数"
// @Failure      400 {object} vo.BaseResponseWrapper "无效的请求参数"
// @Failure      500 {object} vo.BaseResponseWrapper "服务器内部错误"
// @Router       /api/v1/article/search [get]
func (ctrl *SearchController) SearchArticles(c *gin.Context) {
	var req dto.SearchArticlesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "无效的查询参数: "+err.Error())
		return
	}
	if req.Query == "" && req.AuthorID == nil && req.Tag == nil {
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "关键词、作者、标签至少需要提供一个")
		return
	}

	result, err := ctrl.queryService.SearchArticles(c.Request.Context(), &req)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, "搜索文章失败: "+err.Error())
		return
	}
	response.RespondSuccess(c, result, "搜索成功")
}

// FindArticlesByAuthor 按作者查询已索引文章
// @Summary      按作者查询文章 (公开)
// @Description  返回指定作者所有对外可见（已进入搜索索引）的文章，按文章 ID 稳定排序分页。
// @Tags         search (搜索)
// @Accept       json
// @Produce      json
// @Param        author_id query string true "作者 ID" maxLength(64)
// @Param        page query int false "页码 (从1开始)" format(int32) minimum(1) default(1)
// @Param        page_size query int false "每页数量" format(int32) minimum(1) maximum(100) default(20)
// @Success      200 {object} vo.SearchResultResponseWrapper "查询成功，包含命中列表与总数"
// @Failure      400 {object} vo.BaseResponseWrapper "无效的请求参数"
// @Failure      500 {object} vo.BaseResponseWrapper "服务器内部错误"
// @Router       /api/v1/article/search/by-author [get]
func (ctrl *SearchController) FindArticlesByAuthor(c *gin.Context) {
	var req dto.FindArticlesByAuthorRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "无效的查询参数: "+err.Error())
		return
	}

	result, err := ctrl.queryService.FindArticlesByAuthor(c.Request.Context(), &req)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, "按作者查询文章失败: "+err.Error())
		return
	}
	response.RespondSuccess(c, result, "查询成功")
}

// RegisterRoutes 注册 SearchController 的路由
func (ctrl *SearchController) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/search", ctrl.SearchArticles)                 // GET /api/v1/article/search
	group.GET("/search/by-author", ctrl.FindArticlesByAuthor) // GET /api/v1/article/search/by-author
}
