package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Xushengqwer/go-common/commonerrors"
	"github.com/Xushengqwer/go-common/constants"
	"github.com/Xushengqwer/go-common/response"
	"github.com/gin-gonic/gin"

	"github.com/Xushengqwer/article_service/models/dto"
	"github.com/Xushengqwer/article_service/myErrors"
	"github.com/Xushengqwer/article_service/service"
)

// ArticleController 定义文章控制器的结构体
type ArticleController struct {
	articleService service.ArticleService // 服务层接口，通过依赖注入传入
}

// NewArticleController 构造函数，用于创建 ArticleController 实例
func NewArticleController(articleService service.ArticleService) *ArticleController {
	return &ArticleController{
		articleService: articleService,
	}
}

// respondWriteError 把服务层错误映射为 HTTP 响应。
// 版本冲突与非法状态迁移是调用方可以自行处理的业务错误，不算服务器故障。
func respondWriteError(c *gin.Context, err error, action string) {
	var transitionErr *myErrors.TransitionError
	switch {
	case errors.Is(err, commonerrors.ErrRepoNotFound):
		response.RespondError(c, http.StatusNotFound, response.ErrCodeClientResourceNotFound, "文章不存在")
	case errors.Is(err, myErrors.ErrVersionConflict):
		response.RespondError(c, http.StatusConflict, response.ErrCodeClientInvalidInput, "文章已被其他操作修改，请刷新后重试")
	case errors.As(err, &transitionErr):
		response.RespondError(c, http.StatusConflict, response.ErrCodeClientInvalidInput, err.Error())
	default:
		response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, action+"失败: "+err.Error())
	}
}

// CreateArticle 处理作者创建文章草稿的 HTTP 请求
// @Summary      创建文章草稿
// @Description  创建一篇新的草稿文章，可选携带一张封面图（form 字段名 cover）。作者 ID 从请求上下文获取。
// @Tags         articles (文章)
// @Accept       multipart/form-data
// @Produce      json
// @Param        title formData string true "文章标题 (最大 255 字符)"
// @Param        slug formData string false "URL 别名 (最大 255 字符)"
// @Param        summary formData string false "摘要 (最大 512 字符)"
// @Param        content formData string true "正文内容"
// @Param        category_id formData uint64 false "分类 ID" Format(uint64)
// @Param        tags formData []string false "标签列表"
// @Param        cover formData file false "封面图文件"
// @Success      200 {object} vo.ArticleDetailResponseWrapper "文章创建成功"
// @Failure      400 {object} vo.BaseResponseWrapper "无效的请求参数"
// @Failure      401 {object} vo.BaseResponseWrapper "用户未授权或认证失败"
// @Failure      500 {object} vo.BaseResponseWrapper "服务器内部错误"
// @Router       /api/v1/article/articles [post]
func (ctrl *ArticleController) CreateArticle(c *gin.Context) {
	var req dto.CreateArticleRequest
	if err := c.ShouldBind(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "无效的请求参数: "+err.Error())
		return
	}

	// 从 gin.Context 中取出网关透传下来的 userID
	userIDValue, exists := c.Get(string(constants.UserIDKey))
	if !exists {
		response.RespondError(c, http.StatusUnauthorized, response.ErrCodeClientUnauthorized, "无法获取用户信息 (Context Key Not Found)")
		return
	}
	authorID, ok := userIDValue.(string)
	if !ok || authorID == "" {
		response.RespondError(c, http.StatusUnauthorized, response.ErrCodeClientUnauthorized, "无法获取有效的用户 ID (Invalid UserID in Context)")
		return
	}

	// 封面图是可选的单文件，form 字段名 "cover"。
	coverFile, err := c.FormFile("cover")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		coverFile = nil
	}

	detailVO, serviceErr := ctrl.articleService.CreateArticle(c.Request.Context(), &req, authorID, coverFile)
	if serviceErr != nil {
		response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, "创建文章失败: "+serviceErr.Error())
		return
	}

	response.RespondSuccess(c, detailVO, "文章创建成功")
}

// UpdateArticle 处理更新文章内容字段的 HTTP 请求
// @Summary      更新文章内容
// @Description  更新文章的标题、摘要、正文、分类、标签等内容字段。必须携带读取时的 expected_version；版本不符返回 409，需重新读取后重试。
// @Tags         articles (文章)
// @Accept       json
// @Produce      json
// @Param        request body dto.UpdateArticleRequest true "更新文章请求"
// @Success      200 {object} vo.ArticleDetailResponseWrapper "文章更新成功"
// @Failure      400 {object} vo.BaseResponseWrapper "无效的请求参数"
// @Failure      404 {object} vo.BaseResponseWrapper "文章不存在"
// @Failure      409 {object} vo.BaseResponseWrapper "版本冲突"
// @Failure      500 {object} vo.BaseResponseWrapper "服务器内部错误"
// @Router       /api/v1/article/articles [put]
func (ctrl *ArticleController) UpdateArticle(c *gin.Context) {
	var req dto.UpdateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "无效的请求参数: "+err.Error())
		return
	}

	detailVO, err := ctrl.articleService.UpdateArticle(c.Request.Context(), &req)
	if err != nil {
		respondWriteError(c, err, "更新文章")
		return
	}
	response.RespondSuccess(c, detailVO, "文章更新成功")
}

// ChangeArticleStatus 处理文章状态迁移的 HTTP 请求
// @Summary      变更文章状态
// @Description  在草稿/发布/下线之间迁移文章状态。发布回退草稿等非法迁移返回 409。发布时可携带未来的 publish_at 实现定时发布。
// @Tags         articles (文章)
// @Accept       json
// @Produce      json
// @Param        request body dto.ChangeArticleStatusRequest true "状态迁移请求"
// @Success      200 {object} vo.ArticleResponseWrapper "状态迁移成功"
// @Failure      400 {object} vo.BaseResponseWrapper "无效的请求参数"
// @Failure      404 {object} vo.BaseResponseWrapper "文章不存在"
// @Failure      409 {object} vo.BaseResponseWrapper "非法状态迁移或版本冲突"
// @Failure      500 {object} vo.BaseResponseWrapper "服务器内部错误"
// @Router       /api/v1/article/articles/status [post]
func (ctrl *ArticleController) ChangeArticleStatus(c *gin.Context) {
	var req dto.ChangeArticleStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "无效的请求参数: "+err.Error())
		return
	}

	articleVO, err := ctrl.articleService.ChangeArticleStatus(c.Request.Context(), &req)
	if err != nil {
		respondWriteError(c, err, "变更文章状态")
		return
	}
	response.RespondSuccess(c, articleVO, "文章状态变更成功")
}

// DeleteArticle 处理删除文章的 HTTP 请求
// @Summary      删除指定ID的文章
// @Description  通过文章的 ID 软删除一篇文章，搜索索引中的文档随之移除。
// @Tags         articles (文章)
// @Accept       json
// @Produce      json
// @Param        id path uint64 true "文章 ID" Format(uint64)
// @Success      200 {object} vo.BaseResponseWrapper "文章删除成功"
// @Failure      400 {object} vo.BaseResponseWrapper "无效的文章 ID 格式"
// @Failure      404 {object} vo.BaseResponseWrapper "文章不存在"
// @Failure      500 {object} vo.BaseResponseWrapper "删除文章时发生内部服务器错误"
// @Router       /api/v1/article/articles/{id} [delete]
func (ctrl *ArticleController) DeleteArticle(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "无效的文章 ID 格式")
		return
	}
	if err := ctrl.articleService.DeleteArticle(c.Request.Context(), id); err != nil {
		respondWriteError(c, err, "删除文章")
		return
	}
	response.RespondSuccess[any](c, nil, "文章删除成功")
}

// GetArticleDetail 处理获取文章详情的 HTTP 请求
// @Summary      获取指定ID的文章详情
// @Description  通过文章的 ID 检索文章的完整信息（含正文与当前版本号）。
// @Tags         articles (文章)
// @Accept       json
// @Produce      json
// @Param        id path uint64 true "文章 ID" Format(uint64)
// @Success      200 {object} vo.ArticleDetailResponseWrapper "文章详情检索成功"
// @Failure      400 {object} vo.BaseResponseWrapper "无效的文章 ID 格式"
// @Failure      404 {object} vo.BaseResponseWrapper "文章不存在"
// @Failure      500 {object} vo.BaseResponseWrapper "检索文章详情时发生内部服务器错误"
// @Router       /api/v1/article/articles/{id} [get]
func (ctrl *ArticleController) GetArticleDetail(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "无效的文章 ID 格式")
		return
	}

	detail, err := ctrl.articleService.GetArticleByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, commonerrors.ErrRepoNotFound) {
			response.RespondError(c, http.StatusNotFound, response.ErrCodeClientResourceNotFound, "文章不存在")
			return
		}
		response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, "检索文章详情失败: "+err.Error())
		return
	}
	response.RespondSuccess(c, detail, "文章详情检索成功")
}

// RegisterRoutes 注册 ArticleController 的路由
func (ctrl *ArticleController) RegisterRoutes(group *gin.RouterGroup) {
	articles := group.Group("/articles")
	{
		articles.POST("", ctrl.CreateArticle)              // POST   /api/v1/article/articles
		articles.PUT("", ctrl.UpdateArticle)               // PUT    /api/v1/article/articles
		articles.POST("/status", ctrl.ChangeArticleStatus) // POST   /api/v1/article/articles/status
		articles.DELETE("/:id", ctrl.DeleteArticle)        // DELETE /api/v1/article/articles/:id
		articles.GET("/:id", ctrl.GetArticleDetail)        // GET    /api/v1/article/articles/:id
	}
}
