package controller

import (
	"net/http"

	"github.com/Xushengqwer/go-common/response"
	"github.com/gin-gonic/gin"

	"github.com/Xushengqwer/article_service/models/dto"
	"github.com/Xushengqwer/article_service/service"
	"github.com/Xushengqwer/article_service/tasks"
)

// ArticleAdminController 定义管理端文章控制器的结构体
type ArticleAdminController struct {
	queryService       service.ArticleQueryService
	reconciliationTask *tasks.ReconciliationTask
}

// NewArticleAdminController 构造函数，用于创建 ArticleAdminController 实例
func NewArticleAdminController(
	queryService service.ArticleQueryService,
	reconciliationTask *tasks.ReconciliationTask,
) *ArticleAdminController {
	return &ArticleAdminController{
		queryService:       queryService,
		reconciliationTask: reconciliationTask,
	}
}

// ListArticlesByCondition 管理端分页条件查询文章
// @Summary      条件查询文章列表 (管理端)
// @Description  按 ID、标题、作者、分类、状态、置顶/加精等条件分页查询文章，数据来自主存储，包含草稿与下线文章。
// @Tags         admin (管理)
// @Accept       json
// @Produce      json
// @Param        id query uint64 false "文章 ID (若提供则按主键查询)" Format(uint64)
// @Param        title query string false "标题模糊查询"
// @Param        author_id query string false "作者 ID 精确查询"
// @Param        category_id query uint64 false "分类 ID" Format(uint64)
// @Param        status query int false "文章状态 (0:草稿, 1:发布, 2:下线)" format(int32) Enums(0,1,2)
// @Param        is_top query bool false "是否置顶"
// @Param        is_featured query bool false "是否加精"
// @Param        order_by query string false "排序字段 (created_at / updated_at / published_at)" default(created_at)
// @Param        order_desc query bool false "是否降序" default(false)
// @Param        page query int true "页码 (从1开始)" format(int32) minimum(1)
// @Param        page_size query int true "每页数量" format(int32) minimum(1)
// @Success      200 {object} vo.ListArticlePageResponseWrapper "查询成功，包含文章列表与总数"
// @Failure      400 {object} vo.BaseResponseWrapper "无效的请求参数"
// @Failure      500 {object} vo.BaseResponseWrapper "服务器内部错误"
// @Router       /api/v1/article/admin/articles [get]
func (ctrl *ArticleAdminController) ListArticlesByCondition(c *gin.Context) {
	var req dto.ListArticlesByConditionRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "无效的查询参数: "+err.Error())
		return
	}

	result, err := ctrl.queryService.ListArticlesByCondition(c.Request.Context(), &req)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, "查询文章列表失败: "+err.Error())
		return
	}
	response.RespondSuccess(c, result, "文章列表查询成功")
}

// TriggerReconcile 手动触发一轮索引对账
// @Summary      触发索引对账 (管理端)
// @Description  立即执行一轮主存储与搜索索引的漂移对账，返回本轮统计结果。上一轮尚未结束时本次请求被跳过。
// @Tags         admin (管理)
// @Accept       json
// @Produce      json
// @Success      200 {object} vo.BaseResponseWrapper "对账已执行或被跳过"
// @Failure      500 {object} vo.BaseResponseWrapper "服务器内部错误"
// @Router       /api/v1/article/admin/reconcile [post]
func (ctrl *ArticleAdminController) TriggerReconcile(c *gin.Context) {
	stats := ctrl.reconciliationTask.RunOnce(c.Request.Context())
	if stats == nil {
		response.RespondSuccess[any](c, nil, "上一轮对账尚未结束，本次触发被跳过")
		return
	}
	response.RespondSuccess(c, stats, "对账执行完成")
}

// RegisterRoutes 注册 ArticleAdminController 的路由
func (ctrl *ArticleAdminController) RegisterRoutes(group *gin.RouterGroup) {
	admin := group.Group("/admin")
	{
		admin.GET("/articles", ctrl.ListArticlesByCondition) // GET  /api/v1/article/admin/articles
		admin.POST("/reconcile", ctrl.TriggerReconcile)      // POST /api/v1/article/admin/reconcile
	}
}
