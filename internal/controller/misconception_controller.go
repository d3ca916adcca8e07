package controller

import (
	"errors"
	"strconv"

	"mathdiag_backend/internal/service"
	"mathdiag_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type MisconceptionController struct {
	Service *service.CatalogService
}

func NewMisconceptionController(svc *service.CatalogService) *MisconceptionController {
	return &MisconceptionController{Service: svc}
}

// @Summary 查询误解条目
// @Tags 误解目录
// @Produce json
// @Param tag path string true "误解标签"
// @Success 200 {object} util.Response
// @Router /api/misconceptions/{tag} [get]
func (c *MisconceptionController) GetByTag(ctx *gin.Context) {
	detail, err := c.Service.GetByTag(ctx.Param("tag"))
	if err != nil {
		if errors.Is(err, util.ErrMisconceptionNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// @Summary 误解目录列表
// @Tags 误解目录
// @Produce json
// @Param category query string false "类别过滤"
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Success 200 {object} util.Response
// @Router /api/misconceptions [get]
func (c *MisconceptionController) List(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	entries, total, err := c.Service.List(ctx.Query("category"), page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{
		List:  entries,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}
