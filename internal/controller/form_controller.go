package controller

import (
	"errors"
	"net/http"
	"strconv"

	"mathdiag_backend/internal/diagnostic"
	"mathdiag_backend/internal/service"
	"mathdiag_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type FormController struct {
	Service *service.FormService
}

func NewFormController(svc *service.FormService) *FormController {
	return &FormController{Service: svc}
}

// @Summary 登记诊断表单
// @Tags 诊断表单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.RegisterFormRequest true "表单与决策图"
// @Success 201 {object} util.Response
// @Router /api/teacher/diagnostic/forms [post]
func (c *FormController) RegisterForm(ctx *gin.Context) {
	var req service.RegisterFormRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	createdBy := ""
	if claims := util.GetUserFromContext(ctx); claims != nil {
		createdBy = claims.SubjectID
	}

	form, err := c.Service.RegisterForm(req, createdBy)
	if err != nil {
		var vErr *service.GraphValidationError
		switch {
		case errors.As(err, &vErr):
			// 一次返回全部结构违例，方便生成管线整批修复
			ctx.JSON(http.StatusUnprocessableEntity, util.Response{
				Code:    http.StatusUnprocessableEntity,
				Message: "graph validation failed",
				Data:    vErr.Violations,
			})
		case errors.Is(err, diagnostic.ErrMalformedGraph):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, form)
}

// @Summary 查询表单元数据
// @Tags 诊断表单
// @Produce json
// @Param id path string true "表单ID"
// @Success 200 {object} util.Response
// @Router /api/diagnostic/forms/{id} [get]
func (c *FormController) GetForm(ctx *gin.Context) {
	summary, err := c.Service.GetForm(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrFormNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

// @Summary 表单列表
// @Tags 诊断表单
// @Produce json
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Success 200 {object} util.Response
// @Router /api/diagnostic/forms [get]
func (c *FormController) ListForms(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	forms, total, err := c.Service.ListForms(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{
		List:  forms,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}
