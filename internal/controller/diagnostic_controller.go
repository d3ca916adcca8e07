package controller

import (
	"errors"
	"strconv"

	"mathdiag_backend/internal/diagnostic"
	"mathdiag_backend/internal/service"
	"mathdiag_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type DiagnosticController struct {
	Service *service.DiagnosticService
}

func NewDiagnosticController(svc *service.DiagnosticService) *DiagnosticController {
	return &DiagnosticController{Service: svc}
}

type StartSessionRequest struct {
	LearnerID string `json:"learnerId"`
	FormID    string `json:"formId" binding:"required"`
}

type SubmitResponseRequest struct {
	OptionID       string `json:"optionId" binding:"required"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
}

// @Summary 开始诊断会话
// @Tags 诊断会话
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body StartSessionRequest true "会话信息"
// @Success 201 {object} util.Response
// @Router /api/diagnostic/sessions [post]
func (c *DiagnosticController) StartSession(ctx *gin.Context) {
	var req StartSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	learnerID := req.LearnerID
	if claims := util.GetUserFromContext(ctx); claims != nil {
		learnerID = claims.SubjectID
	}
	if learnerID == "" {
		util.BadRequest(ctx, "learnerId is required")
		return
	}

	view, err := c.Service.StartSession(ctx.Request.Context(), learnerID, req.FormID)
	if err != nil {
		c.renderError(ctx, err)
		return
	}
	util.Created(ctx, view)
}

// @Summary 提交一次作答
// @Tags 诊断会话
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "会话ID"
// @Param body body SubmitResponseRequest true "作答信息"
// @Success 200 {object} util.Response
// @Router /api/diagnostic/sessions/{id}/responses [post]
func (c *DiagnosticController) SubmitResponse(ctx *gin.Context) {
	var req SubmitResponseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	view, err := c.Service.SubmitResponse(ctx.Request.Context(), ctx.Param("id"), req.OptionID, req.ElapsedSeconds)
	if err != nil {
		c.renderError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 查询会话状态
// @Tags 诊断会话
// @Produce json
// @Security BearerAuth
// @Param id path string true "会话ID"
// @Success 200 {object} util.Response
// @Router /api/diagnostic/sessions/{id} [get]
func (c *DiagnosticController) GetSession(ctx *gin.Context) {
	view, err := c.Service.GetSession(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		c.renderError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 查询诊断结果
// @Tags 诊断会话
// @Produce json
// @Security BearerAuth
// @Param id path string true "会话ID"
// @Success 200 {object} util.Response
// @Router /api/diagnostic/sessions/{id}/result [get]
func (c *DiagnosticController) GetResult(ctx *gin.Context) {
	result, err := c.Service.GetResult(ctx.Param("id"))
	if err != nil {
		c.renderError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 放弃会话
// @Tags 诊断会话
// @Produce json
// @Security BearerAuth
// @Param id path string true "会话ID"
// @Success 200 {object} util.Response
// @Router /api/diagnostic/sessions/{id}/abandon [post]
func (c *DiagnosticController) AbandonSession(ctx *gin.Context) {
	view, err := c.Service.AbandonSession(ctx.Param("id"))
	if err != nil {
		c.renderError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

type ReviewResultRequest struct {
	Notes string `json:"notes"`
}

// @Summary 学习者结果列表
// @Tags 教师
// @Produce json
// @Security BearerAuth
// @Param learnerId query string true "学习者ID"
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Success 200 {object} util.Response
// @Router /api/teacher/diagnostic/results [get]
func (c *DiagnosticController) ListLearnerResults(ctx *gin.Context) {
	learnerID := ctx.Query("learnerId")
	if learnerID == "" {
		util.BadRequest(ctx, "learnerId is required")
		return
	}
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	results, total, err := c.Service.ListLearnerResults(learnerID, page, limit)
	if err != nil {
		c.renderError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{
		List:  results,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// @Summary 批注诊断结果
// @Tags 教师
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "会话ID"
// @Param body body ReviewResultRequest true "批注"
// @Success 200 {object} util.Response
// @Router /api/teacher/diagnostic/results/{id}/review [post]
func (c *DiagnosticController) ReviewResult(ctx *gin.Context) {
	var req ReviewResultRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Service.ReviewResult(ctx.Param("id"), req.Notes); err != nil {
		c.renderError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"reviewed": true})
}

// renderError 把领域错误映射成 HTTP 状态码
func (c *DiagnosticController) renderError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrSessionNotFound),
		errors.Is(err, util.ErrResultNotFound),
		errors.Is(err, util.ErrFormNotFound):
		util.NotFound(ctx)
	case errors.Is(err, diagnostic.ErrUnknownOption):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, diagnostic.ErrSessionCompleted):
		util.Conflict(ctx, "session is no longer in progress")
	case errors.Is(err, util.ErrFormNotValidated):
		util.Conflict(ctx, "form has not passed graph validation")
	default:
		util.LogInternalError(ctx, err)
	}
}
