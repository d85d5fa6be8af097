package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/med-kb-engine/api/middleware"
	"github.com/fyerfyer/med-kb-engine/api/model"
	"github.com/fyerfyer/med-kb-engine/internal/models"
	"github.com/fyerfyer/med-kb-engine/internal/repository"
)

// RunHandler 处理流水线运行记录相关的API请求
type RunHandler struct {
	repo   repository.RunRepository // 运行记录仓储
	logger *logrus.Logger           // 日志记录器
}

// NewRunHandler 创建运行记录处理器
func NewRunHandler(repo repository.RunRepository) *RunHandler {
	return &RunHandler{
		repo:   repo,
		logger: middleware.GetLogger(),
	}
}

// GetRun 查询单次运行记录
// GET /api/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	var req model.RunStatusRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"无效的运行ID",
		))
		return
	}

	run, err := h.repo.GetByID(req.ID)
	if err != nil {
		if errors.Is(err, models.ErrResourceNotFound) {
			c.JSON(http.StatusNotFound, model.NewErrorResponse(
				http.StatusNotFound,
				"运行记录不存在",
			))
			return
		}

		h.logger.WithError(err).Error("Failed to get pipeline run")
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"查询运行记录失败",
		))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(toRunInfo(run)))
}

// ListRuns 查询运行记录列表
// GET /api/runs
func (h *RunHandler) ListRuns(c *gin.Context) {
	var req model.RunListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"无效的查询参数",
		))
		return
	}

	page := req.GetPage()
	pageSize := req.GetPageSize()
	offset := (page - 1) * pageSize

	runs, total, err := h.repo.List(offset, pageSize, models.RunStatus(req.Status))
	if err != nil {
		h.logger.WithError(err).Error("Failed to list pipeline runs")
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"查询运行列表失败",
		))
		return
	}

	infos := make([]model.RunInfo, 0, len(runs))
	for _, run := range runs {
		infos = append(infos, toRunInfo(run))
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(&model.RunListResponse{
		Total:    int(total),
		Page:     page,
		PageSize: pageSize,
		Runs:     infos,
	}))
}

// toRunInfo 转换运行记录为响应结构
func toRunInfo(run *models.PipelineRun) model.RunInfo {
	info := model.RunInfo{
		RunID:        run.ID,
		Source:       run.Source,
		ContentType:  run.ContentType,
		Status:       string(run.Status),
		CurrentStage: string(run.CurrentStage),
		QACount:      run.QACount,
		QualityScore: run.QualityScore,
		OverallScore: run.OverallScore,
		Error:        run.Error,
		CreatedAt:    run.CreatedAt.Format(time.RFC3339),
	}
	if run.CompletedAt != nil {
		info.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return info
}
