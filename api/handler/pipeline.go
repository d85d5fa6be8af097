package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/med-kb-engine/api/middleware"
	"github.com/fyerfyer/med-kb-engine/api/model"
	"github.com/fyerfyer/med-kb-engine/internal/pipeline"
	"github.com/fyerfyer/med-kb-engine/pkg/taskqueue"
)

// PipelineHandler 处理流水线相关的API请求
type PipelineHandler struct {
	orchestrator *pipeline.Orchestrator // 流水线编排器
	queue        taskqueue.Queue        // 任务队列，未启用时为nil
	logger       *logrus.Logger         // 日志记录器
}

// NewPipelineHandler 创建流水线处理器
func NewPipelineHandler(orchestrator *pipeline.Orchestrator, queue taskqueue.Queue) *PipelineHandler {
	return &PipelineHandler{
		orchestrator: orchestrator,
		queue:        queue,
		logger:       middleware.GetLogger(),
	}
}

// Run 同步执行流水线
// POST /api/pipeline
func (h *PipelineHandler) Run(c *gin.Context) {
	var req model.PipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"无效的请求参数",
		))
		return
	}

	report := h.orchestrator.Run(c.Request.Context(), pipeline.Request{
		InputContent:  req.InputContent,
		InputFilePath: req.InputFilePath,
		QACount:       req.QACount,
		ContentType:   req.ContentType,
		IndexName:     req.IndexName,
	})

	// 输入校验失败（未执行任何步骤）返回400
	if !report.Success && len(report.Steps) == 0 {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			report.Error,
		))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(report))
}

// RunAsync 提交异步流水线任务
// POST /api/pipeline/async
func (h *PipelineHandler) RunAsync(c *gin.Context) {
	if h.queue == nil {
		c.JSON(http.StatusServiceUnavailable, model.NewErrorResponse(
			http.StatusServiceUnavailable,
			"任务队列未启用",
		))
		return
	}

	var req model.PipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"无效的请求参数",
		))
		return
	}

	// 空输入在入队前拒绝
	if req.InputContent == "" && req.InputFilePath == "" {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"必须提供input_content或input_file_path",
		))
		return
	}

	runID := uuid.New().String()
	payload := &taskqueue.PipelineRunPayload{
		RunID:         runID,
		InputContent:  req.InputContent,
		InputFilePath: req.InputFilePath,
		QACount:       req.QACount,
		ContentType:   req.ContentType,
		IndexName:     req.IndexName,
	}

	taskID, err := h.queue.Enqueue(c.Request.Context(), taskqueue.TaskPipelineRun, runID, payload)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"run_id": runID,
			"error":  err.Error(),
		}).Error("Failed to enqueue pipeline task")

		middleware.HandleError(c, middleware.NewPipelineError("任务提交失败", err.Error()))
		return
	}

	c.JSON(http.StatusAccepted, model.NewSuccessResponse(&model.AsyncPipelineResponse{
		TaskID: taskID,
		RunID:  runID,
		Status: string(taskqueue.StatusPending),
	}))
}

// GetTask 查询异步任务状态
// GET /api/tasks/:id
func (h *PipelineHandler) GetTask(c *gin.Context) {
	if h.queue == nil {
		c.JSON(http.StatusServiceUnavailable, model.NewErrorResponse(
			http.StatusServiceUnavailable,
			"任务队列未启用",
		))
		return
	}

	var req model.TaskStatusRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"无效的任务ID",
		))
		return
	}

	task, err := h.queue.GetTask(c.Request.Context(), req.ID)
	if err != nil {
		if errors.Is(err, taskqueue.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, model.NewErrorResponse(
				http.StatusNotFound,
				"任务不存在",
			))
			return
		}

		h.logger.WithError(err).Error("Failed to get task")
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"查询任务失败",
		))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(gin.H{
		"task":   taskqueue.NewTaskInfo(task),
		"result": task.Result,
	}))
}
