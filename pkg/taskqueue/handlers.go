package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// TaskCallbackHandler 任务回调处理函数类型
// 处理特定类型任务的回调，返回处理结果
type TaskCallbackHandler func(ctx context.Context, task *Task, result json.RawMessage) error

// CallbackProcessor 回调处理器
// 负责接收和处理任务回调
type CallbackProcessor struct {
	queue     Queue                            // 任务队列
	handlers  map[TaskType]TaskCallbackHandler // 任务类型对应的处理函数
	defaultFn TaskCallbackHandler              // 默认处理函数
	logger    *logrus.Logger                   // 日志记录器
}

// NewCallbackProcessor 创建新的回调处理器
func NewCallbackProcessor(queue Queue, logger *logrus.Logger) *CallbackProcessor {
	if logger == nil {
		logger = logrus.New()
	}

	return &CallbackProcessor{
		queue:    queue,
		handlers: make(map[TaskType]TaskCallbackHandler),
		logger:   logger,
	}
}

// RegisterHandler 注册特定类型的任务处理函数
func (p *CallbackProcessor) RegisterHandler(taskType TaskType, handler TaskCallbackHandler) {
	p.handlers[taskType] = handler
	p.logger.Infof("Registered handler for task type: %s", taskType)
}

// ProcessCallback 处理回调数据
func (p *CallbackProcessor) ProcessCallback(ctx context.Context, callbackData []byte) error {
	// 解析回调数据
	var callback TaskCallback
	if err := json.Unmarshal(callbackData, &callback); err != nil {
		return fmt.Errorf("failed to unmarshal callback data: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"task_id": callback.TaskID,
		"run_id":  callback.RunID,
		"status":  callback.Status,
		"type":    callback.Type,
	}).Info("Processing task callback")

	// 获取任务
	task, err := p.queue.GetTask(ctx, callback.TaskID)
	if err != nil {
		p.logger.WithError(err).Errorf("Failed to get task: %s", callback.TaskID)
		return fmt.Errorf("failed to get task: %w", err)
	}

	// 更新任务状态
	err = p.queue.UpdateTaskStatus(ctx, callback.TaskID, callback.Status, callback.Result, callback.Error)
	if err != nil {
		p.logger.WithError(err).Errorf("Failed to update task status: %s", callback.TaskID)
		return fmt.Errorf("failed to update task status: %w", err)
	}

	// 通知状态更新
	if err := p.queue.NotifyTaskUpdate(ctx, callback.TaskID); err != nil {
		// 继续处理，不返回错误
	}

	// 如果任务失败，记录错误但不调用处理函数
	if callback.Status == StatusFailed {
		p.logger.WithFields(logrus.Fields{
			"task_id": callback.TaskID,
			"error":   callback.Error,
		}).Error("Task failed")
	}

	// 找到对应的处理函数
	handlerType := TaskType(callback.Type) // 将字符串转换为TaskType
	handler, exists := p.handlers[handlerType]
	if !exists {
		handler = p.defaultFn
		p.logger.WithField("type", callback.Type).Info("No handler registered for task type: " + callback.Type)
	}

	// 如果没有处理函数，直接返回
	if handler == nil {
		p.logger.Debug("No handler available for task type: " + callback.Type)
		return nil
	}

	// 调用处理函数
	p.logger.Debugf("Calling handler for task: %s (type: %s)", task.ID, task.Type)
	return handler(ctx, task, callback.Result)
}

// CallbackRequest HTTP回调请求结构体
type CallbackRequest struct {
	TaskID    string          `json:"task_id"`   // 任务ID
	RunID     string          `json:"run_id"`    // 流水线运行ID
	Status    TaskStatus      `json:"status"`    // 任务状态
	Type      TaskType        `json:"type"`      // 任务类型
	Result    json.RawMessage `json:"result"`    // 任务结果
	Error     string          `json:"error"`     // 错误信息
	Timestamp string          `json:"timestamp"` // 时间戳
}

// CallbackResponse HTTP回调响应结构体
type CallbackResponse struct {
	Success   bool   `json:"success"`           // 是否成功
	Message   string `json:"message,omitempty"` // 消息
	TaskID    string `json:"task_id"`           // 任务ID
	Timestamp string `json:"timestamp"`         // 时间戳
}

// HandleCallback 处理HTTP回调请求
func (p *CallbackProcessor) HandleCallback(ctx context.Context, req *CallbackRequest) (*CallbackResponse, error) {
	// 记录返回的回调信息
	p.logger.WithFields(logrus.Fields{
		"task_id": req.TaskID,
		"run_id":  req.RunID,
		"status":  req.Status,
		"type":    req.Type,
	}).Info("Received callback request")

	// 使用不同的时间格式解析时间戳，兼容外部服务的时间格式
	var timestamp time.Time
	if req.Timestamp != "" {
		formats := []string{
			time.RFC3339,                 // 2006-01-02T15:04:05Z07:00
			"2006-01-02T15:04:05Z",       // 带Z的UTC时间
			"2006-01-02T15:04:05.999999", // 带毫秒不带时区
			"2006-01-02T15:04:05",        // 不带时区
		}

		var parseErr error
		for _, format := range formats {
			timestamp, parseErr = time.Parse(format, req.Timestamp)
			if parseErr == nil {
				break
			}
		}

		if parseErr != nil {
			// 如果解析失败，使用当前时间并记录警告
			p.logger.WithFields(logrus.Fields{
				"timestamp": req.Timestamp,
				"error":     parseErr,
			}).Warn("Failed to parse timestamp, using current time")
			timestamp = time.Now()
		}
	} else {
		// 如果没有提供时间戳，使用当前时间
		timestamp = time.Now()
	}

	// 创建回调对象
	callback := &TaskCallback{
		TaskID:    req.TaskID,
		RunID:     req.RunID,
		Status:    req.Status,
		Type:      req.Type,
		Result:    req.Result,
		Error:     req.Error,
		Timestamp: timestamp,
	}

	callbackData, err := json.Marshal(callback)
	if err != nil {
		p.logger.WithError(err).Error("Failed to marshal callback data")
		return &CallbackResponse{
			Success:   false,
			Message:   fmt.Sprintf("failed to marshal callback: %v", err),
			TaskID:    req.TaskID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}, err
	}

	// 处理回调
	err = p.ProcessCallback(ctx, callbackData)
	if err != nil {
		p.logger.WithError(err).Error("Failed to process callback")
		return &CallbackResponse{
			Success:   false,
			Message:   err.Error(),
			TaskID:    req.TaskID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}, err
	}

	return &CallbackResponse{
		Success:   true,
		Message:   "Task callback processed successfully",
		TaskID:    req.TaskID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// DefaultPipelineRunHandler 默认的流水线运行回调处理函数
// 如果运行指定了目标索引但尚未入库，处理完成后创建入库任务
func DefaultPipelineRunHandler(ctx context.Context, queue Queue, logger *logrus.Logger) TaskCallbackHandler {
	return func(ctx context.Context, task *Task, result json.RawMessage) error {
		// 解析结果
		var runResult PipelineRunResult
		if err := json.Unmarshal(result, &runResult); err != nil {
			logger.WithError(err).Error("Failed to unmarshal pipeline run result")
			return fmt.Errorf("failed to unmarshal pipeline run result: %w", err)
		}

		logger.WithFields(logrus.Fields{
			"task_id":       task.ID,
			"run_id":        task.RunID,
			"qa_count":      runResult.QACount,
			"quality_score": runResult.QualityScore,
			"steps":         runResult.Steps,
		}).Info("Pipeline run completed")

		// 没有生成问答对则不创建后续任务
		if runResult.QACount == 0 {
			logger.Warn("No QA pairs generated, skipping integration task")
			return nil
		}

		// 运行未指定索引或已在运行内完成入库时，不再创建入库任务
		if runResult.IndexName == "" || containsStep(runResult.Steps, "integrate") {
			return nil
		}

		// 创建问答数据集入库任务
		integratePayload := KBIntegratePayload{
			RunID:     task.RunID,
			IndexName: runResult.IndexName,
		}

		taskID, err := queue.Enqueue(ctx, TaskKBIntegrate, task.RunID, integratePayload)
		if err != nil {
			logger.WithError(err).Error("Failed to enqueue integration task")
			return fmt.Errorf("failed to enqueue integration task: %w", err)
		}

		logger.WithFields(logrus.Fields{
			"run_id":            task.RunID,
			"integrate_task_id": taskID,
			"index_name":        runResult.IndexName,
		}).Info("Created knowledge base integration task")

		return nil
	}
}

// DefaultBatchCleanHandler 默认的批量清洗回调处理函数
func DefaultBatchCleanHandler(ctx context.Context, queue Queue, logger *logrus.Logger) TaskCallbackHandler {
	return func(ctx context.Context, task *Task, result json.RawMessage) error {
		// 解析结果
		var cleanResult BatchCleanResult
		if err := json.Unmarshal(result, &cleanResult); err != nil {
			logger.WithError(err).Error("Failed to unmarshal batch clean result")
			return fmt.Errorf("failed to unmarshal batch clean result: %w", err)
		}

		logger.WithFields(logrus.Fields{
			"task_id":         task.ID,
			"total_files":     cleanResult.TotalFiles,
			"successful":      cleanResult.Successful,
			"success_rate":    cleanResult.SuccessRate,
			"average_quality": cleanResult.AverageQuality,
		}).Info("Batch cleaning completed")

		return nil
	}
}

// DefaultKBIntegrateHandler 默认的入库回调处理函数
// 入库是任务流程的最后一步
func DefaultKBIntegrateHandler(ctx context.Context, queue Queue, logger *logrus.Logger) TaskCallbackHandler {
	return func(ctx context.Context, task *Task, result json.RawMessage) error {
		// 解析结果
		var integrateResult KBIntegrateResult
		if err := json.Unmarshal(result, &integrateResult); err != nil {
			logger.WithError(err).Error("Failed to unmarshal integration result")
			return fmt.Errorf("failed to unmarshal integration result: %w", err)
		}

		logger.WithFields(logrus.Fields{
			"task_id":           task.ID,
			"run_id":            task.RunID,
			"index_name":        integrateResult.IndexName,
			"documents_created": integrateResult.DocumentsCreated,
			"documents_indexed": integrateResult.DocumentsIndexed,
		}).Info("Knowledge base integration completed")

		return nil
	}
}

// containsStep 判断步骤列表中是否包含指定步骤
func containsStep(steps []string, name string) bool {
	for _, s := range steps {
		if s == name {
			return true
		}
	}
	return false
}

// RegisterDefaultHandlers 注册默认的任务处理函数
func (p *CallbackProcessor) RegisterDefaultHandlers(queue Queue) {
	p.RegisterHandler(TaskPipelineRun, DefaultPipelineRunHandler(context.Background(), queue, p.logger))
	p.RegisterHandler(TaskBatchClean, DefaultBatchCleanHandler(context.Background(), queue, p.logger))
	p.RegisterHandler(TaskKBIntegrate, DefaultKBIntegrateHandler(context.Background(), queue, p.logger))

	p.logger.Info("Registered default task handlers")
}

func (p *CallbackProcessor) GetRegisteredHandlerTypes() map[TaskType]bool {
	result := make(map[TaskType]bool)
	for handlerType := range p.handlers {
		result[handlerType] = true
	}
	return result
}
