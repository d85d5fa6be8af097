package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/med-kb-engine/internal/qagen"
	"github.com/fyerfyer/med-kb-engine/internal/repository"
	"github.com/fyerfyer/med-kb-engine/pkg/taskqueue"
)

// TaskHandler 流水线任务处理器
// 实现taskqueue.Handler，在工作者进程中执行异步流水线任务
type TaskHandler struct {
	orchestrator *Orchestrator
	queue        taskqueue.Queue
	repo         repository.RunRepository
	logger       *logrus.Logger
}

// NewTaskHandler 创建流水线任务处理器
// repo用于入库任务回读运行生成的问答对，可以为nil
func NewTaskHandler(orchestrator *Orchestrator, queue taskqueue.Queue, repo repository.RunRepository, logger *logrus.Logger) *TaskHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &TaskHandler{
		orchestrator: orchestrator,
		queue:        queue,
		repo:         repo,
		logger:       logger,
	}
}

// GetTaskTypes 返回支持的任务类型
func (h *TaskHandler) GetTaskTypes() []taskqueue.TaskType {
	return []taskqueue.TaskType{
		taskqueue.TaskPipelineRun,
		taskqueue.TaskBatchClean,
		taskqueue.TaskKBIntegrate,
	}
}

// ProcessTask 执行任务并将结果写回队列
func (h *TaskHandler) ProcessTask(ctx context.Context, task *taskqueue.Task) error {
	switch task.Type {
	case taskqueue.TaskPipelineRun:
		return h.processPipelineRun(ctx, task)
	case taskqueue.TaskBatchClean:
		return h.processBatchClean(ctx, task)
	case taskqueue.TaskKBIntegrate:
		return h.processKBIntegrate(ctx, task)
	default:
		return fmt.Errorf("unsupported task type: %s", task.Type)
	}
}

// processPipelineRun 执行完整流水线任务
func (h *TaskHandler) processPipelineRun(ctx context.Context, task *taskqueue.Task) error {
	var payload taskqueue.PipelineRunPayload
	if err := taskqueue.UnmarshalPayload(task.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal pipeline run payload: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"task_id": task.ID,
		"run_id":  payload.RunID,
	}).Info("Processing pipeline run task")

	report := h.orchestrator.Run(ctx, Request{
		InputContent:  payload.InputContent,
		InputFilePath: payload.InputFilePath,
		QACount:       payload.QACount,
		ContentType:   payload.ContentType,
		IndexName:     payload.IndexName,
		RunID:         payload.RunID,
	})

	result := buildRunResult(report, payload)
	if err := h.queue.UpdateTaskStatus(ctx, task.ID, statusFor(report.Success), result, report.Error); err != nil {
		h.logger.WithError(err).Warn("Failed to store pipeline run result")
	}

	if !report.Success {
		return fmt.Errorf("pipeline run failed: %s", report.Error)
	}
	return nil
}

// processBatchClean 执行批量清洗任务
func (h *TaskHandler) processBatchClean(ctx context.Context, task *taskqueue.Task) error {
	var payload taskqueue.BatchCleanPayload
	if err := taskqueue.UnmarshalPayload(task.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal batch clean payload: %w", err)
	}

	if len(payload.FilePaths) == 0 {
		return fmt.Errorf("batch clean task has no file paths")
	}

	h.logger.WithFields(logrus.Fields{
		"task_id":    task.ID,
		"file_count": len(payload.FilePaths),
	}).Info("Processing batch clean task")

	report := h.orchestrator.cleaner.BatchClean(payload.FilePaths)
	result := &taskqueue.BatchCleanResult{
		TotalFiles:     report.TotalFiles,
		Successful:     report.Successful,
		SuccessRate:    report.Summary.SuccessRate,
		AverageQuality: report.Summary.AverageQuality,
	}

	if err := h.queue.UpdateTaskStatus(ctx, task.ID, taskqueue.StatusCompleted, result, ""); err != nil {
		h.logger.WithError(err).Warn("Failed to store batch clean result")
	}
	return nil
}

// processKBIntegrate 执行问答数据集入库任务
// 从数据库回读运行生成的问答对后写入知识库索引
func (h *TaskHandler) processKBIntegrate(ctx context.Context, task *taskqueue.Task) error {
	var payload taskqueue.KBIntegratePayload
	if err := taskqueue.UnmarshalPayload(task.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal integration payload: %w", err)
	}

	if h.orchestrator.integrator == nil {
		return fmt.Errorf("knowledge base integrator not configured")
	}
	if h.repo == nil {
		return fmt.Errorf("run repository not configured")
	}

	records, err := h.repo.GetQARecords(payload.RunID)
	if err != nil {
		return fmt.Errorf("failed to load QA records for run %s: %w", payload.RunID, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("run %s has no QA records to integrate", payload.RunID)
	}

	pairs := make([]qagen.QAPair, 0, len(records))
	for _, record := range records {
		var keywords []string
		if len(record.Keywords) > 0 {
			if err := json.Unmarshal(record.Keywords, &keywords); err != nil {
				h.logger.WithError(err).WithField("pair_id", record.PairID).Warn("Failed to decode keywords")
			}
		}
		pairs = append(pairs, qagen.QAPair{
			ID:           record.PairID,
			Question:     record.Question,
			Answer:       record.Answer,
			QuestionType: qagen.QuestionType(record.QuestionType),
			Difficulty:   qagen.Difficulty(record.Difficulty),
			Keywords:     keywords,
			Entity:       record.Entity,
			QualityScore: record.QualityScore,
		})
	}

	report := h.orchestrator.integrator.Integrate(ctx, pairs, payload.IndexName)
	result := &taskqueue.KBIntegrateResult{
		IndexName:        report.IndexName,
		DocumentsCreated: report.TotalDocumentsCreated,
		DocumentsIndexed: report.TotalIndexed,
		Error:            report.Error,
	}

	if err := h.queue.UpdateTaskStatus(ctx, task.ID, statusFor(report.Success), result, report.Error); err != nil {
		h.logger.WithError(err).Warn("Failed to store integration result")
	}

	if !report.Success {
		return fmt.Errorf("integration failed: %s", report.Error)
	}
	return nil
}

// buildRunResult 将流水线报告转换为任务结果
func buildRunResult(report *Report, payload taskqueue.PipelineRunPayload) *taskqueue.PipelineRunResult {
	result := &taskqueue.PipelineRunResult{
		RunID:     report.RunID,
		IndexName: payload.IndexName,
		Error:     report.Error,
	}
	for _, step := range report.Steps {
		if step.Success {
			result.Steps = append(result.Steps, step.Name)
		}
	}
	if report.Cleaning != nil {
		result.QualityScore = report.Cleaning.QualityScore
	}
	if report.QA != nil {
		result.QACount = len(report.QA.QAPairs)
		result.OverallScore = report.QA.QualityMetrics.OverallQuality
	}
	if report.Integration != nil && report.Integration.IndexName != "" {
		result.IndexName = report.Integration.IndexName
	}
	return result
}

// statusFor 根据执行结果映射任务状态
func statusFor(success bool) taskqueue.TaskStatus {
	if success {
		return taskqueue.StatusCompleted
	}
	return taskqueue.StatusFailed
}

// 确保TaskHandler实现Handler接口
var _ taskqueue.Handler = (*TaskHandler)(nil)
