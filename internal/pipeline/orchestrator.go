package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/fyerfyer/med-kb-engine/internal/annotator"
	"github.com/fyerfyer/med-kb-engine/internal/cleaner"
	"github.com/fyerfyer/med-kb-engine/internal/document"
	"github.com/fyerfyer/med-kb-engine/internal/kb"
	"github.com/fyerfyer/med-kb-engine/internal/models"
	"github.com/fyerfyer/med-kb-engine/internal/qagen"
	"github.com/fyerfyer/med-kb-engine/internal/repository"
)

// 流水线步骤名称
const (
	StepClean      = "clean"
	StepAnnotate   = "annotate"
	StepGenerateQA = "generate_qa"
	StepIntegrate  = "integrate"
)

// 支持的内容类型
var validContentTypes = map[string]bool{
	"general":   true,
	"pathology": true,
	"diagnosis": true,
	"treatment": true,
}

// Request 流水线执行请求
// InputContent与InputFilePath二选一，不允许同时提供或同时缺失
type Request struct {
	InputContent  string `json:"input_content,omitempty"`
	InputFilePath string `json:"input_file_path,omitempty"`
	QACount       int    `json:"qa_count,omitempty"`
	ContentType   string `json:"content_type,omitempty"`
	// IndexName非空时在问答生成后追加入库步骤
	IndexName string `json:"index_name,omitempty"`
	// RunID由异步任务指定，便于查询持久化的运行记录
	RunID string `json:"run_id,omitempty"`
}

// StepReport 单个步骤的执行情况
type StepReport struct {
	Name       string `json:"name"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Report 流水线执行报告
// 首个失败步骤终止后续阶段，但已完成步骤的结果全部保留
type Report struct {
	Success     bool                    `json:"success"`
	Error       string                  `json:"error,omitempty"`
	RunID       string                  `json:"run_id,omitempty"`
	Steps       []StepReport            `json:"steps"`
	Cleaning    *cleaner.CleaningResult `json:"cleaning,omitempty"`
	Annotation  *annotator.Result       `json:"annotation,omitempty"`
	QA          *qagen.Result           `json:"qa,omitempty"`
	Integration *kb.IntegrationReport   `json:"integration,omitempty"`
	CompletedAt string                  `json:"completed_at,omitempty"`
}

// Orchestrator 流水线编排器
// 按清洗→标注→问答生成→入库的固定顺序串联各阶段
type Orchestrator struct {
	cleaner    *cleaner.Cleaner
	engine     *annotator.Engine
	generator  *qagen.Generator
	integrator *kb.Integrator
	repo       repository.RunRepository
	logger     *logrus.Logger
}

// Option 编排器配置选项
type Option func(*Orchestrator)

// WithCleaner 替换默认清洗器
func WithCleaner(c *cleaner.Cleaner) Option {
	return func(o *Orchestrator) { o.cleaner = c }
}

// WithAnnotator 替换默认标注引擎
func WithAnnotator(e *annotator.Engine) Option {
	return func(o *Orchestrator) { o.engine = e }
}

// WithGenerator 替换默认问答生成器
func WithGenerator(g *qagen.Generator) Option {
	return func(o *Orchestrator) { o.generator = g }
}

// WithIntegrator 启用知识库入库步骤
func WithIntegrator(i *kb.Integrator) Option {
	return func(o *Orchestrator) { o.integrator = i }
}

// WithRepository 启用运行记录持久化
func WithRepository(r repository.RunRepository) Option {
	return func(o *Orchestrator) { o.repo = r }
}

// NewOrchestrator 创建流水线编排器
func NewOrchestrator(logger *logrus.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logrus.New()
	}
	o := &Orchestrator{
		cleaner:   cleaner.NewCleaner(cleaner.DefaultConfig(), logger),
		engine:    annotator.NewEngine(logger),
		generator: qagen.NewGenerator(logger),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run 执行流水线
// 输入校验失败时不执行任何阶段；阶段失败立即终止并返回已完成步骤
func (o *Orchestrator) Run(ctx context.Context, req Request) *Report {
	report := &Report{Steps: []StepReport{}}

	text, source, err := o.resolveInput(req)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	if req.QACount <= 0 {
		req.QACount = 10
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "general"
	}
	if !validContentTypes[contentType] {
		report.Error = fmt.Sprintf("%s: unsupported content type %q",
			models.ErrInvalidInput.Error(), contentType)
		return report
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	report.RunID = runID
	o.recordRunStart(runID, source, contentType)

	// 阶段1：清洗
	o.recordStage(runID, models.StageCleaning)
	cleaned := o.runStep(report, StepClean, func() (bool, string) {
		result := o.cleaner.Clean(text)
		report.Cleaning = result
		return result.Success, result.Error
	})
	if !cleaned {
		return o.finishFailed(report, runID)
	}

	// 阶段2：标注
	o.recordStage(runID, models.StageAnnotation)
	annotated := o.runStep(report, StepAnnotate, func() (bool, string) {
		result := o.engine.Annotate(report.Cleaning.CleanedText, nil, contentType)
		report.Annotation = result
		return result.Success, result.Error
	})
	if !annotated {
		return o.finishFailed(report, runID)
	}

	// 阶段3：问答生成
	o.recordStage(runID, models.StageQAGeneration)
	generated := o.runStep(report, StepGenerateQA, func() (bool, string) {
		result := o.generator.Generate(report.Annotation, req.QACount)
		report.QA = result
		return result.Success, result.Error
	})
	if !generated {
		return o.finishFailed(report, runID)
	}

	// 阶段4：入库（按需）
	if req.IndexName != "" && o.integrator != nil {
		integrated := o.runStep(report, StepIntegrate, func() (bool, string) {
			result := o.integrator.Integrate(ctx, report.QA.QAPairs, req.IndexName)
			report.Integration = result
			return result.Success, result.Error
		})
		if !integrated {
			return o.finishFailed(report, runID)
		}
	}

	report.Success = true
	report.CompletedAt = time.Now().Format(time.RFC3339)
	o.recordRunCompleted(report, runID)

	o.logger.WithFields(logrus.Fields{
		"run_id":   runID,
		"qa_pairs": len(report.QA.QAPairs),
		"steps":    len(report.Steps),
	}).Info("Pipeline completed")
	return report
}

// resolveInput 解析输入来源
// 直接文本与文件路径必须提供且仅提供一个
func (o *Orchestrator) resolveInput(req Request) (text string, source string, err error) {
	hasContent := strings.TrimSpace(req.InputContent) != ""
	hasFile := req.InputFilePath != ""

	switch {
	case hasContent && hasFile:
		return "", "", fmt.Errorf("%w: input_content and input_file_path are mutually exclusive",
			models.ErrInvalidInput)
	case hasContent:
		return req.InputContent, "direct_input", nil
	case hasFile:
		loader, err := document.LoaderFactory(req.InputFilePath)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
		}
		content, err := loader.Load(req.InputFilePath)
		if err != nil {
			return "", "", fmt.Errorf("%w: %s", models.ErrResourceNotFound, req.InputFilePath)
		}
		return content, req.InputFilePath, nil
	default:
		return "", "", fmt.Errorf("%w: either input_content or input_file_path is required",
			models.ErrInvalidInput)
	}
}

// runStep 执行单个步骤并记录耗时
func (o *Orchestrator) runStep(report *Report, name string, fn func() (bool, string)) bool {
	start := time.Now()
	success, errMsg := fn()
	report.Steps = append(report.Steps, StepReport{
		Name:       name,
		Success:    success,
		Error:      errMsg,
		DurationMS: time.Since(start).Milliseconds(),
	})
	if !success {
		report.Error = fmt.Sprintf("step %s failed: %s", name, errMsg)
		o.logger.WithFields(logrus.Fields{
			"step":  name,
			"error": errMsg,
		}).Error("Pipeline step failed")
	}
	return success
}

// finishFailed 统一的失败收尾
func (o *Orchestrator) finishFailed(report *Report, runID string) *Report {
	report.CompletedAt = time.Now().Format(time.RFC3339)
	if o.repo != nil {
		if err := o.repo.MarkFailed(runID, report.Error); err != nil {
			o.logger.WithError(err).Warn("Failed to persist run failure")
		}
	}
	return report
}

// recordRunStart 持久化运行记录（启用仓储时）
func (o *Orchestrator) recordRunStart(runID, source, contentType string) {
	if o.repo == nil {
		return
	}
	run := &models.PipelineRun{
		ID:          runID,
		Source:      source,
		ContentType: contentType,
		Status:      models.RunStatusPending,
	}
	if err := o.repo.Create(run); err != nil {
		o.logger.WithError(err).Warn("Failed to persist pipeline run")
	}
}

// recordStage 更新运行的当前阶段
func (o *Orchestrator) recordStage(runID string, stage models.RunStage) {
	if o.repo == nil {
		return
	}
	if err := o.repo.UpdateStage(runID, stage); err != nil {
		o.logger.WithError(err).Warn("Failed to update run stage")
	}
}

// recordRunCompleted 持久化运行结果与问答对
func (o *Orchestrator) recordRunCompleted(report *Report, runID string) {
	if o.repo == nil {
		return
	}

	qualityScore := 0.0
	if report.Cleaning != nil {
		qualityScore = report.Cleaning.QualityScore
	}
	overallScore := report.QA.QualityMetrics.OverallQuality
	if err := o.repo.MarkCompleted(runID, len(report.QA.QAPairs), qualityScore, overallScore); err != nil {
		o.logger.WithError(err).Warn("Failed to persist run completion")
	}

	records := make([]*models.QARecord, 0, len(report.QA.QAPairs))
	for _, pair := range report.QA.QAPairs {
		keywords, err := json.Marshal(pair.Keywords)
		if err != nil {
			keywords = []byte("[]")
		}
		records = append(records, &models.QARecord{
			RunID:        runID,
			PairID:       pair.ID,
			Question:     pair.Question,
			Answer:       pair.Answer,
			QuestionType: string(pair.QuestionType),
			Difficulty:   string(pair.Difficulty),
			Entity:       pair.Entity,
			QualityScore: pair.QualityScore,
			Keywords:     datatypes.JSON(keywords),
		})
	}
	if err := o.repo.SaveQARecords(records); err != nil {
		o.logger.WithError(err).Warn("Failed to persist QA records")
	}
}
