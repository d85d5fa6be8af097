package taskqueue

import (
	"encoding/json"
	"time"
)

// TaskType 任务类型
type TaskType string

const (
	// TaskPipelineRun 完整流水线处理任务（清洗→标注→问答生成）
	TaskPipelineRun TaskType = "pipeline_run"
	// TaskBatchClean 批量文件清洗任务
	TaskBatchClean TaskType = "batch_clean"
	// TaskKBIntegrate 问答数据集入库任务
	TaskKBIntegrate TaskType = "kb_integrate"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	// StatusPending 等待处理
	StatusPending TaskStatus = "pending"
	// StatusProcessing 处理中
	StatusProcessing TaskStatus = "processing"
	// StatusCompleted 已完成
	StatusCompleted TaskStatus = "completed"
	// StatusFailed 处理失败
	StatusFailed TaskStatus = "failed"
)

// Task 任务基础结构
type Task struct {
	ID          string          `json:"id"`           // 任务唯一标识符
	Type        TaskType        `json:"type"`         // 任务类型
	RunID       string          `json:"run_id"`       // 关联的流水线运行ID
	Status      TaskStatus      `json:"status"`       // 任务状态
	Payload     json.RawMessage `json:"payload"`      // 任务载荷数据，不同任务类型对应不同结构
	Result      json.RawMessage `json:"result"`       // 任务结果数据，不同任务类型对应不同结构
	Error       string          `json:"error"`        // 错误信息（如果处理失败）
	CreatedAt   time.Time       `json:"created_at"`   // 创建时间
	UpdatedAt   time.Time       `json:"updated_at"`   // 更新时间
	StartedAt   *time.Time      `json:"started_at"`   // 开始处理时间
	CompletedAt *time.Time      `json:"completed_at"` // 完成时间
	Attempts    int             `json:"attempts"`     // 尝试次数
	MaxRetries  int             `json:"max_retries"`  // 最大重试次数
}

// PipelineRunPayload 流水线处理任务载荷
type PipelineRunPayload struct {
	RunID         string `json:"run_id"`                    // 运行ID
	InputContent  string `json:"input_content,omitempty"`   // 直接文本输入
	InputFilePath string `json:"input_file_path,omitempty"` // 文件路径输入
	QACount       int    `json:"qa_count"`                  // 生成的问答对数量
	ContentType   string `json:"content_type"`              // 内容类型
	IndexName     string `json:"index_name,omitempty"`      // 入库目标索引（可选）
}

// PipelineRunResult 流水线处理任务结果
type PipelineRunResult struct {
	RunID        string   `json:"run_id"`          // 运行ID
	QACount      int      `json:"qa_count"`        // 生成的问答对数量
	QualityScore float64  `json:"quality_score"`   // 清洗质量评分
	OverallScore float64  `json:"overall_score"`   // 数据集整体质量
	Steps        []string `json:"steps"`           // 完成的步骤名称
	IndexName    string   `json:"index_name,omitempty"`
	Error        string   `json:"error,omitempty"` // 错误信息（如果有）
}

// BatchCleanPayload 批量清洗任务载荷
type BatchCleanPayload struct {
	FilePaths []string `json:"file_paths"` // 待清洗的文件路径列表
}

// BatchCleanResult 批量清洗任务结果
type BatchCleanResult struct {
	TotalFiles     int     `json:"total_files"`     // 文件总数
	Successful     int     `json:"successful"`      // 成功数量
	SuccessRate    float64 `json:"success_rate"`    // 成功率
	AverageQuality float64 `json:"average_quality"` // 平均质量评分
	Error          string  `json:"error,omitempty"` // 错误信息（如果有）
}

// KBIntegratePayload 问答数据集入库任务载荷
type KBIntegratePayload struct {
	RunID     string `json:"run_id"`     // 数据来源的运行ID
	IndexName string `json:"index_name"` // 目标索引名称
}

// KBIntegrateResult 入库任务结果
type KBIntegrateResult struct {
	IndexName        string `json:"index_name"`        // 实际使用的索引名称
	DocumentsCreated int    `json:"documents_created"` // 转换出的文档数
	DocumentsIndexed int    `json:"documents_indexed"` // 成功入库的文档数
	Error            string `json:"error,omitempty"`   // 错误信息（如果有）
}

// TaskCallback 任务回调信息
type TaskCallback struct {
	TaskID    string          `json:"task_id"`   // 任务ID
	RunID     string          `json:"run_id"`    // 流水线运行ID
	Status    TaskStatus      `json:"status"`    // 任务状态
	Type      TaskType        `json:"type"`      // 任务类型
	Result    json.RawMessage `json:"result"`    // 任务结果
	Error     string          `json:"error"`     // 错误信息
	Timestamp time.Time       `json:"timestamp"` // 回调时间戳
}
