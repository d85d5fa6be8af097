package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RunStatus 流水线运行状态类型
type RunStatus string

const (
	// RunStatusPending 运行已创建，等待处理
	RunStatusPending RunStatus = "pending"
	// RunStatusProcessing 运行处理中
	RunStatusProcessing RunStatus = "processing"
	// RunStatusCompleted 运行处理完成
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed 运行处理失败
	RunStatusFailed RunStatus = "failed"
)

// RunStage 流水线处理阶段
type RunStage string

const (
	// StageCleaning 数据清洗阶段
	StageCleaning RunStage = "cleaning"
	// StageAnnotation 专业标注阶段
	StageAnnotation RunStage = "annotation"
	// StageQAGeneration 问答生成阶段
	StageQAGeneration RunStage = "qa_generation"
	// StageDone 处理完成
	StageDone RunStage = "done"
)

// PipelineRun 流水线运行记录
// 记录一次清洗→标注→问答生成的完整处理过程
type PipelineRun struct {
	ID            string         `gorm:"primaryKey"`         // 运行ID，主键
	Source        string         `gorm:"type:varchar(255)"`  // 输入来源（direct_input或文件路径）
	ContentType   string         `gorm:"size:20"`            // 内容类型（general/pathology/diagnosis/treatment）
	Status        RunStatus      `gorm:"not null;index"`     // 运行状态
	CurrentStage  RunStage       `gorm:"size:20"`            // 当前处理阶段
	QACount       int            `gorm:"not null;default:0"` // 生成的问答对数量
	QualityScore  float64        `gorm:"not null;default:0"` // 清洗质量评分
	OverallScore  float64        `gorm:"not null;default:0"` // 问答数据集整体质量
	Error         string         `gorm:"type:text"`          // 错误信息
	Stats         datatypes.JSON `gorm:"type:json"`          // 各阶段统计数据，JSON格式
	CreatedAt     time.Time      `gorm:"not null;index"`     // 创建时间
	UpdatedAt     time.Time      `gorm:"not null"`           // 更新时间
	CompletedAt   *time.Time     `gorm:"index"`              // 完成时间
	CurrentTaskID string         `gorm:"size:50;index"`      // 关联的异步任务ID（如有）
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (r *PipelineRun) BeforeCreate(tx *gorm.DB) (err error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.UpdatedAt = time.Now()
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (r *PipelineRun) BeforeUpdate(tx *gorm.DB) (err error) {
	r.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (PipelineRun) TableName() string {
	return "pipeline_runs"
}

// QARecord 问答对持久化记录
// 将生成的问答对落库，便于追溯和重新入库
type QARecord struct {
	ID           uint           `gorm:"primaryKey;autoIncrement"` // 主键ID
	RunID        string         `gorm:"not null;index"`           // 所属运行ID
	PairID       string         `gorm:"not null"`                 // 问答对ID（qa_1等）
	Question     string         `gorm:"type:text;not null"`       // 问题文本
	Answer       string         `gorm:"type:text;not null"`       // 答案文本
	QuestionType string         `gorm:"size:20"`                  // 问题类型
	Difficulty   string         `gorm:"size:10"`                  // 难度等级
	Entity       string         `gorm:"size:100"`                 // 关联实体
	QualityScore float64        `gorm:"not null;default:0"`       // 质量评分
	Keywords     datatypes.JSON `gorm:"type:json"`                // 关键词列表，JSON格式
	CreatedAt    time.Time      `gorm:"not null"`                 // 创建时间
}

// TableName 明确指定表名
func (QARecord) TableName() string {
	return "qa_records"
}
