package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/fyerfyer/med-kb-engine/internal/database"
	"github.com/fyerfyer/med-kb-engine/internal/models"
)

// RunRepository 流水线运行记录仓储接口
type RunRepository interface {
	// Create 创建运行记录
	Create(run *models.PipelineRun) error

	// Update 更新运行记录
	Update(run *models.PipelineRun) error

	// GetByID 根据ID获取运行记录
	GetByID(id string) (*models.PipelineRun, error)

	// List 分页列出运行记录
	List(offset, limit int, status models.RunStatus) ([]*models.PipelineRun, int64, error)

	// UpdateStage 更新运行的当前阶段
	UpdateStage(id string, stage models.RunStage) error

	// MarkCompleted 标记运行完成并记录结果摘要
	MarkCompleted(id string, qaCount int, qualityScore, overallScore float64) error

	// MarkFailed 标记运行失败
	MarkFailed(id string, errorMsg string) error

	// SaveQARecords 批量保存问答对记录
	SaveQARecords(records []*models.QARecord) error

	// GetQARecords 获取运行生成的全部问答对
	GetQARecords(runID string) ([]*models.QARecord, error)
}

// runRepository 流水线运行仓储实现
type runRepository struct {
	db *gorm.DB // 数据库连接
}

// NewRunRepository 创建运行仓储实例
func NewRunRepository(db *gorm.DB) RunRepository {
	if db == nil {
		db = database.DB
	}
	return &runRepository{db: db}
}

// Create 创建运行记录
func (r *runRepository) Create(run *models.PipelineRun) error {
	if run.ID == "" {
		return errors.New("run ID cannot be empty")
	}
	return r.db.Create(run).Error
}

// Update 更新运行记录
func (r *runRepository) Update(run *models.PipelineRun) error {
	if run.ID == "" {
		return errors.New("run ID cannot be empty")
	}
	return r.db.Save(run).Error
}

// GetByID 根据ID获取运行记录
func (r *runRepository) GetByID(id string) (*models.PipelineRun, error) {
	var run models.PipelineRun
	err := r.db.Where("id = ?", id).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrResourceNotFound
		}
		return nil, err
	}
	return &run, nil
}

// List 分页列出运行记录，status为空时不过滤
func (r *runRepository) List(offset, limit int, status models.RunStatus) ([]*models.PipelineRun, int64, error) {
	var runs []*models.PipelineRun
	var total int64

	query := r.db.Model(&models.PipelineRun{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

// UpdateStage 更新运行的当前阶段
func (r *runRepository) UpdateStage(id string, stage models.RunStage) error {
	return r.db.Model(&models.PipelineRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_stage": stage,
			"status":        models.RunStatusProcessing,
			"updated_at":    time.Now(),
		}).Error
}

// MarkCompleted 标记运行完成并记录结果摘要
func (r *runRepository) MarkCompleted(id string, qaCount int, qualityScore, overallScore float64) error {
	now := time.Now()
	return r.db.Model(&models.PipelineRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.RunStatusCompleted,
			"current_stage": models.StageDone,
			"qa_count":      qaCount,
			"quality_score": qualityScore,
			"overall_score": overallScore,
			"completed_at":  &now,
			"updated_at":    now,
		}).Error
}

// MarkFailed 标记运行失败
func (r *runRepository) MarkFailed(id string, errorMsg string) error {
	return r.db.Model(&models.PipelineRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.RunStatusFailed,
			"error":      errorMsg,
			"updated_at": time.Now(),
		}).Error
}

// SaveQARecords 批量保存问答对记录
func (r *runRepository) SaveQARecords(records []*models.QARecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.Create(records).Error
}

// GetQARecords 获取运行生成的全部问答对
func (r *runRepository) GetQARecords(runID string) ([]*models.QARecord, error) {
	var records []*models.QARecord
	err := r.db.Where("run_id = ?", runID).Order("id ASC").Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
