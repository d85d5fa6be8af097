package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fyerfyer/med-kb-engine/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// 使用唯一的内存数据库标识符
	dbName := fmt.Sprintf("file:memdb_%d?mode=memory", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	require.NoError(t, err, "Failed to open in-memory database")

	err = db.AutoMigrate(&models.PipelineRun{}, &models.QARecord{})
	require.NoError(t, err, "Failed to run migrations")
	return db
}

func TestRunRepository_CreateAndGet(t *testing.T) {
	repo := NewRunRepository(setupTestDB(t))

	run := &models.PipelineRun{
		ID:          "run-1",
		Source:      "direct_input",
		ContentType: "pathology",
		Status:      models.RunStatusPending,
	}
	require.NoError(t, repo.Create(run))
	assert.False(t, run.CreatedAt.IsZero(), "创建钩子应填充时间戳")

	got, err := repo.GetByID("run-1")
	require.NoError(t, err)
	assert.Equal(t, "direct_input", got.Source)
	assert.Equal(t, models.RunStatusPending, got.Status)

	t.Run("EmptyID", func(t *testing.T) {
		assert.Error(t, repo.Create(&models.PipelineRun{}))
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetByID("missing")
		assert.ErrorIs(t, err, models.ErrResourceNotFound)
	})
}

func TestRunRepository_StageTransitions(t *testing.T) {
	repo := NewRunRepository(setupTestDB(t))

	run := &models.PipelineRun{ID: "run-2", Status: models.RunStatusPending}
	require.NoError(t, repo.Create(run))

	require.NoError(t, repo.UpdateStage("run-2", models.StageAnnotation))
	got, err := repo.GetByID("run-2")
	require.NoError(t, err)
	assert.Equal(t, models.StageAnnotation, got.CurrentStage)
	assert.Equal(t, models.RunStatusProcessing, got.Status)

	require.NoError(t, repo.MarkCompleted("run-2", 8, 0.72, 0.85))
	got, err = repo.GetByID("run-2")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, got.Status)
	assert.Equal(t, models.StageDone, got.CurrentStage)
	assert.Equal(t, 8, got.QACount)
	assert.NotNil(t, got.CompletedAt)
}

func TestRunRepository_MarkFailed(t *testing.T) {
	repo := NewRunRepository(setupTestDB(t))

	require.NoError(t, repo.Create(&models.PipelineRun{ID: "run-3", Status: models.RunStatusPending}))
	require.NoError(t, repo.MarkFailed("run-3", "annotation stage failed"))

	got, err := repo.GetByID("run-3")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, got.Status)
	assert.Equal(t, "annotation stage failed", got.Error)
}

func TestRunRepository_List(t *testing.T) {
	repo := NewRunRepository(setupTestDB(t))

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(&models.PipelineRun{
			ID:     fmt.Sprintf("run-%d", i),
			Status: models.RunStatusCompleted,
		}))
	}
	require.NoError(t, repo.Create(&models.PipelineRun{ID: "run-x", Status: models.RunStatusFailed}))

	runs, total, err := repo.List(0, 10, models.RunStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, runs, 3)

	runs, total, err = repo.List(0, 2, "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), total, "不过滤时应统计全部记录")
	assert.Len(t, runs, 2, "应遵守分页限制")
}

func TestRunRepository_QARecords(t *testing.T) {
	repo := NewRunRepository(setupTestDB(t))

	require.NoError(t, repo.Create(&models.PipelineRun{ID: "run-qa", Status: models.RunStatusCompleted}))

	records := []*models.QARecord{
		{
			RunID:        "run-qa",
			PairID:       "qa_1",
			Question:     "什么是肺癌？",
			Answer:       "肺癌是恶性肿瘤。",
			QuestionType: "definition",
			Difficulty:   "easy",
			QualityScore: 0.8,
			Keywords:     datatypes.JSON([]byte(`["肺癌"]`)),
		},
		{
			RunID:      "run-qa",
			PairID:     "qa_2",
			Question:   "肺癌如何治疗？",
			Answer:     "治疗方法包括手术和化疗。",
			Difficulty: "medium",
		},
	}
	require.NoError(t, repo.SaveQARecords(records))

	got, err := repo.GetQARecords("run-qa")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "qa_1", got[0].PairID)
	assert.Equal(t, "什么是肺癌？", got[0].Question)

	assert.NoError(t, repo.SaveQARecords(nil), "空列表应为无操作")
}
