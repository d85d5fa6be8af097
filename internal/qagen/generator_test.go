package qagen

import (
	"math/rand"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/med-kb-engine/internal/annotator"
)

func setupTestGenerator(seed int64) *Generator {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewGenerator(logger, WithRand(rand.New(rand.NewSource(seed))))
}

func annotatedFixture(t *testing.T) *annotator.Result {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	engine := annotator.NewEngine(logger)

	text := "肺癌是指起源于支气管黏膜或腺体的恶性肿瘤。肺癌患者常出现咳嗽和咯血症状。" +
		"肺癌的诊断需要病理检查和影像学检查。肺癌的治疗方法包括手术切除和化疗。" +
		"显微镜下可见细胞异型性明显，核分裂象增多。"
	result := engine.Annotate(text, nil, "pathology")
	require.True(t, result.Success)
	return result
}

func TestGenerate(t *testing.T) {
	generator := setupTestGenerator(42)
	annotated := annotatedFixture(t)

	result := generator.Generate(annotated, 10)
	require.True(t, result.Success)

	assert.LessOrEqual(t, len(result.QAPairs), 10, "生成数量不应超过请求数量")
	assert.NotEmpty(t, result.QAPairs)

	for _, pair := range result.QAPairs {
		assert.NotEmpty(t, pair.Question, "问题不允许为空")
		assert.NotEmpty(t, pair.Answer, "答案不允许为空")
		assert.GreaterOrEqual(t, pair.QualityScore, 0.0)
		assert.LessOrEqual(t, pair.QualityScore, 1.0)
		assert.NotEmpty(t, pair.ID)
		assert.Contains(t, []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}, pair.Difficulty)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	annotated := annotatedFixture(t)

	first := setupTestGenerator(7).Generate(annotated, 8)
	second := setupTestGenerator(7).Generate(annotated, 8)

	require.True(t, first.Success)
	require.True(t, second.Success)
	require.Equal(t, len(first.QAPairs), len(second.QAPairs), "相同种子应产生相同数量")
	for i := range first.QAPairs {
		assert.Equal(t, first.QAPairs[i].Question, second.QAPairs[i].Question,
			"相同种子应产生相同问题序列")
		assert.Equal(t, first.QAPairs[i].Answer, second.QAPairs[i].Answer)
	}
}

func TestGenerateRejectsFailedInput(t *testing.T) {
	generator := setupTestGenerator(1)

	t.Run("NilInput", func(t *testing.T) {
		result := generator.Generate(nil, 5)
		assert.False(t, result.Success)
		assert.Empty(t, result.QAPairs)
	})

	t.Run("UpstreamFailure", func(t *testing.T) {
		result := generator.Generate(&annotator.Result{Success: false}, 5)
		assert.False(t, result.Success)
		assert.NotEmpty(t, result.Error)
		assert.Empty(t, result.QAPairs, "失败时不应返回部分结果")
	})
}

func TestGenerateEmptyEntityPools(t *testing.T) {
	generator := setupTestGenerator(3)

	// 标注成功但没有任何可用实体
	annotated := &annotator.Result{
		Success:      true,
		OriginalText: "这是一段不包含词典术语的普通文字。",
	}
	result := generator.Generate(annotated, 10)

	require.True(t, result.Success)
	assert.Empty(t, result.QAPairs, "实体池为空时生成数量应为零")
}

func TestExtractKeyInfo(t *testing.T) {
	generator := setupTestGenerator(1)

	annotated := &annotator.Result{
		Success: true,
		Annotations: []annotator.Annotation{
			{Text: "肺癌", Type: annotator.TypeDisease, Confidence: 0.9},
			{Text: "肺癌", Type: annotator.TypeDisease, Confidence: 0.9},
			{Text: "咳嗽", Type: annotator.TypeSymptom, Confidence: 0.9},
			{Text: "化疗", Type: annotator.TypeTreatment, Confidence: 0.9},
			{Text: "坏死", Type: annotator.TypePathology, Confidence: 0.7},
			{Text: "活检", Type: annotator.TypeDiagnosticMethod, Confidence: 0.9},
		},
		Entities: []annotator.Entity{
			{Text: "肝癌", Type: "disease", Confidence: 0.8},
			{Text: "肺", Type: "anatomy", Confidence: 0.7},
		},
	}

	info := generator.ExtractKeyInfo(annotated)
	assert.Equal(t, []string{"肺癌", "肝癌"}, info.Diseases, "疾病应去重并合并实体来源")
	assert.Equal(t, []string{"咳嗽"}, info.Symptoms)
	assert.Equal(t, []string{"化疗"}, info.Treatments)
	assert.Equal(t, []string{"肺"}, info.Anatomy)
	assert.Equal(t, []string{"坏死"}, info.PathologyTerms)
	assert.Equal(t, []string{"活检"}, info.DiagnosisTerms)
}

func TestDistributeCounts(t *testing.T) {
	counts := distributeCounts(10, 6)
	assert.Equal(t, []int{2, 2, 2, 2, 1, 1}, counts, "余数应分配给靠前的类型")

	total := 0
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, 10, total)

	assert.Equal(t, []int{1, 1, 1, 1, 1, 1}, distributeCounts(6, 6))
	assert.Equal(t, []int{1, 0, 0, 0, 0, 0}, distributeCounts(1, 6))
}

func TestAssessDifficulty(t *testing.T) {
	generator := setupTestGenerator(1)

	t.Run("HardWins", func(t *testing.T) {
		difficulty := generator.assessDifficulty(
			"肺癌的病理机制是什么？",
			"其发生机制复杂，病理表现为细胞异型性。")
		assert.Equal(t, DifficultyHard, difficulty)
	})

	t.Run("DefaultMediumOnEmpty", func(t *testing.T) {
		difficulty := generator.assessDifficulty("问题", "答案")
		assert.Equal(t, DifficultyMedium, difficulty, "无命中时默认medium")
	})
}

func TestDedupeByQuestion(t *testing.T) {
	generator := setupTestGenerator(1)

	pairs := []QAPair{
		{Question: "什么是肺癌？", Answer: "低质量答案", QualityScore: 0.3},
		{Question: "什么是肺癌?", Answer: "高质量答案", QualityScore: 0.9},
		{Question: "如何治疗肺癌？", Answer: "答案", QualityScore: 0.5},
	}

	unique := generator.dedupeByQuestion(pairs)
	require.Len(t, unique, 2, "标点差异的问题应视为重复")
	assert.Equal(t, "高质量答案", unique[0].Answer, "应保留质量最高的版本")
}

func TestQualityMetrics(t *testing.T) {
	generator := setupTestGenerator(42)
	annotated := annotatedFixture(t)

	result := generator.Generate(annotated, 10)
	require.True(t, result.Success)

	metrics := result.QualityMetrics
	assert.GreaterOrEqual(t, metrics.Completeness, 0.0)
	assert.LessOrEqual(t, metrics.Completeness, 1.0)
	assert.Equal(t, 1.0, metrics.Diversity, "去重后问题应全部唯一")
	assert.LessOrEqual(t, metrics.Professionalism, 1.0)
	assert.InDelta(t,
		(metrics.Completeness+metrics.Diversity+metrics.Professionalism)/3,
		metrics.OverallQuality, 1e-9)
}

func TestStatistics(t *testing.T) {
	generator := setupTestGenerator(42)
	annotated := annotatedFixture(t)

	result := generator.Generate(annotated, 10)
	require.True(t, result.Success)

	stats := result.Statistics
	totalByType := 0
	for _, count := range stats.TypeDistribution {
		totalByType += count
	}
	assert.Equal(t, len(result.QAPairs), totalByType)
	assert.GreaterOrEqual(t, stats.AverageQualityScore, 0.0)
	assert.LessOrEqual(t, stats.AverageQualityScore, 1.0)
	assert.Greater(t, stats.AverageQuestionLength, 0.0)
}
