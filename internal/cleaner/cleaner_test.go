package cleaner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCleaner() *Cleaner {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewCleaner(DefaultConfig(), logger)
}

// TestCleanRemovesNoise 测试噪声移除功能
func TestCleanRemovesNoise(t *testing.T) {
	c := newTestCleaner()

	t.Run("page markers and figure references", func(t *testing.T) {
		text := "第3页 肺癌是常见恶性肿瘤。[图 1-2]患者出现咳嗽症状。参考文献[12]"
		result := c.Clean(text)

		require.True(t, result.Success)
		assert.NotContains(t, result.CleanedText, "第3页", "页码应被移除")
		assert.NotContains(t, result.CleanedText, "[图", "图片引用应被移除")
		assert.NotContains(t, result.CleanedText, "参考文献", "参考文献标记应被移除")
		assert.Contains(t, result.CleanedText, "肺癌是常见恶性肿瘤")
		assert.Contains(t, result.CleanedText, "咳嗽症状")
	})

	t.Run("cleaned text never longer than input", func(t *testing.T) {
		texts := []string{
			"第3页 肺癌是常见恶性肿瘤。",
			"乳腺癌的诊断需要病理检查。",
			"",
			"   多余   空白   ",
		}
		for _, text := range texts {
			result := c.Clean(text)
			assert.LessOrEqual(t, result.CleanedLength, utf8.RuneCountInString(text),
				"清洗后文本不应变长: %q", text)
		}
	})
}

// TestCleanSegmentation 测试分段与段落分类
func TestCleanSegmentation(t *testing.T) {
	c := newTestCleaner()

	t.Run("page noise removed and symptom segment classified", func(t *testing.T) {
		text := "第3页 肺癌是常见恶性肿瘤。患者出现咳嗽症状。"
		result := c.Clean(text)

		require.True(t, result.Success)
		assert.Contains(t, result.CleanedText, "肺癌是常见恶性肿瘤")
		assert.Contains(t, result.CleanedText, "患者出现咳嗽症状")
		require.Equal(t, 2, len(result.Segments), "应分成2个段落")
		assert.Equal(t, SegmentSymptoms, result.Segments[1].SegmentType, "包含症状关键词的段落应分类为symptoms")
	})

	t.Run("classification priority", func(t *testing.T) {
		// 同时包含定义和症状关键词时，优先判定为definition
		text := "肿瘤是指机体细胞异常增殖形成的病变，常见症状多样。"
		result := c.Clean(text)

		require.Equal(t, 1, len(result.Segments))
		assert.Equal(t, SegmentDefinition, result.Segments[0].SegmentType)
	})

	t.Run("short sentences filtered", func(t *testing.T) {
		text := "短句。这是一个足够长的句子用于保留下来。"
		result := c.Clean(text)

		require.Equal(t, 1, len(result.Segments))
		assert.Contains(t, result.Segments[0].Content, "足够长")
	})

	t.Run("segment length threshold counts runes", func(t *testing.T) {
		// 5个汉字、15字节：按字符数过滤时应被丢弃
		text := "咳嗽伴发热。肺癌是常见的恶性肿瘤性疾病。"
		result := c.Clean(text)

		require.Equal(t, 1, len(result.Segments))
		assert.NotContains(t, result.Segments[0].Content, "咳嗽伴发热")
		assert.GreaterOrEqual(t, result.Segments[0].Length, DefaultConfig().MinSegmentLength)
	})
}

// TestCleanTermExtraction 测试医学术语提取
func TestCleanTermExtraction(t *testing.T) {
	c := newTestCleaner()

	text := "乳腺癌是恶性肿瘤，常伴淋巴结转移，需要病理检查明确诊断。"
	result := c.Clean(text)

	require.True(t, result.Success)
	assert.NotEmpty(t, result.MedicalTerms["diseases"], "应提取出疾病术语")

	found := false
	for _, term := range result.MedicalTerms["diseases"] {
		if strings.Contains(term, "乳腺癌") {
			found = true
		}
	}
	assert.True(t, found, "疾病术语应包含乳腺癌: %v", result.MedicalTerms["diseases"])

	// 统计值为各类别去重术语的总数
	total := 0
	for _, terms := range result.MedicalTerms {
		total += len(terms)
	}
	assert.Equal(t, total, result.Stats.MedicalTermsCount)

	// 术语去重且长度不小于2
	for category, terms := range result.MedicalTerms {
		seen := make(map[string]bool)
		for _, term := range terms {
			assert.GreaterOrEqual(t, utf8.RuneCountInString(term), 2, "类别%s的术语过短: %s", category, term)
			assert.False(t, seen[term], "类别%s存在重复术语: %s", category, term)
			seen[term] = true
		}
	}
}

// TestCleanQualityScore 测试质量评分
func TestCleanQualityScore(t *testing.T) {
	c := newTestCleaner()

	t.Run("score in unit range", func(t *testing.T) {
		texts := []string{
			"",
			"短文本。",
			"乳腺癌的定义：乳腺上皮细胞发生的恶性肿瘤。症状包括肿块。诊断依靠病理检查。治疗以手术为主。",
			strings.Repeat("肿瘤细胞异型性明显，可见核分裂象。", 100),
		}
		for _, text := range texts {
			result := c.Clean(text)
			assert.GreaterOrEqual(t, result.QualityScore, 0.0)
			assert.LessOrEqual(t, result.QualityScore, 1.0)
		}
	})

	t.Run("structured text scores higher", func(t *testing.T) {
		plain := "这是一段没有医学内容的普通文字，用来做对比测试使用。"
		structured := "乳腺癌的定义：乳腺上皮恶性肿瘤。主要症状为无痛性肿块。诊断依靠穿刺活检。治疗包括手术和化疗。"

		plainScore := c.Clean(plain).QualityScore
		structuredScore := c.Clean(structured).QualityScore
		assert.Greater(t, structuredScore, plainScore, "结构化医学文本评分应更高")
	})
}

// TestCleanNormalization 测试标点标准化
func TestCleanNormalization(t *testing.T) {
	c := newTestCleaner()

	result := c.Clean("肿瘤(恶性),预后差;需治疗:手术。")
	assert.Contains(t, result.CleanedText, "（恶性）")
	assert.Contains(t, result.CleanedText, "，")
	assert.Contains(t, result.CleanedText, "；")
	assert.Contains(t, result.CleanedText, "：")
}

// TestBatchClean 测试批量清洗
func TestBatchClean(t *testing.T) {
	c := newTestCleaner()

	dir := t.TempDir()
	goodFile := filepath.Join(dir, "pathology.txt")
	require.NoError(t, os.WriteFile(goodFile, []byte("乳腺癌是常见的恶性肿瘤，需要病理诊断。"), 0644))

	t.Run("per-file failure does not abort batch", func(t *testing.T) {
		missing := filepath.Join(dir, "missing.txt")
		report := c.BatchClean([]string{goodFile, missing})

		assert.Equal(t, 2, report.TotalFiles)
		assert.Equal(t, 1, report.Successful)
		assert.Equal(t, 1, report.Failed)
		require.Equal(t, 2, len(report.Results))

		assert.True(t, report.Results[0].Success)
		assert.False(t, report.Results[1].Success)
		assert.NotEmpty(t, report.Results[1].Error)

		assert.InDelta(t, 0.5, report.Summary.SuccessRate, 1e-9)
		assert.Greater(t, report.Summary.AverageQuality, 0.0)
	})

	t.Run("empty batch", func(t *testing.T) {
		report := c.BatchClean(nil)
		assert.Equal(t, 0, report.TotalFiles)
		assert.Equal(t, 0.0, report.Summary.SuccessRate)
	})
}
