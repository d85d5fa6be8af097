package cleaner

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/med-kb-engine/internal/document"
)

// SegmentType 文本段落类型
type SegmentType string

const (
	// SegmentDefinition 定义类段落
	SegmentDefinition SegmentType = "definition"
	// SegmentSymptoms 症状类段落
	SegmentSymptoms SegmentType = "symptoms"
	// SegmentDiagnosis 诊断类段落
	SegmentDiagnosis SegmentType = "diagnosis"
	// SegmentTreatment 治疗类段落
	SegmentTreatment SegmentType = "treatment"
	// SegmentEtiology 病因类段落
	SegmentEtiology SegmentType = "etiology"
	// SegmentGeneral 通用段落
	SegmentGeneral SegmentType = "general"
)

// Segment 句子级文本段落
type Segment struct {
	ID           int                 `json:"id"`            // 段落序号
	Content      string              `json:"content"`       // 段落内容
	Length       int                 `json:"length"`        // 段落长度（字符数）
	MedicalTerms map[string][]string `json:"medical_terms"` // 段落内提取的医学术语
	SegmentType  SegmentType         `json:"segment_type"`  // 段落类型
}

// CleaningStats 清洗统计信息
type CleaningStats struct {
	NoiseRemoved      int `json:"noise_removed"`       // 清洗移除的字符数
	MedicalTermsCount int `json:"medical_terms_count"` // 提取的术语总数（各类别去重后求和）
	SegmentsCount     int `json:"segments_count"`      // 分段数量
}

// CleaningResult 单次清洗结果
// 清洗失败时Success为false，CleanedText回传原文，评分为0
type CleaningResult struct {
	Success        bool                `json:"success"`
	Error          string              `json:"error,omitempty"`
	OriginalLength int                 `json:"original_length"`
	CleanedLength  int                 `json:"cleaned_length"`
	CleanedText    string              `json:"cleaned_text"`
	MedicalTerms   map[string][]string `json:"medical_terms"`
	Segments       []Segment           `json:"segments"`
	QualityScore   float64             `json:"quality_score"`
	Stats          CleaningStats       `json:"cleaning_stats"`
}

// FileResult 批量清洗中单个文件的结果
type FileResult struct {
	CleaningResult
	FilePath  string `json:"file_path"`
	FileIndex int    `json:"file_index"`
}

// BatchSummary 批量清洗汇总
type BatchSummary struct {
	SuccessRate    float64 `json:"success_rate"`    // 成功率
	AverageQuality float64 `json:"average_quality"` // 成功文件的平均质量评分
}

// BatchReport 批量清洗报告
type BatchReport struct {
	TotalFiles int          `json:"total_files"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Results    []FileResult `json:"results"`
	Summary    BatchSummary `json:"summary"`
}

// Config 清洗器配置
// 质量评分的权重为启发式常量，可按语料调优
type Config struct {
	MinSegmentLength int     // 最短保留段落长度（字符数）
	MinTermLength    int     // 最短术语长度（字符数）
	LengthNorm       float64 // 长度评分归一化基准
	LengthCap        float64 // 长度评分上限
	TermsNorm        float64 // 术语评分归一化基准
	TermsCap         float64 // 术语评分上限
	StructureStep    float64 // 每命中一个结构关键词的加分
	StructureCap     float64 // 结构评分上限
}

// DefaultConfig 返回默认清洗器配置
func DefaultConfig() Config {
	return Config{
		MinSegmentLength: 10,
		MinTermLength:    2,
		LengthNorm:       1000,
		LengthCap:        30,
		TermsNorm:        20,
		TermsCap:         40,
		StructureStep:    10,
		StructureCap:     30,
	}
}

// termCategory 术语类别与对应的提取模式
type termCategory struct {
	name    string
	pattern *regexp.Regexp
}

// segmentRule 段落类型判定规则，按优先级排列
type segmentRule struct {
	segType SegmentType
	pattern *regexp.Regexp
}

// Cleaner 医疗文本清洗器
// 所有正则模式在构造时编译一次
type Cleaner struct {
	cfg            Config
	noisePatterns  []*regexp.Regexp
	spacePattern   *regexp.Regexp
	sentenceSplit  *regexp.Regexp
	termCategories []termCategory
	segmentRules   []segmentRule
	punctReplacer  *strings.Replacer
	structureWords []string
	logger         *logrus.Logger
}

// NewCleaner 创建医疗文本清洗器
func NewCleaner(cfg Config, logger *logrus.Logger) *Cleaner {
	if logger == nil {
		logger = logrus.New()
	}

	return &Cleaner{
		cfg: cfg,
		// 教科书素材常见的噪声：图表引用、页码、参考文献、附录引用
		noisePatterns: []*regexp.Regexp{
			regexp.MustCompile(`\[图\s*\d+[-.\d]*\]`),
			regexp.MustCompile(`\[表\s*\d+[-.\d]*\]`),
			regexp.MustCompile(`第\s*\d+\s*页`),
			regexp.MustCompile(`参考文献\s*\[\d+\]`),
			regexp.MustCompile(`见附录\s*[A-Z]`),
		},
		spacePattern:  regexp.MustCompile(`\s+`),
		sentenceSplit: regexp.MustCompile(`[。！？]`),
		termCategories: []termCategory{
			{"diseases", regexp.MustCompile(`[^，。；：\s]*(?:癌|肿瘤|炎|症|病|综合征|缺陷|畸形|损伤|破裂|出血|梗死|坏死)[^，。；：\s]*`)},
			{"anatomy", regexp.MustCompile(`[^，。；：\s]*(?:心脏|肺|肝|肾|脑|胃|肠|骨|肌肉|神经|血管|淋巴)[^，。；：\s]*`)},
			{"pathology", regexp.MustCompile(`[^，。；：\s]*(?:良性|恶性|转移|浸润|增生|萎缩|纤维化|钙化|囊性|实性)[^，。；：\s]*`)},
			{"diagnosis", regexp.MustCompile(`[^，。；：\s]*(?:诊断|鉴别诊断|临床表现|症状|体征|检查|治疗|预后)[^，。；：\s]*`)},
			{"histology", regexp.MustCompile(`[^，。；：\s]*(?:细胞|组织|上皮|间质|胶原|弹性纤维|血管|神经纤维)[^，。；：\s]*`)},
		},
		// 按固定优先级判定段落类型
		segmentRules: []segmentRule{
			{SegmentDefinition, regexp.MustCompile(`定义|概念|是指`)},
			{SegmentSymptoms, regexp.MustCompile(`症状|表现|特征`)},
			{SegmentDiagnosis, regexp.MustCompile(`诊断|检查|鉴别`)},
			{SegmentTreatment, regexp.MustCompile(`治疗|用药|手术`)},
			{SegmentEtiology, regexp.MustCompile(`病因|发病机制`)},
		},
		punctReplacer: strings.NewReplacer(
			",", "，",
			";", "；",
			":", "：",
			"(", "（",
			")", "）",
		),
		structureWords: []string{"定义", "症状", "诊断", "治疗"},
		logger:         logger,
	}
}

// Clean 清洗医疗文本
// 移除噪声、标准化标点、提取医学术语、分段并评估质量
func (c *Cleaner) Clean(text string) *CleaningResult {
	originalLength := utf8.RuneCountInString(text)

	cleaned := c.removeNoise(text)
	cleaned = c.normalizeFormat(cleaned)

	terms := c.extractMedicalTerms(cleaned)
	segments := c.segmentText(cleaned)
	score := c.assessQuality(cleaned, terms)

	cleanedLength := utf8.RuneCountInString(cleaned)

	result := &CleaningResult{
		Success:        true,
		OriginalLength: originalLength,
		CleanedLength:  cleanedLength,
		CleanedText:    cleaned,
		MedicalTerms:   terms,
		Segments:       segments,
		QualityScore:   score,
		Stats: CleaningStats{
			NoiseRemoved:      originalLength - cleanedLength,
			MedicalTermsCount: totalTerms(terms),
			SegmentsCount:     len(segments),
		},
	}

	c.logger.WithFields(logrus.Fields{
		"quality_score": score,
		"segments":      len(segments),
	}).Info("medical text cleaned")

	return result
}

// BatchClean 批量清洗文件
// 单个文件的读取或解析失败只记录在该文件的结果上，不中断批处理
func (c *Cleaner) BatchClean(filePaths []string) *BatchReport {
	report := &BatchReport{
		TotalFiles: len(filePaths),
		Results:    make([]FileResult, 0, len(filePaths)),
	}

	var qualitySum float64
	for i, path := range filePaths {
		fileResult := FileResult{
			FilePath:  path,
			FileIndex: i + 1,
		}

		content, err := c.loadFile(path)
		if err != nil {
			fileResult.Success = false
			fileResult.Error = err.Error()
			report.Failed++
			report.Results = append(report.Results, fileResult)
			c.logger.WithFields(logrus.Fields{
				"file":  path,
				"error": err.Error(),
			}).Error("failed to process file")
			continue
		}

		fileResult.CleaningResult = *c.Clean(content)
		if fileResult.Success {
			report.Successful++
			qualitySum += fileResult.QualityScore
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, fileResult)

		c.logger.WithFields(logrus.Fields{
			"file":     path,
			"progress": fmt.Sprintf("%d/%d", i+1, len(filePaths)),
		}).Info("file processed")
	}

	if report.TotalFiles > 0 {
		report.Summary.SuccessRate = float64(report.Successful) / float64(report.TotalFiles)
	}
	if report.Successful > 0 {
		report.Summary.AverageQuality = qualitySum / float64(report.Successful)
	}

	return report
}

// loadFile 通过文档加载器读取文件内容
func (c *Cleaner) loadFile(path string) (string, error) {
	loader, err := document.LoaderFactory(path)
	if err != nil {
		return "", fmt.Errorf("unsupported file %s: %w", path, err)
	}
	return loader.Load(path)
}

// removeNoise 移除文本噪声
func (c *Cleaner) removeNoise(text string) string {
	cleaned := text
	for _, pattern := range c.noisePatterns {
		cleaned = pattern.ReplaceAllString(cleaned, " ")
	}

	cleaned = c.spacePattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// normalizeFormat 标准化标点符号
func (c *Cleaner) normalizeFormat(text string) string {
	return c.punctReplacer.Replace(text)
}

// extractMedicalTerms 按类别提取医学术语
// 过滤短词并按首次出现顺序去重
func (c *Cleaner) extractMedicalTerms(text string) map[string][]string {
	terms := make(map[string][]string, len(c.termCategories))

	for _, category := range c.termCategories {
		matches := category.pattern.FindAllString(text, -1)
		seen := make(map[string]bool)
		unique := make([]string, 0, len(matches))
		for _, m := range matches {
			if utf8.RuneCountInString(m) < c.cfg.MinTermLength || seen[m] {
				continue
			}
			seen[m] = true
			unique = append(unique, m)
		}
		terms[category.name] = unique
	}

	return terms
}

// segmentText 按句子分段
// 过滤过短的句子，并对每句提取术语、判定类型
func (c *Cleaner) segmentText(text string) []Segment {
	sentences := c.sentenceSplit.Split(text, -1)
	segments := make([]Segment, 0, len(sentences))

	for i, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if utf8.RuneCountInString(sentence) < c.cfg.MinSegmentLength {
			continue
		}

		segments = append(segments, Segment{
			ID:           i,
			Content:      sentence,
			Length:       utf8.RuneCountInString(sentence),
			MedicalTerms: c.extractMedicalTerms(sentence),
			SegmentType:  c.classifySegment(sentence),
		})
	}

	return segments
}

// classifySegment 按固定优先级判定段落类型
func (c *Cleaner) classifySegment(text string) SegmentType {
	for _, rule := range c.segmentRules {
		if rule.pattern.MatchString(text) {
			return rule.segType
		}
	}
	return SegmentGeneral
}

// assessQuality 评估文本质量，返回[0,1]区间评分
// 长度、术语丰富度、结构完整性三部分加权求和后归一化
func (c *Cleaner) assessQuality(text string, terms map[string][]string) float64 {
	score := 0.0

	lengthScore := float64(utf8.RuneCountInString(text)) / c.cfg.LengthNorm * c.cfg.LengthCap
	if lengthScore > c.cfg.LengthCap {
		lengthScore = c.cfg.LengthCap
	}
	score += lengthScore

	termsScore := float64(totalTerms(terms)) / c.cfg.TermsNorm * c.cfg.TermsCap
	if termsScore > c.cfg.TermsCap {
		termsScore = c.cfg.TermsCap
	}
	score += termsScore

	structureScore := 0.0
	for _, word := range c.structureWords {
		if strings.Contains(text, word) {
			structureScore += c.cfg.StructureStep
		}
	}
	if structureScore > c.cfg.StructureCap {
		structureScore = c.cfg.StructureCap
	}
	score += structureScore

	return score / 100
}

// totalTerms 统计所有类别的术语总数
func totalTerms(terms map[string][]string) int {
	total := 0
	for _, list := range terms {
		total += len(list)
	}
	return total
}
