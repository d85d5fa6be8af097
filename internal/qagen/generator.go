package qagen

import (
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/med-kb-engine/internal/annotator"
)

// Config 生成参数
// 质量与难度的权重均为启发式常量，可按需调整
type Config struct {
	DefaultQACount      int // 默认生成数量
	MinSentenceRunes    int // 答案句子的最小长度（字符数）
	QuestionMinRunes    int // 问题长度加分阈值
	AnswerMinRunes      int // 答案长度加分阈值
	AnswerMinFields     int // 答案分词数加分阈值
	KeywordCap          int // 关键词数量上限
	ProfessionalismNorm int // 专业性指标的每对关键词基准
}

// DefaultConfig 返回默认生成参数
func DefaultConfig() Config {
	return Config{
		DefaultQACount:      10,
		MinSentenceRunes:    10,
		QuestionMinRunes:    5,
		AnswerMinRunes:      20,
		AnswerMinFields:     5,
		KeywordCap:          10,
		ProfessionalismNorm: 5,
	}
}

// Generator 问答对生成器
// 随机源可注入以保证测试可复现，生产环境默认按时间播种
type Generator struct {
	cfg             Config
	rng             *rand.Rand
	logger          *logrus.Logger
	templates       map[QuestionType][]string
	difficultyHints map[Difficulty][]string
	keywordPatterns []*regexp.Regexp
	normalizeRe     *regexp.Regexp
	interrogatives  []string
	connectors      []string
}

// Option 生成器配置选项
type Option func(*Generator)

// WithRand 注入随机源，便于生成过程可复现
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) {
		g.rng = rng
	}
}

// WithConfig 覆盖默认生成参数
func WithConfig(cfg Config) Option {
	return func(g *Generator) {
		g.cfg = cfg
	}
}

// NewGenerator 创建问答生成器
func NewGenerator(logger *logrus.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = logrus.New()
	}

	g := &Generator{
		cfg:    DefaultConfig(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger,
		templates: map[QuestionType][]string{
			TypeDefinition: {
				"什么是{term}？",
				"{term}的定义是什么？",
				"请解释{term}的含义。",
				"{term}是指什么？",
			},
			TypeSymptoms: {
				"{disease}有哪些症状？",
				"{disease}的临床表现是什么？",
				"{disease}患者会出现什么症状？",
				"如何识别{disease}的症状？",
			},
			TypeDiagnosis: {
				"如何诊断{disease}？",
				"{disease}的诊断方法有哪些？",
				"{disease}需要做哪些检查？",
				"怎样确诊{disease}？",
			},
			TypeTreatment: {
				"{disease}如何治疗？",
				"{disease}的治疗方案是什么？",
				"{disease}有哪些治疗方法？",
				"如何治疗{disease}患者？",
			},
			TypePathology: {
				"{disease}的病理特征是什么？",
				"{disease}在显微镜下有什么表现？",
				"{disease}的组织学特点有哪些？",
				"{disease}的病理改变包括什么？",
			},
			TypeDifferential: {
				"{disease}需要与哪些疾病鉴别？",
				"如何鉴别{disease}和{other_disease}？",
				"{disease}的鉴别诊断要点是什么？",
				"{disease}容易与什么疾病混淆？",
			},
		},
		difficultyHints: map[Difficulty][]string{
			DifficultyEasy:   {"什么是", "定义", "基本", "常见"},
			DifficultyMedium: {"如何", "诊断", "治疗", "症状"},
			DifficultyHard:   {"机制", "病理", "鉴别", "复杂"},
		},
		keywordPatterns: []*regexp.Regexp{
			regexp.MustCompile(`[^，。；：\s]*(?:病|症|癌|瘤|炎)[^，。；：\s]*`),
			regexp.MustCompile(`[^，。；：\s]*(?:诊断|治疗|检查|手术)[^，。；：\s]*`),
			regexp.MustCompile(`[^，。；：\s]*(?:细胞|组织|器官|系统)[^，。；：\s]*`),
		},
		normalizeRe:    regexp.MustCompile(`[^\p{L}\p{N}_]`),
		interrogatives: []string{"什么", "如何", "哪些", "怎样"},
		connectors:     []string{"包括", "表现为", "主要", "需要"},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate 基于标注结果生成问答数据集
// 上游标注失败时直接拒绝，不产出部分结果
func (g *Generator) Generate(annotated *annotator.Result, qaCount int) *Result {
	if annotated == nil || !annotated.Success {
		return &Result{
			Success: false,
			Error:   "annotated input is invalid: upstream stage unsuccessful",
			QAPairs: []QAPair{},
		}
	}
	if qaCount <= 0 {
		qaCount = g.cfg.DefaultQACount
	}

	content := annotated.OriginalText
	keyInfo := g.ExtractKeyInfo(annotated)

	// 按固定类型顺序分配数量，余数给靠前的类型
	var pairs []QAPair
	types := QuestionTypes()
	counts := distributeCounts(qaCount, len(types))
	for i, qType := range types {
		pairs = append(pairs, g.generateByType(qType, keyInfo, content, counts[i])...)
	}

	g.rng.Shuffle(len(pairs), func(i, j int) {
		pairs[i], pairs[j] = pairs[j], pairs[i]
	})
	if len(pairs) > qaCount {
		pairs = pairs[:qaCount]
	}

	// 按质量降序后去重，保证重复问题保留质量最高的版本
	pairs = g.dedupeByQuestion(pairs)
	for i := range pairs {
		pairs[i].ID = fmt.Sprintf("qa_%d", i+1)
	}

	result := &Result{
		Success: true,
		DatasetInfo: DatasetInfo{
			TotalQAPairs:        len(pairs),
			GenerationTime:      time.Now().Format(time.RFC3339),
			SourceContentLength: utf8.RuneCountInString(content),
			AnnotationCount:     len(annotated.Annotations),
		},
		QAPairs:        pairs,
		Statistics:     computeStatistics(pairs),
		QualityMetrics: g.computeQualityMetrics(pairs),
	}

	g.logger.WithFields(logrus.Fields{
		"requested": qaCount,
		"generated": len(pairs),
	}).Info("QA dataset generated")
	return result
}

// ExtractKeyInfo 从标注结果中按角色归类实体
// 各角色内去重并保持首次出现顺序
func (g *Generator) ExtractKeyInfo(annotated *annotator.Result) KeyInfo {
	info := KeyInfo{}
	for _, ann := range annotated.Annotations {
		switch ann.Type {
		case annotator.TypeDisease:
			info.Diseases = appendUnique(info.Diseases, ann.Text)
		case annotator.TypeSymptom:
			info.Symptoms = appendUnique(info.Symptoms, ann.Text)
		case annotator.TypeTreatment:
			info.Treatments = appendUnique(info.Treatments, ann.Text)
		case annotator.TypeAnatomy:
			info.Anatomy = appendUnique(info.Anatomy, ann.Text)
		case annotator.TypePathology:
			info.PathologyTerms = appendUnique(info.PathologyTerms, ann.Text)
		case annotator.TypeDiagnosticMethod:
			info.DiagnosisTerms = appendUnique(info.DiagnosisTerms, ann.Text)
		}
	}
	for _, entity := range annotated.Entities {
		switch entity.Type {
		case "disease":
			info.Diseases = appendUnique(info.Diseases, entity.Text)
		case "anatomy":
			info.Anatomy = appendUnique(info.Anatomy, entity.Text)
		}
	}
	return info
}

// generateByType 为单个问题类型生成count个问答对
// 实体池为空时直接跳过，不视为错误
func (g *Generator) generateByType(qType QuestionType, keyInfo KeyInfo, content string, count int) []QAPair {
	templates := g.templates[qType]
	if len(templates) == 0 {
		return nil
	}

	var pairs []QAPair
	for i := 0; i < count; i++ {
		entity := g.selectEntity(qType, keyInfo)
		if entity == "" {
			continue
		}

		template := templates[g.rng.Intn(len(templates))]
		question := g.buildQuestion(template, entity, keyInfo)
		answer := g.buildAnswer(qType, entity, content)

		pairs = append(pairs, QAPair{
			Question:     question,
			Answer:       answer,
			QuestionType: qType,
			Difficulty:   g.assessDifficulty(question, answer),
			Keywords:     g.extractKeywords(question, answer),
			Entity:       entity,
			QualityScore: g.scoreQuality(question, answer),
		})
	}
	return pairs
}

// selectEntity 为问题类型选择实体
func (g *Generator) selectEntity(qType QuestionType, keyInfo KeyInfo) string {
	pool := keyInfo.Diseases
	if qType == TypePathology {
		pool = append(append([]string{}, keyInfo.PathologyTerms...), keyInfo.Diseases...)
	}
	if len(pool) == 0 {
		return ""
	}
	return pool[g.rng.Intn(len(pool))]
}

// buildQuestion 实例化问题模板
func (g *Generator) buildQuestion(template, entity string, keyInfo KeyInfo) string {
	question := strings.ReplaceAll(template, "{term}", entity)
	question = strings.ReplaceAll(question, "{disease}", entity)

	if strings.Contains(question, "{other_disease}") {
		other := "其他疾病"
		var candidates []string
		for _, d := range keyInfo.Diseases {
			if d != entity {
				candidates = append(candidates, d)
			}
		}
		if len(candidates) > 0 {
			other = candidates[g.rng.Intn(len(candidates))]
		}
		question = strings.ReplaceAll(question, "{other_disease}", other)
	}
	return question
}

// buildAnswer 合成答案
// 优先从原文中取包含实体的句子，找不到时退化为通用模板答案
func (g *Generator) buildAnswer(qType QuestionType, entity, content string) string {
	sentences := g.relevantSentences(entity, content)
	if len(sentences) == 0 {
		return g.basicAnswer(qType, entity)
	}

	var leadIn string
	limit := 3
	switch qType {
	case TypeDefinition:
		leadIn = entity + "是指"
		limit = 2
	case TypeSymptoms:
		leadIn = entity + "的主要症状包括："
	case TypeDiagnosis:
		leadIn = entity + "的诊断主要依据："
	case TypeTreatment:
		leadIn = entity + "的治疗方法包括："
	case TypePathology:
		leadIn = entity + "的病理特征表现为："
		limit = 2
	}

	if len(sentences) > limit {
		sentences = sentences[:limit]
	}
	parts := sentences
	if leadIn != "" {
		parts = append([]string{leadIn}, sentences...)
	}
	return strings.Join(parts, " ")
}

// relevantSentences 查找包含实体且足够长的原文句子
func (g *Generator) relevantSentences(entity, content string) []string {
	var relevant []string
	for _, sentence := range strings.FieldsFunc(content, func(r rune) bool {
		return r == '。' || r == '！' || r == '？'
	}) {
		sentence = strings.TrimSpace(sentence)
		if strings.Contains(sentence, entity) &&
			utf8.RuneCountInString(sentence) >= g.cfg.MinSentenceRunes {
			relevant = append(relevant, sentence)
		}
	}
	return relevant
}

// basicAnswer 通用模板答案
func (g *Generator) basicAnswer(qType QuestionType, entity string) string {
	switch qType {
	case TypeDefinition:
		return entity + "是一种医学概念，需要进一步的专业解释。"
	case TypeSymptoms:
		return entity + "的症状需要根据具体情况进行临床评估。"
	case TypeDiagnosis:
		return entity + "的诊断需要结合临床表现和相关检查。"
	case TypeTreatment:
		return entity + "的治疗应该根据患者具体情况制定个体化方案。"
	case TypePathology:
		return entity + "的病理特征需要通过组织学检查确定。"
	case TypeDifferential:
		return entity + "需要与相关疾病进行鉴别诊断。"
	}
	return "关于" + entity + "的详细信息需要咨询专业医生。"
}

// assessDifficulty 基于关键词命中数评估难度
// 命中数并列或全部为零时默认medium
func (g *Generator) assessDifficulty(question, answer string) Difficulty {
	text := question + " " + answer

	best := DifficultyMedium
	bestCount := 0
	tied := false
	for _, level := range []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard} {
		count := 0
		for _, hint := range g.difficultyHints[level] {
			if strings.Contains(text, hint) {
				count++
			}
		}
		if count > bestCount {
			best = level
			bestCount = count
			tied = false
		} else if count == bestCount && count > 0 {
			tied = true
		}
	}
	if bestCount == 0 || tied {
		return DifficultyMedium
	}
	return best
}

// extractKeywords 通过领域模式提取关键词
// 保持首次出现顺序去重并截断
func (g *Generator) extractKeywords(question, answer string) []string {
	text := question + " " + answer
	seen := make(map[string]bool)
	var keywords []string

	for _, pattern := range g.keywordPatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			if utf8.RuneCountInString(match) < 2 || seen[match] {
				continue
			}
			seen[match] = true
			keywords = append(keywords, match)
			if len(keywords) >= g.cfg.KeywordCap {
				return keywords
			}
		}
	}
	return keywords
}

// scoreQuality 问答对质量评分
// 问题与答案各占50分，归一化到[0,1]
func (g *Generator) scoreQuality(question, answer string) float64 {
	score := 0.0

	if utf8.RuneCountInString(question) >= g.cfg.QuestionMinRunes {
		score += 20
	}
	if strings.ContainsAny(question, "？?") {
		score += 10
	}
	for _, word := range g.interrogatives {
		if strings.Contains(question, word) {
			score += 20
			break
		}
	}

	if utf8.RuneCountInString(answer) >= g.cfg.AnswerMinRunes {
		score += 20
	}
	if len(strings.Fields(answer)) >= g.cfg.AnswerMinFields {
		score += 15
	}
	for _, word := range g.connectors {
		if strings.Contains(answer, word) {
			score += 15
			break
		}
	}

	normalized := score / 100
	if normalized > 1.0 {
		normalized = 1.0
	}
	return normalized
}

// dedupeByQuestion 按归一化问题去重
// 先按质量降序稳定排序，重复问题保留质量最高者
func (g *Generator) dedupeByQuestion(pairs []QAPair) []QAPair {
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].QualityScore > pairs[j].QualityScore
	})

	seen := make(map[string]bool)
	unique := make([]QAPair, 0, len(pairs))
	for _, pair := range pairs {
		key := g.normalizeRe.ReplaceAllString(strings.ToLower(pair.Question), "")
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, pair)
	}
	return unique
}

// distributeCounts 将总数尽量均匀地分配到各类型
func distributeCounts(total, buckets int) []int {
	base := total / buckets
	remainder := total % buckets
	counts := make([]int, buckets)
	for i := range counts {
		counts[i] = base
		if i < remainder {
			counts[i]++
		}
	}
	return counts
}

// computeStatistics 计算数据集统计
func computeStatistics(pairs []QAPair) Statistics {
	stats := Statistics{
		DifficultyDistribution: make(map[string]int),
		TypeDistribution:       make(map[string]int),
	}
	if len(pairs) == 0 {
		return stats
	}

	var qualitySum float64
	var questionLen, answerLen int
	keywords := make(map[string]bool)
	for _, pair := range pairs {
		stats.DifficultyDistribution[string(pair.Difficulty)]++
		stats.TypeDistribution[string(pair.QuestionType)]++
		qualitySum += pair.QualityScore
		questionLen += utf8.RuneCountInString(pair.Question)
		answerLen += utf8.RuneCountInString(pair.Answer)
		for _, kw := range pair.Keywords {
			keywords[kw] = true
		}
	}

	n := float64(len(pairs))
	stats.AverageQualityScore = qualitySum / n
	stats.TotalKeywords = len(keywords)
	stats.AverageQuestionLength = float64(questionLen) / n
	stats.AverageAnswerLength = float64(answerLen) / n
	return stats
}

// computeQualityMetrics 计算完整性、多样性与专业性指标
func (g *Generator) computeQualityMetrics(pairs []QAPair) QualityMetrics {
	if len(pairs) == 0 {
		return QualityMetrics{}
	}

	complete := 0
	questions := make(map[string]bool)
	keywordCount := 0
	for _, pair := range pairs {
		if pair.Question != "" && pair.Answer != "" {
			complete++
		}
		questions[pair.Question] = true
		keywordCount += len(pair.Keywords)
	}

	n := float64(len(pairs))
	completeness := float64(complete) / n
	diversity := float64(len(questions)) / n
	professionalism := float64(keywordCount) / (n * float64(g.cfg.ProfessionalismNorm))
	if professionalism > 1.0 {
		professionalism = 1.0
	}

	return QualityMetrics{
		Completeness:    completeness,
		Diversity:       diversity,
		Professionalism: professionalism,
		OverallQuality:  (completeness + diversity + professionalism) / 3,
	}
}

// appendUnique 保持顺序地追加非空且未出现过的元素
func appendUnique(list []string, value string) []string {
	if value == "" {
		return list
	}
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
