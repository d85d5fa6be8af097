package annotator

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// relationPattern 语义关系模式
// 模式必须携带至少两个捕获组（主语和宾语）
type relationPattern struct {
	relType string
	pattern *regexp.Regexp
}

// entityPattern 关键实体模式
type entityPattern struct {
	entType    string
	pattern    *regexp.Regexp
	confidence float64
}

// Engine 标注引擎
// 汇集多个提取器的结果，抽取语义关系与关键实体，并合并重叠标注
type Engine struct {
	extractors       []Extractor
	relationPatterns []relationPattern
	entityPatterns   []entityPattern
	logger           *logrus.Logger
}

// Option 引擎配置选项
type Option func(*Engine)

// WithExtractors 替换默认提取器集合
func WithExtractors(extractors ...Extractor) Option {
	return func(e *Engine) {
		e.extractors = extractors
	}
}

// NewEngine 创建标注引擎
// 默认组合：核心词典（固定0.9）、临床词典（上下文评分）、规则提取（固定0.7）
func NewEngine(logger *logrus.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = logrus.New()
	}

	e := &Engine{
		extractors: []Extractor{
			NewDictionaryExtractor("core", DefaultDictionaries(), 0.9),
			NewDictionaryExtractor("clinical", ClinicalDictionaries(), 0.5,
				WithContextScorer(DefaultContextScorer())),
			NewRuleExtractor("pattern", DefaultRules(), 0.7),
		},
		relationPatterns: []relationPattern{
			{"definition", regexp.MustCompile(`([^。；]+?)是指([^。；]+)[。；]`)},
			{"characteristic", regexp.MustCompile(`([^。；]+?)的特征[是为]([^。；]+)[。；]`)},
			{"diagnosis", regexp.MustCompile(`诊断([^。；]+?)需要([^。；]+)[。；]`)},
			{"treatment", regexp.MustCompile(`([^。；]+?)的治疗(?:方法|方案)(?:包括|[是为])([^。；]+)[。；]`)},
			{"prognosis", regexp.MustCompile(`([^。；]+?)的预后([^。；]+)[。；]`)},
		},
		entityPatterns: []entityPattern{
			{"disease", regexp.MustCompile(`[^，。；：\s]*(?:病|症|癌|瘤|炎)[^，。；：\s]*`), 0.8},
			{"anatomy", regexp.MustCompile(`[^，。；：\s]*(?:心|肺|肝|肾|脑|胃|肠|骨)[^，。；：\s]*`), 0.7},
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Annotate 对文本执行完整标注
// types为空时使用全部标注类型，contentType仅作为元数据透传
func (e *Engine) Annotate(text string, types []AnnotationType, contentType string) *Result {
	if strings.TrimSpace(text) == "" {
		return &Result{
			Success:     false,
			Error:       "annotation input text is empty",
			ContentType: contentType,
		}
	}
	if len(types) == 0 {
		types = AllTypes()
	}

	var annotations []Annotation
	for _, extractor := range e.extractors {
		extracted := extractor.Extract(text, types)
		e.logger.WithFields(logrus.Fields{
			"extractor": extractor.Name(),
			"count":     len(extracted),
		}).Debug("Extractor finished")
		annotations = append(annotations, extracted...)
	}

	merged := MergeOverlapping(annotations)

	result := &Result{
		Success:           true,
		OriginalText:      text,
		ContentType:       contentType,
		Annotations:       merged,
		SemanticRelations: e.extractRelations(text),
		Entities:          e.extractEntities(text),
		Statistics:        computeStatistics(merged),
	}

	e.logger.WithFields(logrus.Fields{
		"annotations": len(merged),
		"relations":   len(result.SemanticRelations),
		"entities":    len(result.Entities),
	}).Info("Annotation completed")
	return result
}

// BatchAnnotate 批量标注
// 单篇失败不会中断批次，失败结果保留在报告中
func (e *Engine) BatchAnnotate(documents []string, types []AnnotationType, contentType string) *BatchReport {
	report := &BatchReport{
		Success:        true,
		TotalDocuments: len(documents),
		Results:        make([]*Result, 0, len(documents)),
	}

	for _, doc := range documents {
		result := e.Annotate(doc, types, contentType)
		report.Results = append(report.Results, result)
		if result.Success {
			report.SuccessfulDocuments++
			report.TotalAnnotations += len(result.Annotations)
		}
	}
	return report
}

// MergeOverlapping 合并重叠标注
// 按(StartPos, EndPos)排序后线性扫描；跨度相交时保留置信度更高者，
// 置信度相同保留跨度更长者。结果中任意两个标注互不重叠
func MergeOverlapping(annotations []Annotation) []Annotation {
	if len(annotations) <= 1 {
		return annotations
	}

	sorted := make([]Annotation, len(annotations))
	copy(sorted, annotations)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].StartPos != sorted[j].StartPos {
			return sorted[i].StartPos < sorted[j].StartPos
		}
		return sorted[i].EndPos < sorted[j].EndPos
	})

	merged := []Annotation{sorted[0]}
	for _, current := range sorted[1:] {
		last := &merged[len(merged)-1]
		if current.StartPos < last.EndPos {
			if betterAnnotation(current, *last) {
				*last = current
			}
			continue
		}
		merged = append(merged, current)
	}
	return merged
}

// betterAnnotation 在重叠冲突中判断a是否优于b
func betterAnnotation(a, b Annotation) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.Length() > b.Length()
}

// extractRelations 基于模板抽取语义关系
func (e *Engine) extractRelations(text string) []SemanticRelation {
	var relations []SemanticRelation
	for _, rp := range e.relationPatterns {
		for _, match := range rp.pattern.FindAllStringSubmatchIndex(text, -1) {
			// match布局：[0,1]整体，[2,3]组1，[4,5]组2
			if len(match) < 6 {
				continue
			}
			relations = append(relations, SemanticRelation{
				Type:     rp.relType,
				Subject:  strings.TrimSpace(text[match[2]:match[3]]),
				Object:   strings.TrimSpace(text[match[4]:match[5]]),
				Context:  text[match[0]:match[1]],
				StartPos: match[0],
				EndPos:   match[1],
			})
		}
	}
	return relations
}

// extractEntities 抽取关键实体并按(文本,类型)去重
func (e *Engine) extractEntities(text string) []Entity {
	seen := make(map[string]bool)
	var entities []Entity

	for _, ep := range e.entityPatterns {
		for _, match := range ep.pattern.FindAllString(text, -1) {
			if len([]rune(match)) < 2 {
				continue
			}
			key := match + "|" + ep.entType
			if seen[key] {
				continue
			}
			seen[key] = true
			entities = append(entities, Entity{
				Text:       match,
				Type:       ep.entType,
				Confidence: ep.confidence,
			})
		}
	}
	return entities
}

// computeStatistics 计算标注统计信息
func computeStatistics(annotations []Annotation) Statistics {
	stats := Statistics{
		TotalAnnotations: len(annotations),
		TypeDistribution: make(map[string]int),
	}
	if len(annotations) == 0 {
		return stats
	}

	var sum float64
	stats.MinConfidence = annotations[0].Confidence
	stats.MaxConfidence = annotations[0].Confidence
	for _, ann := range annotations {
		stats.TypeDistribution[string(ann.Type)]++
		sum += ann.Confidence
		if ann.Confidence < stats.MinConfidence {
			stats.MinConfidence = ann.Confidence
		}
		if ann.Confidence > stats.MaxConfidence {
			stats.MaxConfidence = ann.Confidence
		}
	}
	stats.AverageConfidence = sum / float64(len(annotations))
	return stats
}
