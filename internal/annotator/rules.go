package annotator

import (
	"regexp"
)

// RuleExtractor 规则提取器
// 通过正则模式捕获词典未覆盖的术语变体，置信度低于词典命中
type RuleExtractor struct {
	name       string
	rules      map[AnnotationType][]*regexp.Regexp
	confidence float64
}

// NewRuleExtractor 创建规则提取器
func NewRuleExtractor(name string, rules map[AnnotationType][]*regexp.Regexp, confidence float64) *RuleExtractor {
	return &RuleExtractor{
		name:       name,
		rules:      rules,
		confidence: confidence,
	}
}

// Name 返回提取器名称
func (r *RuleExtractor) Name() string {
	return r.name
}

// Extract 对文本执行全部模式匹配
func (r *RuleExtractor) Extract(text string, types []AnnotationType) []Annotation {
	wanted := typeSet(types)
	var annotations []Annotation

	for annType, patterns := range r.rules {
		if wanted != nil && !wanted[annType] {
			continue
		}
		for _, pattern := range patterns {
			for _, loc := range pattern.FindAllStringIndex(text, -1) {
				annotations = append(annotations, Annotation{
					Text:       text[loc[0]:loc[1]],
					StartPos:   loc[0],
					EndPos:     loc[1],
					Type:       annType,
					Confidence: r.confidence,
					Metadata: map[string]interface{}{
						"source":  "rule",
						"pattern": pattern.String(),
					},
				})
			}
		}
	}
	return annotations
}

// DefaultRules 病理文本的默认匹配规则
func DefaultRules() map[AnnotationType][]*regexp.Regexp {
	return map[AnnotationType][]*regexp.Regexp{
		TypeDisease: {
			regexp.MustCompile(`(?:腺|鳞|髓样|印戒细胞)癌`),
			regexp.MustCompile(`(?:恶性|良性)肿瘤`),
			regexp.MustCompile(`[\p{Han}]{1,4}肉瘤`),
		},
		TypePathology: {
			regexp.MustCompile(`细胞(?:异型性|多形性|核大深染)`),
			regexp.MustCompile(`核(?:分裂象|质比)(?:增[高多])?`),
			regexp.MustCompile(`组织(?:结构|形态)(?:紊乱|破坏)?`),
			regexp.MustCompile(`(?:凝固性|液化性|干酪样)坏死`),
		},
		TypeAnatomy: {
			regexp.MustCompile(`(?:上皮|间质|血管|神经|淋巴)(?:细胞|组织)`),
			regexp.MustCompile(`(?:腺体|导管|腺泡|基底膜)`),
		},
		TypeDiagnosticMethod: {
			regexp.MustCompile(`(?:HE|苏木素-伊红)染色`),
			regexp.MustCompile(`(?:CT|MRI|PET-CT|X线)(?:检查|扫描)?`),
		},
	}
}
