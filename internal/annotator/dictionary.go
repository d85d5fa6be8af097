package annotator

import (
	"strings"
)

// DictionaryExtractor 词典提取器
// 在文本中查找词典条目的全部出现位置
// 未配置评分器时使用固定置信度
type DictionaryExtractor struct {
	name         string
	dictionaries map[AnnotationType][]string
	confidence   float64
	scorer       *ContextScorer
}

// DictionaryOption 词典提取器配置选项
type DictionaryOption func(*DictionaryExtractor)

// WithContextScorer 启用上下文置信度评分
func WithContextScorer(scorer *ContextScorer) DictionaryOption {
	return func(d *DictionaryExtractor) {
		d.scorer = scorer
	}
}

// NewDictionaryExtractor 创建词典提取器
func NewDictionaryExtractor(name string, dictionaries map[AnnotationType][]string, confidence float64, opts ...DictionaryOption) *DictionaryExtractor {
	d := &DictionaryExtractor{
		name:         name,
		dictionaries: dictionaries,
		confidence:   confidence,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name 返回提取器名称
func (d *DictionaryExtractor) Name() string {
	return d.name
}

// Extract 查找所有词典条目的出现位置
func (d *DictionaryExtractor) Extract(text string, types []AnnotationType) []Annotation {
	wanted := typeSet(types)
	var annotations []Annotation

	for annType, terms := range d.dictionaries {
		if wanted != nil && !wanted[annType] {
			continue
		}
		for _, term := range terms {
			offset := 0
			for {
				idx := strings.Index(text[offset:], term)
				if idx < 0 {
					break
				}
				start := offset + idx
				end := start + len(term)

				confidence := d.confidence
				if d.scorer != nil {
					confidence = d.scorer.Score(term, text, start)
				}

				annotations = append(annotations, Annotation{
					Text:       term,
					StartPos:   start,
					EndPos:     end,
					Type:       annType,
					Confidence: confidence,
					Metadata: map[string]interface{}{
						"source":     "dictionary",
						"dictionary": d.name,
					},
				})
				offset = end
			}
		}
	}
	return annotations
}

// typeSet 将类型列表转换为查询集合，nil表示不过滤
func typeSet(types []AnnotationType) map[AnnotationType]bool {
	if len(types) == 0 {
		return nil
	}
	set := make(map[AnnotationType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

// DefaultDictionaries 病理领域核心术语词典
func DefaultDictionaries() map[AnnotationType][]string {
	return map[AnnotationType][]string{
		TypeDisease: {
			"肺癌", "胃癌", "肝癌", "乳腺癌", "结肠癌", "直肠癌", "食管癌",
			"宫颈癌", "前列腺癌", "白血病", "淋巴瘤", "黑色素瘤",
			"肺炎", "肝炎", "胃炎", "肾炎", "糖尿病", "高血压",
		},
		TypeSymptom: {
			"咳嗽", "咯血", "胸痛", "腹痛", "发热", "乏力", "消瘦",
			"黄疸", "呕吐", "腹泻", "便血", "头痛", "眩晕", "水肿",
		},
		TypeTreatment: {
			"手术切除", "化疗", "放疗", "靶向治疗", "免疫治疗",
			"姑息治疗", "根治术", "介入治疗",
		},
		TypeAnatomy: {
			"肺", "肝脏", "胃", "肾脏", "乳腺", "淋巴结", "胸膜",
			"支气管", "食管", "结肠", "直肠", "胰腺", "脾脏",
		},
		TypePathology: {
			"异型性", "核分裂象", "坏死", "纤维化", "钙化",
			"浸润", "转移", "分化", "增生", "化生", "间变",
		},
		TypeDiagnosticMethod: {
			"病理检查", "活检", "穿刺", "免疫组化", "冰冻切片",
			"细胞学检查", "基因检测",
		},
		TypeMedication: {
			"顺铂", "紫杉醇", "吉非替尼", "曲妥珠单抗", "泼尼松",
		},
	}
}

// ClinicalDictionaries 临床流程术语词典
// 这些术语的置信度依赖上下文，配合ContextScorer使用
func ClinicalDictionaries() map[AnnotationType][]string {
	return map[AnnotationType][]string{
		TypeSymptom: {
			"主诉", "现病史", "体征", "临床表现",
		},
		TypeDiagnosticMethod: {
			"影像学检查", "实验室检查", "内镜检查", "超声检查",
			"鉴别诊断", "病理诊断", "临床诊断",
		},
		TypeTreatment: {
			"治疗方案", "辅助治疗", "对症治疗", "术后随访",
		},
	}
}
