package annotator

import (
	"fmt"
)

// AnnotationType 标注类型
// 封闭枚举：所有标注的类别都必须来自此集合，构造时校验
type AnnotationType string

const (
	// TypeMedicalTerm 通用医学术语
	TypeMedicalTerm AnnotationType = "medical_term"
	// TypeDisease 疾病
	TypeDisease AnnotationType = "disease"
	// TypeSymptom 症状
	TypeSymptom AnnotationType = "symptom"
	// TypeTreatment 治疗
	TypeTreatment AnnotationType = "treatment"
	// TypeAnatomy 解剖结构
	TypeAnatomy AnnotationType = "anatomy"
	// TypePathology 病理特征
	TypePathology AnnotationType = "pathology"
	// TypeDiagnosticMethod 诊断方法
	TypeDiagnosticMethod AnnotationType = "diagnostic_method"
	// TypeMedication 药物
	TypeMedication AnnotationType = "medication"
)

// AllTypes 返回全部标注类型
func AllTypes() []AnnotationType {
	return []AnnotationType{
		TypeMedicalTerm,
		TypeDisease,
		TypeSymptom,
		TypeTreatment,
		TypeAnatomy,
		TypePathology,
		TypeDiagnosticMethod,
		TypeMedication,
	}
}

// ParseType 将字符串解析为标注类型
// 不在枚举内的类别名返回错误，防止来源词典中的类别拼写错误被悄悄接受
func ParseType(s string) (AnnotationType, error) {
	for _, t := range AllTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown annotation type: %s", s)
}

// Annotation 文本标注
// 跨度为半开区间[StartPos, EndPos)，使用字节偏移
type Annotation struct {
	Text       string                 `json:"text"`       // 标注文本
	StartPos   int                    `json:"start_pos"`  // 起始位置
	EndPos     int                    `json:"end_pos"`    // 结束位置
	Type       AnnotationType         `json:"type"`       // 标注类型
	Confidence float64                `json:"confidence"` // 置信度[0,1]
	Metadata   map[string]interface{} `json:"metadata"`   // 来源与模式等附加信息
}

// NewAnnotation 创建标注并校验跨度与类型
func NewAnnotation(text string, start, end int, annType AnnotationType, confidence float64, metadata map[string]interface{}) (Annotation, error) {
	if start < 0 || start >= end {
		return Annotation{}, fmt.Errorf("invalid annotation span [%d,%d)", start, end)
	}
	if _, err := ParseType(string(annType)); err != nil {
		return Annotation{}, err
	}
	return Annotation{
		Text:       text,
		StartPos:   start,
		EndPos:     end,
		Type:       annType,
		Confidence: confidence,
		Metadata:   metadata,
	}, nil
}

// Length 返回标注跨度长度
func (a Annotation) Length() int {
	return a.EndPos - a.StartPos
}

// Overlaps 判断两个标注的跨度是否相交
func (a Annotation) Overlaps(other Annotation) bool {
	return a.StartPos < other.EndPos && other.StartPos < a.EndPos
}

// SemanticRelation 语义关系
// 从满足至少两个捕获组的模式匹配中提取主语-宾语关系
type SemanticRelation struct {
	Type     string `json:"type"`      // 关系类型
	Subject  string `json:"subject"`   // 主语
	Object   string `json:"object"`    // 宾语
	Context  string `json:"context"`   // 完整匹配上下文
	StartPos int    `json:"start_pos"` // 起始位置
	EndPos   int    `json:"end_pos"`   // 结束位置
}

// Entity 关键实体
// 按(文本,类型)去重
type Entity struct {
	Text       string  `json:"text"`       // 实体文本
	Type       string  `json:"type"`       // 实体类型（disease/anatomy等）
	Confidence float64 `json:"confidence"` // 置信度
}

// Statistics 单次标注的统计信息
type Statistics struct {
	TotalAnnotations  int            `json:"total_annotations"`  // 标注总数
	TypeDistribution  map[string]int `json:"type_distribution"`  // 按类型统计
	AverageConfidence float64        `json:"average_confidence"` // 平均置信度
	MinConfidence     float64        `json:"min_confidence"`     // 最低置信度
	MaxConfidence     float64        `json:"max_confidence"`     // 最高置信度
}

// Result 标注结果
type Result struct {
	Success           bool               `json:"success"`
	Error             string             `json:"error,omitempty"`
	OriginalText      string             `json:"original_text"`
	ContentType       string             `json:"content_type"`
	Annotations       []Annotation       `json:"annotations"`
	SemanticRelations []SemanticRelation `json:"semantic_relations"`
	Entities          []Entity           `json:"entities"`
	Statistics        Statistics         `json:"statistics"`
}

// BatchReport 批量标注报告
type BatchReport struct {
	Success             bool      `json:"success"`
	TotalDocuments      int       `json:"total_documents"`
	SuccessfulDocuments int       `json:"successful_documents"`
	TotalAnnotations    int       `json:"total_annotations"`
	Results             []*Result `json:"results"`
}
