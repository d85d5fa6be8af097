package qagen

// QuestionType 问题类型
type QuestionType string

const (
	// TypeDefinition 定义类问题
	TypeDefinition QuestionType = "definition"
	// TypeSymptoms 症状类问题
	TypeSymptoms QuestionType = "symptoms"
	// TypeDiagnosis 诊断类问题
	TypeDiagnosis QuestionType = "diagnosis"
	// TypeTreatment 治疗类问题
	TypeTreatment QuestionType = "treatment"
	// TypePathology 病理类问题
	TypePathology QuestionType = "pathology"
	// TypeDifferential 鉴别类问题
	TypeDifferential QuestionType = "differential"
)

// QuestionTypes 问题类型的固定分配顺序
// 余数按此顺序分配给靠前的类型
func QuestionTypes() []QuestionType {
	return []QuestionType{
		TypeDefinition,
		TypeSymptoms,
		TypeDiagnosis,
		TypeTreatment,
		TypePathology,
		TypeDifferential,
	}
}

// Difficulty 问题难度
type Difficulty string

const (
	// DifficultyEasy 基础概念和常见疾病
	DifficultyEasy Difficulty = "easy"
	// DifficultyMedium 临床诊断和治疗
	DifficultyMedium Difficulty = "medium"
	// DifficultyHard 病理机制和复杂病例
	DifficultyHard Difficulty = "hard"
)

// QAPair 问答对
// 问题与答案均不允许为空
type QAPair struct {
	ID           string       `json:"id"`
	Question     string       `json:"question"`
	Answer       string       `json:"answer"`
	QuestionType QuestionType `json:"question_type"`
	Difficulty   Difficulty   `json:"difficulty"`
	Keywords     []string     `json:"keywords"`
	Entity       string       `json:"entity"`
	QualityScore float64      `json:"quality_score"`
}

// KeyInfo 从标注结果中按角色归类的实体集合
type KeyInfo struct {
	Diseases       []string `json:"diseases"`
	Symptoms       []string `json:"symptoms"`
	Treatments     []string `json:"treatments"`
	Anatomy        []string `json:"anatomy"`
	PathologyTerms []string `json:"pathology_terms"`
	DiagnosisTerms []string `json:"diagnosis_terms"`
}

// DatasetInfo 数据集生成信息
type DatasetInfo struct {
	TotalQAPairs        int    `json:"total_qa_pairs"`
	GenerationTime      string `json:"generation_time"`
	SourceContentLength int    `json:"source_content_length"`
	AnnotationCount     int    `json:"annotation_count"`
}

// Statistics 数据集统计信息
type Statistics struct {
	DifficultyDistribution map[string]int `json:"difficulty_distribution"`
	TypeDistribution       map[string]int `json:"question_type_distribution"`
	AverageQualityScore    float64        `json:"average_quality_score"`
	TotalKeywords          int            `json:"total_keywords"`
	AverageQuestionLength  float64        `json:"average_question_length"`
	AverageAnswerLength    float64        `json:"average_answer_length"`
}

// QualityMetrics 数据集质量指标
// overall为三项均值
type QualityMetrics struct {
	Completeness    float64 `json:"completeness"`
	Diversity       float64 `json:"diversity"`
	Professionalism float64 `json:"professionalism"`
	OverallQuality  float64 `json:"overall_quality"`
}

// Result 生成结果
// 任一阶段失败时返回空数据集与错误信息，不返回部分结果
type Result struct {
	Success        bool           `json:"success"`
	Error          string         `json:"error,omitempty"`
	DatasetInfo    DatasetInfo    `json:"dataset_info"`
	QAPairs        []QAPair       `json:"qa_pairs"`
	Statistics     Statistics     `json:"statistics"`
	QualityMetrics QualityMetrics `json:"quality_metrics"`
}
