package kb

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/med-kb-engine/internal/qagen"
	"github.com/fyerfyer/med-kb-engine/internal/searchengine"
)

const (
	// 文档标题预览的最大长度（字符数）
	titlePreviewRunes = 50

	documentSource = "med-kb-engine"
	defaultDomain  = "pathology"
)

// Converter 将问答对转换为可索引的知识文档
// 每个问答对产出一个问题文档和一个答案文档，互相携带对方的ID引用
type Converter struct {
	logger *logrus.Logger
}

// NewConverter 创建文档转换器
func NewConverter(logger *logrus.Logger) *Converter {
	if logger == nil {
		logger = logrus.New()
	}
	return &Converter{logger: logger}
}

// Convert 转换问答对列表
// 缺少问题或答案的条目跳过并记录日志，不中断转换
func (c *Converter) Convert(pairs []qagen.QAPair) []searchengine.Document {
	documents := make([]searchengine.Document, 0, len(pairs)*2)

	for i, pair := range pairs {
		if pair.Question == "" || pair.Answer == "" {
			c.logger.WithFields(logrus.Fields{
				"position": i,
				"pair_id":  pair.ID,
			}).Warn("QA pair missing question or answer, skipped")
			continue
		}

		pairID := pair.ID
		if pairID == "" {
			pairID = fmt.Sprintf("qa_%d", i)
		}
		questionID := fmt.Sprintf("qa_%d_question", i)
		answerID := fmt.Sprintf("qa_%d_answer", i)
		now := time.Now()
		preview := truncateRunes(pair.Question, titlePreviewRunes)

		documents = append(documents, searchengine.Document{
			ID:              questionID,
			Title:           "医疗问题: " + preview,
			Content:         pair.Question,
			DocumentType:    "question",
			QAPairID:        pairID,
			DifficultyLevel: string(pair.Difficulty),
			QuestionType:    string(pair.QuestionType),
			MedicalDomain:   defaultDomain,
			Source:          documentSource,
			CreateTime:      now,
			Metadata: map[string]interface{}{
				"is_question":       true,
				"related_answer_id": answerID,
				"quality_score":     pair.QualityScore,
				"keywords":          pair.Keywords,
			},
		})
		documents = append(documents, searchengine.Document{
			ID:              answerID,
			Title:           "医疗答案: " + preview,
			Content:         pair.Answer,
			DocumentType:    "answer",
			QAPairID:        pairID,
			DifficultyLevel: string(pair.Difficulty),
			QuestionType:    string(pair.QuestionType),
			MedicalDomain:   defaultDomain,
			Source:          documentSource,
			CreateTime:      now,
			Metadata: map[string]interface{}{
				"is_question":         false,
				"related_question_id": questionID,
				"quality_score":       pair.QualityScore,
				"keywords":            pair.Keywords,
				"answer_length":       utf8.RuneCountInString(pair.Answer),
				"medical_terms":       pair.Keywords,
			},
		})
	}

	c.logger.WithField("documents", len(documents)).Info("QA pairs converted to documents")
	return documents
}

// truncateRunes 按字符数截断并追加省略号
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
