package searchengine

import (
	"errors"
	"fmt"
	"time"
)

// 常用错误定义
var (
	ErrIndexNotFound    = errors.New("index not found")
	ErrInvalidIndexName = errors.New("invalid index name")
	ErrEmptyQuery       = errors.New("empty search query")
	ErrEmptyDocuments   = errors.New("no documents to index")
)

// SearchMode 搜索模式
type SearchMode string

const (
	// ModeExact 精确匹配
	ModeExact SearchMode = "exact"
	// ModeSemantic 语义相关匹配
	ModeSemantic SearchMode = "semantic"
	// ModeHybrid 混合匹配，语义权重更高
	ModeHybrid SearchMode = "hybrid"
)

// ParseSearchMode 解析搜索模式
// 兼容外部接口中的accurate别名
func ParseSearchMode(s string) (SearchMode, error) {
	switch s {
	case "exact", "accurate":
		return ModeExact, nil
	case "semantic":
		return ModeSemantic, nil
	case "hybrid", "":
		return ModeHybrid, nil
	}
	return "", fmt.Errorf("unsupported search mode: %s", s)
}

// Document 可索引的知识文档
// 每个问答对的问题面和答案面各对应一个文档
type Document struct {
	ID              string                 `json:"id"`               // 文档ID
	Title           string                 `json:"title"`            // 标题
	Content         string                 `json:"content"`          // 正文内容
	DocumentType    string                 `json:"document_type"`    // question或answer
	QAPairID        string                 `json:"qa_pair_id"`       // 所属问答对ID
	DifficultyLevel string                 `json:"difficulty_level"` // 难度等级
	QuestionType    string                 `json:"question_type"`    // 问题类型
	MedicalDomain   string                 `json:"medical_domain"`   // 医学领域
	Source          string                 `json:"source"`           // 数据来源
	CreateTime      time.Time              `json:"create_time"`      // 创建时间
	Metadata        map[string]interface{} `json:"metadata"`         // 反向引用等附加信息
}

// SearchResult 搜索结果
type SearchResult struct {
	Score           float64                `json:"score"`
	DocumentType    string                 `json:"document_type"`
	Title           string                 `json:"title"`
	Content         string                 `json:"content"`
	QAPairID        string                 `json:"qa_pair_id"`
	DifficultyLevel string                 `json:"difficulty_level"`
	MedicalDomain   string                 `json:"medical_domain"`
	Metadata        map[string]interface{} `json:"metadata"`
}

// BulkReport 批量索引结果
type BulkReport struct {
	Total   int      `json:"total"`   // 提交的文档总数
	Indexed int      `json:"indexed"` // 被接受的文档数
	Errors  []string `json:"errors"`  // 单条失败原因
}

// IndexStats 索引统计信息
type IndexStats struct {
	Name          string `json:"name"`
	DocumentCount int    `json:"document_count"`
	SizeInBytes   int64  `json:"size_in_bytes,omitempty"`
}
