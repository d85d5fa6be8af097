package searchengine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryEngine 内存搜索引擎
// 用于测试和本地开发，实现与外部引擎相同的接口语义
type MemoryEngine struct {
	mu      sync.RWMutex
	indices map[string]map[string]Document
}

// NewMemoryEngine 创建内存搜索引擎
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		indices: make(map[string]map[string]Document),
	}
}

// CreateIndex 创建索引
func (m *MemoryEngine) CreateIndex(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.indices[name]; exists {
		return fmt.Errorf("index %s already exists", name)
	}
	m.indices[name] = make(map[string]Document)
	return nil
}

// BulkIndex 批量写入文档
// 索引不存在时自动创建，与外部引擎的bulk行为一致
func (m *MemoryEngine) BulkIndex(ctx context.Context, index string, docs []Document) (*BulkReport, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyDocuments
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	store, exists := m.indices[index]
	if !exists {
		store = make(map[string]Document)
		m.indices[index] = store
	}

	report := &BulkReport{Total: len(docs)}
	for _, doc := range docs {
		if doc.ID == "" {
			report.Errors = append(report.Errors, "document missing id")
			continue
		}
		store[doc.ID] = doc
		report.Indexed++
	}
	return report, nil
}

// Search 按模式对索引内全部文档打分并返回前topK条
func (m *MemoryEngine) Search(ctx context.Context, index string, query string, mode SearchMode, topK int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = 10
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	store, exists := m.indices[index]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, index)
	}

	var results []SearchResult
	for _, doc := range store {
		score := scoreDocument(doc, query, mode)
		if score <= 0 {
			continue
		}
		results = append(results, SearchResult{
			Score:           score,
			DocumentType:    doc.DocumentType,
			Title:           doc.Title,
			Content:         doc.Content,
			QAPairID:        doc.QAPairID,
			DifficultyLevel: doc.DifficultyLevel,
			MedicalDomain:   doc.MedicalDomain,
			Metadata:        doc.Metadata,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Content < results[j].Content
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// ListIndices 返回排序后的索引名称列表
func (m *MemoryEngine) ListIndices(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.indices))
	for name := range m.indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// IndexStats 返回索引的文档数量
func (m *MemoryEngine) IndexStats(ctx context.Context, name string) (*IndexStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	store, exists := m.indices[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}
	return &IndexStats{Name: name, DocumentCount: len(store)}, nil
}

// DeleteIndex 删除索引
func (m *MemoryEngine) DeleteIndex(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.indices[name]; !exists {
		return fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}
	delete(m.indices, name)
	return nil
}

// scoreDocument 计算文档与查询的相关度
// 精确分为短语出现次数，语义分为字符二元组重合率
func scoreDocument(doc Document, query string, mode SearchMode) float64 {
	text := doc.Title + " " + doc.Content

	exact := float64(strings.Count(text, query))
	semantic := bigramOverlap(query, text)

	switch mode {
	case ModeExact:
		return exact
	case ModeSemantic:
		return semantic
	default:
		return hybridExactWeight*exact + hybridSemanticWeight*semantic
	}
}

// bigramOverlap 查询字符二元组在目标文本中的命中比例
func bigramOverlap(query, text string) float64 {
	queryRunes := []rune(query)
	if len(queryRunes) < 2 {
		if strings.Contains(text, query) {
			return 1.0
		}
		return 0.0
	}

	hits := 0
	total := len(queryRunes) - 1
	for i := 0; i < total; i++ {
		if strings.Contains(text, string(queryRunes[i:i+2])) {
			hits++
		}
	}
	return float64(hits) / float64(total)
}
