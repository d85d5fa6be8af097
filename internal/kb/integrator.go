package kb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/med-kb-engine/internal/cache"
	"github.com/fyerfyer/med-kb-engine/internal/qagen"
	"github.com/fyerfyer/med-kb-engine/internal/searchengine"
)

// IndexPrefix 知识库索引的固定前缀
// 列表与删除操作仅作用于此前缀下的索引
const IndexPrefix = "medical_pathology_kb"

// ErrNotDomainIndex 索引不属于知识库前缀
var ErrNotDomainIndex = errors.New("index is not under the knowledge base prefix")

// CreateResult 索引创建结果
type CreateResult struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	IndexName string `json:"index_name"`
	CreatedAt string `json:"created_at,omitempty"`
}

// IntegrationReport 数据集入库结果
type IntegrationReport struct {
	Success               bool     `json:"success"`
	Error                 string   `json:"error,omitempty"`
	IndexName             string   `json:"index_name"`
	TotalProcessed        int      `json:"total_processed"`
	TotalDocumentsCreated int      `json:"total_documents_created"`
	TotalIndexed          int      `json:"total_indexed"`
	IndexErrors           []string `json:"index_errors,omitempty"`
	IntegrationTime       string   `json:"integration_time,omitempty"`
}

// SearchReport 知识库搜索结果
type SearchReport struct {
	Success      bool                        `json:"success"`
	Error        string                      `json:"error,omitempty"`
	Query        string                      `json:"query"`
	SearchType   string                      `json:"search_type"`
	TotalResults int                         `json:"total_results"`
	Results      []searchengine.SearchResult `json:"results"`
	SearchTime   string                      `json:"search_time,omitempty"`
	FromCache    bool                        `json:"from_cache,omitempty"`
}

// IndicesReport 知识库索引列表
type IndicesReport struct {
	Success     bool                                `json:"success"`
	Error       string                              `json:"error,omitempty"`
	Total       int                                 `json:"total_medical_indices"`
	Indices     []string                            `json:"medical_indices"`
	IndicesInfo map[string]*searchengine.IndexStats `json:"indices_info,omitempty"`
}

// DeleteResult 索引删除结果
type DeleteResult struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
	IndexName string `json:"index_name"`
	DeletedAt string `json:"deleted_at,omitempty"`
}

// Integrator 知识库集成器
// 持有长生命周期的搜索引擎客户端，负责索引生命周期与数据集入库
type Integrator struct {
	engine    searchengine.Engine
	converter *Converter
	cache     cache.Cache
	cacheTTL  time.Duration
	logger    *logrus.Logger
	now       func() time.Time
}

// IntegratorOption 集成器配置选项
type IntegratorOption func(*Integrator)

// WithCache 启用搜索结果缓存
func WithCache(c cache.Cache, ttl time.Duration) IntegratorOption {
	return func(i *Integrator) {
		i.cache = c
		i.cacheTTL = ttl
	}
}

// WithClock 注入时间源，用于测试时间戳命名
func WithClock(now func() time.Time) IntegratorOption {
	return func(i *Integrator) {
		i.now = now
	}
}

// NewIntegrator 创建知识库集成器
func NewIntegrator(engine searchengine.Engine, logger *logrus.Logger, opts ...IntegratorOption) *Integrator {
	if logger == nil {
		logger = logrus.New()
	}
	i := &Integrator{
		engine:    engine,
		converter: NewConverter(logger),
		cacheTTL:  time.Minute * 5,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// CreateIndex 创建知识库索引
// 名称为空时按时间戳自动命名，非前缀名称会被补全前缀，统一转为小写
func (i *Integrator) CreateIndex(ctx context.Context, name string) *CreateResult {
	resolved := i.resolveIndexName(name)

	if err := i.engine.CreateIndex(ctx, resolved); err != nil {
		i.logger.WithError(err).WithField("index", resolved).Error("Failed to create index")
		return &CreateResult{Success: false, Error: err.Error(), IndexName: resolved}
	}

	i.logger.WithField("index", resolved).Info("Knowledge base index created")
	return &CreateResult{
		Success:   true,
		IndexName: resolved,
		CreatedAt: i.now().Format(time.RFC3339),
	}
}

// Integrate 将问答数据集写入知识库
// 转换后一次性批量提交，失败条目在报告中逐条列出
func (i *Integrator) Integrate(ctx context.Context, pairs []qagen.QAPair, indexName string) *IntegrationReport {
	resolved := strings.ToLower(indexName)
	if resolved == "" {
		resolved = i.resolveIndexName("")
	}

	documents := i.converter.Convert(pairs)
	if len(documents) == 0 {
		return &IntegrationReport{
			Success:   false,
			Error:     "no valid documents to index",
			IndexName: resolved,
		}
	}

	report, err := i.engine.BulkIndex(ctx, resolved, documents)
	if err != nil {
		i.logger.WithError(err).WithField("index", resolved).Error("Bulk index failed")
		return &IntegrationReport{
			Success:   false,
			Error:     err.Error(),
			IndexName: resolved,
		}
	}

	i.logger.WithFields(logrus.Fields{
		"index":   resolved,
		"indexed": report.Indexed,
		"total":   report.Total,
	}).Info("QA dataset integrated")
	return &IntegrationReport{
		Success:               true,
		IndexName:             resolved,
		TotalProcessed:        len(documents) / 2,
		TotalDocumentsCreated: len(documents),
		TotalIndexed:          report.Indexed,
		IndexErrors:           report.Errors,
		IntegrationTime:       i.now().Format(time.RFC3339),
	}
}

// Search 搜索知识库
// 命中缓存时直接返回，不访问搜索引擎
func (i *Integrator) Search(ctx context.Context, indexName, query, searchType string, topK int) *SearchReport {
	mode, err := searchengine.ParseSearchMode(searchType)
	if err != nil {
		return &SearchReport{Success: false, Error: err.Error(), Query: query, SearchType: searchType}
	}
	if topK <= 0 {
		topK = 10
	}

	cacheKey := cache.SearchKey(indexName, string(mode), query, topK)
	if i.cache != nil {
		if cached, found, err := i.cache.Get(cacheKey); err == nil && found {
			var report SearchReport
			if err := json.Unmarshal([]byte(cached), &report); err == nil {
				report.FromCache = true
				return &report
			}
		}
	}

	results, err := i.engine.Search(ctx, indexName, query, mode, topK)
	if err != nil {
		i.logger.WithError(err).WithField("index", indexName).Error("Knowledge base search failed")
		return &SearchReport{Success: false, Error: err.Error(), Query: query, SearchType: string(mode)}
	}

	report := &SearchReport{
		Success:      true,
		Query:        query,
		SearchType:   string(mode),
		TotalResults: len(results),
		Results:      results,
		SearchTime:   i.now().Format(time.RFC3339),
	}

	if i.cache != nil {
		if data, err := json.Marshal(report); err == nil {
			if err := i.cache.Set(cacheKey, string(data), i.cacheTTL); err != nil {
				i.logger.WithError(err).Warn("Failed to cache search result")
			}
		}
	}
	return report
}

// ListIndices 列出知识库前缀下的全部索引及统计信息
func (i *Integrator) ListIndices(ctx context.Context) *IndicesReport {
	names, err := i.engine.ListIndices(ctx)
	if err != nil {
		return &IndicesReport{Success: false, Error: err.Error()}
	}

	report := &IndicesReport{
		Success:     true,
		Indices:     []string{},
		IndicesInfo: make(map[string]*searchengine.IndexStats),
	}
	for _, name := range names {
		if !strings.HasPrefix(name, IndexPrefix) {
			continue
		}
		report.Indices = append(report.Indices, name)
		stats, err := i.engine.IndexStats(ctx, name)
		if err != nil {
			i.logger.WithError(err).WithField("index", name).Warn("Failed to get index stats")
			continue
		}
		report.IndicesInfo[name] = stats
	}
	report.Total = len(report.Indices)
	return report
}

// DeleteIndex 删除知识库索引
// 非知识库前缀的名称属于校验错误，直接拒绝而不访问搜索引擎
func (i *Integrator) DeleteIndex(ctx context.Context, name string) *DeleteResult {
	if !strings.HasPrefix(name, IndexPrefix) {
		return &DeleteResult{
			Success:   false,
			Error:     fmt.Sprintf("%s: %s", ErrNotDomainIndex.Error(), name),
			IndexName: name,
		}
	}

	if err := i.engine.DeleteIndex(ctx, name); err != nil {
		i.logger.WithError(err).WithField("index", name).Error("Failed to delete index")
		return &DeleteResult{Success: false, Error: err.Error(), IndexName: name}
	}

	i.logger.WithField("index", name).Info("Knowledge base index deleted")
	return &DeleteResult{
		Success:   true,
		Message:   fmt.Sprintf("index %s deleted", name),
		IndexName: name,
		DeletedAt: i.now().Format(time.RFC3339),
	}
}

// resolveIndexName 规范化索引名称
// 空名称使用时间戳命名，其余名称补全前缀并转小写
func (i *Integrator) resolveIndexName(name string) string {
	if name == "" {
		return fmt.Sprintf("%s_%s", IndexPrefix, i.now().Format("20060102_150405"))
	}
	name = strings.ToLower(name)
	if !strings.HasPrefix(name, IndexPrefix) {
		name = IndexPrefix + "_" + name
	}
	return name
}
