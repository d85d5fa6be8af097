package searchengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// 混合搜索中精确匹配与语义匹配的固定权重
const (
	hybridExactWeight    = 0.3
	hybridSemanticWeight = 0.7
)

// ESClient Elasticsearch搜索引擎客户端
// 使用HTTP REST接口，对瞬时故障做有限次指数退避重试
// 客户端为长生命周期对象，应在多次调用间复用
type ESClient struct {
	host       string
	apiKey     string
	httpClient *http.Client
	maxRetries int
}

// NewESClient 创建Elasticsearch客户端
func NewESClient(config Config) (*ESClient, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("elasticsearch host is required")
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = time.Second * 30
	}

	return &ESClient{
		host:       strings.TrimRight(config.Host, "/"),
		apiKey:     config.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: config.MaxRetries,
	}, nil
}

// CreateIndex 创建索引并设置字段映射
func (c *ESClient) CreateIndex(ctx context.Context, name string) error {
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id":               map[string]string{"type": "keyword"},
				"title":            map[string]string{"type": "text"},
				"content":          map[string]string{"type": "text"},
				"document_type":    map[string]string{"type": "keyword"},
				"qa_pair_id":       map[string]string{"type": "keyword"},
				"difficulty_level": map[string]string{"type": "keyword"},
				"question_type":    map[string]string{"type": "keyword"},
				"medical_domain":   map[string]string{"type": "keyword"},
				"create_time":      map[string]string{"type": "date"},
			},
		},
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal index mapping: %w", err)
	}

	status, respBody, err := c.doRequest(ctx, http.MethodPut, "/"+name, body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("create index %s failed (status %d): %s", name, status, respBody)
	}
	return nil
}

// BulkIndex 通过bulk接口批量写入文档
// 统计状态为200/201的条目数，单条失败不影响其余条目
func (c *ESClient) BulkIndex(ctx context.Context, index string, docs []Document) (*BulkReport, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyDocuments
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for _, doc := range docs {
		action := map[string]map[string]string{
			"index": {"_index": index, "_id": doc.ID},
		}
		if err := encoder.Encode(action); err != nil {
			return nil, fmt.Errorf("failed to encode bulk action: %w", err)
		}
		if err := encoder.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode document %s: %w", doc.ID, err)
		}
	}

	status, respBody, err := c.doRequest(ctx, http.MethodPost,
		"/"+index+"/_bulk?refresh=wait_for", buf.Bytes())
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("bulk index failed (status %d): %s", status, respBody)
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
		Items  []struct {
			Index struct {
				Status int `json:"status"`
				Error  *struct {
					Reason string `json:"reason"`
				} `json:"error"`
			} `json:"index"`
		} `json:"items"`
	}
	if err := json.Unmarshal(respBody, &bulkResp); err != nil {
		return nil, fmt.Errorf("failed to parse bulk response: %w", err)
	}

	report := &BulkReport{Total: len(docs)}
	for _, item := range bulkResp.Items {
		if item.Index.Status == http.StatusOK || item.Index.Status == http.StatusCreated {
			report.Indexed++
			continue
		}
		if item.Index.Error != nil {
			report.Errors = append(report.Errors, item.Index.Error.Reason)
		}
	}
	return report, nil
}

// Search 按模式构造查询并返回排序结果
func (c *ESClient) Search(ctx context.Context, index string, query string, mode SearchMode, topK int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = 10
	}

	body, err := json.Marshal(map[string]interface{}{
		"size":  topK,
		"query": c.buildQuery(query, mode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	status, respBody, err := c.doRequest(ctx, http.MethodPost, "/"+index+"/_search", body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, index)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("search failed (status %d): %s", status, respBody)
	}

	var searchResp struct {
		Hits struct {
			Hits []struct {
				Score  float64  `json:"_score"`
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(respBody, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	results := make([]SearchResult, 0, len(searchResp.Hits.Hits))
	for _, hit := range searchResp.Hits.Hits {
		results = append(results, SearchResult{
			Score:           hit.Score,
			DocumentType:    hit.Source.DocumentType,
			Title:           hit.Source.Title,
			Content:         hit.Source.Content,
			QAPairID:        hit.Source.QAPairID,
			DifficultyLevel: hit.Source.DifficultyLevel,
			MedicalDomain:   hit.Source.MedicalDomain,
			Metadata:        hit.Source.Metadata,
		})
	}
	return results, nil
}

// buildQuery 根据搜索模式构造查询体
func (c *ESClient) buildQuery(query string, mode SearchMode) map[string]interface{} {
	exact := map[string]interface{}{
		"match_phrase": map[string]interface{}{
			"content": map[string]interface{}{
				"query": query,
			},
		},
	}
	semantic := map[string]interface{}{
		"multi_match": map[string]interface{}{
			"query":     query,
			"fields":    []string{"title", "content^2"},
			"fuzziness": "AUTO",
		},
	}

	switch mode {
	case ModeExact:
		return exact
	case ModeSemantic:
		return semantic
	default:
		// 混合模式，语义相关性占主要权重
		exact["match_phrase"].(map[string]interface{})["content"].(map[string]interface{})["boost"] = hybridExactWeight
		semantic["multi_match"].(map[string]interface{})["boost"] = hybridSemanticWeight
		return map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{exact, semantic},
			},
		}
	}
}

// ListIndices 列出全部索引名称
func (c *ESClient) ListIndices(ctx context.Context) ([]string, error) {
	status, respBody, err := c.doRequest(ctx, http.MethodGet, "/_cat/indices?format=json", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list indices failed (status %d): %s", status, respBody)
	}

	var entries []struct {
		Index string `json:"index"`
	}
	if err := json.Unmarshal(respBody, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse indices response: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Index)
	}
	return names, nil
}

// IndexStats 获取索引的文档数量
func (c *ESClient) IndexStats(ctx context.Context, name string) (*IndexStats, error) {
	status, respBody, err := c.doRequest(ctx, http.MethodGet, "/"+name+"/_count", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("index stats failed (status %d): %s", status, respBody)
	}

	var countResp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(respBody, &countResp); err != nil {
		return nil, fmt.Errorf("failed to parse count response: %w", err)
	}
	return &IndexStats{Name: name, DocumentCount: countResp.Count}, nil
}

// DeleteIndex 删除索引
func (c *ESClient) DeleteIndex(ctx context.Context, name string) error {
	status, respBody, err := c.doRequest(ctx, http.MethodDelete, "/"+name, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}
	if status != http.StatusOK {
		return fmt.Errorf("delete index %s failed (status %d): %s", name, status, respBody)
	}
	return nil
}

// doRequest 发送HTTP请求并读取响应
// 网络错误和5xx响应会触发指数退避重试，4xx直接返回不重试
func (c *ESClient) doRequest(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, nil, ctx.Err()
			case <-time.After(time.Duration(1<<attempt) * 100 * time.Millisecond):
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.host+path, reader)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "ApiKey "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error (status %d): %s", resp.StatusCode, respBody)
			continue
		}
		return resp.StatusCode, respBody, nil
	}
	return 0, nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}
