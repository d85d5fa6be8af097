package searchengine

import (
	"context"
	"fmt"
	"time"
)

// Engine 外部搜索引擎的统一接口
// 核心流水线只依赖此接口，测试时可替换为内存实现
type Engine interface {
	// CreateIndex 创建索引
	CreateIndex(ctx context.Context, name string) error

	// BulkIndex 批量写入文档
	BulkIndex(ctx context.Context, index string, docs []Document) (*BulkReport, error)

	// Search 按指定模式搜索
	Search(ctx context.Context, index string, query string, mode SearchMode, topK int) ([]SearchResult, error)

	// ListIndices 列出全部索引名称
	ListIndices(ctx context.Context) ([]string, error)

	// IndexStats 获取单个索引的统计信息
	IndexStats(ctx context.Context, name string) (*IndexStats, error)

	// DeleteIndex 删除索引
	DeleteIndex(ctx context.Context, name string) error
}

// Factory 搜索引擎工厂函数类型
type Factory func(config Config) (Engine, error)

// 注册的搜索引擎实现
var registry = make(map[string]Factory)

// RegisterEngine 注册搜索引擎实现
func RegisterEngine(name string, factory Factory) {
	registry[name] = factory
}

// NewEngine 创建搜索引擎实例
// 类型未指定时默认使用内存实现，未注册的类型返回错误
func NewEngine(config Config) (Engine, error) {
	if config.Type == "" {
		return NewMemoryEngine(), nil
	}
	factory, ok := registry[config.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported search engine type: %s", config.Type)
	}
	return factory(config)
}

// Config 搜索引擎配置
type Config struct {
	// 引擎类型: "elastic", "memory"
	Type string
	// 服务地址 (仅elastic使用)
	Host string
	// API凭证 (仅elastic使用)
	APIKey string
	// 单次请求超时
	Timeout time.Duration
	// 瞬时故障的最大重试次数
	MaxRetries int
}

// DefaultConfig 返回默认搜索引擎配置
func DefaultConfig() Config {
	return Config{
		Type:       "memory",
		Host:       "http://localhost:9200",
		Timeout:    time.Second * 30,
		MaxRetries: 3,
	}
}

func init() {
	RegisterEngine("memory", func(config Config) (Engine, error) {
		return NewMemoryEngine(), nil
	})
	RegisterEngine("elastic", func(config Config) (Engine, error) {
		return NewESClient(config)
	})
}
