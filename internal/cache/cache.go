package cache

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// KeyPrefix 知识库缓存键的统一前缀
// Redis实现的Clear只清除此前缀下的键，避免影响共享实例中的其他数据
const KeyPrefix = "kb:"

// Cache 缓存接口
// 目前唯一的使用方是知识库搜索结果缓存
type Cache interface {
	Get(key string) (value string, found bool, err error)
	Set(key string, value string, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Factory 缓存工厂函数类型
type Factory func(config Config) (Cache, error)

// 注册的缓存实现
var registry = make(map[string]Factory)

// RegisterCache 注册缓存实现
func RegisterCache(name string, factory Factory) {
	registry[name] = factory
}

// NewCache 创建缓存实例
// 类型未指定时默认使用内存缓存，未注册的类型返回错误
func NewCache(config Config) (Cache, error) {
	if config.Type == "" {
		return NewMemoryCache(config)
	}
	factory, ok := registry[config.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported cache type: %s", config.Type)
	}
	return factory(config)
}

// Config 缓存配置
type Config struct {
	// 缓存类型: "memory", "redis"
	Type string
	// Redis连接地址 (仅Redis缓存使用)
	RedisAddr string
	// Redis密码 (仅Redis缓存使用)
	RedisPassword string
	// Redis数据库编号 (仅Redis缓存使用)
	RedisDB int
	// 默认缓存过期时间
	DefaultTTL time.Duration
	// 自动清理间隔时间 (仅内存缓存使用)
	CleanupInterval time.Duration
}

// DefaultConfig 返回默认缓存配置
func DefaultConfig() Config {
	return Config{
		Type:            "memory",
		DefaultTTL:      time.Hour * 24,
		CleanupInterval: time.Minute * 10,
	}
}

// SearchKey 生成知识库搜索结果的缓存键
// 查询内容做哈希截断，避免中文长查询产生超长键；
// 相同的(索引, 模式, topK, 查询)组合总是得到相同的键
func SearchKey(index, mode, query string, topK int) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("%ssearch:%s:%s:%d:%x", KeyPrefix, index, mode, topK, sum[:8])
}
