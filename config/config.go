package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Database     DatabaseConfig     `mapstructure:"database"`
	SearchEngine SearchEngineConfig `mapstructure:"search_engine"`
	Pipeline     PipelineConfig     `mapstructure:"pipeline"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"` // 服务器主机
	Port int    `mapstructure:"port"` // 服务器端口
}

// StorageConfig 存储配置
// 用于保存上传的原始语料文件
type StorageConfig struct {
	Type      string `mapstructure:"type"`     // 存储类型：local 或 minio
	Path      string `mapstructure:"path"`     // 本地存储路径
	Bucket    string `mapstructure:"bucket"`   // MinIO桶名称
	Endpoint  string `mapstructure:"endpoint"` // MinIO端点
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"` // 是否使用SSL
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enable   bool   `mapstructure:"enable"`   // 是否启用缓存
	Type     string `mapstructure:"type"`     // 缓存类型：memory 或 redis
	Address  string `mapstructure:"address"`  // Redis地址
	Password string `mapstructure:"password"` // Redis密码
	DB       int    `mapstructure:"db"`       // Redis数据库
	TTL      int    `mapstructure:"ttl"`      // 缓存TTL（秒）
}

// QueueConfig 任务队列配置
type QueueConfig struct {
	Enable        bool   `mapstructure:"enable"`         // 是否启用任务队列
	Type          string `mapstructure:"type"`           // 队列类型：redis
	RedisAddr     string `mapstructure:"redis_addr"`     // Redis地址
	RedisPassword string `mapstructure:"redis_password"` // Redis密码
	RedisDB       int    `mapstructure:"redis_db"`       // Redis数据库编号
	Concurrency   int    `mapstructure:"concurrency"`    // 任务处理并发数
	RetryLimit    int    `mapstructure:"retry_limit"`    // 任务最大重试次数
	RetryDelay    int    `mapstructure:"retry_delay"`    // 重试延迟(秒)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // 数据库类型: sqlite, mysql, postgres
	DSN  string `mapstructure:"dsn"`  // 数据源名称
}

// SearchEngineConfig 知识库搜索引擎配置
type SearchEngineConfig struct {
	Type       string        `mapstructure:"type"`        // 引擎类型：memory 或 elastic
	Host       string        `mapstructure:"host"`        // Elasticsearch地址
	APIKey     string        `mapstructure:"api_key"`     // API密钥，支持${ENV_VAR}占位符
	Timeout    time.Duration `mapstructure:"timeout"`     // 请求超时时间
	MaxRetries int           `mapstructure:"max_retries"` // 最大重试次数
}

// PipelineConfig 流水线默认配置
type PipelineConfig struct {
	DefaultQACount     int    `mapstructure:"default_qa_count"`     // 默认生成的问答对数量
	DefaultContentType string `mapstructure:"default_content_type"` // 默认内容类型
}

// Load 从文件和环境变量加载配置
func Load(configPath string) (*Config, error) {
	var config Config

	// 设置默认配置路径
	if configPath == "" {
		configPath = "config.yaml" // 默认在当前目录寻找config.yaml
	}

	// 初始化viper
	v := viper.New()

	// 设置配置文件路径和类型
	v.SetConfigFile(configPath)

	// 尝试读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 如果找不到配置文件，创建一个默认配置文件
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: Config file not found at %s, using defaults", configPath)
			setDefaults(v)
			// 创建默认配置文件
			dir := filepath.Dir(configPath)
			if err := os.MkdirAll(dir, 0755); err == nil {
				if err := v.WriteConfigAs(configPath); err != nil {
					log.Printf("Warning: Could not write default config to %s: %v", configPath, err)
				}
			}
		} else {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
	} else {
		log.Printf("Using config file: %s", v.ConfigFileUsed())
	}

	// 设置默认值
	setDefaults(v)

	// 支持环境变量覆盖
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 解析配置到结构体
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	// 处理配置项中的环境变量占位符
	resConfig := processEnvironmentVariables(&config)

	return resConfig, nil
}

// processEnvironmentVariables 处理配置项中的环境变量占位符
func processEnvironmentVariables(cfg *Config) *Config {
	// 处理搜索引擎API密钥
	cfg.SearchEngine.APIKey = resolveEnvPlaceholder(cfg.SearchEngine.APIKey)
	if cfg.SearchEngine.APIKey == "" {
		// 未显式配置时按约定的环境变量顺序查找
		if key := os.Getenv("ELASTICSEARCH_API_KEY"); key != "" {
			cfg.SearchEngine.APIKey = key
		} else if key := os.Getenv("ELASTIC_PASSWORD"); key != "" {
			cfg.SearchEngine.APIKey = key
		}
	}

	// 处理存储密钥
	cfg.Storage.AccessKey = resolveEnvPlaceholder(cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = resolveEnvPlaceholder(cfg.Storage.SecretKey)

	return cfg
}

// resolveEnvPlaceholder 解析${ENV_VAR}形式的占位符
func resolveEnvPlaceholder(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		envVar := value[2 : len(value)-1]
		if envVal := os.Getenv(envVar); envVal != "" {
			return envVal
		}
		return ""
	}
	return value
}

// Validate 校验启动必需的配置项
func (c *Config) Validate() error {
	if c.SearchEngine.Type == "elastic" {
		if c.SearchEngine.Host == "" {
			return fmt.Errorf("search_engine.host is required when type is elastic")
		}
		if c.SearchEngine.APIKey == "" {
			return fmt.Errorf("elasticsearch api key not configured: set ELASTICSEARCH_API_KEY or ELASTIC_PASSWORD")
		}
	}
	if c.Queue.Enable && c.Queue.RedisAddr == "" {
		return fmt.Errorf("queue.redis_addr is required when queue is enabled")
	}
	return nil
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	// 存储默认配置
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.path", "./uploads")
	v.SetDefault("storage.bucket", "medkb")
	v.SetDefault("storage.use_ssl", false)

	// 缓存默认配置
	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", 3600) // 1小时

	// 队列默认配置
	v.SetDefault("queue.enable", false)
	v.SetDefault("queue.type", "redis")
	v.SetDefault("queue.redis_addr", "localhost:6379")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.retry_limit", 3)
	v.SetDefault("queue.retry_delay", 60) // 60秒

	// 数据库默认配置
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data/medkb.db")

	// 搜索引擎默认配置
	v.SetDefault("search_engine.type", "memory")
	v.SetDefault("search_engine.host", "http://localhost:9200")
	v.SetDefault("search_engine.timeout", "30s")
	v.SetDefault("search_engine.max_retries", 3)

	// 流水线默认配置
	v.SetDefault("pipeline.default_qa_count", 10)
	v.SetDefault("pipeline.default_content_type", "general")
}
