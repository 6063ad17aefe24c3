// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// EnvPrefix 是环境变量覆盖配置时使用的前缀，例如 HOTEL_DATABASE_DSN。
const EnvPrefix = "HOTEL"

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	VectorIndex   VectorIndexConfig   `mapstructure:"vector_index"`
	Refresh       RefreshConfig       `mapstructure:"refresh"`
	Session       SessionConfig       `mapstructure:"session"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port        string   `mapstructure:"port"`
	Mode        string   `mapstructure:"mode"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	// Driver 取值 postgres | mysql | sqlite
	Driver        string      `mapstructure:"driver"`
	DSN           string      `mapstructure:"dsn"`
	AutoMigrate   bool        `mapstructure:"auto_migrate"`
	NotifyChannel string      `mapstructure:"notify_channel"`
	Redis         RedisConfig `mapstructure:"redis"`
}

// RedisConfig 存储 Redis 的配置。Addr 为空时使用进程内存保存会话。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储预订变更事件主题的配置。
type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig 存储索引快照镜像所用的对象存储配置。
type MinIOConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
	ObjectName      string `mapstructure:"object_name"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
type EmbeddingConfig struct {
	// Provider 取值 ollama | openai
	Provider      string `mapstructure:"provider"`
	APIKey        string `mapstructure:"api_key"`
	BaseURL       string `mapstructure:"base_url"`
	Model         string `mapstructure:"model"`
	Dimensions    int    `mapstructure:"dimensions"`
	CacheTTLHours int    `mapstructure:"cache_ttl_hours"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	// Provider 取值 ollama | openai
	Provider         string              `mapstructure:"provider"`
	APIKey           string              `mapstructure:"api_key"`
	BaseURL          string              `mapstructure:"base_url"`
	Model            string              `mapstructure:"model"`
	CondenseQuestion bool                `mapstructure:"condense_question"`
	Generation       LLMGenerationConfig `mapstructure:"generation"`
	Prompt           LLMPromptConfig     `mapstructure:"prompt"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// LLMPromptConfig 配置系统提示与上下文包裹格式（可选）。
type LLMPromptConfig struct {
	Rules        string `mapstructure:"rules"`
	RefStart     string `mapstructure:"ref_start"`
	RefEnd       string `mapstructure:"ref_end"`
	NoResultText string `mapstructure:"no_result_text"`
}

// VectorIndexConfig 配置洞察向量索引。
type VectorIndexConfig struct {
	// Backend 取值 local | elasticsearch
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
	TopK    int    `mapstructure:"top_k"`
}

// RefreshConfig 配置后台刷新任务。
type RefreshConfig struct {
	QueueSize          int `mapstructure:"queue_size"`
	DebounceMillis     int `mapstructure:"debounce_ms"`
	WaitTimeoutSeconds int `mapstructure:"wait_timeout_seconds"`
	PollIntervalSecs   int `mapstructure:"poll_interval_seconds"`
	RebuildTimeoutSecs int `mapstructure:"rebuild_timeout_seconds"`
}

// SessionConfig 配置会话令牌与会话历史。
type SessionConfig struct {
	Secret       string `mapstructure:"secret"`
	ExpireHours  int    `mapstructure:"expire_hours"`
	HistoryLimit int    `mapstructure:"history_limit"`
}

// Debounce 返回刷新去抖窗口。
func (c RefreshConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMillis) * time.Millisecond
}

// WaitTimeout 返回监听通知时单次等待的超时时间。
func (c RefreshConfig) WaitTimeout() time.Duration {
	return time.Duration(c.WaitTimeoutSeconds) * time.Second
}

// PollInterval 返回轮询刷新间隔，0 表示不轮询。
func (c RefreshConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs) * time.Second
}

// RebuildTimeout 返回单次重建的超时时间。
func (c RefreshConfig) RebuildTimeout() time.Duration {
	return time.Duration(c.RebuildTimeoutSecs) * time.Second
}

// CacheTTL 返回向量缓存的过期时间，0 表示不缓存。
func (c EmbeddingConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost user=postgres dbname=hotel_db port=5432 sslmode=disable")
	v.SetDefault("database.notify_channel", "new_data")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("kafka.topic", "hotel-booking-events")
	v.SetDefault("kafka.group_id", "hotel-insights-go")

	v.SetDefault("elasticsearch.index_name", "hotel_insights")

	v.SetDefault("minio.bucket_name", "hotel-insights")
	v.SetDefault("minio.object_name", "insight_index/index.json")

	v.SetDefault("embedding.provider", "ollama")
	v.SetDefault("embedding.base_url", "http://localhost:11434")
	v.SetDefault("embedding.model", "nomic-embed-text:latest")
	v.SetDefault("embedding.cache_ttl_hours", 24)

	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.model", "phi4:latest")
	v.SetDefault("llm.condense_question", true)

	v.SetDefault("vector_index.backend", "local")
	v.SetDefault("vector_index.dir", "./data/insight_index")
	v.SetDefault("vector_index.top_k", 4)

	v.SetDefault("refresh.queue_size", 16)
	v.SetDefault("refresh.debounce_ms", 2000)
	v.SetDefault("refresh.wait_timeout_seconds", 90)
	v.SetDefault("refresh.rebuild_timeout_seconds", 300)

	v.SetDefault("session.expire_hours", 168)
	v.SetDefault("session.history_limit", 20)

	// 没有默认值的键需要显式绑定，环境变量才能参与 Unmarshal
	for _, key := range []string{
		"session.secret",
		"database.redis.addr", "database.redis.password", "database.redis.db",
		"database.auto_migrate",
		"kafka.enabled", "kafka.brokers",
		"elasticsearch.addresses", "elasticsearch.username", "elasticsearch.password",
		"minio.enabled", "minio.endpoint", "minio.access_key_id", "minio.secret_access_key", "minio.use_ssl",
		"embedding.api_key", "embedding.dimensions",
		"llm.api_key",
		"refresh.poll_interval_seconds",
	} {
		_ = v.BindEnv(key)
	}
}

// Load 从指定路径读取 YAML 配置并叠加 HOTEL_ 前缀的环境变量。
// 路径为空时仅使用默认值与环境变量。
func Load(configPath string) (Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if cfg.Session.Secret == "" {
		return Config{}, fmt.Errorf("session.secret 未配置 (可通过 %s_SESSION_SECRET 设置)", EnvPrefix)
	}
	return cfg, nil
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
