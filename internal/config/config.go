// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Admin         AdminConfig         `mapstructure:"admin"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Sara          SaraConfig          `mapstructure:"sara"`
	SEO           SEOConfig           `mapstructure:"seo"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port        string `mapstructure:"port"`
	Mode        string `mapstructure:"mode"`
	AllowOrigin string `mapstructure:"allow_origin"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
}

// AdminConfig 是后台管理员账号，密码以 bcrypt 哈希保存。
type AdminConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// LLMConfig 存储大语言模型相关的配置。
// Providers 的顺序即优先级，FastOrder 用于意图分类等轻量任务。
type LLMConfig struct {
	Providers      []LLMProviderConfig `mapstructure:"providers"`
	FastOrder      []string            `mapstructure:"fast_order"`
	RateLimitDelay time.Duration       `mapstructure:"rate_limit_delay"`
	Timeout        time.Duration       `mapstructure:"timeout"`
	Generation     LLMGenerationConfig `mapstructure:"generation"`
}

// LLMProviderConfig 描述一个模型供应方。
// Kind 取值 openai（含所有 OpenAI 兼容接口）、gemini、http。
type LLMProviderConfig struct {
	Name          string  `mapstructure:"name"`
	Kind          string  `mapstructure:"kind"`
	APIKey        string  `mapstructure:"api_key"`
	APIKeyEnv     string  `mapstructure:"api_key_env"`
	BaseURL       string  `mapstructure:"base_url"`
	Model         string  `mapstructure:"model"`
	PricePerToken float64 `mapstructure:"price_per_token"`
	Modern        bool    `mapstructure:"modern"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// SaraConfig 是对话机器人本身的配置。
type SaraConfig struct {
	// IntentMode 取值 rules、llm、hybrid。
	IntentMode      string        `mapstructure:"intent_mode"`
	IntentThreshold int           `mapstructure:"intent_threshold"`
	KnowledgeDir    string        `mapstructure:"knowledge_dir"`
	HistoryLimit    int           `mapstructure:"history_limit"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	AvgTicketBRL    float64       `mapstructure:"avg_ticket_brl"`
	USDToBRL        float64       `mapstructure:"usd_to_brl"`
}

// SEOConfig 是 SEO 分析器的配置。
type SEOConfig struct {
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	UserAgent    string        `mapstructure:"user_agent"`
	ArchiveTTL   time.Duration `mapstructure:"archive_ttl"`
}

// 未在配置文件中出现的键使用这些默认值。
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allow_origin", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("jwt.access_token_expire_hours", 12)
	v.SetDefault("kafka.topic", "sara-analytics-sessions")
	v.SetDefault("kafka.group_id", "sara-smart-go-consumer")
	v.SetDefault("elasticsearch.index_name", "sara_sessions")
	v.SetDefault("minio.bucket_name", "sara-seo-reports")
	v.SetDefault("llm.fast_order", []string{"gemini", "gpt4", "grok", "claude"})
	v.SetDefault("llm.rate_limit_delay", 2*time.Second)
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.generation.temperature", 0.7)
	v.SetDefault("llm.generation.max_tokens", 1024)
	v.SetDefault("sara.intent_mode", "hybrid")
	v.SetDefault("sara.intent_threshold", 80)
	v.SetDefault("sara.knowledge_dir", "./data")
	v.SetDefault("sara.history_limit", 20)
	v.SetDefault("sara.session_ttl", 7*24*time.Hour)
	v.SetDefault("sara.avg_ticket_brl", 800)
	v.SetDefault("sara.usd_to_brl", 5)
	v.SetDefault("seo.fetch_timeout", 10*time.Second)
	v.SetDefault("seo.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("seo.archive_ttl", 24*time.Hour)
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}

// Load 读取配置文件并叠加环境变量，返回解析后的配置。
// 环境变量形如 SARA_SERVER_PORT；供应方密钥另外读取各自 api_key_env 指定的变量。
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SARA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	resolveProviderKeys(&cfg, v)
	return cfg, nil
}

// resolveProviderKeys 用环境变量补全未直接写在文件里的密钥，缺少密钥的供应方会被剔除。
func resolveProviderKeys(cfg *Config, v *viper.Viper) {
	providers := cfg.LLM.Providers[:0]
	for _, p := range cfg.LLM.Providers {
		if p.APIKey == "" && p.APIKeyEnv != "" {
			_ = v.BindEnv("llm_key_"+p.Name, p.APIKeyEnv)
			p.APIKey = v.GetString("llm_key_" + p.Name)
		}
		if p.APIKey == "" {
			continue
		}
		providers = append(providers, p)
	}
	cfg.LLM.Providers = providers
}
