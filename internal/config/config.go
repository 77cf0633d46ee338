package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/golden-hour/backend/internal/storage"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Translate TranslateConfig
	Store     StoreConfig
	Pipeline  PipelineConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	translate, err := loadTranslateConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	pipeline, err := loadPipelineConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Translate: translate, Store: store, Pipeline: pipeline}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey        string
	AccessKey     string
	SecretKey     string
	Model         string
	BaseURL       string
	Region        string
	Temperature   *float64
	TopP          *float64
	MaxTokens     *int
	TriageEnabled bool
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	triageEnabled, err := parseBoolEnv("AI_TRIAGE_ENABLED", true)
	if err != nil {
		return AIConfig{}, err
	}

	modelName := strings.TrimSpace(os.Getenv("ARK_MODEL"))
	if modelName == "" {
		// 兼容旧变量名
		modelName = strings.TrimSpace(os.Getenv("Model"))
	}

	return AIConfig{
		APIKey:        strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:     strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:     strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:         modelName,
		BaseURL:       getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:        getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:   temperature,
		TopP:          topP,
		MaxTokens:     maxTokens,
		TriageEnabled: triageEnabled,
	}, nil
}

const (
	TranslateProviderSarvam = "sarvam"
	TranslateProviderArk    = "ark"
)

// TranslateConfig 描述翻译服务配置。
type TranslateConfig struct {
	Provider      string
	SarvamAPIKey  string
	SarvamBaseURL string
	Timeout       time.Duration
}

// Enabled 表示 Sarvam 凭证是否已配置。Ark 翻译依赖 AIConfig。
func (c TranslateConfig) Enabled() bool {
	return c.Provider == TranslateProviderSarvam && c.SarvamAPIKey != ""
}

func loadTranslateConfig() (TranslateConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("TRANSLATE_PROVIDER", TranslateProviderSarvam))
	if provider != TranslateProviderSarvam && provider != TranslateProviderArk {
		return TranslateConfig{}, fmt.Errorf("invalid TRANSLATE_PROVIDER value: %q", provider)
	}

	timeoutSeconds := 30
	if override, err := parseOptionalIntEnv("TRANSLATE_TIMEOUT"); err != nil {
		return TranslateConfig{}, err
	} else if override != nil && *override > 0 {
		timeoutSeconds = *override
	}

	return TranslateConfig{
		Provider:      provider,
		SarvamAPIKey:  strings.TrimSpace(os.Getenv("SARVAM_API_KEY")),
		SarvamBaseURL: getEnvOrDefault("SARVAM_BASE_URL", "https://api.sarvam.ai"),
		Timeout:       time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// StoreConfig 描述会话存储后端。
type StoreConfig struct {
	Backend       string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Options converts the configuration for storage.Open.
func (c StoreConfig) Options() storage.Options {
	return storage.Options{
		Backend:       c.Backend,
		Path:          c.Path,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
	}
}

func loadStoreConfig() (StoreConfig, error) {
	backend := strings.ToLower(getEnvOrDefault("SESSION_STORE", storage.BackendMemory))
	switch backend {
	case storage.BackendMemory, storage.BackendFile, storage.BackendSQLite, storage.BackendRedis:
	default:
		return StoreConfig{}, fmt.Errorf("invalid SESSION_STORE value: %q", backend)
	}

	defaultPath := ""
	switch backend {
	case storage.BackendFile:
		defaultPath = "data/sessions"
	case storage.BackendSQLite:
		defaultPath = "data/golden-hour.db"
	}

	redisDB := 0
	if override, err := parseOptionalIntEnv("REDIS_DB"); err != nil {
		return StoreConfig{}, err
	} else if override != nil {
		redisDB = *override
	}

	return StoreConfig{
		Backend:       backend,
		Path:          getEnvOrDefault("SESSION_STORE_PATH", defaultPath),
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		RedisDB:       redisDB,
	}, nil
}

// PipelineConfig 描述实时分诊流水线参数。
type PipelineConfig struct {
	DebounceQuiet  time.Duration
	SourceLanguage string
}

func loadPipelineConfig() (PipelineConfig, error) {
	quietMillis := 500
	if override, err := parseOptionalIntEnv("TRANSLATE_DEBOUNCE_MS"); err != nil {
		return PipelineConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return PipelineConfig{}, fmt.Errorf("invalid TRANSLATE_DEBOUNCE_MS value: %d", *override)
		}
		quietMillis = *override
	}

	return PipelineConfig{
		DebounceQuiet:  time.Duration(quietMillis) * time.Millisecond,
		SourceLanguage: getEnvOrDefault("SOURCE_LANGUAGE", "kn-IN"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
