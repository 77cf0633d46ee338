package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/zhouzirui/golden-hour/backend/internal/model/speech"
)

const (
	DefaultSarvamBaseURL = "https://api.sarvam.ai"
	defaultSarvamTimeout = 30 * time.Second
	sarvamKeyHeader      = "api-subscription-key"
)

// SarvamConfig 描述 Sarvam 翻译接口配置。
type SarvamConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// SarvamClient calls the Sarvam /translate endpoint.
type SarvamClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewSarvamClient creates a client. A missing key is allowed; every call then
// returns ErrUnavailable.
func NewSarvamClient(cfg SarvamConfig) *SarvamClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSarvamTimeout
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultSarvamBaseURL
	}

	return &SarvamClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
	}
}

type sarvamRequest struct {
	Input          string `json:"input"`
	SourceLanguage string `json:"source_language_code"`
	TargetLanguage string `json:"target_language_code"`
	Mode           string `json:"mode"`
}

type sarvamResponse struct {
	TranslatedText string `json:"translated_text"`
	SourceLanguage string `json:"source_language_code"`
}

// Translate implements Translator.
func (c *SarvamClient) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (speech.TranslationResult, error) {
	if c == nil || c.apiKey == "" {
		return speech.TranslationResult{}, ErrUnavailable
	}

	source := speech.NormalizeLanguage(sourceLanguage)
	if source == "" {
		source = speech.DefaultSourceLanguage
	}
	target := speech.NormalizeLanguage(targetLanguage)
	if target == "" {
		target = speech.EnglishIndia
	}

	if strings.TrimSpace(text) == "" {
		return speech.TranslationResult{TranslatedText: "", SourceLanguage: source}, nil
	}

	body, err := json.Marshal(sarvamRequest{
		Input:          text,
		SourceLanguage: source,
		TargetLanguage: target,
		Mode:           "formal",
	})
	if err != nil {
		return speech.TranslationResult{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return speech.TranslationResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(sarvamKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return speech.TranslationResult{}, fmt.Errorf("sarvam request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return speech.TranslationResult{}, fmt.Errorf("sarvam returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var payload sarvamResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return speech.TranslationResult{}, fmt.Errorf("decode response: %w", err)
	}

	// auto 检测时以服务端识别出的语言为准
	detected := source
	if lang := strings.TrimSpace(payload.SourceLanguage); lang != "" {
		detected = lang
	}

	log.Printf("[translate] sarvam %s -> %s, chars=%d", detected, target, len(payload.TranslatedText))
	return speech.TranslationResult{
		TranslatedText: payload.TranslatedText,
		SourceLanguage: detected,
	}, nil
}
