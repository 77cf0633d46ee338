package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/golden-hour/backend/internal/analysis/symptom"
	"github.com/zhouzirui/golden-hour/backend/internal/model/triage"
)

// ErrMalformedAnswer 表示模型输出无法解析为分诊结果。
var ErrMalformedAnswer = errors.New("malformed triage answer")

// TriageService runs the medical triage prompt on a chat model.
type TriageService struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewTriageService 创建分诊服务。chatModel 为 nil 时服务可用但总是返回 ErrUnavailable。
func NewTriageService(ctx context.Context, chatModel model.ChatModel) (*TriageService, error) {
	if chatModel == nil {
		return &TriageService{}, nil
	}

	chain, err := compileChain(ctx, chatModel)
	if err != nil {
		return nil, fmt.Errorf("failed to compile triage chain: %w", err)
	}
	return &TriageService{chain: chain}, nil
}

// compileChain 构建 system/query 两段式提示的调用链。
// 系统提示通过变量注入，避免 FString 解析其中的 JSON 花括号。
func compileChain(ctx context.Context, chatModel model.ChatModel) (compose.Runnable[map[string]any, *schema.Message], error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	return chain.Compile(ctx)
}

// Enabled 返回是否配置了模型。
func (s *TriageService) Enabled() bool {
	return s != nil && s.chain != nil
}

// Triage asks the model for a structured assessment of the transcript.
func (s *TriageService) Triage(ctx context.Context, englishText, originalText string) (*triage.Result, error) {
	if !s.Enabled() {
		return nil, triage.ErrUnavailable
	}
	if strings.TrimSpace(englishText) == "" {
		return nil, triage.ErrNoAnswer
	}

	msg, err := s.chain.Invoke(ctx, map[string]any{
		"system": triageSystemPrompt,
		"query":  buildTriageQuery(englishText, originalText),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run triage chain: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedAnswer)
	}

	result, err := parseTriageOutput(msg.Content)
	if err != nil {
		return nil, err
	}

	log.Printf("[ai] triage condition=%q severity=%s score=%d capabilities=%v",
		result.LikelyCondition, result.Severity, result.TriageScore, result.RequiredCapabilities)
	return result, nil
}

type triagePayload struct {
	Fallback             bool             `json:"fallback"`
	Symptoms             []symptomPayload `json:"symptoms"`
	LikelyCondition      string           `json:"likelyCondition"`
	Severity             string           `json:"severity"`
	RequiredCapabilities []string         `json:"requiredCapabilities"`
	TriageScore          float64          `json:"triageScore"`
	Reasoning            string           `json:"reasoning"`
}

type symptomPayload struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Critical bool   `json:"critical"`
}

// parseTriageOutput 解析模型返回的 JSON，兼容 markdown 代码块。
func parseTriageOutput(content string) (*triage.Result, error) {
	raw, err := extractJSONObject(content)
	if err != nil {
		return nil, err
	}

	var payload triagePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAnswer, err)
	}
	if payload.Fallback {
		return nil, triage.ErrNoAnswer
	}

	severity, ok := triage.ParseSeverity(payload.Severity)
	if !ok {
		return nil, fmt.Errorf("%w: unknown severity %q", ErrMalformedAnswer, payload.Severity)
	}

	entries := make([]triage.Entry, 0, len(payload.Symptoms))
	for _, item := range payload.Symptoms {
		value := strings.TrimSpace(item.Value)
		if value == "" {
			continue
		}
		key, ok := triage.ParseCategory(item.Key)
		if !ok {
			key = triage.Symptom
		}
		entries = append(entries, triage.Entry{Key: key, Value: value, Critical: item.Critical})
	}

	condition := strings.TrimSpace(payload.LikelyCondition)
	if condition == "" {
		condition = symptom.LikelyCondition(entries)
	}

	return &triage.Result{
		Symptoms:             entries,
		LikelyCondition:      condition,
		Severity:             severity,
		RequiredCapabilities: normalizeCapabilities(payload.RequiredCapabilities),
		TriageScore:          triage.ClampScore(int(math.Round(payload.TriageScore))),
		Reasoning:            strings.TrimSpace(payload.Reasoning),
	}, nil
}

func extractJSONObject(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimPrefix(trimmed, "json")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("%w: missing json object", ErrMalformedAnswer)
	}
	return trimmed[start : end+1], nil
}

func normalizeCapabilities(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	caps := make([]string, 0, len(raw))
	for _, item := range raw {
		c := strings.ToLower(strings.TrimSpace(item))
		c = strings.ReplaceAll(c, " ", "_")
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		if !knownCapability(c) {
			log.Printf("[ai] model returned capability outside vocabulary: %s", c)
		}
		seen[c] = struct{}{}
		caps = append(caps, c)
	}
	return caps
}

func knownCapability(name string) bool {
	for _, c := range triageCapabilities {
		if c == name {
			return true
		}
	}
	return false
}
