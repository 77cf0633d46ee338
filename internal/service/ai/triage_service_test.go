package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/golden-hour/backend/internal/model/triage"
	"github.com/zhouzirui/golden-hour/backend/internal/service/translate"
)

type fakeChatModel struct {
	mu     sync.Mutex
	reply  string
	err    error
	inputs [][]*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (f *fakeChatModel) BindTools([]*schema.ToolInfo) error { return nil }

func (f *fakeChatModel) lastUserMessage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inputs) == 0 {
		return ""
	}
	msgs := f.inputs[len(f.inputs)-1]
	return msgs[len(msgs)-1].Content
}

const cardiacAnswer = "```json\n" + `{
  "symptoms": [
    {"key": "Emergency", "value": "Cardiac event", "critical": true},
    {"key": "symptoms", "value": "Diaphoresis", "critical": false},
    {"key": "Patient", "value": "Elderly male", "critical": false}
  ],
  "likelyCondition": "Acute myocardial infarction",
  "severity": "critical",
  "requiredCapabilities": ["cath_lab", "ICU", "cath_lab"],
  "triageScore": 14,
  "reasoning": "Chest pain with sweating in an elderly man."
}` + "\n```"

func TestTriageParsesFencedAnswer(t *testing.T) {
	chatModel := &fakeChatModel{reply: cardiacAnswer}
	svc, err := NewTriageService(context.Background(), chatModel)
	if err != nil {
		t.Fatalf("NewTriageService err: %v", err)
	}

	result, err := svc.Triage(context.Background(), "My grandfather has chest pain", "ajjanige ede novu")
	if err != nil {
		t.Fatalf("Triage err: %v", err)
	}

	if result.Severity != triage.Critical {
		t.Fatalf("unexpected severity %s", result.Severity)
	}
	if result.TriageScore != triage.MaxScore {
		t.Fatalf("expected clamped score, got %d", result.TriageScore)
	}
	if len(result.RequiredCapabilities) != 2 || result.RequiredCapabilities[0] != "cath_lab" || result.RequiredCapabilities[1] != "icu" {
		t.Fatalf("unexpected capabilities %v", result.RequiredCapabilities)
	}
	if len(result.Symptoms) != 3 || result.Symptoms[1].Key != triage.Symptom {
		t.Fatalf("unexpected symptoms %+v", result.Symptoms)
	}

	query := chatModel.lastUserMessage()
	if !strings.Contains(query, "My grandfather has chest pain") || !strings.Contains(query, "ajjanige ede novu") {
		t.Fatalf("query missing transcript: %s", query)
	}
}

func TestTriageFallbackSignal(t *testing.T) {
	svc, err := NewTriageService(context.Background(), &fakeChatModel{reply: `{"fallback": true}`})
	if err != nil {
		t.Fatalf("NewTriageService err: %v", err)
	}

	if _, err := svc.Triage(context.Background(), "hello", ""); !errors.Is(err, triage.ErrNoAnswer) {
		t.Fatalf("expected ErrNoAnswer, got %v", err)
	}
}

func TestTriageWithoutModelIsUnavailable(t *testing.T) {
	svc, err := NewTriageService(context.Background(), nil)
	if err != nil {
		t.Fatalf("NewTriageService err: %v", err)
	}
	if svc.Enabled() {
		t.Fatal("service without model should be disabled")
	}
	if _, err := svc.Triage(context.Background(), "chest pain", ""); !errors.Is(err, triage.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestTriageRejectsUnknownSeverity(t *testing.T) {
	svc, err := NewTriageService(context.Background(), &fakeChatModel{reply: `{"likelyCondition":"x","severity":"URGENT","triageScore":5}`})
	if err != nil {
		t.Fatalf("NewTriageService err: %v", err)
	}
	if _, err := svc.Triage(context.Background(), "chest pain", ""); !errors.Is(err, ErrMalformedAnswer) {
		t.Fatalf("expected ErrMalformedAnswer, got %v", err)
	}
}

func TestTriageModelErrorIsWrapped(t *testing.T) {
	cause := errors.New("rate limited")
	svc, err := NewTriageService(context.Background(), &fakeChatModel{err: cause})
	if err != nil {
		t.Fatalf("NewTriageService err: %v", err)
	}
	if _, err := svc.Triage(context.Background(), "chest pain", ""); err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected wrapped model error, got %v", err)
	}
}

func TestParseTriageOutputFillsMissingCondition(t *testing.T) {
	result, err := parseTriageOutput(`noise {"symptoms":[{"key":"Emergency","value":"Stroke signs","critical":true}],"severity":"HIGH","triageScore":0} trailing`)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if result.LikelyCondition != "Stroke signs" {
		t.Fatalf("unexpected condition %q", result.LikelyCondition)
	}
	if result.TriageScore != triage.MinScore {
		t.Fatalf("expected score clamped to %d, got %d", triage.MinScore, result.TriageScore)
	}
}

func TestTranslatorUsesModel(t *testing.T) {
	chatModel := &fakeChatModel{reply: "  My father fell down \n"}
	tr, err := NewTranslator(context.Background(), chatModel)
	if err != nil {
		t.Fatalf("NewTranslator err: %v", err)
	}

	result, err := tr.Translate(context.Background(), "nanna appa biddaru", "kn", "en-IN")
	if err != nil {
		t.Fatalf("Translate err: %v", err)
	}
	if result.TranslatedText != "My father fell down" || result.SourceLanguage != "kn-IN" {
		t.Fatalf("unexpected result %+v", result)
	}
	if chatModel.lastUserMessage() != "nanna appa biddaru" {
		t.Fatalf("unexpected query %q", chatModel.lastUserMessage())
	}
}

func TestTranslatorWithoutModelIsUnavailable(t *testing.T) {
	tr, err := NewTranslator(context.Background(), nil)
	if err != nil {
		t.Fatalf("NewTranslator err: %v", err)
	}
	if _, err := tr.Translate(context.Background(), "hello", "kn-IN", "en-IN"); !errors.Is(err, translate.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
