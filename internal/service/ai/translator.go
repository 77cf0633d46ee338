package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/golden-hour/backend/internal/model/speech"
	"github.com/zhouzirui/golden-hour/backend/internal/service/translate"
)

// Translator 使用大模型完成翻译，作为 Sarvam 之外的另一种翻译能力。
type Translator struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewTranslator creates an LLM translator. A nil model yields a translator
// that always returns translate.ErrUnavailable.
func NewTranslator(ctx context.Context, chatModel model.ChatModel) (*Translator, error) {
	if chatModel == nil {
		return &Translator{}, nil
	}

	chain, err := compileChain(ctx, chatModel)
	if err != nil {
		return nil, fmt.Errorf("failed to compile translator chain: %w", err)
	}
	return &Translator{chain: chain}, nil
}

// Translate implements translate.Translator.
func (t *Translator) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (speech.TranslationResult, error) {
	if t == nil || t.chain == nil {
		return speech.TranslationResult{}, translate.ErrUnavailable
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
		return speech.TranslationResult{SourceLanguage: source}, nil
	}

	msg, err := t.chain.Invoke(ctx, map[string]any{
		"system": fmt.Sprintf(translatorSystemPrompt, speech.LanguageName(source), speech.LanguageName(target)),
		"query":  text,
	})
	if err != nil {
		return speech.TranslationResult{}, fmt.Errorf("failed to run translator chain: %w", err)
	}
	if msg == nil {
		return speech.TranslationResult{}, fmt.Errorf("translator returned no message")
	}

	return speech.TranslationResult{
		TranslatedText: strings.TrimSpace(msg.Content),
		SourceLanguage: source,
	}, nil
}
