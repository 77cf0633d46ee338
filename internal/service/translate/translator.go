package translate

import (
	"context"
	"errors"

	"github.com/zhouzirui/golden-hour/backend/internal/model/speech"
)

// ErrUnavailable means no translation provider is configured.
var ErrUnavailable = errors.New("translation capability unavailable")

// Translator converts text between two languages.
type Translator interface {
	Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (speech.TranslationResult, error)
}

// Unavailable is the translator used when nothing is configured. Every call
// fails with ErrUnavailable.
type Unavailable struct{}

// Translate implements Translator.
func (Unavailable) Translate(context.Context, string, string, string) (speech.TranslationResult, error) {
	return speech.TranslationResult{}, ErrUnavailable
}
