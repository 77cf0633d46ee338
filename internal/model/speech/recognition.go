package speech

import (
	"context"
	"errors"
)

// ErrUnsupported is returned when the platform cannot provide recognition.
var ErrUnsupported = errors.New("speech recognition not supported")

// DefaultConfidence is reported while no segment has been finalized yet.
const DefaultConfidence = 0.85

// Fragment 是识别器推送的一个识别片段。Index 标识片段在本次录音中的位置，
// 同一位置的片段会被后续事件覆盖，直到其被标记为 final。
type Fragment struct {
	Index      int     `json:"index"`
	Text       string  `json:"text"`
	IsFinal    bool    `json:"isFinal"`
	Confidence float64 `json:"confidence,omitempty"`
}

// RecognitionEvent groups the fragments delivered by one recognizer callback.
type RecognitionEvent struct {
	Language  string     `json:"language"`
	Fragments []Fragment `json:"fragments"`
}

// TranscriptUpdate 是每次识别事件后重新计算的完整转写。
type TranscriptUpdate struct {
	Transcript       string  `json:"transcript"`
	LanguageDetected string  `json:"languageDetected"`
	Confidence       float64 `json:"confidence"`
}

// Recognizer abstracts a speech capture capability. The returned channel is
// closed when recognition stops.
type Recognizer interface {
	Start(ctx context.Context, language string) (<-chan RecognitionEvent, error)
	Stop() error
}
