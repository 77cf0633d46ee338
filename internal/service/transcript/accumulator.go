package transcript

import (
	"sort"
	"strings"
	"sync"

	"github.com/zhouzirui/golden-hour/backend/internal/model/speech"
)

// finalConfidenceFallback is used when a recognizer finalizes a segment
// without reporting a confidence.
const finalConfidenceFallback = 0.9

type segment struct {
	text       string
	final      bool
	confidence float64
}

// Accumulator merges recognition fragments into the full utterance of one
// recording session. It is safe for concurrent use.
type Accumulator struct {
	mu              sync.Mutex
	language        string
	segments        map[int]segment
	finalConfidence float64
	hasFinal        bool
	transcript      string
	onUpdate        func(speech.TranscriptUpdate)
}

// NewAccumulator creates an accumulator for the given recognition language.
// onUpdate may be nil.
func NewAccumulator(language string, onUpdate func(speech.TranscriptUpdate)) *Accumulator {
	if strings.TrimSpace(language) == "" {
		language = speech.DefaultSourceLanguage
	}
	return &Accumulator{
		language: language,
		segments: make(map[int]segment),
		onUpdate: onUpdate,
	}
}

// Apply merges one recognition event and recomputes the transcript from the
// whole known result set. The callback fires once per call, outside the lock.
func (a *Accumulator) Apply(event speech.RecognitionEvent) speech.TranscriptUpdate {
	a.mu.Lock()
	if lang := strings.TrimSpace(event.Language); lang != "" {
		a.language = lang
	}

	for _, frag := range event.Fragments {
		existing, ok := a.segments[frag.Index]
		if ok && existing.final {
			continue
		}
		a.segments[frag.Index] = segment{
			text:       frag.Text,
			final:      frag.IsFinal,
			confidence: frag.Confidence,
		}
		if frag.IsFinal {
			conf := frag.Confidence
			if conf <= 0 {
				conf = finalConfidenceFallback
			}
			a.finalConfidence = conf
			a.hasFinal = true
		}
	}

	a.transcript = a.rebuild()
	update := a.snapshot()
	callback := a.onUpdate
	a.mu.Unlock()

	if callback != nil {
		callback(update)
	}
	return update
}

// Current returns the latest transcript without applying anything.
func (a *Accumulator) Current() speech.TranscriptUpdate {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot()
}

// Reset truncates the utterance for a new recording session.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.segments = make(map[int]segment)
	a.finalConfidence = 0
	a.hasFinal = false
	a.transcript = ""
}

func (a *Accumulator) snapshot() speech.TranscriptUpdate {
	confidence := speech.DefaultConfidence
	if a.hasFinal {
		confidence = a.finalConfidence
	}
	return speech.TranscriptUpdate{
		Transcript:       a.transcript,
		LanguageDetected: a.language,
		Confidence:       confidence,
	}
}

// rebuild concatenates every final segment in index order followed by every
// interim segment in index order.
func (a *Accumulator) rebuild() string {
	indexes := make([]int, 0, len(a.segments))
	for idx := range a.segments {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	var finals, interims strings.Builder
	for _, idx := range indexes {
		seg := a.segments[idx]
		if seg.final {
			finals.WriteString(seg.text)
		} else {
			interims.WriteString(seg.text)
		}
	}
	return finals.String() + interims.String()
}
