package live

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/golden-hour/backend/internal/analysis/symptom"
	sessionmodel "github.com/zhouzirui/golden-hour/backend/internal/model/session"
	"github.com/zhouzirui/golden-hour/backend/internal/model/speech"
	"github.com/zhouzirui/golden-hour/backend/internal/service/recorder"
	"github.com/zhouzirui/golden-hour/backend/internal/service/transcript"
	"github.com/zhouzirui/golden-hour/backend/internal/service/translate"
	"github.com/zhouzirui/golden-hour/backend/internal/service/triage"
)

var (
	ErrNoTranslation   = errors.New("no english translation to submit")
	ErrEmptyTranscript = errors.New("nothing has been recorded")
)

// EventType names what changed in a live session.
type EventType string

const (
	EventTranscript  EventType = "transcript"
	EventTranslation EventType = "translation"
	EventTranslating EventType = "translating"
	EventState       EventType = "state"
	EventOutcome     EventType = "outcome"
	EventSession     EventType = "session"
)

// Event is published to the session listener. Only the field matching Type is set.
type Event struct {
	Type        EventType                      `json:"type"`
	Transcript  *speech.TranscriptUpdate       `json:"transcript,omitempty"`
	Translation *speech.TranslationResult      `json:"translation,omitempty"`
	Translating *bool                          `json:"translating,omitempty"`
	State       triage.State                   `json:"state,omitempty"`
	Outcome     *triage.Outcome                `json:"outcome,omitempty"`
	Session     *sessionmodel.EmergencySession `json:"session,omitempty"`
}

// Deps are the capabilities a live session drives.
type Deps struct {
	Translator translate.Translator
	Triager    triage.Triager
	Recorder   *recorder.Service
}

// Config 控制单次实时会话。OnEvent 可能被多个 goroutine 调用。
type Config struct {
	Language    string
	QuietPeriod time.Duration
	Scheduler   translate.Scheduler
	OnEvent     func(Event)
}

// Session coordinates one recording: transcript, translation, triage and the
// audit record written at dispatch or cancel time.
type Session struct {
	id        string
	acc       *transcript.Accumulator
	debouncer *translate.Debouncer
	orch      *triage.Orchestrator
	recorder  *recorder.Service
	onEvent   func(Event)
	now       func() time.Time

	mu             sync.Mutex
	lastTranscript string
	startedAt      time.Time
	lastActivity   time.Time
}

// New wires a live session. ctx bounds background translation requests.
func New(ctx context.Context, deps Deps, cfg Config) *Session {
	s := &Session{
		id:       uuid.NewString(),
		recorder: deps.Recorder,
		onEvent:  cfg.OnEvent,
		now:      time.Now,
	}
	if s.recorder == nil {
		s.recorder = recorder.NewService(nil)
	}

	s.acc = transcript.NewAccumulator(cfg.Language, func(u speech.TranscriptUpdate) {
		s.publish(Event{Type: EventTranscript, Transcript: &u})
	})
	s.debouncer = translate.NewDebouncer(ctx, deps.Translator, translate.DebouncerConfig{
		QuietPeriod:    cfg.QuietPeriod,
		TargetLanguage: speech.EnglishIndia,
		Scheduler:      cfg.Scheduler,
		OnResult: func(r speech.TranslationResult) {
			s.publish(Event{Type: EventTranslation, Translation: &r})
		},
		OnTranslating: func(active bool) {
			s.publish(Event{Type: EventTranslating, Translating: &active})
		},
	})
	s.orch = triage.NewOrchestrator(deps.Triager, deps.Translator, triage.Config{
		OnState: func(state triage.State) {
			s.publish(Event{Type: EventState, State: state})
		},
		OnOutcome: func(o triage.Outcome) {
			s.publish(Event{Type: EventOutcome, Outcome: &o})
		},
	})
	return s
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// ApplyRecognition feeds one recognition event. Any change to the transcript
// clears derived triage results and re-arms the translation debounce.
func (s *Session) ApplyRecognition(event speech.RecognitionEvent) speech.TranscriptUpdate {
	update := s.acc.Apply(event)

	s.mu.Lock()
	now := s.now()
	if s.startedAt.IsZero() {
		s.startedAt = now
	}
	s.lastActivity = now
	changed := update.Transcript != s.lastTranscript
	s.lastTranscript = update.Transcript
	s.mu.Unlock()

	if changed {
		s.orch.Reset()
		s.debouncer.Update(update.Transcript, update.LanguageDetected)
	}
	return update
}

// Consume starts recognizer and applies its events until the stream ends or
// ctx is done.
func (s *Session) Consume(ctx context.Context, recognizer speech.Recognizer, language string) error {
	events, err := recognizer.Start(ctx, language)
	if err != nil {
		return fmt.Errorf("start recognizer: %w", err)
	}
	defer func() {
		if err := recognizer.Stop(); err != nil {
			log.Printf("[live] session=%s stop recognizer: %v", s.id, err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			s.ApplyRecognition(event)
		}
	}
}

// Submit triages the current English translation, or english when given.
func (s *Session) Submit(ctx context.Context, english string) (triage.Outcome, error) {
	update := s.acc.Current()
	if strings.TrimSpace(english) == "" {
		current, ok := s.debouncer.Current()
		if !ok || strings.TrimSpace(current.TranslatedText) == "" {
			return triage.Outcome{}, ErrNoTranslation
		}
		english = current.TranslatedText
	}
	return s.orch.Submit(ctx, english, update.Transcript, update.LanguageDetected)
}

// ToggleSymptoms flips the symptom list language.
func (s *Session) ToggleSymptoms(ctx context.Context) (triage.SymptomView, error) {
	return s.orch.ToggleSymptomLanguage(ctx)
}

// Dispatch records the interaction as dispatched and starts a fresh session.
func (s *Session) Dispatch(ctx context.Context) (sessionmodel.EmergencySession, error) {
	return s.finish(ctx, sessionmodel.Dispatched)
}

// Cancel records the interaction as cancelled and starts a fresh session.
func (s *Session) Cancel(ctx context.Context) (sessionmodel.EmergencySession, error) {
	return s.finish(ctx, sessionmodel.Cancelled)
}

func (s *Session) finish(ctx context.Context, action sessionmodel.Action) (sessionmodel.EmergencySession, error) {
	update := s.acc.Current()
	if strings.TrimSpace(update.Transcript) == "" {
		return sessionmodel.EmergencySession{}, ErrEmptyTranscript
	}

	draft := sessionmodel.Draft{
		OriginalTranscript: update.Transcript,
		DetectedLanguage:   update.LanguageDetected,
		Action:             action,
		ConfidenceScore:    update.Confidence,
	}
	if translation, ok := s.debouncer.Current(); ok {
		draft.EnglishTranslation = translation.TranslatedText
	}

	if outcome, ok := s.orch.Outcome(); ok {
		if strings.TrimSpace(outcome.EnglishText) != "" {
			draft.EnglishTranslation = outcome.EnglishText
		}
		draft.SymptomsExtracted = outcome.Symptoms
		if result := outcome.Triage; result != nil {
			score := result.TriageScore
			draft.LikelyCondition = result.LikelyCondition
			draft.Severity = result.Severity
			draft.RequiredCapabilities = result.RequiredCapabilities
			draft.TriageScore = &score
			draft.TriageReasoning = result.Reasoning
		}
	} else {
		draft.SymptomsExtracted = symptom.Extract(draft.EnglishTranslation)
	}

	s.mu.Lock()
	if !s.startedAt.IsZero() {
		duration := s.lastActivity.Sub(s.startedAt).Seconds()
		draft.DurationSeconds = &duration
	}
	s.mu.Unlock()

	record := s.recorder.Save(ctx, draft)
	log.Printf("[live] session=%s %s record=%s symptoms=%d", s.id, action, record.ID, len(record.SymptomsExtracted))
	s.publish(Event{Type: EventSession, Session: &record})

	s.Reset()
	return record, nil
}

// Reset drops the utterance and everything derived from it.
func (s *Session) Reset() {
	s.acc.Reset()
	s.debouncer.Reset()
	s.orch.Reset()

	s.mu.Lock()
	s.lastTranscript = ""
	s.startedAt = time.Time{}
	s.lastActivity = time.Time{}
	s.mu.Unlock()
}

// Snapshot is the current view of the session.
type Snapshot struct {
	ID          string                    `json:"id"`
	Transcript  speech.TranscriptUpdate   `json:"transcript"`
	Translation *speech.TranslationResult `json:"translation,omitempty"`
	Translating bool                      `json:"translating"`
	State       triage.State              `json:"state"`
	Outcome     *triage.Outcome           `json:"outcome,omitempty"`
}

// Snapshot returns the current view.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:          s.id,
		Transcript:  s.acc.Current(),
		Translating: s.debouncer.Translating(),
		State:       s.orch.State(),
	}
	if translation, ok := s.debouncer.Current(); ok {
		snap.Translation = &translation
	}
	if outcome, ok := s.orch.Outcome(); ok {
		snap.Outcome = &outcome
	}
	return snap
}

func (s *Session) publish(event Event) {
	if s.onEvent != nil {
		s.onEvent(event)
	}
}
