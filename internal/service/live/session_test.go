package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zhouzirui/golden-hour/backend/internal/model/speech"
	triagemodel "github.com/zhouzirui/golden-hour/backend/internal/model/triage"
	"github.com/zhouzirui/golden-hour/backend/internal/service/recorder"
	"github.com/zhouzirui/golden-hour/backend/internal/service/translate"
	"github.com/zhouzirui/golden-hour/backend/internal/service/triage"
)

type manualTimer struct {
	f    func()
	done bool
}

func (m *manualTimer) Stop() bool {
	active := !m.done
	m.done = true
	return active
}

type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(_ time.Duration, f func()) translate.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) flush() {
	s.mu.Lock()
	var due []*manualTimer
	for _, t := range s.timers {
		if !t.done {
			t.done = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

type dictionaryTranslator map[string]string

func (d dictionaryTranslator) Translate(_ context.Context, text, source, _ string) (speech.TranslationResult, error) {
	if out, ok := d[text]; ok {
		return speech.TranslationResult{TranslatedText: out, SourceLanguage: source}, nil
	}
	return speech.TranslationResult{}, errors.New("no entry")
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) count(kind EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == kind {
			n++
		}
	}
	return n
}

const kannada = "nanna appanige ede novu, bega banni"

func newTestSession(t *testing.T, triager triage.Triager) (*Session, *manualScheduler, *recorder.Service, *recordingSink) {
	t.Helper()
	sched := &manualScheduler{}
	rec := recorder.NewService(nil)
	sink := &recordingSink{}
	tr := dictionaryTranslator{kannada: "My father has chest pain, please come quickly"}
	s := New(context.Background(), Deps{Translator: tr, Triager: triager, Recorder: rec}, Config{
		Language:  "kn-IN",
		Scheduler: sched,
		OnEvent:   sink.add,
	})

	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(2 * time.Second)
		return clock
	}
	return s, sched, rec, sink
}

func finalFragment(index int, text string) speech.RecognitionEvent {
	return speech.RecognitionEvent{Language: "kn-IN", Fragments: []speech.Fragment{{Index: index, Text: text, IsFinal: true, Confidence: 0.92}}}
}

func TestDispatchRecordsFallbackTriage(t *testing.T) {
	s, sched, rec, sink := newTestSession(t, nil)
	ctx := context.Background()

	s.ApplyRecognition(speech.RecognitionEvent{Language: "kn-IN", Fragments: []speech.Fragment{{Index: 0, Text: "nanna appanige", IsFinal: false}}})
	s.ApplyRecognition(finalFragment(0, kannada))
	sched.flush()

	outcome, err := s.Submit(ctx, "")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	if outcome.Source != triage.SourceFallback || outcome.LikelyCondition != "Possible Cardiac Event" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	record, err := s.Dispatch(ctx)
	if err != nil {
		t.Fatalf("Dispatch err: %v", err)
	}
	if record.EnglishTranslation != "My father has chest pain, please come quickly" {
		t.Fatalf("unexpected english %q", record.EnglishTranslation)
	}
	if record.OriginalTranscript != kannada || record.DetectedLanguage != "kn-IN" || record.ConfidenceScore != 0.92 {
		t.Fatalf("unexpected record %+v", record)
	}
	if len(record.SymptomsExtracted) != 3 {
		t.Fatalf("expected cardiac, patient and urgency entries, got %+v", record.SymptomsExtracted)
	}
	if record.Severity != "" || record.TriageScore != nil {
		t.Fatalf("fallback record must not carry ai fields")
	}
	if record.DurationSeconds == nil || *record.DurationSeconds != 2 {
		t.Fatalf("unexpected duration %v", record.DurationSeconds)
	}

	if got := rec.List(ctx); len(got) != 1 || got[0].ID != record.ID {
		t.Fatalf("expected record to be persisted, got %+v", got)
	}
	if snap := s.Snapshot(); snap.Transcript.Transcript != "" || snap.Outcome != nil {
		t.Fatalf("session should be reset after dispatch, got %+v", snap)
	}
	if sink.count(EventSession) != 1 || sink.count(EventTranslation) != 1 {
		t.Fatalf("unexpected events %+v", sink.events)
	}
}

func TestDispatchCarriesAIFields(t *testing.T) {
	result := &triagemodel.Result{
		Symptoms:             []triagemodel.Entry{{Key: triagemodel.Emergency, Value: "Cardiac event", Critical: true}},
		LikelyCondition:      "STEMI",
		Severity:             triagemodel.Critical,
		RequiredCapabilities: []string{"cath_lab"},
		TriageScore:          9,
		Reasoning:            "Classic presentation",
	}
	s, sched, _, _ := newTestSession(t, triagerFunc(func() (*triagemodel.Result, error) { return result, nil }))

	s.ApplyRecognition(finalFragment(0, kannada))
	sched.flush()
	if _, err := s.Submit(context.Background(), ""); err != nil {
		t.Fatalf("Submit err: %v", err)
	}

	record, err := s.Cancel(context.Background())
	if err != nil {
		t.Fatalf("Cancel err: %v", err)
	}
	if record.Action != "cancelled" || record.LikelyCondition != "STEMI" || record.Severity != triagemodel.Critical {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.TriageScore == nil || *record.TriageScore != 9 || record.TriageReasoning != "Classic presentation" {
		t.Fatalf("missing ai fields %+v", record)
	}
}

type triagerFunc func() (*triagemodel.Result, error)

func (f triagerFunc) Triage(context.Context, string, string) (*triagemodel.Result, error) {
	return f()
}

func TestNewRecognitionClearsOutcome(t *testing.T) {
	s, sched, _, _ := newTestSession(t, nil)

	s.ApplyRecognition(finalFragment(0, kannada))
	sched.flush()
	if _, err := s.Submit(context.Background(), ""); err != nil {
		t.Fatalf("Submit err: %v", err)
	}

	s.ApplyRecognition(finalFragment(1, " innu"))
	snap := s.Snapshot()
	if snap.Outcome != nil || snap.State != triage.StateIdle {
		t.Fatalf("expected cleared outcome, got %+v", snap)
	}
	if snap.Transcript.Transcript != kannada+" innu" {
		t.Fatalf("unexpected transcript %q", snap.Transcript.Transcript)
	}
}

func TestSubmitNeedsTranslation(t *testing.T) {
	s, _, _, _ := newTestSession(t, nil)
	s.ApplyRecognition(finalFragment(0, kannada))

	if _, err := s.Submit(context.Background(), ""); !errors.Is(err, ErrNoTranslation) {
		t.Fatalf("expected ErrNoTranslation, got %v", err)
	}
	if _, err := s.Submit(context.Background(), "heart pain"); err != nil {
		t.Fatalf("explicit english should be accepted: %v", err)
	}
}

func TestDispatchWithoutSubmitUsesKeywordExtraction(t *testing.T) {
	s, sched, _, _ := newTestSession(t, nil)
	s.ApplyRecognition(finalFragment(0, kannada))
	sched.flush()

	record, err := s.Dispatch(context.Background())
	if err != nil {
		t.Fatalf("Dispatch err: %v", err)
	}
	if len(record.SymptomsExtracted) == 0 || record.SymptomsExtracted[0].Value != "Possible Cardiac Event" {
		t.Fatalf("expected extracted symptoms, got %+v", record.SymptomsExtracted)
	}
}

func TestDispatchEmptyTranscript(t *testing.T) {
	s, _, _, _ := newTestSession(t, nil)
	if _, err := s.Dispatch(context.Background()); !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("expected ErrEmptyTranscript, got %v", err)
	}
}

type channelRecognizer struct {
	events  chan speech.RecognitionEvent
	stopped bool
}

func (c *channelRecognizer) Start(context.Context, string) (<-chan speech.RecognitionEvent, error) {
	return c.events, nil
}

func (c *channelRecognizer) Stop() error {
	c.stopped = true
	return nil
}

func TestConsumeAppliesRecognizerEvents(t *testing.T) {
	s, _, _, _ := newTestSession(t, nil)
	rec := &channelRecognizer{events: make(chan speech.RecognitionEvent, 2)}
	rec.events <- finalFragment(0, "sahaya ")
	rec.events <- finalFragment(1, "maadi")
	close(rec.events)

	if err := s.Consume(context.Background(), rec, "kn-IN"); err != nil {
		t.Fatalf("Consume err: %v", err)
	}
	if !rec.stopped {
		t.Fatalf("recognizer should be stopped")
	}
	if got := s.Snapshot().Transcript.Transcript; got != "sahaya maadi" {
		t.Fatalf("unexpected transcript %q", got)
	}
}

type unsupportedRecognizer struct{}

func (unsupportedRecognizer) Start(context.Context, string) (<-chan speech.RecognitionEvent, error) {
	return nil, speech.ErrUnsupported
}

func (unsupportedRecognizer) Stop() error { return nil }

func TestConsumeUnsupportedRecognizer(t *testing.T) {
	s, _, _, _ := newTestSession(t, nil)
	if err := s.Consume(context.Background(), unsupportedRecognizer{}, "kn-IN"); !errors.Is(err, speech.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestDispatchRecordsTheTriagedText(t *testing.T) {
	s, sched, _, _ := newTestSession(t, nil)
	ctx := context.Background()

	s.ApplyRecognition(finalFragment(0, kannada))
	sched.flush()
	current, ok := s.debouncer.Current()
	if !ok || current.TranslatedText == "" {
		t.Fatalf("expected a translation, got %+v", current)
	}

	if _, err := s.Submit(ctx, "difficulty breathing, please help"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	record, err := s.Dispatch(ctx)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if record.EnglishTranslation != "difficulty breathing, please help" {
		t.Fatalf("expected the submitted text in the record, got %q", record.EnglishTranslation)
	}
	if len(record.SymptomsExtracted) == 0 || record.SymptomsExtracted[0].Value != "Difficulty breathing" {
		t.Fatalf("unexpected symptoms %+v", record.SymptomsExtracted)
	}
}
