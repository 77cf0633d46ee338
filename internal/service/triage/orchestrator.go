package triage

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/zhouzirui/golden-hour/backend/internal/analysis/symptom"
	"github.com/zhouzirui/golden-hour/backend/internal/model/speech"
	triagemodel "github.com/zhouzirui/golden-hour/backend/internal/model/triage"
	"github.com/zhouzirui/golden-hour/backend/internal/service/translate"
)

var (
	// ErrEmptyText rejects a submission without English text.
	ErrEmptyText = errors.New("english text is empty")
	// ErrSuperseded is returned when a reset happened while the call was in flight.
	ErrSuperseded = errors.New("superseded by newer recognition activity")
	// ErrNothingToToggle means no outcome exists yet.
	ErrNothingToToggle = errors.New("no triage outcome to translate")
)

// State is a step of one submission.
type State string

const (
	StateIdle                    State = "idle"
	StateAwaitingAI              State = "awaiting_ai_response"
	StateAISucceeded             State = "ai_succeeded"
	StateAIFailed                State = "ai_failed"
	StateSummarizing             State = "summarizing"
	StateAwaitingBackTranslation State = "awaiting_back_translation"
	StateComplete                State = "complete"
)

// Source tells which path produced an outcome.
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// Triager is the AI triage capability. triagemodel.ErrUnavailable and
// triagemodel.ErrNoAnswer both mean "use keyword extraction".
type Triager interface {
	Triage(ctx context.Context, englishText, originalText string) (*triagemodel.Result, error)
}

// Outcome is what the operator sees after a submission.
type Outcome struct {
	// EnglishText is the text that was triaged.
	EnglishText       string              `json:"englishText"`
	Symptoms          []triagemodel.Entry `json:"symptoms"`
	LikelyCondition   string              `json:"likelyCondition"`
	Triage            *triagemodel.Result `json:"triage,omitempty"`
	Source            Source              `json:"source"`
	Summary           string              `json:"summary"`
	TranslatedSummary string              `json:"translatedSummary"`
	TargetLanguage    string              `json:"targetLanguage"`
}

func (o Outcome) clone() Outcome {
	out := o
	out.Symptoms = copyEntries(o.Symptoms)
	if o.Triage != nil {
		res := *o.Triage
		res.Symptoms = copyEntries(o.Triage.Symptoms)
		res.RequiredCapabilities = append([]string(nil), o.Triage.RequiredCapabilities...)
		out.Triage = &res
	}
	return out
}

func copyEntries(in []triagemodel.Entry) []triagemodel.Entry {
	out := make([]triagemodel.Entry, len(in))
	copy(out, in)
	return out
}

// SymptomView is the symptom list in one display language.
type SymptomView struct {
	Translated      bool                `json:"translated"`
	LikelyCondition string              `json:"likelyCondition"`
	Symptoms        []triagemodel.Entry `json:"symptoms"`
}

type symptomTranslation struct {
	condition string
	values    []string
}

// Config 配置编排器的回调。
type Config struct {
	OnState   func(State)
	OnOutcome func(Outcome)
}

// Orchestrator runs explicit triage submissions and owns their derived results.
type Orchestrator struct {
	triager    Triager
	translator translate.Translator
	onState    func(State)
	onOutcome  func(Outcome)

	mu             sync.Mutex
	generation     uint64
	state          State
	outcome        *Outcome
	symptomCache   *symptomTranslation
	showTranslated bool
}

// NewOrchestrator creates an orchestrator. A nil triager always falls back to
// keyword extraction; a nil translator leaves translations blank.
func NewOrchestrator(triager Triager, translator translate.Translator, cfg Config) *Orchestrator {
	if translator == nil {
		translator = translate.Unavailable{}
	}
	return &Orchestrator{
		triager:    triager,
		translator: translator,
		onState:    cfg.OnState,
		onOutcome:  cfg.OnOutcome,
		state:      StateIdle,
	}
}

// State returns the current step.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Outcome returns the latest displayable outcome.
func (o *Orchestrator) Outcome() (Outcome, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcome == nil {
		return Outcome{}, false
	}
	return o.outcome.clone(), true
}

// Submit triages englishText. The summary is back-translated into language
// after it is fixed; that step never fails the submission.
func (o *Orchestrator) Submit(ctx context.Context, englishText, originalText, language string) (Outcome, error) {
	if strings.TrimSpace(englishText) == "" {
		return Outcome{}, ErrEmptyText
	}
	language = speech.NormalizeLanguage(language)
	if language == "" {
		language = speech.DefaultSourceLanguage
	}

	o.mu.Lock()
	o.generation++
	gen := o.generation
	o.outcome = nil
	o.symptomCache = nil
	o.showTranslated = false
	o.state = StateAwaitingAI
	o.mu.Unlock()
	o.notifyState(StateAwaitingAI)

	result, err := o.runTriage(ctx, englishText, originalText)

	next := StateAISucceeded
	outcome := Outcome{EnglishText: englishText, TargetLanguage: language}
	if err != nil {
		if errors.Is(err, triagemodel.ErrUnavailable) || errors.Is(err, triagemodel.ErrNoAnswer) {
			log.Printf("[triage] ai triage declined, use keyword fallback: %v", err)
		} else {
			log.Printf("[triage] ai triage failed, use keyword fallback: %v", err)
		}
		next = StateAIFailed
		outcome.Symptoms = symptom.Extract(englishText)
		outcome.LikelyCondition = symptom.LikelyCondition(outcome.Symptoms)
		outcome.Source = SourceFallback
	} else {
		outcome.Triage = result
		outcome.Symptoms = result.Symptoms
		outcome.LikelyCondition = result.LikelyCondition
		outcome.Source = SourceAI
	}

	if !o.advance(gen, next) {
		return Outcome{}, ErrSuperseded
	}
	if !o.advance(gen, StateSummarizing) {
		return Outcome{}, ErrSuperseded
	}

	outcome.Summary = BuildSummary(outcome.LikelyCondition, outcome.Symptoms, outcome.Triage)

	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return Outcome{}, ErrSuperseded
	}
	stored := outcome.clone()
	o.outcome = &stored
	o.state = StateAwaitingBackTranslation
	o.mu.Unlock()
	o.notifyState(StateAwaitingBackTranslation)
	o.notifyOutcome(outcome)

	translated := o.backTranslate(ctx, outcome.Summary, language)

	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return Outcome{}, ErrSuperseded
	}
	o.outcome.TranslatedSummary = translated
	o.state = StateComplete
	final := o.outcome.clone()
	o.mu.Unlock()

	o.notifyState(StateComplete)
	o.notifyOutcome(final)
	return final, nil
}

func (o *Orchestrator) runTriage(ctx context.Context, englishText, originalText string) (*triagemodel.Result, error) {
	if o.triager == nil {
		return nil, triagemodel.ErrUnavailable
	}
	result, err := o.triager.Triage(ctx, englishText, originalText)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, triagemodel.ErrNoAnswer
	}
	return result, nil
}

func (o *Orchestrator) backTranslate(ctx context.Context, summary, language string) string {
	if language == speech.EnglishIndia {
		return summary
	}
	res, err := o.translator.Translate(ctx, summary, speech.EnglishIndia, language)
	if err != nil {
		log.Printf("[triage] summary back-translation failed: %v", err)
		return ""
	}
	return res.TranslatedText
}

// advance moves to state if no reset happened since gen was issued.
func (o *Orchestrator) advance(gen uint64, state State) bool {
	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return false
	}
	o.state = state
	o.mu.Unlock()
	o.notifyState(state)
	return true
}

// ToggleSymptomLanguage flips the symptom list between English and the
// caller's language. The first switch to the caller's language translates the
// condition and symptom values in one batch and caches them. On failure the
// view stays in English.
func (o *Orchestrator) ToggleSymptomLanguage(ctx context.Context) (SymptomView, error) {
	o.mu.Lock()
	if o.outcome == nil {
		o.mu.Unlock()
		return SymptomView{}, ErrNothingToToggle
	}
	current := o.outcome.clone()
	if o.showTranslated {
		o.showTranslated = false
		o.mu.Unlock()
		return englishView(current), nil
	}
	if o.symptomCache != nil || current.TargetLanguage == speech.EnglishIndia {
		o.showTranslated = true
		view := o.translatedViewLocked(current)
		o.mu.Unlock()
		return view, nil
	}
	gen := o.generation
	o.mu.Unlock()

	lines := make([]string, 0, len(current.Symptoms)+1)
	lines = append(lines, current.LikelyCondition)
	for _, s := range current.Symptoms {
		lines = append(lines, s.Value)
	}

	res, err := o.translator.Translate(ctx, strings.Join(lines, "\n"), speech.EnglishIndia, current.TargetLanguage)
	if err != nil {
		log.Printf("[triage] symptom translation failed, keep english: %v", err)
		return englishView(current), nil
	}
	translated := splitLines(res.TranslatedText)
	if len(translated) != len(lines) {
		log.Printf("[triage] symptom translation returned %d lines for %d, keep english", len(translated), len(lines))
		return englishView(current), nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation {
		return SymptomView{}, ErrSuperseded
	}
	o.symptomCache = &symptomTranslation{condition: translated[0], values: translated[1:]}
	o.showTranslated = true
	return o.translatedViewLocked(current), nil
}

func (o *Orchestrator) translatedViewLocked(current Outcome) SymptomView {
	if o.symptomCache == nil {
		view := englishView(current)
		view.Translated = true
		return view
	}
	symptoms := make([]triagemodel.Entry, len(current.Symptoms))
	for i, s := range current.Symptoms {
		s.Value = o.symptomCache.values[i]
		symptoms[i] = s
	}
	return SymptomView{Translated: true, LikelyCondition: o.symptomCache.condition, Symptoms: symptoms}
}

func englishView(current Outcome) SymptomView {
	return SymptomView{LikelyCondition: current.LikelyCondition, Symptoms: current.Symptoms}
}

func splitLines(text string) []string {
	trimmed := strings.Trim(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if trimmed == "" {
		return nil
	}
	lines := strings.Split(trimmed, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return lines
}

// Reset discards every derived result and returns to idle. Submissions or
// toggles still in flight finish with ErrSuperseded.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.generation++
	o.outcome = nil
	o.symptomCache = nil
	o.showTranslated = false
	changed := o.state != StateIdle
	o.state = StateIdle
	o.mu.Unlock()

	if changed {
		o.notifyState(StateIdle)
	}
}

func (o *Orchestrator) notifyState(state State) {
	if o.onState != nil {
		o.onState(state)
	}
}

func (o *Orchestrator) notifyOutcome(outcome Outcome) {
	if o.onOutcome != nil {
		o.onOutcome(outcome)
	}
}
