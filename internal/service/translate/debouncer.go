package translate

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/golden-hour/backend/internal/model/speech"
)

// DefaultQuietPeriod is how long the transcript must stay unchanged before a
// translation is requested.
const DefaultQuietPeriod = 500 * time.Millisecond

// DebouncerConfig 控制翻译去抖行为。
type DebouncerConfig struct {
	QuietPeriod    time.Duration
	TargetLanguage string
	Scheduler      Scheduler
	// OnResult receives every accepted translation.
	OnResult func(speech.TranslationResult)
	// OnTranslating receives the in-flight flag whenever it changes.
	OnTranslating func(bool)
}

// Debouncer turns a rapidly changing transcript into at most one translation
// request per quiet period. Only the latest issued request may update the
// current translation.
type Debouncer struct {
	ctx        context.Context
	translator Translator
	scheduler  Scheduler
	quiet      time.Duration
	target     string

	onResult      func(speech.TranslationResult)
	onTranslating func(bool)

	mu           sync.Mutex
	pendingText  string
	pendingLang  string
	timer        Timer
	timerGen     uint64
	seq          uint64
	lastAccepted string
	current      *speech.TranslationResult
	translating  bool
}

// NewDebouncer creates a debouncer. ctx bounds every translation request.
func NewDebouncer(ctx context.Context, translator Translator, cfg DebouncerConfig) *Debouncer {
	if ctx == nil {
		ctx = context.Background()
	}
	if translator == nil {
		translator = Unavailable{}
	}
	quiet := cfg.QuietPeriod
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	scheduler := cfg.Scheduler
	if scheduler == nil {
		scheduler = RealScheduler{}
	}
	target := strings.TrimSpace(cfg.TargetLanguage)
	if target == "" {
		target = speech.EnglishIndia
	}

	return &Debouncer{
		ctx:           ctx,
		translator:    translator,
		scheduler:     scheduler,
		quiet:         quiet,
		target:        target,
		onResult:      cfg.OnResult,
		onTranslating: cfg.OnTranslating,
	}
}

// Update records the latest transcript and re-arms the quiet-period timer.
func (d *Debouncer) Update(text, sourceLanguage string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pendingText = text
	d.pendingLang = sourceLanguage
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timerGen++
	gen := d.timerGen
	d.timer = d.scheduler.AfterFunc(d.quiet, func() { d.fire(gen) })
}

// Current returns the latest accepted translation.
func (d *Debouncer) Current() (speech.TranslationResult, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return speech.TranslationResult{}, false
	}
	return *d.current, true
}

// Translating reports whether the latest issued request is still in flight.
func (d *Debouncer) Translating() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.translating
}

// Reset cancels the pending timer, invalidates in-flight requests and clears
// the current translation.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.timerGen++
	d.seq++
	d.pendingText = ""
	d.pendingLang = ""
	d.lastAccepted = ""
	d.current = nil
	wasTranslating := d.translating
	d.translating = false
	d.mu.Unlock()

	if wasTranslating {
		d.notifyTranslating(false)
	}
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.timerGen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	text := d.pendingText
	lang := d.pendingLang
	if strings.TrimSpace(text) == "" || text == d.lastAccepted {
		// 当前文本无需翻译，但仍需作废针对其他文本的在途请求。
		wasTranslating := d.translating
		if wasTranslating {
			d.seq++
			d.translating = false
		}
		d.mu.Unlock()
		if wasTranslating {
			d.notifyTranslating(false)
		}
		return
	}
	d.seq++
	seq := d.seq
	d.translating = true
	d.mu.Unlock()

	d.notifyTranslating(true)

	result, err := d.translator.Translate(d.ctx, text, lang, d.target)

	d.mu.Lock()
	if seq != d.seq {
		d.mu.Unlock()
		log.Printf("[translate] discard stale result seq=%d", seq)
		return
	}
	d.translating = false
	if err != nil {
		d.mu.Unlock()
		log.Printf("[translate] translation failed, keep previous result: %v", err)
		d.notifyTranslating(false)
		return
	}
	if result.SourceLanguage == "" {
		result.SourceLanguage = lang
	}
	accepted := result
	d.current = &accepted
	d.lastAccepted = text
	d.mu.Unlock()

	d.notifyTranslating(false)
	if d.onResult != nil {
		d.onResult(result)
	}
}

func (d *Debouncer) notifyTranslating(active bool) {
	if d.onTranslating != nil {
		d.onTranslating(active)
	}
}
