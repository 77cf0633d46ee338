package live

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/zhouzirui/golden-hour/backend/internal/model/speech"
)

var (
	errRecognizerStarted = errors.New("recognizer already started")
	errRecognizerStopped = errors.New("recognizer stopped")
	errRecognizerBusy    = errors.New("recognition backlog full, event dropped")
)

// clientRecognizer 将客户端推送的识别结果转成 speech.Recognizer。
// 浏览器端负责真正的语音识别，服务端只消费其事件。
type clientRecognizer struct {
	mu      sync.Mutex
	events  chan speech.RecognitionEvent
	started bool
	stopped bool
}

func newClientRecognizer() *clientRecognizer {
	return &clientRecognizer{events: make(chan speech.RecognitionEvent, 64)}
}

func (c *clientRecognizer) Start(_ context.Context, _ string) (<-chan speech.RecognitionEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil, errRecognizerStarted
	}
	c.started = true
	return c.events, nil
}

// Push 投递一个识别事件。停止后返回 errRecognizerStopped；缓冲区满时丢弃并返回 errRecognizerBusy。
func (c *clientRecognizer) Push(event speech.RecognitionEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return errRecognizerStopped
	}
	select {
	case c.events <- event:
		return nil
	default:
		log.Printf("[live-ws] recognition buffer full, dropping event")
		return errRecognizerBusy
	}
}

func (c *clientRecognizer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stopped {
		c.stopped = true
		close(c.events)
	}
	return nil
}
