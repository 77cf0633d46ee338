package live

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/golden-hour/backend/internal/model/speech"
	liveservice "github.com/zhouzirui/golden-hour/backend/internal/service/live"
	"github.com/zhouzirui/golden-hour/backend/internal/service/triage"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// WebSocketHandler 实时分诊会话处理器
type WebSocketHandler struct {
	deps        liveservice.Deps
	language    string
	quietPeriod time.Duration
	upgrader    websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(deps liveservice.Deps, language string, quietPeriod time.Duration) *WebSocketHandler {
	if language == "" {
		language = speech.DefaultSourceLanguage
	}
	return &WebSocketHandler{
		deps:        deps,
		language:    language,
		quietPeriod: quietPeriod,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/live/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// StartMessage 开始录音
type StartMessage struct {
	Language string `json:"language"`
}

// SubmitMessage 提交分诊；EnglishText 为空时使用当前翻译
type SubmitMessage struct {
	EnglishText string `json:"englishText"`
}

// connection 串行化对同一个连接的写操作。
type connection struct {
	conn      *websocket.Conn
	sessionID string
	writeMu   sync.Mutex
}

func (c *connection) write(msg outgoingMessage) {
	msg.SessionID = c.sessionID
	msg.Timestamp = time.Now().Unix()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		log.Printf("[live-ws] write %s failed: %v", msg.Type, err)
	}
}

func (c *connection) sendResult(kind string, data any) {
	c.write(outgoingMessage{Type: kind, Data: data})
}

func (c *connection) sendError(message string) {
	c.write(outgoingMessage{Type: "error", Data: map[string]string{"message": message}})
}

func (c *connection) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

type connectionState struct {
	session  *liveservice.Session
	language string

	mu         sync.Mutex
	recognizer *clientRecognizer
	// drained 在最近一个识别消费协程退出后关闭。
	drained chan struct{}
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	language := strings.TrimSpace(r.URL.Query().Get("language"))
	if language == "" {
		language = h.language
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[live-ws] upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn := &connection{conn: ws}
	state := &connectionState{language: language}
	state.session = liveservice.New(ctx, h.deps, liveservice.Config{
		Language:    language,
		QuietPeriod: h.quietPeriod,
		OnEvent: func(event liveservice.Event) {
			conn.sendResult("event", event)
		},
	})
	conn.sessionID = state.session.ID()
	defer state.session.Reset()
	defer state.stopRecognizer()

	log.Printf("[live-ws] new connection session=%s language=%s", conn.sessionID, language)

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go h.pingLoop(ctx, conn)

	conn.sendResult("connected", map[string]any{
		"language": language,
	})

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[live-ws] read error: %v", err)
			}
			return
		}

		ws.SetReadDeadline(time.Now().Add(pongWait))

		if msg.SessionID != "" && msg.SessionID != conn.sessionID {
			conn.sendError("session mismatch")
			continue
		}

		h.handleMessage(ctx, conn, state, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *connection, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "start":
		h.handleStart(ctx, conn, state, msg.Data)
	case "recognition":
		h.handleRecognition(ctx, conn, state, msg.Data)
	case "stop":
		state.stopRecognizer()
		conn.sendResult("stopped", nil)
	case "submit":
		h.handleSubmit(ctx, conn, state, msg.Data)
	case "toggle_symptoms":
		go func() {
			view, err := state.session.ToggleSymptoms(ctx)
			if err != nil {
				conn.sendError(err.Error())
				return
			}
			conn.sendResult("symptoms", view)
		}()
	case "dispatch", "cancel":
		state.stopRecognizer()
		finish := state.session.Dispatch
		if msg.Type == "cancel" {
			finish = state.session.Cancel
		}
		if _, err := finish(ctx); err != nil {
			conn.sendError(err.Error())
		}
	case "reset":
		state.stopRecognizer()
		state.session.Reset()
		conn.sendResult("snapshot", state.session.Snapshot())
	case "snapshot":
		conn.sendResult("snapshot", state.session.Snapshot())
	default:
		conn.sendError("unsupported message type: " + msg.Type)
	}
}

func (h *WebSocketHandler) handleStart(ctx context.Context, conn *connection, state *connectionState, raw json.RawMessage) {
	var start StartMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &start); err != nil {
			conn.sendError("invalid start payload")
			return
		}
	}
	language := start.Language
	if language == "" {
		language = state.language
	}

	rec := newClientRecognizer()
	done := make(chan struct{})
	state.mu.Lock()
	previous := state.recognizer
	state.recognizer = rec
	state.drained = done
	state.mu.Unlock()
	if previous != nil {
		previous.Stop()
	}

	go func() {
		defer close(done)
		if err := state.session.Consume(ctx, rec, language); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[live-ws] session=%s recognition ended: %v", conn.sessionID, err)
		}
	}()
	conn.sendResult("started", map[string]string{"language": language})
}

func (h *WebSocketHandler) handleRecognition(ctx context.Context, conn *connection, state *connectionState, raw json.RawMessage) {
	var event speech.RecognitionEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		conn.sendError("invalid recognition payload")
		return
	}
	if event.Language == "" {
		event.Language = state.language
	}

	if err := state.deliver(ctx, event); err != nil {
		conn.sendError(err.Error())
	}
}

// deliver 保证识别事件按到达顺序应用：录音进行中只经由消费协程，
// 否则等待上一个消费协程排空后再直接应用。
func (s *connectionState) deliver(ctx context.Context, event speech.RecognitionEvent) error {
	s.mu.Lock()
	rec := s.recognizer
	drained := s.drained
	s.mu.Unlock()

	if rec != nil {
		err := rec.Push(event)
		if err == nil || errors.Is(err, errRecognizerBusy) {
			return err
		}
	}
	if drained != nil {
		select {
		case <-drained:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.session.ApplyRecognition(event)
	return nil
}

// handleSubmit 在后台运行分诊，读循环可继续处理 reset 等消息。
func (h *WebSocketHandler) handleSubmit(ctx context.Context, conn *connection, state *connectionState, raw json.RawMessage) {
	var submit SubmitMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &submit); err != nil {
			conn.sendError("invalid submit payload")
			return
		}
	}
	go func() {
		_, err := state.session.Submit(ctx, submit.EnglishText)
		if errors.Is(err, triage.ErrSuperseded) {
			return
		}
		if err != nil {
			conn.sendError(err.Error())
		}
	}()
}

func (s *connectionState) stopRecognizer() {
	s.mu.Lock()
	rec := s.recognizer
	s.recognizer = nil
	s.mu.Unlock()
	if rec != nil {
		rec.Stop()
	}
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}
