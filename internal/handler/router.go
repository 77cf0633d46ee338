package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/golden-hour/backend/internal/handler/live"
	"github.com/zhouzirui/golden-hour/backend/internal/handler/session"
	"github.com/zhouzirui/golden-hour/backend/internal/handler/triage"
	middlewarePkg "github.com/zhouzirui/golden-hour/backend/internal/middleware"
	liveService "github.com/zhouzirui/golden-hour/backend/internal/service/live"
	"github.com/zhouzirui/golden-hour/backend/internal/service/recorder"
	"github.com/zhouzirui/golden-hour/backend/internal/service/translate"
	triageService "github.com/zhouzirui/golden-hour/backend/internal/service/triage"
	"github.com/zhouzirui/golden-hour/backend/pkg/utils"
)

// Services 汇总路由需要的核心服务。Triager 为 nil 时分诊走关键词回退。
type Services struct {
	Translator  translate.Translator
	Triager     triageService.Triager
	Recorder    *recorder.Service
	Language    string
	QuietPeriod time.Duration
}

// NewRouter wires HTTP routes to core services.
func NewRouter(svc Services) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	if svc.Recorder == nil {
		svc.Recorder = recorder.NewService(nil)
	}

	triageHandler := triage.New(svc.Translator, svc.Triager)
	sessionHandler := session.New(svc.Recorder)
	liveHandler := live.NewWebSocketHandler(liveService.Deps{
		Translator: svc.Translator,
		Triager:    svc.Triager,
		Recorder:   svc.Recorder,
	}, svc.Language, svc.QuietPeriod)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"aiReady": triagerReady(svc.Triager),
		})
	})

	r.Route("/api", func(api chi.Router) {
		triageHandler.RegisterRoutes(api)
		sessionHandler.RegisterRoutes(api)
		liveHandler.RegisterWebSocketRoutes(api)
	})

	return r
}

// triagerReady 报告分诊能力是否可用；实现了 Enabled 的服务以其结果为准。
func triagerReady(t triageService.Triager) bool {
	if t == nil {
		return false
	}
	if e, ok := t.(interface{ Enabled() bool }); ok {
		return e.Enabled()
	}
	return true
}
