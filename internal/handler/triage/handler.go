package triage

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/golden-hour/backend/internal/model/speech"
	triagemodel "github.com/zhouzirui/golden-hour/backend/internal/model/triage"
	"github.com/zhouzirui/golden-hour/backend/internal/service/translate"
	triageService "github.com/zhouzirui/golden-hour/backend/internal/service/triage"
	"github.com/zhouzirui/golden-hour/backend/pkg/utils"
)

// Handler 暴露翻译、分诊与一次性流水线接口。
type Handler struct {
	translator translate.Translator
	triager    triageService.Triager
}

// New 创建处理器。triager 为 nil 时分诊接口总是返回 fallback。
func New(translator translate.Translator, triager triageService.Triager) *Handler {
	if translator == nil {
		translator = translate.Unavailable{}
	}
	return &Handler{translator: translator, triager: triager}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/translate", h.handleTranslate)
	r.Post("/triage", h.handleTriage)
	r.Post("/pipeline", h.handlePipeline)
	r.Get("/languages", h.handleLanguages)
}

type languageInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (h *Handler) handleLanguages(w http.ResponseWriter, r *http.Request) {
	codes := speech.SupportedLanguages()
	languages := make([]languageInfo, 0, len(codes))
	for _, code := range codes {
		languages = append(languages, languageInfo{Code: code, Name: speech.LanguageName(code)})
	}
	utils.RespondJSON(w, http.StatusOK, languages)
}

type translateRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
}

func (h *Handler) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var payload translateRequest
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.TargetLanguage == "" {
		payload.TargetLanguage = speech.EnglishIndia
	}

	result, err := h.translator.Translate(r.Context(), payload.Text, payload.SourceLanguage, payload.TargetLanguage)
	if errors.Is(err, translate.ErrUnavailable) {
		utils.RespondError(w, http.StatusServiceUnavailable, "translation not configured")
		return
	}
	if err != nil {
		log.Printf("[translate] request failed: %v", err)
		utils.RespondError(w, http.StatusBadGateway, "translation failed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

type triageRequest struct {
	EnglishText     string `json:"englishText"`
	OriginalText    string `json:"originalText"`
	OriginalKannada string `json:"originalKannada"`
	Language        string `json:"language"`
}

func (p triageRequest) original() string {
	if strings.TrimSpace(p.OriginalText) != "" {
		return p.OriginalText
	}
	return p.OriginalKannada
}

type fallbackResponse struct {
	Fallback bool   `json:"fallback"`
	Reason   string `json:"reason"`
}

// handleTriage 返回 AI 分诊结果，不可用或出错时返回 {fallback: true}。
func (h *Handler) handleTriage(w http.ResponseWriter, r *http.Request) {
	var payload triageRequest
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(payload.EnglishText) == "" {
		utils.RespondError(w, http.StatusBadRequest, "Missing englishText field")
		return
	}

	if h.triager == nil {
		utils.RespondJSON(w, http.StatusOK, fallbackResponse{Fallback: true, Reason: "No API key configured"})
		return
	}

	result, err := h.triager.Triage(r.Context(), payload.EnglishText, payload.original())
	if err != nil || result == nil {
		reason := "no answer"
		if err != nil {
			reason = err.Error()
		}
		if errors.Is(err, triagemodel.ErrUnavailable) {
			reason = "No API key configured"
		}
		log.Printf("[triage] returning fallback: %s", reason)
		utils.RespondJSON(w, http.StatusOK, fallbackResponse{Fallback: true, Reason: reason})
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

// handlePipeline 运行一次完整的分诊流程；Accept: text/event-stream 时以 SSE 推送状态。
func (h *Handler) handlePipeline(w http.ResponseWriter, r *http.Request) {
	var payload triageRequest
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(payload.EnglishText) == "" {
		utils.RespondError(w, http.StatusBadRequest, "Missing englishText field")
		return
	}

	if !strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		orch := triageService.NewOrchestrator(h.triager, h.translator, triageService.Config{})
		outcome, err := orch.Submit(r.Context(), payload.EnglishText, payload.original(), payload.Language)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		utils.RespondJSON(w, http.StatusOK, outcome)
		return
	}

	stream, err := utils.NewSSEStream(w)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	orch := triageService.NewOrchestrator(h.triager, h.translator, triageService.Config{
		OnState: func(state triageService.State) {
			stream.Send("state", map[string]string{"state": string(state)})
		},
		OnOutcome: func(outcome triageService.Outcome) {
			stream.Send("outcome", outcome)
		},
	})

	if _, err := orch.Submit(r.Context(), payload.EnglishText, payload.original(), payload.Language); err != nil {
		stream.Send("error", map[string]string{"error": err.Error()})
		return
	}
	stream.Send("done", map[string]string{"state": string(triageService.StateComplete)})
}
