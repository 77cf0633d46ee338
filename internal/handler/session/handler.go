package session

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	sessionmodel "github.com/zhouzirui/golden-hour/backend/internal/model/session"
	"github.com/zhouzirui/golden-hour/backend/internal/service/recorder"
	"github.com/zhouzirui/golden-hour/backend/pkg/utils"
)

// Handler 会话记录的 HTTP 处理器
type Handler struct {
	recorder *recorder.Service
}

// New 创建会话处理器
func New(rec *recorder.Service) *Handler {
	return &Handler{recorder: rec}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleSave)
		r.Delete("/", h.handleClear)
		r.Get("/stats", h.handleStats)
		r.Get("/{id}", h.handleGet)
		r.Patch("/{id}/action", h.handleUpdateAction)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.recorder.List(r.Context()))
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.recorder.Stats(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	record, err := h.recorder.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, recorder.ErrSessionNotFound) {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, record)
}

// handleSave 保存一条由客户端整理好的会话记录
func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	var draft sessionmodel.Draft
	if err := utils.DecodeJSON(w, r, &draft); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if draft.Action != "" && !draft.Action.Valid() {
		utils.RespondError(w, http.StatusBadRequest, "invalid action")
		return
	}

	record := h.recorder.Save(r.Context(), draft)
	utils.RespondJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleUpdateAction(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Action sessionmodel.Action `json:"action"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := chi.URLParam(r, "id")
	updated, err := h.recorder.UpdateAction(r.Context(), id, payload.Action)
	if errors.Is(err, recorder.ErrInvalidAction) {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !updated {
		utils.RespondError(w, http.StatusNotFound, recorder.ErrSessionNotFound.Error())
		return
	}

	record, err := h.recorder.Get(r.Context(), id)
	if err != nil {
		// 持久化失败时记录可能已不可读，仍视为请求已接受
		utils.RespondJSON(w, http.StatusAccepted, map[string]string{"id": id, "action": string(payload.Action)})
		return
	}
	utils.RespondJSON(w, http.StatusOK, record)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	h.recorder.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
