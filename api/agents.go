package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m0rjc/cyberalchemy/agents"
)

type createAgentRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"system_prompt"`
}

func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	configs, err := h.registry.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, configs)
}

func (h *Handler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	config, err := h.registry.Create(r.Context(), agents.Config{
		Name:         req.Name,
		Description:  req.Description,
		SystemPrompt: req.SystemPrompt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, config)
}

func (h *Handler) GetAgent(w http.ResponseWriter, r *http.Request) {
	config, err := h.registry.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, config)
}

func (h *Handler) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
