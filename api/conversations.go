package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m0rjc/cyberalchemy/agents"
	"github.com/m0rjc/cyberalchemy/conversation"
)

type participantsRequest struct {
	AgentIDs []string `json:"agent_ids"`
}

type messageRequest struct {
	Content string `json:"content"`
}

// conversationView is a conversation without the model-facing state.
type conversationView struct {
	ID            string                 `json:"conversation_id"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	Agents        []agents.Config        `json:"agents"`
	Messages      []conversation.Message `json:"messages"`
	ArchivedIndex int                    `json:"archived_index"`
}

func viewOf(conv *conversation.Conversation) conversationView {
	return conversationView{
		ID:            conv.ID,
		CreatedAt:     conv.CreatedAt,
		UpdatedAt:     conv.UpdatedAt,
		Agents:        conv.Agents,
		Messages:      conv.Messages,
		ArchivedIndex: conv.Archive().ArchivedIndex,
	}
}

// participants resolves the requested agents. An unknown agent is a bad request here.
func (h *Handler) participants(r *http.Request, ids []string) ([]agents.Config, error) {
	configs, err := h.engine.Participants(r.Context(), ids)
	if errors.Is(err, agents.ErrAgentNotFound) {
		return nil, errors.Join(errBadRequest, fmt.Errorf("unknown participant: %w", err))
	}
	return configs, err
}

func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.engine.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	summaries := make([]conversation.Summary, len(convs))
	for i, conv := range convs {
		summaries[i] = conv.Summary()
	}
	JSON(w, http.StatusOK, summaries)
}

func (h *Handler) StartConversation(w http.ResponseWriter, r *http.Request) {
	var req participantsRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	participants, err := h.participants(r, req.AgentIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	conv, err := h.engine.Start(r.Context(), participants)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, viewOf(conv))
}

func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := h.engine.Resume(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, viewOf(conv))
}

func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ForkConversation copies a conversation. Without agent_ids the participants are kept.
func (h *Handler) ForkConversation(w http.ResponseWriter, r *http.Request) {
	var req participantsRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var participants []agents.Config
	if req.AgentIDs != nil {
		var err error
		if participants, err = h.participants(r, req.AgentIDs); err != nil {
			writeError(w, r, err)
			return
		}
	}
	fork, err := h.engine.Fork(r.Context(), chi.URLParam(r, "id"), participants)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, viewOf(fork))
}

// PostMessage runs one turn and returns the agent's reply.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply, err := h.engine.Respond(r.Context(), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		if !errors.Is(err, conversation.ErrConversationNotFound) && !errors.Is(err, conversation.ErrEmptyInput) {
			Error(w, http.StatusBadGateway, err.Error())
			return
		}
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, reply)
}
