package notify

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gestaozabele/recrutamento/internal/apperr"
	httpmiddleware "github.com/gestaozabele/recrutamento/internal/http/middleware"
	"github.com/gestaozabele/recrutamento/internal/http/respond"
)

// Handler expõe a caixa de notificações do utilizador autenticado.
type Handler struct {
	inbox Inbox
}

func NewHandler(inbox Inbox) *Handler {
	return &Handler{inbox: inbox}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Put("/{id}/read", h.handleMarkRead)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("não autenticado"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.inbox.List(r.Context(), actor.ID, limit)
	if err != nil {
		respond.Error(w, r, apperr.Dependency("falha ao carregar notificações", err))
		return
	}
	respond.JSON(w, http.StatusOK, events)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("não autenticado"))
		return
	}

	err := h.inbox.MarkRead(r.Context(), actor.ID, chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(w, r, apperr.NotFound("notificação não encontrada"))
	case err != nil:
		respond.Error(w, r, apperr.Dependency("falha ao atualizar notificação", err))
	default:
		respond.JSON(w, http.StatusOK, map[string]bool{"lida": true})
	}
}
