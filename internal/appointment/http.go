package appointment

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gestaozabele/recrutamento/internal/apperr"
	httpmiddleware "github.com/gestaozabele/recrutamento/internal/http/middleware"
	"github.com/gestaozabele/recrutamento/internal/http/respond"
	"github.com/gestaozabele/recrutamento/internal/rbac"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/appointments", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/today", h.handleToday)
		r.Get("/period/{start}/{end}", h.handlePeriod)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Put("/{id}/cancel", h.handleCancel)
		r.Post("/{id}/participants", h.handleAddParticipant)
		r.Delete("/{id}/participants/{userID}", h.handleRemoveParticipant)
	})
}

func actorFrom(w http.ResponseWriter, r *http.Request) (rbac.Actor, bool) {
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("não autenticado"))
	}
	return actor, ok
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	list, err := h.svc.List(r.Context(), actor, ListFilter{
		From:   q.Get("de"),
		To:     q.Get("ate"),
		Status: q.Get("status"),
		Tipo:   q.Get("tipo"),
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	list, err := h.svc.Today(r.Context(), actor)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

func (h *Handler) handlePeriod(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	list, err := h.svc.Period(r.Context(), actor, chi.URLParam(r, "start"), chi.URLParam(r, "end"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in CreateInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	a, err := h.svc.Create(r.Context(), actor, in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, a)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	a, err := h.svc.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, a)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in UpdateInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	a, err := h.svc.Update(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, a)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	a, err := h.svc.Cancel(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, a)
}

func (h *Handler) handleAddParticipant(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in struct {
		UserID string `json:"user_id"`
	}
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	a, err := h.svc.AddParticipant(r.Context(), actor, chi.URLParam(r, "id"), in.UserID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, a)
}

func (h *Handler) handleRemoveParticipant(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	a, err := h.svc.RemoveParticipant(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, a)
}
