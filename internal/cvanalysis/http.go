package cvanalysis

import (
	"net/http"
	"strconv"

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
	r.Route("/cv-analyses", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
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
	filter := ListFilter{
		Status:        q.Get("status"),
		Classificacao: q.Get("classificacao"),
		CandidatoID:   q.Get("candidato_id"),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	list, err := h.svc.List(r.Context(), actor, filter)
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

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		respond.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
