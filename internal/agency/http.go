package agency

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gestaozabele/recrutamento/internal/apperr"
	httpmiddleware "github.com/gestaozabele/recrutamento/internal/http/middleware"
	"github.com/gestaozabele/recrutamento/internal/http/respond"
)

// Handler expõe as rotas de agências.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes regista as rotas autenticadas.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/agencies", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.With(httpmiddleware.RequireAgencyAccess("id")).Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Put("/{id}/inactivate", h.handleInactivate)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("não autenticado"))
		return
	}
	agencies, err := h.svc.List(r.Context(), actor, r.URL.Query().Get("status"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, agencies)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("não autenticado"))
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
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("não autenticado"))
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
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("não autenticado"))
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

func (h *Handler) handleInactivate(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("não autenticado"))
		return
	}
	a, err := h.svc.Inactivate(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, a)
}
