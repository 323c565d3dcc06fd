package department

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
	r.Route("/departments", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.Group(func(r chi.Router) {
			r.Use(httpmiddleware.RequireRoles(rbac.RoleAdmin, rbac.RoleManager))
			r.Post("/", h.handleCreate)
			r.Put("/{id}", h.handleUpdate)
			r.Put("/{id}/inactivate", h.handleInactivate)
		})
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	deps, err := h.svc.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, deps)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, d)
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
	d, err := h.svc.Create(r.Context(), actor, in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, d)
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
	d, err := h.svc.Update(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, d)
}

func (h *Handler) handleInactivate(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("não autenticado"))
		return
	}
	d, err := h.svc.Inactivate(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, d)
}
