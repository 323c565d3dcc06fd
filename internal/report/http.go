package report

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
	r.Route("/reports", func(r chi.Router) {
		r.Get("/dashboard", h.handleDashboard)
		r.Get("/funnel", h.handleFunnel)
		r.Get("/rankings", h.handleRankings)
		r.Put("/metrics", h.handlePersist)
	})
}

func actorFrom(w http.ResponseWriter, r *http.Request) (rbac.Actor, bool) {
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("não autenticado"))
	}
	return actor, ok
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	out, err := h.svc.Dashboard(r.Context(), actor, r.URL.Query().Get("period"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleFunnel(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	out, err := h.svc.Funnel(r.Context(), actor, r.URL.Query().Get("period"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation("parâmetro numérico inválido")
	}
	return n, nil
}

func (h *Handler) handleRankings(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFrom(w, r); !ok {
		return
	}
	month, err := intParam(r.URL.Query().Get("month"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	year, err := intParam(r.URL.Query().Get("year"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	out, err := h.svc.Rankings(r.Context(), month, year)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *Handler) handlePersist(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	if actor.Role != rbac.RoleAdmin {
		respond.Error(w, r, apperr.Forbidden("Somente o Admin pode alterar métricas."))
		return
	}
	if err := h.svc.PersistSnapshots(r.Context()); err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"message": "Métricas atualizadas"})
}
