package candidate

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gestaozabele/recrutamento/internal/apperr"
	httpmiddleware "github.com/gestaozabele/recrutamento/internal/http/middleware"
	"github.com/gestaozabele/recrutamento/internal/http/respond"
	"github.com/gestaozabele/recrutamento/internal/rbac"
)

const maxDocumentSize = 10 << 20

// Handler expõe as rotas de candidatos.
type Handler struct {
	svc *Service
}

// NewHandler cria o handler de candidatos.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes regista as rotas autenticadas.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/candidates", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/inactive", h.handleListInactive)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Put("/{id}/status", h.handleStatus)
		r.Post("/{id}/interaction", h.handleInteraction)
		r.Put("/{id}/inactivate", h.handleInactivate)
		r.Put("/{id}/reactivate", h.handleReactivate)
		r.Post("/{id}/responsaveis", h.handleAddResponsible)
		r.Put("/{id}/responsaveis/{userID}", h.handleSetResponsible)
		r.Post("/{id}/documents", h.handleDocument)
	})
}

func actorFrom(w http.ResponseWriter, r *http.Request) (rbac.Actor, bool) {
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("não autenticado"))
	}
	return actor, ok
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
	c, created, err := h.svc.Create(r.Context(), actor, in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respond.JSON(w, status, c)
}

func parseFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	filter := ListFilter{
		Status:         q.Get("status"),
		PipelineStatus: q.Get("pipeline_status"),
		Departamento:   q.Get("departamento"),
		OrigemContato:  q.Get("origem_contato"),
		Localizacao:    strings.TrimSpace(q.Get("localizacao")),
		Sort:           q.Get("sort"),
	}
	if skills := q.Get("skills"); skills != "" {
		for _, skill := range strings.Split(skills, ",") {
			if skill = strings.TrimSpace(skill); skill != "" {
				filter.Skills = append(filter.Skills, skill)
			}
		}
	}
	if raw := q.Get("cv_analisado"); raw != "" {
		analysed, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, apperr.Validation("cv_analisado inválido")
		}
		filter.CVAnalisado = &analysed
	}
	for name, dst := range map[string]*int{"experiencia": &filter.Experiencia, "limit": &filter.Limit, "offset": &filter.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, apperr.Validation(name + " inválido")
		}
		*dst = n
	}
	return filter, nil
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	candidates, err := h.svc.List(r.Context(), actor, filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, candidates)
}

func (h *Handler) handleListInactive(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	candidates, err := h.svc.ListInactive(r.Context(), actor, filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, candidates)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
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
	c, err := h.svc.Update(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

type statusRequest struct {
	NovoStatus string `json:"novo_status"`
	Observacao string `json:"observacao"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in statusRequest
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	c, err := h.svc.ChangeStatus(r.Context(), actor, chi.URLParam(r, "id"), in.NovoStatus, in.Observacao)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

type interactionRequest struct {
	Tipo     string `json:"tipo"`
	Conteudo string `json:"conteudo"`
}

func (h *Handler) handleInteraction(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in interactionRequest
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	c, err := h.svc.AddInteraction(r.Context(), actor, chi.URLParam(r, "id"), in.Tipo, in.Conteudo)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, c)
}

func (h *Handler) handleInactivate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in struct {
		Motivo string `json:"motivo"`
	}
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	c, err := h.svc.Inactivate(r.Context(), actor, chi.URLParam(r, "id"), in.Motivo)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

func (h *Handler) handleReactivate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Reactivate(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

func (h *Handler) handleAddResponsible(w http.ResponseWriter, r *http.Request) {
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
	c, err := h.svc.AddResponsible(r.Context(), actor, chi.URLParam(r, "id"), in.UserID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

func (h *Handler) handleSetResponsible(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in struct {
		Status string `json:"status"`
	}
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	c, err := h.svc.SetResponsible(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "userID"), in.Status)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentSize+1024)
	if err := r.ParseMultipartForm(maxDocumentSize); err != nil {
		respond.Error(w, r, apperr.Validation("ficheiro inválido ou demasiado grande"))
		return
	}
	file, header, err := r.FormFile("documento")
	if err != nil {
		respond.Error(w, r, apperr.Validation("documento obrigatório"))
		return
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		respond.Error(w, r, apperr.Validation("ficheiro inválido"))
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(body)
	}

	c, err := h.svc.UploadDocument(r.Context(), actor, chi.URLParam(r, "id"), header.Filename, contentType, body)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, c)
}
