package user

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gestaozabele/recrutamento/internal/apperr"
	httpmiddleware "github.com/gestaozabele/recrutamento/internal/http/middleware"
	"github.com/gestaozabele/recrutamento/internal/http/respond"
	"github.com/gestaozabele/recrutamento/internal/rbac"
)

const maxPhotoSize = 5 << 20

// Handler expõe autenticação e gestão de utilizadores.
type Handler struct {
	users *Service
	auth  *AuthService
}

func NewHandler(users *Service, authService *AuthService) *Handler {
	return &Handler{users: users, auth: authService}
}

// RegisterPublicRoutes regista as rotas sem token.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/bootstrap", h.handleBootstrap)
		r.Post("/login", h.handleLogin)
		r.Post("/refresh", h.handleRefresh)
	})
}

// RegisterRoutes regista as rotas autenticadas.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/logout", h.handleLogout)
	r.Get("/me", h.handleMe)

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Put("/{id}/role", h.handleChangeRole)
		r.Put("/{id}/inactivate", h.handleInactivate)
		r.Put("/{id}/reactivate", h.handleReactivate)
		r.Put("/{id}/password", h.handleChangePassword)
		r.Put("/{id}/photo", h.handlePhoto)
		r.Post("/{id}/agencies", h.handleAddAgency)
		r.Delete("/{id}/agencies/{agencyID}", h.handleRemoveAgency)
		r.Put("/{id}/manager", h.handleSetManager)
		r.Put("/{id}/broker", h.handleSetBroker)
	})
}

func actorFrom(w http.ResponseWriter, r *http.Request) (rbac.Actor, bool) {
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("não autenticado"))
	}
	return actor, ok
}

func (h *Handler) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	in.Role = string(rbac.RoleAdmin)
	u, err := h.auth.Bootstrap(r.Context(), in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, u)
}

type loginRequest struct {
	Email string `json:"email" validate:"required,email"`
	Senha string `json:"senha" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	session, err := h.auth.Login(r.Context(), in.Email, in.Senha)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, session)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	session, err := h.auth.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, session)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in refreshRequest
	if r.ContentLength != 0 {
		if err := respond.Decode(r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
	}
	if err := h.auth.Logout(r.Context(), actor.ID, in.RefreshToken); err != nil {
		respond.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	u, err := h.users.Get(r.Context(), actor, actor.ID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"user": u, "equipa": actor.Team})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	users, err := h.users.List(r.Context(), actor, ListFilter{
		Status:       q.Get("status"),
		Role:         q.Get("role"),
		Departamento: q.Get("departamento"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, users)
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
	u, err := h.users.Create(r.Context(), actor, in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, u)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	u, err := h.users.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
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
	u, err := h.users.Update(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

func (h *Handler) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in struct {
		Role string `json:"role"`
	}
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	u, err := h.users.ChangeRole(r.Context(), actor, chi.URLParam(r, "id"), in.Role)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

func (h *Handler) handleInactivate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in struct {
		Motivo string `json:"motivo"`
	}
	if r.ContentLength != 0 {
		if err := respond.Decode(r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
	}
	u, err := h.users.Inactivate(r.Context(), actor, chi.URLParam(r, "id"), in.Motivo)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

func (h *Handler) handleReactivate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	u, err := h.users.Reactivate(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in struct {
		SenhaAtual string `json:"senha_atual"`
		NovaSenha  string `json:"nova_senha"`
	}
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := h.users.ChangePassword(r.Context(), actor, chi.URLParam(r, "id"), in.SenhaAtual, in.NovaSenha); err != nil {
		respond.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePhoto(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize+1024)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		respond.Error(w, r, apperr.Validation("ficheiro inválido ou demasiado grande"))
		return
	}
	file, header, err := r.FormFile("foto")
	if err != nil {
		respond.Error(w, r, apperr.Validation("foto obrigatória"))
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

	u, err := h.users.UpdatePhoto(r.Context(), actor, chi.URLParam(r, "id"), header.Filename, contentType, body)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

func (h *Handler) handleAddAgency(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in struct {
		AgenciaID string `json:"agencia_id"`
	}
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	u, err := h.users.AddAgency(r.Context(), actor, chi.URLParam(r, "id"), in.AgenciaID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

func (h *Handler) handleRemoveAgency(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	u, err := h.users.RemoveAgency(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "agencyID"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

func (h *Handler) handleSetManager(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in struct {
		ResponsavelID string `json:"responsavel_id"`
	}
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	u, err := h.users.SetManager(r.Context(), actor, chi.URLParam(r, "id"), in.ResponsavelID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

func (h *Handler) handleSetBroker(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in struct {
		BrokerEquipaID string `json:"broker_equipa_id"`
	}
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	u, err := h.users.SetBroker(r.Context(), actor, chi.URLParam(r, "id"), in.BrokerEquipaID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
}
