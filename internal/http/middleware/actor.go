package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/recrutamento/internal/apperr"
	"github.com/gestaozabele/recrutamento/internal/http/respond"
	"github.com/gestaozabele/recrutamento/internal/rbac"
)

// ActorLoader resolve o ator a partir do subject do token.
type ActorLoader interface {
	FindActor(ctx context.Context, id string) (rbac.Actor, error)
}

// Actor carrega o registo do utilizador autenticado a cada pedido. Papel,
// departamento e equipa vêm sempre da base, nunca do token.
func Actor(loader ActorLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := GetSubject(r.Context())
			if subject == "" {
				respond.WriteError(w, http.StatusUnauthorized, "AUTH", "token inválido", nil)
				return
			}

			actor, err := loader.FindActor(r.Context(), subject)
			if err != nil {
				switch apperr.KindOf(err) {
				case apperr.KindNotFound, apperr.KindUnauthorized:
					respond.WriteError(w, http.StatusUnauthorized, "AUTH", "utilizador inválido ou inativo", nil)
				default:
					respond.Error(w, r, err)
				}
				return
			}

			noteActor(r.Context(), actor)
			log.Ctx(r.Context()).Debug().Str("user_id", actor.ID).Str("role", string(actor.Role)).Msg("actor carregado")
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// WithActor injeta o ator no contexto.
func WithActor(ctx context.Context, actor rbac.Actor) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// GetActor recupera o ator do contexto.
func GetActor(ctx context.Context) (rbac.Actor, bool) {
	actor, ok := ctx.Value(ContextKeyActor).(rbac.Actor)
	return actor, ok
}

// RequireRoles restringe a rota aos papéis indicados.
func RequireRoles(roles ...rbac.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActor(r.Context())
			if !ok {
				respond.WriteError(w, http.StatusUnauthorized, "AUTH", "não autenticado", nil)
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respond.WriteError(w, http.StatusForbidden, "FORBIDDEN", "acesso restrito", nil)
		})
	}
}

// RequireAgencyAccess exige Admin ou associação ativa à agência do parâmetro.
func RequireAgencyAccess(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActor(r.Context())
			if !ok {
				respond.WriteError(w, http.StatusUnauthorized, "AUTH", "não autenticado", nil)
				return
			}
			agencyID := chi.URLParam(r, param)
			if agencyID == "" {
				respond.WriteError(w, http.StatusBadRequest, "VALIDATION", "agência não informada", nil)
				return
			}
			if !actor.CanAccessAgency(agencyID) {
				respond.WriteError(w, http.StatusForbidden, "FORBIDDEN", "sem acesso à agência", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
