package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gestaozabele/recrutamento/internal/auth"
	"github.com/gestaozabele/recrutamento/internal/http/respond"
)

type contextKey string

const (
	ContextKeySubject contextKey = "subject"
	ContextKeyRole    contextKey = "role"
	ContextKeyActor   contextKey = "actor"
)

// Auth valida JWT de acesso e injeta claims no contexto.
func Auth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				respond.WriteError(w, http.StatusUnauthorized, "AUTH", "token ausente", nil)
				return
			}

			claims, err := jwtManager.ParseAndValidate(strings.TrimSpace(parts[1]))
			if err != nil {
				respond.WriteError(w, http.StatusUnauthorized, "AUTH", "token inválido", nil)
				return
			}

			noteSubject(r.Context(), claims.Subject)
			ctx := context.WithValue(r.Context(), ContextKeySubject, claims.Subject)
			ctx = context.WithValue(ctx, ContextKeyRole, claims.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubject recupera subject do contexto.
func GetSubject(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeySubject).(string)
	return val
}
