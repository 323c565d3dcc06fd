package middleware

import (
	"net/http"
	"runtime/debug"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/recrutamento/internal/http/respond"
)

// Recover garante resposta sanitizada em caso de panic.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).
					Str("request_id", chimiddleware.GetReqID(r.Context())).
					Bytes("stack", debug.Stack()).
					Msg("panic recuperado")
				respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
