package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/recrutamento/internal/rbac"
)

const contextKeyRequestLog contextKey = "request_log"

// requestLog é preenchido pelas camadas internas (Auth, Actor), que correm
// num contexto derivado e por isso não são visíveis a Logging de outra forma.
type requestLog struct {
	userID string
	role   string
}

func noteActor(ctx context.Context, actor rbac.Actor) {
	if rl, ok := ctx.Value(contextKeyRequestLog).(*requestLog); ok {
		rl.userID = actor.ID
		rl.role = string(actor.Role)
	}
}

func noteSubject(ctx context.Context, subject string) {
	if rl, ok := ctx.Value(contextKeyRequestLog).(*requestLog); ok && rl.userID == "" {
		rl.userID = subject
	}
}

// Logging escreve logs estruturados por requisição e deixa no contexto um
// logger com o request_id para zerolog.Ctx.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		lc := log.With()
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			lc = lc.Str("request_id", reqID)
		}
		logger := lc.Logger()
		rl := &requestLog{}
		ctx := context.WithValue(logger.WithContext(r.Context()), contextKeyRequestLog, rl)

		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = logger.Error()
		case status >= http.StatusBadRequest:
			event = logger.Warn()
		default:
			event = logger.Info()
		}
		event = event.Str("method", r.Method).Str("path", r.URL.Path).
			Int("status", status).Dur("duration", time.Since(start))

		if ip := r.Header.Get("X-Real-IP"); ip != "" {
			event = event.Str("ip", ip)
		} else {
			event = event.Str("ip", r.RemoteAddr)
		}
		if rl.userID != "" {
			event = event.Str("user_id", rl.userID)
		}
		if rl.role != "" {
			event = event.Str("role", rl.role)
		}
		if ua := r.Header.Get("User-Agent"); ua != "" {
			event = event.Str("user_agent", ua)
		}

		event.Msg("http_request")
	})
}
