package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/gestaozabele/recrutamento/internal/agency"
	"github.com/gestaozabele/recrutamento/internal/appointment"
	"github.com/gestaozabele/recrutamento/internal/auth"
	"github.com/gestaozabele/recrutamento/internal/calendar"
	"github.com/gestaozabele/recrutamento/internal/candidate"
	"github.com/gestaozabele/recrutamento/internal/config"
	"github.com/gestaozabele/recrutamento/internal/cvanalysis"
	"github.com/gestaozabele/recrutamento/internal/department"
	httpmiddleware "github.com/gestaozabele/recrutamento/internal/http/middleware"
	"github.com/gestaozabele/recrutamento/internal/http/respond"
	"github.com/gestaozabele/recrutamento/internal/mirror"
	"github.com/gestaozabele/recrutamento/internal/notify"
	"github.com/gestaozabele/recrutamento/internal/report"
	"github.com/gestaozabele/recrutamento/internal/storage"
	"github.com/gestaozabele/recrutamento/internal/task"
	"github.com/gestaozabele/recrutamento/internal/user"
)

// Pinger é uma dependência verificada em /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies reúne as infraestruturas já abertas pelo processo.
type Dependencies struct {
	Config   *config.Config
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Mirror   mirror.Sink
	MirrorDB Pinger
	Inbox    notify.Inbox
	Mailer   notify.Mailer
	Uploader storage.Uploader
	Calendar calendar.Sink
	JWT      *auth.JWTManager
	Refresh  *auth.RefreshStore
}

type Handler struct {
	pool     *pgxpool.Pool
	redis    *redis.Client
	mirrorDB Pinger
}

// lateUsers quebra a dependência circular entre agências e utilizadores:
// o serviço de agências é criado antes do de utilizadores.
type lateUsers struct {
	svc *user.Service
}

func (l *lateUsers) IsActive(ctx context.Context, id string) (bool, error) {
	return l.svc.IsActive(ctx, id)
}

// NewRouter devolve roteador configurado.
func NewRouter(deps Dependencies) (http.Handler, error) {
	cfg := deps.Config
	respond.SetProduction(cfg.Production())

	sink := deps.Mirror
	if sink == nil {
		sink = mirror.Discard{}
	}
	uploader := deps.Uploader
	if uploader == nil {
		uploader = storage.NoopUploader{}
	}
	cal := deps.Calendar
	if cal == nil {
		cal = calendar.Noop{}
	}

	users := &lateUsers{}
	agencyService := agency.NewService(agency.NewRepository(deps.Pool), sink, users)
	userService := user.NewService(user.NewRepository(deps.Pool), sink, uploader, agencyService)
	users.svc = userService
	authService := user.NewAuthService(userService, deps.JWT, deps.Refresh)
	departmentService := department.NewService(department.NewRepository(deps.Pool), sink, agencyService, userService)

	notifier := notify.NewDispatcher(deps.Inbox, deps.Mailer, userService)

	candidateService := candidate.NewService(candidate.NewRepository(deps.Pool), sink, notifier, uploader, userService,
		candidate.Pipeline{Strict: cfg.StrictPipeline})
	analysisService := cvanalysis.NewService(cvanalysis.NewRepository(deps.Pool), sink, candidateService)
	taskService := task.NewService(task.NewRepository(deps.Pool), sink, notifier, userService)
	appointmentService := appointment.NewService(appointment.NewRepository(deps.Pool), sink, cal, notifier, userService, cfg.Location)
	reportService := report.NewService(report.NewRepository(deps.Pool), sink, userService, cfg.Location)

	h := &Handler{pool: deps.Pool, redis: deps.Redis, mirrorDB: deps.MirrorDB}
	publicLimiter := httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst)
	authLimiter := httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst)
	userHandler := user.NewHandler(userService, authService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)
		userHandler.RegisterPublicRoutes(public)
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(deps.JWT))
		private.Use(httpmiddleware.UserRateLimit(authLimiter))
		private.Use(httpmiddleware.Actor(userService))

		userHandler.RegisterRoutes(private)
		agency.NewHandler(agencyService).RegisterRoutes(private)
		department.NewHandler(departmentService).RegisterRoutes(private)
		candidate.NewHandler(candidateService).RegisterRoutes(private)
		cvanalysis.NewHandler(analysisService).RegisterRoutes(private)
		task.NewHandler(taskService).RegisterRoutes(private)
		appointment.NewHandler(appointmentService).RegisterRoutes(private)
		report.NewHandler(reportService).RegisterRoutes(private)
		notify.NewHandler(deps.Inbox).RegisterRoutes(private)
	})

	return r, nil
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida conexões com Postgres, Redis e o espelho.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbErr := h.pool.Ping(ctx)
	redisErr := h.redis.Ping(ctx).Err()
	var mirrorErr error
	if h.mirrorDB != nil {
		mirrorErr = h.mirrorDB.Ping(ctx)
	}

	if dbErr != nil || redisErr != nil || mirrorErr != nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", map[string]any{
			"db":      errorString(dbErr),
			"redis":   errorString(redisErr),
			"espelho": errorString(mirrorErr),
		})
		return
	}

	respond.JSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
