package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gestaozabele/recrutamento/internal/apperr"
	"github.com/gestaozabele/recrutamento/internal/candidate"
	httpmiddleware "github.com/gestaozabele/recrutamento/internal/http/middleware"
	"github.com/gestaozabele/recrutamento/internal/mirror"
	"github.com/gestaozabele/recrutamento/internal/rbac"
)

type storedCandidate struct {
	fact       CandidateFact
	department string
	created    time.Time
}

type storedAnalysis struct {
	fact       AnalysisFact
	owner      string
	department string
	created    time.Time
}

type stubStore struct {
	candidates []storedCandidate
	analyses   []storedAnalysis
}

func (s *stubStore) CandidateFacts(ctx context.Context, w Window, scope rbac.Scope) ([]CandidateFact, error) {
	out := []CandidateFact{}
	for _, c := range s.candidates {
		target := rbac.Target{Kind: rbac.KindCandidate, Department: c.department, Responsible: c.fact.Responsaveis}
		if w.Contains(c.created) && scope.Matches(target) {
			out = append(out, c.fact)
		}
	}
	return out, nil
}

func (s *stubStore) AnalysisFacts(ctx context.Context, w Window, scope rbac.Scope) ([]AnalysisFact, error) {
	out := []AnalysisFact{}
	for _, a := range s.analyses {
		target := rbac.Target{Kind: rbac.KindCVAnalysis, Department: a.department, OwnerID: a.owner}
		if w.Contains(a.created) && scope.Matches(target) {
			out = append(out, a.fact)
		}
	}
	return out, nil
}

type stubNames map[string]string

func (n stubNames) Names(ctx context.Context, ids []string) (map[string]string, error) {
	out := map[string]string{}
	for _, id := range ids {
		if name, ok := n[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

type recordingWriter struct {
	mu   sync.Mutex
	rows map[string]mirror.Row
	err  error
}

func (w *recordingWriter) Write(ctx context.Context, table string, row mirror.Row) error {
	if w.err != nil {
		return w.err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if table != snapshotTable {
		return errors.New("unexpected table " + table)
	}
	if w.rows == nil {
		w.rows = map[string]mirror.Row{}
	}
	w.rows[row["id"].(string)] = row
	return nil
}

var (
	admin     = rbac.Actor{ID: "admin", Role: rbac.RoleAdmin}
	directorR = rbac.Actor{ID: "dir", Role: rbac.RoleDiretorRH, Department: "RH"}
	recruiter = rbac.Actor{ID: "r1", Role: rbac.RoleRecrutador, Department: "RH"}
)

func newTestService(t *testing.T) (*Service, *recordingWriter) {
	t.Helper()
	loc := lisbon(t)
	now := time.Date(2026, 5, 6, 12, 0, 0, 0, loc)
	thisWeek := time.Date(2026, 5, 5, 9, 0, 0, 0, loc)
	lastMonth := time.Date(2026, 4, 20, 9, 0, 0, 0, loc)

	store := &stubStore{
		candidates: []storedCandidate{
			{fact: CandidateFact{ID: "c1", Status: candidate.StatusAtivo, PipelineStatus: candidate.StageLead, Responsaveis: []string{"r1"}}, department: "RH", created: thisWeek},
			{fact: recruited("c2", "r1", "r2"), department: "RH", created: thisWeek},
			{fact: recruited("c3", "r3"), department: "Marketing", created: thisWeek},
			{fact: recruited("c4", "r1"), department: "RH", created: lastMonth},
		},
		analyses: []storedAnalysis{
			{fact: AnalysisFact{ID: "a1", AnalisadoPor: "r1", Pontuacao: 80}, owner: "r1", department: "RH", created: thisWeek},
			{fact: AnalysisFact{ID: "a2", AnalisadoPor: "r3", Pontuacao: 60}, owner: "r3", department: "Marketing", created: thisWeek},
		},
	}
	writer := &recordingWriter{}
	svc := NewService(store, writer, stubNames{"r1": "Rita", "r2": "Rui", "r3": "Sara"}, loc)
	svc.now = func() time.Time { return now }
	return svc, writer
}

func TestDashboardRespectsScopeAndWindow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	all, err := svc.Dashboard(ctx, admin, "semana")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if all.Metricas.TotalCandidatos != 3 || all.Metricas.Recrutados != 2 || all.Metricas.PontuacaoMedia != 70 {
		t.Fatalf("unexpected admin metrics %+v", all.Metricas)
	}

	dept, err := svc.Dashboard(ctx, directorR, "")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dept.Metricas.TotalCandidatos != 2 || dept.Metricas.TotalAnalisesCV != 1 {
		t.Fatalf("director must only see RH: %+v", dept.Metricas)
	}

	month, err := svc.Dashboard(ctx, recruiter, "month")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if month.Periodo != PeriodMonth || month.Metricas.TotalCandidatos != 2 {
		t.Fatalf("unexpected recruiter month metrics %+v", month)
	}

	if _, err := svc.Dashboard(ctx, admin, "decada"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRankingsDefaultsToCurrentMonth(t *testing.T) {
	svc, _ := newTestService(t)

	got, err := svc.Rankings(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("rankings: %v", err)
	}
	if got.Mes != 5 || got.Ano != 2026 {
		t.Fatalf("unexpected month %d/%d", got.Mes, got.Ano)
	}
	if len(got.Ranking) != 3 || got.Ranking[0].UserID != "r1" || got.Ranking[0].Pontuacao != 3 || got.Ranking[0].Nome != "Rita" {
		t.Fatalf("unexpected ranking %+v", got.Ranking)
	}

	april, err := svc.Rankings(context.Background(), 4, 2026)
	if err != nil {
		t.Fatalf("rankings: %v", err)
	}
	if len(april.Ranking) != 1 || april.Ranking[0].Pontuacao != 2 {
		t.Fatalf("unexpected april ranking %+v", april.Ranking)
	}
}

func TestPersistSnapshotsIsRepeatable(t *testing.T) {
	svc, writer := newTestService(t)
	ctx := context.Background()

	if err := svc.PersistSnapshots(ctx); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if len(writer.rows) != 7 {
		t.Fatalf("expected 7 snapshots got %d", len(writer.rows))
	}
	if err := svc.PersistSnapshots(ctx); err != nil {
		t.Fatalf("persist again: %v", err)
	}
	if len(writer.rows) != 7 {
		t.Fatalf("repeated run must overwrite, got %d rows", len(writer.rows))
	}
	row, ok := writer.rows["ranking:mes:2026-05-01"]
	if !ok {
		t.Fatalf("ranking snapshot missing: %v", writer.rows)
	}
	var ranking []RankEntry
	if err := json.Unmarshal([]byte(row["dados"].(string)), &ranking); err != nil || len(ranking) != 3 {
		t.Fatalf("unexpected ranking payload %v (%v)", row["dados"], err)
	}

	writer.err = errors.New("sqlite indisponível")
	if err := svc.PersistSnapshots(ctx); !apperr.Is(err, apperr.KindDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func newTestRouter(svc *Service, actor rbac.Actor) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(httpmiddleware.WithActor(r.Context(), actor)))
		})
	})
	NewHandler(svc).RegisterRoutes(r)
	return r
}

func TestHTTPReports(t *testing.T) {
	svc, writer := newTestService(t)

	rec := httptest.NewRecorder()
	newTestRouter(svc, directorR).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/funnel?period=semana", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"etapa":"recrutado","candidatos":1`) {
		t.Fatalf("unexpected funnel response %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	newTestRouter(svc, directorR).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/rankings?month=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	newTestRouter(svc, directorR).ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/reports/metrics", nil))
	if rec.Code != http.StatusForbidden || !strings.Contains(rec.Body.String(), "Somente o Admin pode alterar métricas.") {
		t.Fatalf("expected 403 got %d %s", rec.Code, rec.Body.String())
	}
	if len(writer.rows) != 0 {
		t.Fatal("forbidden request must not persist")
	}

	rec = httptest.NewRecorder()
	newTestRouter(svc, admin).ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/reports/metrics", nil))
	if rec.Code != http.StatusOK || len(writer.rows) == 0 {
		t.Fatalf("expected snapshots persisted, got %d", rec.Code)
	}
}
