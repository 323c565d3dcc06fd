package cvanalysis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/gestaozabele/recrutamento/internal/apperr"
	"github.com/gestaozabele/recrutamento/internal/candidate"
	httpmiddleware "github.com/gestaozabele/recrutamento/internal/http/middleware"
	"github.com/gestaozabele/recrutamento/internal/mirror"
	"github.com/gestaozabele/recrutamento/internal/rbac"
	"github.com/gestaozabele/recrutamento/internal/repo"
)

type stubStore struct {
	items map[string]*Analysis
}

func newStubStore() *stubStore {
	return &stubStore{items: map[string]*Analysis{}}
}

func (s *stubStore) Create(ctx context.Context, a *Analysis) error {
	c := *a
	s.items[a.ID] = &c
	return nil
}

func (s *stubStore) Get(ctx context.Context, id string) (*Analysis, error) {
	a, ok := s.items[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (s *stubStore) List(ctx context.Context, filter ListFilter, scope rbac.Scope) ([]Analysis, error) {
	out := []Analysis{}
	for _, a := range s.items {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if scope.Matches(a.PolicyTarget()) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *stubStore) Update(ctx context.Context, a *Analysis) error {
	if _, ok := s.items[a.ID]; !ok {
		return repo.ErrNotFound
	}
	c := *a
	s.items[a.ID] = &c
	return nil
}

func (s *stubStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.items[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

type recordingMirror struct {
	mirror.Discard
	mu   sync.Mutex
	rows []mirror.Row
}

func (m *recordingMirror) Replicate(ctx context.Context, table string, row mirror.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row)
}

type visibleCandidates map[string]bool

func (v visibleCandidates) Get(ctx context.Context, actor rbac.Actor, id string) (*candidate.Candidate, error) {
	if !v[id] {
		return nil, apperr.NotFound("Candidato não encontrado")
	}
	return &candidate.Candidate{ID: id}, nil
}

var (
	recruiter = rbac.Actor{ID: "r", Role: rbac.RoleRecrutador, Department: "RH"}
	colleague = rbac.Actor{ID: "r2", Role: rbac.RoleRecrutador, Department: "RH"}
	directorH = rbac.Actor{ID: "d", Role: rbac.RoleDiretorRH, Department: "RH"}
	directorM = rbac.Actor{ID: "dm", Role: rbac.RoleDiretorMarketing, Department: "Marketing"}
)

func score(v float64) *float64 { return &v }

func TestCreateDefaultsAndOwnership(t *testing.T) {
	svc := NewService(newStubStore(), mirror.Discard{}, visibleCandidates{"c1": true})
	ctx := context.Background()

	if _, err := svc.Create(ctx, recruiter, CreateInput{Analise: "  "}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation for empty analysis, got %v", err)
	}
	if _, err := svc.Create(ctx, recruiter, CreateInput{Analise: "bom perfil", Pontuacao: score(120)}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation for score above 100, got %v", err)
	}
	if _, err := svc.Create(ctx, recruiter, CreateInput{Analise: "bom perfil", CandidatoID: "c9"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation for unknown candidate, got %v", err)
	}

	a, err := svc.Create(ctx, recruiter, CreateInput{Analise: "bom perfil", Pontuacao: score(72.5), CandidatoID: "c1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Status != StatusDefault || a.Dono != "r" || a.DepartamentoDono != "RH" || a.AnalisadoPor != "r" {
		t.Fatalf("unexpected defaults: %+v", a)
	}
}

func TestVisibilityByOwnerAndDepartment(t *testing.T) {
	svc := NewService(newStubStore(), mirror.Discard{}, nil)
	ctx := context.Background()
	a, err := svc.Create(ctx, recruiter, CreateInput{Analise: "bom perfil"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, actor := range []rbac.Actor{recruiter, directorH, {ID: "a", Role: rbac.RoleAdmin}} {
		if _, err := svc.Get(ctx, actor, a.ID); err != nil {
			t.Fatalf("%s must read: %v", actor.ID, err)
		}
	}
	for _, actor := range []rbac.Actor{colleague, directorM} {
		if _, err := svc.Get(ctx, actor, a.ID); !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("%s must not see the analysis, got %v", actor.ID, err)
		}
	}
	list, _ := svc.List(ctx, colleague, ListFilter{})
	if len(list) != 0 {
		t.Fatalf("colleague must list nothing, got %d", len(list))
	}
}

func TestUpdateRecordsAnalyst(t *testing.T) {
	svc := NewService(newStubStore(), mirror.Discard{}, nil)
	ctx := context.Background()
	a, _ := svc.Create(ctx, recruiter, CreateInput{Analise: "bom perfil", Pontuacao: score(50)})

	status := "Rejeitado"
	updated, err := svc.Update(ctx, directorH, a.ID, UpdateInput{Pontuacao: score(30), Status: &status})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.AnalisadoPor != "d" || updated.Dono != "r" || updated.Status != "Rejeitado" {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if _, err := svc.Update(ctx, directorM, a.ID, UpdateInput{Status: &status}); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("other department must not update, got %v", err)
	}
}

func TestDeleteMarksMirrorRow(t *testing.T) {
	store := newStubStore()
	sink := &recordingMirror{}
	svc := NewService(store, sink, nil)
	ctx := context.Background()
	a, _ := svc.Create(ctx, recruiter, CreateInput{Analise: "bom perfil"})

	if err := svc.Delete(ctx, colleague, a.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("non owner must not delete, got %v", err)
	}
	if err := svc.Delete(ctx, recruiter, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.items) != 0 {
		t.Fatal("analysis must be physically removed")
	}
	last := sink.rows[len(sink.rows)-1]
	if last["excluido"] != true || last["id"] != a.ID {
		t.Fatalf("mirror row must be marked as deleted: %+v", last)
	}
	if err := svc.Delete(ctx, recruiter, a.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("second delete must be not found, got %v", err)
	}
}

func TestWritesRequireVisibility(t *testing.T) {
	store := newStubStore()
	svc := NewService(store, mirror.Discard{}, nil)
	ctx := context.Background()
	a, _ := svc.Create(ctx, recruiter, CreateInput{Analise: "bom perfil", Pontuacao: score(40)})

	text := "reescrita"
	for _, actor := range []rbac.Actor{colleague, directorM} {
		if _, err := svc.Update(ctx, actor, a.ID, UpdateInput{Analise: &text}); !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("%s update must be not found, got %v", actor.ID, err)
		}
		if err := svc.Delete(ctx, actor, a.ID); !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("%s delete must be not found, got %v", actor.ID, err)
		}
	}
	if store.items[a.ID].Analise != "bom perfil" {
		t.Fatalf("analysis must be untouched: %+v", store.items[a.ID])
	}
	if err := svc.Delete(ctx, directorH, a.ID); err != nil {
		t.Fatalf("department director delete: %v", err)
	}
	if len(store.items) != 0 {
		t.Fatal("analysis must be removed")
	}
}

func TestHTTPCreateAndDelete(t *testing.T) {
	svc := NewService(newStubStore(), mirror.Discard{}, nil)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(httpmiddleware.WithActor(req.Context(), recruiter)))
		})
	})
	NewHandler(svc).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cv-analyses", strings.NewReader(`{"analise":"ok","pontuacao":80}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cv-analyses", strings.NewReader(`{"analise":"ok","dono":"x"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("owner must not be settable, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cv-analyses/desconhecida", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
