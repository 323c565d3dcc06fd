package agency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gestaozabele/recrutamento/internal/apperr"
	httpmiddleware "github.com/gestaozabele/recrutamento/internal/http/middleware"
	"github.com/gestaozabele/recrutamento/internal/mirror"
	"github.com/gestaozabele/recrutamento/internal/rbac"
	"github.com/gestaozabele/recrutamento/internal/repo"
	"github.com/gestaozabele/recrutamento/internal/util"
)

type stubStore struct {
	agencies map[string]*Agency
	gets     int
}

func newStubStore() *stubStore {
	return &stubStore{agencies: map[string]*Agency{}}
}

func (s *stubStore) Create(ctx context.Context, a *Agency) error {
	c := *a
	s.agencies[a.ID] = &c
	return nil
}

func (s *stubStore) Get(ctx context.Context, id string) (*Agency, error) {
	s.gets++
	a, ok := s.agencies[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (s *stubStore) List(ctx context.Context, filter ListFilter) ([]Agency, error) {
	out := []Agency{}
	for _, a := range s.agencies {
		if filter.IDs != nil && !util.Contains(filter.IDs, a.ID) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (s *stubStore) Update(ctx context.Context, a *Agency) error {
	if _, ok := s.agencies[a.ID]; !ok {
		return repo.ErrNotFound
	}
	c := *a
	s.agencies[a.ID] = &c
	return nil
}

type activeUsers map[string]bool

func (u activeUsers) IsActive(ctx context.Context, id string) (bool, error) {
	return u[id], nil
}

var (
	admin    = rbac.Actor{ID: "adm", Role: rbac.RoleAdmin}
	director = rbac.Actor{ID: "dir", Role: rbac.RoleDiretorComercial, Department: "Comercial"}
)

func TestCreateRequiresTopTier(t *testing.T) {
	svc := NewService(newStubStore(), mirror.Discard{}, activeUsers{"mgr": true})
	ctx := context.Background()

	if _, err := svc.Create(ctx, director, CreateInput{Nome: "Lisboa", ManagerID: "mgr"}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.Create(ctx, admin, CreateInput{Nome: "Lisboa", ManagerID: "ghost"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation for unknown manager, got %v", err)
	}
	if _, err := svc.Create(ctx, admin, CreateInput{Nome: "Lisboa", ManagerID: "mgr", Departamentos: []string{"Vendas"}}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation for unknown department, got %v", err)
	}
	a, err := svc.Create(ctx, admin, CreateInput{Nome: " Lisboa ", ManagerID: "mgr", Departamentos: []string{"Comercial", "Comercial"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Nome != "Lisboa" || len(a.Departamentos) != 1 || a.Employees == nil {
		t.Fatalf("unexpected agency %+v", a)
	}
}

func TestExistsIsCachedAndTracksStatus(t *testing.T) {
	store := newStubStore()
	svc := NewService(store, mirror.Discard{}, activeUsers{"mgr": true})
	ctx := context.Background()

	a, err := svc.Create(ctx, admin, CreateInput{Nome: "Porto", ManagerID: "mgr"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ok, err := svc.Exists(ctx, a.ID)
	if err != nil || !ok {
		t.Fatalf("expected active agency, got %v %v", ok, err)
	}
	if store.gets != 0 {
		t.Fatalf("expected cache hit, store called %d times", store.gets)
	}

	if _, err := svc.Inactivate(ctx, admin, a.ID); err != nil {
		t.Fatalf("inactivate: %v", err)
	}
	if ok, _ := svc.Exists(ctx, a.ID); ok {
		t.Fatal("inactive agency must not be reported as existing")
	}

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	if ok, _ := svc.Exists(ctx, "nao-existe"); ok {
		t.Fatal("unknown agency must not exist")
	}
}

func TestListAndGetByMembership(t *testing.T) {
	store := newStubStore()
	svc := NewService(store, mirror.Discard{}, nil)
	ctx := context.Background()
	a1, _ := svc.Create(ctx, admin, CreateInput{Nome: "A1", ManagerID: "mgr"})
	a2, _ := svc.Create(ctx, admin, CreateInput{Nome: "A2", ManagerID: "mgr"})

	member := rbac.Actor{ID: "e", Role: rbac.RoleEmployee, Department: "RH", Agencies: []rbac.AgencyMembership{
		{AgencyID: a1.ID, Status: rbac.MembershipActive},
		{AgencyID: a2.ID, Status: rbac.MembershipInactive},
	}}
	list, err := svc.List(ctx, member, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != a1.ID {
		t.Fatalf("member must see only active memberships, got %+v", list)
	}
	if _, err := svc.Get(ctx, member, a2.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	all, _ := svc.List(ctx, admin, "")
	if len(all) != 2 {
		t.Fatalf("admin must see all agencies, got %d", len(all))
	}
}

func TestHTTPGetRequiresMembership(t *testing.T) {
	store := newStubStore()
	svc := NewService(store, mirror.Discard{}, nil)
	a, _ := svc.Create(context.Background(), admin, CreateInput{Nome: "A1", ManagerID: "mgr"})

	r := chi.NewRouter()
	var current rbac.Actor
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(httpmiddleware.WithActor(req.Context(), current)))
		})
	})
	NewHandler(svc).RegisterRoutes(r)

	current = rbac.Actor{ID: "e", Role: rbac.RoleEmployee, Department: "RH"}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/agencies/"+a.ID, nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	current = admin
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/agencies/"+a.ID, nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"nome":"A1"`) {
		t.Fatalf("expected agency, got %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	body := strings.NewReader(`{"nome":"A1","manager_id":"mgr","desconhecido":true}`)
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/agencies", body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown fields must be rejected, got %d", rec.Code)
	}
}
