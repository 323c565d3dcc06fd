package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/gestaozabele/recrutamento/internal/apperr"
	"github.com/gestaozabele/recrutamento/internal/auth"
	httpmiddleware "github.com/gestaozabele/recrutamento/internal/http/middleware"
	"github.com/gestaozabele/recrutamento/internal/mirror"
	"github.com/gestaozabele/recrutamento/internal/rbac"
	"github.com/gestaozabele/recrutamento/internal/repo"
)

type memStore struct {
	mu    sync.Mutex
	users map[string]*User
}

func newMemStore() *memStore {
	return &memStore{users: map[string]*User{}}
}

func clone(u *User) *User {
	c := *u
	c.Agencias = append([]AgencyMembership{}, u.Agencias...)
	c.Historico = append([]HistoryEntry{}, u.Historico...)
	return &c
}

func (m *memStore) Create(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return repo.ErrDuplicate
		}
	}
	m.users[u.ID] = clone(u)
	return nil
}

func (m *memStore) CreateFirstAdmin(ctx context.Context, u *User) error {
	m.mu.Lock()
	if len(m.users) > 0 {
		m.mu.Unlock()
		return ErrAlreadyBootstrapped
	}
	m.mu.Unlock()
	return m.Create(ctx, u)
}

func (m *memStore) Get(ctx context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return clone(u), nil
}

func (m *memStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memStore) List(ctx context.Context, filter ListFilter, scope rbac.Scope) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []User{}
	for _, u := range m.users {
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		if scope.Matches(u.PolicyTarget()) {
			out = append(out, *clone(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nome < out[j].Nome })
	return out, nil
}

func (m *memStore) Update(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return repo.ErrNotFound
	}
	m.users[u.ID] = clone(u)
	return nil
}

func (m *memStore) TeamOf(ctx context.Context, brokerID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []string{}
	for _, u := range m.users {
		if u.BrokerEquipaID == brokerID && u.Active() {
			ids = append(ids, u.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memStore) Names(ctx context.Context, ids []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := map[string]string{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			names[id] = u.Nome
		}
	}
	return names, nil
}

func (m *memStore) TouchLogin(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.UltimoLogin = &at
	}
	return nil
}

type recordingMirror struct {
	mu   sync.Mutex
	rows []mirror.Row
}

func (r *recordingMirror) Write(ctx context.Context, table string, row mirror.Row) error {
	r.Replicate(ctx, table, row)
	return nil
}

func (r *recordingMirror) Replicate(ctx context.Context, table string, row mirror.Row) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, row)
}

func seed(t *testing.T, store *memStore, id string, role rbac.Role, dep, broker string) *User {
	t.Helper()
	hash, err := auth.HashPassword("senha-forte-123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &User{
		ID: id, Nome: "Nome " + id, Email: id + "@exemplo.pt", SenhaHash: hash,
		Role: role, Departamento: dep, BrokerEquipaID: broker, Status: StatusAtivo,
		Agencias: []AgencyMembership{}, Historico: []HistoryEntry{},
	}
	if err := store.Create(context.Background(), u); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return u
}

func actorOf(t *testing.T, svc *Service, id string) rbac.Actor {
	t.Helper()
	actor, err := svc.FindActor(context.Background(), id)
	if err != nil {
		t.Fatalf("actor %s: %v", id, err)
	}
	return actor
}

func TestCreateRespectsHierarchy(t *testing.T) {
	store := newMemStore()
	sink := &recordingMirror{}
	svc := NewService(store, sink, nil, nil)
	seed(t, store, "dir", rbac.RoleDiretorRH, "RH", "")
	seed(t, store, "mgr", rbac.RoleManager, "", "")
	ctx := context.Background()

	director := actorOf(t, svc, "dir")
	_, err := svc.Create(ctx, director, CreateInput{
		Nome: "Rita", Email: "rita@exemplo.pt", Senha: "senha-forte-123", Role: "Recrutador", Departamento: "Marketing",
	})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for other department, got %v", err)
	}

	u, err := svc.Create(ctx, director, CreateInput{
		Nome: "Rita", Email: " Rita@Exemplo.pt ", Senha: "senha-forte-123", Role: "Recrutador", Departamento: "RH",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Email != "rita@exemplo.pt" || u.Status != StatusAtivo {
		t.Fatalf("unexpected user %+v", u)
	}
	if len(sink.rows) != 1 {
		t.Fatalf("expected mirror write, got %d", len(sink.rows))
	}
	if _, ok := sink.rows[0]["senha_hash"]; ok {
		t.Fatal("mirror must not carry the password hash")
	}

	_, err = svc.Create(ctx, director, CreateInput{
		Nome: "Outra", Email: "rita@exemplo.pt", Senha: "senha-forte-123", Role: "Employee", Departamento: "RH",
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}

	manager := actorOf(t, svc, "mgr")
	_, err = svc.Create(ctx, manager, CreateInput{
		Nome: "Ana", Email: "ana@exemplo.pt", Senha: "senha-forte-123", Role: "Admin",
	})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("manager must not create admin, got %v", err)
	}
}

func TestConsultorRequiresActiveBroker(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, mirror.Discard{}, nil, nil)
	seed(t, store, "adm", rbac.RoleAdmin, "", "")
	seed(t, store, "rec", rbac.RoleRecrutador, "RH", "")
	seed(t, store, "brk", rbac.RoleBroker, "Comercial", "")
	admin := actorOf(t, svc, "adm")
	ctx := context.Background()

	in := CreateInput{Nome: "Carlos", Email: "c@exemplo.pt", Senha: "senha-forte-123", Role: "Consultor", Departamento: "Comercial"}
	if _, err := svc.Create(ctx, admin, in); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation without broker, got %v", err)
	}
	in.BrokerEquipaID = "rec"
	if _, err := svc.Create(ctx, admin, in); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation for non-broker, got %v", err)
	}
	in.BrokerEquipaID = "brk"
	u, err := svc.Create(ctx, admin, in)
	if err != nil {
		t.Fatalf("create consultor: %v", err)
	}

	broker := actorOf(t, svc, "brk")
	if len(broker.Team) != 1 || broker.Team[0] != u.ID {
		t.Fatalf("broker team mismatch: %v", broker.Team)
	}
}

func TestRoleChangeAndInactivation(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, mirror.Discard{}, nil, nil)
	seed(t, store, "dir", rbac.RoleDiretorRH, "RH", "")
	seed(t, store, "emp", rbac.RoleEmployee, "RH", "")
	seed(t, store, "mk", rbac.RoleEmployee, "Marketing", "")
	director := actorOf(t, svc, "dir")
	ctx := context.Background()

	if _, err := svc.ChangeRole(ctx, director, "dir", "Employee"); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("self role change must be forbidden, got %v", err)
	}
	if _, err := svc.ChangeRole(ctx, director, "mk", "Recrutador"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("invisible user must be not found, got %v", err)
	}
	u, err := svc.ChangeRole(ctx, director, "emp", "Recrutador")
	if err != nil {
		t.Fatalf("change role: %v", err)
	}
	if u.Role != rbac.RoleRecrutador || len(u.Historico) == 0 {
		t.Fatalf("unexpected %+v", u)
	}

	if _, err := svc.Inactivate(ctx, director, "dir", ""); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("self inactivation must be forbidden, got %v", err)
	}
	if _, err := svc.Inactivate(ctx, director, "emp", "saída"); err != nil {
		t.Fatalf("inactivate: %v", err)
	}
	if _, err := svc.FindActor(ctx, "emp"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("inactive user must not authenticate, got %v", err)
	}
	if _, err := svc.Reactivate(ctx, director, "emp"); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
}

func TestListScopedByRole(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, mirror.Discard{}, nil, nil)
	seed(t, store, "brk", rbac.RoleBroker, "Comercial", "")
	seed(t, store, "c1", rbac.RoleConsultor, "Comercial", "brk")
	seed(t, store, "c2", rbac.RoleConsultor, "Comercial", "other")
	ctx := context.Background()

	users, err := svc.List(ctx, actorOf(t, svc, "brk"), ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("broker sees self and team, got %d", len(users))
	}

	users, err = svc.List(ctx, actorOf(t, svc, "c1"), ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 1 || users[0].ID != "c1" {
		t.Fatalf("consultor sees only self, got %+v", users)
	}
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, mirror.Discard{}, nil, nil)
	seed(t, store, "emp", rbac.RoleEmployee, "RH", "")
	actor := actorOf(t, svc, "emp")
	ctx := context.Background()

	if err := svc.ChangePassword(ctx, actor, "emp", "errada", "nova-senha-forte"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation, got %v", err)
	}
	if err := svc.ChangePassword(ctx, actor, "emp", "senha-forte-123", "nova-senha-forte"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	u, _ := store.Get(ctx, "emp")
	if !auth.VerifyPassword("nova-senha-forte", u.SenhaHash) {
		t.Fatal("password not updated")
	}
}

func TestAgencyMembershipLifecycle(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, mirror.Discard{}, nil, nil)
	seed(t, store, "adm", rbac.RoleAdmin, "", "")
	seed(t, store, "emp", rbac.RoleEmployee, "RH", "")
	admin := actorOf(t, svc, "adm")
	ctx := context.Background()

	if _, err := svc.AddAgency(ctx, admin, "emp", "ag1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !actorOf(t, svc, "emp").CanAccessAgency("ag1") {
		t.Fatal("expected active membership")
	}
	if _, err := svc.RemoveAgency(ctx, admin, "emp", "ag1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if actorOf(t, svc, "emp").CanAccessAgency("ag1") {
		t.Fatal("membership must be inactive")
	}
	if _, err := svc.RemoveAgency(ctx, admin, "emp", "ag1"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	u, err := svc.AddAgency(ctx, admin, "emp", "ag1")
	if err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if len(u.Agencias) != 1 || u.Agencias[0].Status != rbac.MembershipActive {
		t.Fatalf("membership must be reactivated in place: %+v", u.Agencias)
	}
}

func newAuthService(t *testing.T, store *memStore) *AuthService {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc := NewService(store, mirror.Discard{}, nil, nil)
	return NewAuthService(svc, auth.NewJWTManager("segredo-de-teste-com-32-caracteres!!", time.Minute), auth.NewRefreshStore(client, time.Hour))
}

func TestBootstrapLoginRefresh(t *testing.T) {
	store := newMemStore()
	authSvc := newAuthService(t, store)
	ctx := context.Background()

	in := CreateInput{Nome: "Admin", Email: "admin@exemplo.pt", Senha: "senha-forte-123", Role: "Employee"}
	u, err := authSvc.Bootstrap(ctx, in)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if u.Role != rbac.RoleAdmin {
		t.Fatalf("bootstrap must force Admin, got %s", u.Role)
	}
	in.Email = "outro@exemplo.pt"
	if _, err := authSvc.Bootstrap(ctx, in); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("second bootstrap must be forbidden, got %v", err)
	}

	if _, err := authSvc.Login(ctx, "admin@exemplo.pt", "errada"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	session, err := authSvc.Login(ctx, "ADMIN@exemplo.pt", "senha-forte-123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.AccessToken == "" || session.RefreshToken == "" || session.TokenType != "Bearer" {
		t.Fatalf("incomplete session %+v", session)
	}

	next, err := authSvc.Refresh(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := authSvc.Refresh(ctx, session.RefreshToken); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("refresh token must be single use, got %v", err)
	}
	if err := authSvc.Logout(ctx, u.ID, next.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := authSvc.Refresh(ctx, next.RefreshToken); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("revoked token must fail, got %v", err)
	}
}

func TestBootstrapReplicatesAdmin(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sink := &recordingMirror{}
	svc := NewService(newMemStore(), sink, nil, nil)
	authSvc := NewAuthService(svc, auth.NewJWTManager("segredo-de-teste-com-32-caracteres!!", time.Minute), auth.NewRefreshStore(client, time.Hour))

	u, err := authSvc.Bootstrap(context.Background(), CreateInput{Nome: "Admin", Email: "admin@exemplo.pt", Senha: "senha-forte-123", Role: "Admin"})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if len(sink.rows) != 1 {
		t.Fatalf("expected one replicated row, got %d", len(sink.rows))
	}
	row := sink.rows[0]
	if row["id"] != u.ID || row["role"] != string(rbac.RoleAdmin) {
		t.Fatalf("unexpected row %+v", row)
	}
	if _, ok := row["senha_hash"]; ok {
		t.Fatal("password hash must not be replicated")
	}
}

func newTestHandler(t *testing.T) (http.Handler, *memStore) {
	t.Helper()
	store := newMemStore()
	authSvc := newAuthService(t, store)
	h := NewHandler(authSvc.users, authSvc)

	r := chi.NewRouter()
	h.RegisterPublicRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(httpmiddleware.Auth(authSvc.jwt))
		r.Use(httpmiddleware.Actor(authSvc.users))
		h.RegisterRoutes(r)
	})
	return r, store
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTPFlow(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/auth/bootstrap", "", map[string]string{
		"nome": "Admin", "email": "admin@exemplo.pt", "senha": "senha-forte-123", "role": "Admin",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("bootstrap status %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "admin@exemplo.pt", "senha": "senha-forte-123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", rec.Code, rec.Body.String())
	}
	var login struct {
		Data Session `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode: %v", err)
	}
	token := login.Data.AccessToken

	rec = doJSON(t, h, http.MethodPost, "/users", token, map[string]string{
		"nome": "Rui", "email": "rui@exemplo.pt", "senha": "senha-forte-123", "role": "Recrutador", "departamento": "RH",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Data User `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("senha_hash")) {
		t.Fatal("response must not expose the password hash")
	}

	rec = doJSON(t, h, http.MethodPut, "/users/"+created.Data.ID+"/role", token, map[string]string{"role": "Gerente"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown role, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/users/nao-existe", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/auth/logout", token, map[string]string{"refresh_token": login.Data.RefreshToken})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": login.Data.RefreshToken})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}
