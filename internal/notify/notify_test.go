package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	httpmiddleware "github.com/gestaozabele/recrutamento/internal/http/middleware"
	"github.com/gestaozabele/recrutamento/internal/rbac"
)

type memoryInbox struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (m *memoryInbox) Save(ctx context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *memoryInbox) List(ctx context.Context, userID string, limit int) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Event{}
	for _, ev := range m.events {
		if ev.UserID == userID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *memoryInbox) MarkRead(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.events {
		if m.events[i].ID == id && m.events[i].UserID == userID {
			m.events[i].Read = true
			return nil
		}
	}
	return ErrNotFound
}

type recordingMailer struct {
	sent chan string
}

func (r recordingMailer) Send(ctx context.Context, to Contact, subject, body string) error {
	r.sent <- to.Email + "|" + subject
	return nil
}

type staticDirectory map[string]Contact

func (d staticDirectory) Contact(ctx context.Context, userID string) (Contact, error) {
	c, ok := d[userID]
	if !ok {
		return Contact{}, errors.New("desconhecido")
	}
	return c, nil
}

func TestDispatcherSavesAndMails(t *testing.T) {
	inbox := &memoryInbox{}
	mailer := recordingMailer{sent: make(chan string, 1)}
	d := NewDispatcher(inbox, mailer, staticDirectory{"u7": {Name: "Rui", Email: "rui@x.pt"}})

	err := d.Emit(context.Background(), Event{UserID: "u7", Type: TypeReferralSuccess, Content: "Ana foi recrutada"})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(inbox.events) != 1 || inbox.events[0].ID == "" || inbox.events[0].CreatedAt.IsZero() {
		t.Fatalf("event not stored with id and timestamp: %+v", inbox.events)
	}

	select {
	case got := <-mailer.sent:
		if got != "rui@x.pt|A sua indicação foi recrutada" {
			t.Fatalf("unexpected mail %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("mail not sent")
	}
}

func TestDispatcherRequiresRecipient(t *testing.T) {
	d := NewDispatcher(&memoryInbox{}, nil, nil)
	if err := d.Emit(context.Background(), Event{Type: TypeTaskAssigned}); err == nil {
		t.Fatal("expected error without recipient")
	}
}

func TestFireSwallowsErrors(t *testing.T) {
	d := NewDispatcher(&memoryInbox{err: errors.New("down")}, nil, nil)
	Fire(context.Background(), d, Event{UserID: "u1", Type: TypeTaskAssigned})
	Fire(context.Background(), nil, Event{UserID: "u1"})
}

func TestSlackNotifierPostsWebhook(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := NewSlackNotifier(srv.URL).Alert(context.Background(), "Espelho divergente", "candidatos/c1"); err != nil {
		t.Fatalf("alert: %v", err)
	}
	if !strings.Contains(body, "Espelho divergente") || !strings.Contains(body, ":rotating_light:") {
		t.Fatalf("unexpected payload %s", body)
	}
	if NewSlackNotifier("") != nil {
		t.Fatal("empty webhook must disable notifier")
	}
}

func TestHandlerListAndMarkRead(t *testing.T) {
	inbox := &memoryInbox{events: []Event{
		{ID: "n1", UserID: "u1", Type: TypeTaskAssigned},
		{ID: "n2", UserID: "u2", Type: TypeTaskAssigned},
	}}
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := rbac.Actor{ID: "u1", Role: rbac.RoleEmployee, Department: "RH"}
			next.ServeHTTP(w, r.WithContext(httpmiddleware.WithActor(r.Context(), actor)))
		})
	})
	NewHandler(inbox).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notifications", nil))
	var env struct {
		Data []Event `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data) != 1 || env.Data[0].ID != "n1" {
		t.Fatalf("expected only own notifications, got %+v", env.Data)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/notifications/n2/read", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign notification, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/notifications/n1/read", nil))
	if rec.Code != http.StatusOK || !inbox.events[0].Read {
		t.Fatalf("expected notification marked read, got %d", rec.Code)
	}
}
