package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type fakeStore struct {
	messages map[int64]*Message
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{messages: make(map[int64]*Message), nextID: 1}
}

func (f *fakeStore) Insert(_ context.Context, m *Message) error {
	m.ID = f.nextID
	f.nextID++
	stored := *m
	f.messages[m.ID] = &stored
	return nil
}

func (f *fakeStore) List(_ context.Context) ([]Message, error) {
	var out []Message
	for _, m := range f.messages {
		out = append(out, *m)
	}
	return out, nil
}

func (f *fakeStore) MarkHandled(_ context.Context, id int64) error {
	m, ok := f.messages[id]
	if !ok {
		return ErrNotFound
	}
	m.Handled = true
	return nil
}

type recordingNotifier struct {
	notified []Message
	err      error
}

func (r *recordingNotifier) ContactReceived(_ context.Context, m Message) error {
	if r.err != nil {
		return r.err
	}
	r.notified = append(r.notified, m)
	return nil
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSubmitPersistsAndNotifies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeStore()
	notifier := &recordingNotifier{}
	router := gin.New()
	router.POST("/api/contact", SubmitHandler(store, notifier))

	rec := doJSON(router, http.MethodPost, "/api/contact", gin.H{
		"name":    "J. Jansen",
		"email":   "jansen@example.nl",
		"message": "Graag een afspraak voor onderhoud.",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(store.messages) != 1 {
		t.Fatalf("stored = %d, want 1", len(store.messages))
	}
	if len(notifier.notified) != 1 {
		t.Errorf("notifications = %d, want 1", len(notifier.notified))
	}
}

func TestSubmitSurvivesNotifierFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeStore()
	notifier := &recordingNotifier{err: errors.New("queue down")}
	router := gin.New()
	router.POST("/api/contact", SubmitHandler(store, notifier))

	rec := doJSON(router, http.MethodPost, "/api/contact", gin.H{
		"name":    "J. Jansen",
		"email":   "jansen@example.nl",
		"message": "Test",
	})
	// The submission is stored; a lost notification must not fail the request.
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if len(store.messages) != 1 {
		t.Error("message not persisted")
	}
}

func TestSubmitRejectsInvalidEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeStore()
	router := gin.New()
	router.POST("/api/contact", SubmitHandler(store, nil))

	rec := doJSON(router, http.MethodPost, "/api/contact", gin.H{
		"name":    "J. Jansen",
		"email":   "geen-email",
		"message": "Test",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(store.messages) != 0 {
		t.Error("invalid message was persisted")
	}
}

func TestMarkHandled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeStore()
	_ = store.Insert(context.Background(), &Message{Name: "A", Email: "a@example.nl", Message: "x"})

	router := gin.New()
	router.PUT("/api/admin/contact/:id/handled", MarkHandledHandler(store))

	rec := doJSON(router, http.MethodPut, "/api/admin/contact/1/handled", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !store.messages[1].Handled {
		t.Error("message not marked handled")
	}

	rec = doJSON(router, http.MethodPut, "/api/admin/contact/99/handled", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing id: status = %d, want 404", rec.Code)
	}
}
