package quotes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type fakeQuoteStore struct {
	quotes map[int64]*Quote
	nextID int64
}

func newFakeQuoteStore() *fakeQuoteStore {
	return &fakeQuoteStore{quotes: make(map[int64]*Quote), nextID: 1}
}

func (f *fakeQuoteStore) Insert(_ context.Context, q *Quote) error {
	q.ID = f.nextID
	f.nextID++
	stored := *q
	f.quotes[q.ID] = &stored
	return nil
}

func (f *fakeQuoteStore) List(_ context.Context) ([]Quote, error) {
	var out []Quote
	for _, q := range f.quotes {
		out = append(out, *q)
	}
	return out, nil
}

func (f *fakeQuoteStore) GetByID(_ context.Context, id int64) (*Quote, error) {
	q, ok := f.quotes[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *q
	return &copied, nil
}

func (f *fakeQuoteStore) SetStatus(_ context.Context, id int64, status string) error {
	q, ok := f.quotes[id]
	if !ok {
		return ErrNotFound
	}
	q.Status = status
	return nil
}

func (f *fakeQuoteStore) SetPDFPath(_ context.Context, id int64, path string) error {
	q, ok := f.quotes[id]
	if !ok {
		return ErrNotFound
	}
	q.PDFPath = path
	return nil
}

type recordingScheduler struct {
	received []Quote
	accepted []Quote
}

func (r *recordingScheduler) QuoteReceived(_ context.Context, q Quote, _ Estimate) error {
	r.received = append(r.received, q)
	return nil
}

func (r *recordingScheduler) QuoteAccepted(_ context.Context, q Quote) error {
	r.accepted = append(r.accepted, q)
	return nil
}

func postJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
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

func TestSubmitHandlerPersistsAndSchedules(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeQuoteStore()
	sched := &recordingScheduler{}

	router := gin.New()
	router.POST("/api/quotes", SubmitHandler(store, sched))

	rec := postJSON(router, http.MethodPost, "/api/quotes", gin.H{
		"name":         "J. Jansen",
		"email":        "jansen@example.nl",
		"dwellingArea": 120,
		"insulation":   InsulationAverage,
		"productLine":  LineComfort,
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(store.quotes) != 1 {
		t.Fatalf("stored quotes = %d, want 1", len(store.quotes))
	}
	if len(sched.received) != 1 {
		t.Fatalf("scheduled jobs = %d, want 1", len(sched.received))
	}

	var body struct {
		Reference string   `json:"reference"`
		Estimate  Estimate `json:"estimate"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Reference == "" {
		t.Error("response is missing the reference")
	}
	if body.Estimate.TotalCents == 0 {
		t.Error("response is missing the estimate")
	}

	stored := store.quotes[1]
	if stored.Status != StatusNew {
		t.Errorf("status = %q, want %q", stored.Status, StatusNew)
	}
	if stored.TotalCents != body.Estimate.TotalCents {
		t.Errorf("stored total %d does not match estimate %d", stored.TotalCents, body.Estimate.TotalCents)
	}
}

func TestSubmitHandlerRejectsInvalidInput(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeQuoteStore()
	router := gin.New()
	router.POST("/api/quotes", SubmitHandler(store, nil))

	rec := postJSON(router, http.MethodPost, "/api/quotes", gin.H{
		"name":         "J. Jansen",
		"email":        "jansen@example.nl",
		"dwellingArea": 5,
		"insulation":   InsulationAverage,
		"productLine":  LineComfort,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(store.quotes) != 0 {
		t.Error("invalid request was persisted")
	}
}

func TestAdminStatusHandlerTriggersSyncOnAccept(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeQuoteStore()
	sched := &recordingScheduler{}
	_ = store.Insert(context.Background(), &Quote{Reference: "OF-2026-TEST1234", Status: StatusNew})

	router := gin.New()
	router.PUT("/api/admin/quotes/:id/status", AdminStatusHandler(store, sched))

	rec := postJSON(router, http.MethodPut, "/api/admin/quotes/1/status", gin.H{"status": StatusAccepted})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if store.quotes[1].Status != StatusAccepted {
		t.Errorf("quote status = %q, want accepted", store.quotes[1].Status)
	}
	if len(sched.accepted) != 1 {
		t.Errorf("sync jobs = %d, want 1", len(sched.accepted))
	}

	// Other transitions must not trigger the bookkeeping push.
	rec = postJSON(router, http.MethodPut, "/api/admin/quotes/1/status", gin.H{"status": StatusSent})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(sched.accepted) != 1 {
		t.Errorf("sync jobs = %d after non-accept transition, want 1", len(sched.accepted))
	}
}

func TestAdminStatusHandlerRejectsUnknownStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeQuoteStore()
	_ = store.Insert(context.Background(), &Quote{Reference: "OF-2026-TEST1234", Status: StatusNew})

	router := gin.New()
	router.PUT("/api/admin/quotes/:id/status", AdminStatusHandler(store, nil))

	rec := postJSON(router, http.MethodPut, "/api/admin/quotes/1/status", gin.H{"status": "betaald"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAdminPDFHandlerNotReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeQuoteStore()
	_ = store.Insert(context.Background(), &Quote{Reference: "OF-2026-TEST1234", Status: StatusNew})

	router := gin.New()
	router.GET("/api/admin/quotes/:id/pdf", AdminPDFHandler(store))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/quotes/1/pdf", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["code"] != "PDF_NOT_READY" {
		t.Errorf("code = %v, want PDF_NOT_READY", body["code"])
	}
}
