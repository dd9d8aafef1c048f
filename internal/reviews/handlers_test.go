package reviews

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type fakeStore struct {
	reviews map[int64]*Review
	nextID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{reviews: make(map[int64]*Review), nextID: 1}
}

func (f *fakeStore) Insert(_ context.Context, r *Review) error {
	r.ID = f.nextID
	f.nextID++
	stored := *r
	f.reviews[r.ID] = &stored
	return nil
}

func (f *fakeStore) ListApproved(_ context.Context) ([]Review, error) {
	var out []Review
	for _, r := range f.reviews {
		if r.Approved {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]Review, error) {
	var out []Review
	for _, r := range f.reviews {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeStore) SetApproved(_ context.Context, id int64, approved bool) error {
	r, ok := f.reviews[id]
	if !ok {
		return ErrNotFound
	}
	r.Approved = approved
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) error {
	if _, ok := f.reviews[id]; !ok {
		return ErrNotFound
	}
	delete(f.reviews, id)
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

func TestSubmitStartsUnapproved(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeStore()
	router := gin.New()
	router.POST("/api/reviews/submit", SubmitHandler(store))

	rec := doJSON(router, http.MethodPost, "/api/reviews/submit", gin.H{
		"name":   "J. Jansen",
		"rating": 5,
		"body":   "Snel en netjes geïnstalleerd.",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if store.reviews[1].Approved {
		t.Error("new review must start unapproved")
	}
}

func TestSubmitRejectsRatingOutOfRange(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeStore()
	router := gin.New()
	router.POST("/api/reviews/submit", SubmitHandler(store))

	for _, rating := range []int{0, 6, -1} {
		rec := doJSON(router, http.MethodPost, "/api/reviews/submit", gin.H{
			"name":   "J. Jansen",
			"rating": rating,
			"body":   "tekst",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("rating %d: status = %d, want 400", rating, rec.Code)
		}
	}
	if len(store.reviews) != 0 {
		t.Error("invalid reviews were persisted")
	}
}

func TestPublicListOnlyApproved(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeStore()
	_ = store.Insert(context.Background(), &Review{Name: "A", Rating: 5, Body: "goed", Approved: true})
	_ = store.Insert(context.Background(), &Review{Name: "B", Rating: 1, Body: "wacht op moderatie"})

	router := gin.New()
	router.GET("/api/reviews", ListApprovedHandler(store))

	req := httptest.NewRequest(http.MethodGet, "/api/reviews", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body struct {
		Reviews []Review `json:"reviews"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Reviews) != 1 || body.Reviews[0].Name != "A" {
		t.Errorf("reviews = %+v, want only the approved one", body.Reviews)
	}
}

func TestApproveAndDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeStore()
	_ = store.Insert(context.Background(), &Review{Name: "A", Rating: 4, Body: "prima"})

	router := gin.New()
	router.PUT("/api/admin/reviews/:id/approve", ApproveHandler(store))
	router.DELETE("/api/admin/reviews/:id", DeleteHandler(store))

	rec := doJSON(router, http.MethodPut, "/api/admin/reviews/1/approve", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve status = %d", rec.Code)
	}
	if !store.reviews[1].Approved {
		t.Error("review not approved")
	}

	rec = doJSON(router, http.MethodDelete, "/api/admin/reviews/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if len(store.reviews) != 0 {
		t.Error("review not deleted")
	}

	rec = doJSON(router, http.MethodDelete, "/api/admin/reviews/99", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete missing: status = %d, want 404", rec.Code)
	}
}
