package wasco

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const productPage = `<html><body>
<h1 class="product-title">EcoTherm 8.5 warmtepomp</h1>
<span class="price-gross">&euro; 4.833,45</span>
<span class="price-net">&euro; 3.950,00</span>
</body></html>`

const loginShell = `<html><body>
<form action="/login" method="post"><input name="username"></form>
</body></html>`

func newPortal(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var logins atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("username") != "dealer" || r.FormValue("password") != "geheim" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		logins.Add(1)
		http.SetCookie(w, &http.Cookie{Name: "portal_session", Value: "sess-1"})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/artikel/", func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie("portal_session"); err != nil || cookie.Value == "" {
			w.Write([]byte(loginShell))
			return
		}
		switch r.URL.Path {
		case "/artikel/WP-850":
			w.Write([]byte(productPage))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &logins
}

func TestLookupLogsInAndParses(t *testing.T) {
	server, logins := newPortal(t)
	client, err := NewClient(server.URL, "dealer", "geheim")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	price, err := client.Lookup(context.Background(), "WP-850")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if price.Name != "EcoTherm 8.5 warmtepomp" {
		t.Errorf("name = %q", price.Name)
	}
	if price.NetCents != 395_000 {
		t.Errorf("net = %d, want 395000", price.NetCents)
	}
	if price.GrossCents != 483_345 {
		t.Errorf("gross = %d, want 483345", price.GrossCents)
	}
	if logins.Load() != 1 {
		t.Errorf("logins = %d, want 1", logins.Load())
	}
}

func TestLookupServedFromCache(t *testing.T) {
	server, logins := newPortal(t)
	client, err := NewClient(server.URL, "dealer", "geheim")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.Lookup(context.Background(), "WP-850"); err != nil {
		t.Fatalf("first Lookup: %v", err)
	}
	server.Close()

	// Second lookup must not touch the portal.
	price, err := client.Lookup(context.Background(), "WP-850")
	if err != nil {
		t.Fatalf("cached Lookup: %v", err)
	}
	if price.NetCents != 395_000 {
		t.Errorf("cached net = %d", price.NetCents)
	}
	if logins.Load() != 1 {
		t.Errorf("logins = %d, want 1", logins.Load())
	}
}

func TestLookupUnknownSKU(t *testing.T) {
	server, _ := newPortal(t)
	client, err := NewClient(server.URL, "dealer", "geheim")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.Lookup(context.Background(), "ONBEKEND"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLookupBadCredentials(t *testing.T) {
	server, _ := newPortal(t)
	client, err := NewClient(server.URL, "dealer", "fout")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.Lookup(context.Background(), "WP-850"); !errors.Is(err, ErrLoginFailed) {
		t.Errorf("err = %v, want ErrLoginFailed", err)
	}
}

func TestParseEuroCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"€ 4.833,45", 483_345, true},
		{"€ 12,50", 1_250, true},
		{"1.234.567,89", 123_456_789, true},
		{"op aanvraag", 0, false},
	}
	for _, tt := range tests {
		got, err := parseEuroCents(tt.in)
		if tt.ok != (err == nil) {
			t.Errorf("parseEuroCents(%q) err = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("parseEuroCents(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
