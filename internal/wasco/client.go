// Package wasco fetches dealer prices from the supplier portal. The portal
// has no API, so the client logs in with the dealer account and scrapes the
// product page. Results are cached to keep portal traffic low.
package wasco

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/yourusername/klimaatdesk/internal/logging"
)

// ErrNotFound is returned when the portal has no product for the sku.
var ErrNotFound = errors.New("product not found")

// ErrLoginFailed is returned when the dealer credentials are rejected.
var ErrLoginFailed = errors.New("portal login failed")

const (
	priceCacheSize = 256
	priceCacheTTL  = 15 * time.Minute
)

// Price is a scraped dealer price.
type Price struct {
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	GrossCents int64     `json:"grossCents"`
	NetCents   int64     `json:"netCents"`
	FetchedAt  time.Time `json:"fetchedAt"`
}

// Client scrapes the supplier portal. Safe for concurrent use; logins are
// serialized so only one session handshake runs at a time.
type Client struct {
	baseURL  string
	username string
	password string

	http  *http.Client
	cache *expirable.LRU[string, Price]

	mu       sync.Mutex
	loggedIn bool
}

// NewClient builds a Client for the given portal. Credentials are the dealer
// account used for price lookups.
func NewClient(baseURL, username, password string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("portal base url is required")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		http: &http.Client{
			Jar:     jar,
			Timeout: 15 * time.Second,
		},
		cache: expirable.NewLRU[string, Price](priceCacheSize, nil, priceCacheTTL),
	}, nil
}

// Lookup returns the dealer price for a sku, served from cache when fresh.
func (c *Client) Lookup(ctx context.Context, sku string) (*Price, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, ErrNotFound
	}
	if p, ok := c.cache.Get(sku); ok {
		return &p, nil
	}

	price, err := c.fetch(ctx, sku)
	if err != nil {
		return nil, err
	}
	c.cache.Add(sku, *price)
	return price, nil
}

func (c *Client) fetch(ctx context.Context, sku string) (*Price, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	price, err := c.scrapeProduct(ctx, sku)
	if errors.Is(err, errSessionExpired) {
		// The portal drops sessions after a while; log in once more.
		c.invalidateSession()
		if err := c.ensureSession(ctx); err != nil {
			return nil, err
		}
		price, err = c.scrapeProduct(ctx, sku)
	}
	return price, err
}

var errSessionExpired = errors.New("portal session expired")

func (c *Client) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loggedIn {
		return nil
	}

	form := url.Values{
		"username": {c.username},
		"password": {c.password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("portal unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrLoginFailed
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("portal login returned status %d", resp.StatusCode)
	}

	c.loggedIn = true
	logging.Debug().Msg("supplier portal session established")
	return nil
}

func (c *Client) invalidateSession() {
	c.mu.Lock()
	c.loggedIn = false
	c.mu.Unlock()
}

func (c *Client) scrapeProduct(ctx context.Context, sku string) (*Price, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/artikel/"+url.PathEscape(sku), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("portal unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errSessionExpired
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("portal returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse portal page: %w", err)
	}
	return parseProductPage(doc, sku)
}

func parseProductPage(doc *goquery.Document, sku string) (*Price, error) {
	name := strings.TrimSpace(doc.Find(".product-title").First().Text())
	gross := strings.TrimSpace(doc.Find(".price-gross").First().Text())
	net := strings.TrimSpace(doc.Find(".price-net").First().Text())
	if name == "" || net == "" {
		// A login redirect renders the portal shell without product markup.
		if doc.Find("form[action*='login']").Length() > 0 {
			return nil, errSessionExpired
		}
		return nil, ErrNotFound
	}

	netCents, err := parseEuroCents(net)
	if err != nil {
		return nil, fmt.Errorf("unparseable net price %q: %w", net, err)
	}
	grossCents := netCents
	if gross != "" {
		if v, err := parseEuroCents(gross); err == nil {
			grossCents = v
		}
	}

	return &Price{
		SKU:        sku,
		Name:       name,
		GrossCents: grossCents,
		NetCents:   netCents,
		FetchedAt:  time.Now(),
	}, nil
}

var euroAmount = regexp.MustCompile(`(\d{1,3}(?:\.\d{3})*|\d+),(\d{2})`)

// parseEuroCents parses a Dutch-formatted amount like "€ 1.234,56" to cents.
func parseEuroCents(s string) (int64, error) {
	m := euroAmount.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("no amount found")
	}
	whole, err := strconv.ParseInt(strings.ReplaceAll(m[1], ".", ""), 10, 64)
	if err != nil {
		return 0, err
	}
	frac, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return 0, err
	}
	return whole*100 + frac, nil
}
