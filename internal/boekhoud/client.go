// Package boekhoud bridges accepted quotes to the bookkeeping package over
// its SOAP API. A session is opened on demand, cached for its server-side
// lifetime and reused across invoice pushes.
package boekhoud

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yourusername/klimaatdesk/internal/auth"
	"github.com/yourusername/klimaatdesk/internal/logging"
	"github.com/yourusername/klimaatdesk/internal/quotes"
)

// ErrSessionRejected is returned when the API refuses the configured
// credentials.
var ErrSessionRejected = errors.New("bookkeeping session rejected")

const (
	sessionCacheKey = "boekhoud"

	// Server-side sessions live an hour; re-open well before that.
	sessionTTL = 45 * time.Minute
)

// Client talks to the bookkeeping SOAP endpoint.
type Client struct {
	endpoint      string
	username      string
	securityCode1 string
	securityCode2 string

	http     *http.Client
	sessions *auth.TokenCache
}

// NewClient builds a Client for the given endpoint and API credentials.
func NewClient(endpoint, username, code1, code2 string) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("bookkeeping endpoint is required")
	}
	return &Client{
		endpoint:      endpoint,
		username:      username,
		securityCode1: code1,
		securityCode2: code2,
		http:          &http.Client{Timeout: 20 * time.Second},
		sessions:      auth.NewTokenCache(sessionTTL),
	}, nil
}

// SyncQuote pushes an accepted quote as an invoice. A stale cached session is
// re-opened once before giving up.
func (c *Client) SyncQuote(ctx context.Context, q quotes.Quote) error {
	sessionID, err := c.session(ctx)
	if err != nil {
		return err
	}

	err = c.addInvoice(ctx, sessionID, q)
	if errors.Is(err, errSessionExpired) {
		c.sessions.Delete(sessionCacheKey)
		sessionID, err = c.session(ctx)
		if err != nil {
			return err
		}
		err = c.addInvoice(ctx, sessionID, q)
	}
	if err != nil {
		return err
	}

	logging.Info().Str("reference", q.Reference).Msg("quote synced to bookkeeping")
	return nil
}

// Close releases the cached session, if any.
func (c *Client) Close(ctx context.Context) {
	sessionID, ok := c.sessions.Get(sessionCacheKey)
	if !ok {
		return
	}
	c.sessions.Delete(sessionCacheKey)

	body := closeSessionRequest{NS: soapNamespace, SessionID: sessionID}
	if _, err := c.call(ctx, "CloseSession", body); err != nil {
		logging.Warn().Err(err).Msg("bookkeeping session close failed")
	}
}

var errSessionExpired = errors.New("bookkeeping session expired")

func (c *Client) session(ctx context.Context) (string, error) {
	if id, ok := c.sessions.Get(sessionCacheKey); ok {
		return id, nil
	}

	body := openSessionRequest{
		NS:            soapNamespace,
		Username:      c.username,
		SecurityCode1: c.securityCode1,
		SecurityCode2: c.securityCode2,
	}
	respBody, err := c.call(ctx, "OpenSession", body)
	if err != nil {
		return "", err
	}

	var resp openSessionResponse
	if err := xml.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("unparseable OpenSession response: %w", err)
	}
	if resp.Error.Code != "" {
		return "", fmt.Errorf("%w: %s %s", ErrSessionRejected, resp.Error.Code, resp.Error.Description)
	}
	if resp.SessionID == "" {
		return "", fmt.Errorf("OpenSession returned no session id")
	}

	c.sessions.Set(sessionCacheKey, resp.SessionID)
	return resp.SessionID, nil
}

func (c *Client) addInvoice(ctx context.Context, sessionID string, q quotes.Quote) error {
	body := addInvoiceRequest{
		NS:        soapNamespace,
		SessionID: sessionID,
		Invoice: invoiceXML{
			Reference:    q.Reference,
			CustomerName: q.Name,
			CustomerMail: q.Email,
			Date:         time.Now().Format("2006-01-02"),
			Lines: []invoiceLineXML{{
				Description: fmt.Sprintf("Warmtepomp %s %.1f kW incl. installatie", q.ProductLine, q.CapacityKW),
				Quantity:    1,
				UnitPrice:   centsToDecimal(q.SubtotalCents),
				VATCode:     "HOOG_VERK_21",
			}},
		},
	}

	respBody, err := c.call(ctx, "AddInvoice", body)
	if err != nil {
		return err
	}

	var resp addInvoiceResponse
	if err := xml.Unmarshal(respBody, &resp); err != nil {
		return fmt.Errorf("unparseable AddInvoice response: %w", err)
	}
	switch resp.Error.Code {
	case "":
		return nil
	case "SessionExpired", "InvalidSession":
		return errSessionExpired
	default:
		return fmt.Errorf("bookkeeping rejected invoice %s: %s %s",
			q.Reference, resp.Error.Code, resp.Error.Description)
	}
}

func (c *Client) call(ctx context.Context, action string, body any) ([]byte, error) {
	envelope, err := marshalEnvelope(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(envelope))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", soapNamespace+action)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bookkeeping unreachable: %w", err)
	}
	defer resp.Body.Close()

	respBody := new(bytes.Buffer)
	if _, err := respBody.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("bookkeeping returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(respBody.String()))
	}
	return respBody.Bytes(), nil
}

func centsToDecimal(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
