// Package jobs runs the background work the request path hands off: quote
// PDFs, commissioning reports, notification mails and bookkeeping pushes.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/yourusername/klimaatdesk/internal/boekhoud"
	"github.com/yourusername/klimaatdesk/internal/contact"
	"github.com/yourusername/klimaatdesk/internal/installations"
	"github.com/yourusername/klimaatdesk/internal/logging"
	"github.com/yourusername/klimaatdesk/internal/notify"
	"github.com/yourusername/klimaatdesk/internal/pdfgen"
	"github.com/yourusername/klimaatdesk/internal/quotes"
)

const (
	taskTypeMail          = "mail:notify"
	taskTypeQuotePDF      = "pdf:quote"
	taskTypeCommissioning = "pdf:commissioning"
	taskTypeBoekhoud      = "boekhoud:sync"
)

// Deps are the collaborators the worker handlers need. Books may be nil when
// the bookkeeping API is not configured.
type Deps struct {
	Quotes        quotes.Store
	Installations installations.Store
	PDF           *pdfgen.Service
	Mailer        notify.Mailer
	Books         *boekhoud.Client
	OfficeEmail   string
}

// Manager enqueues jobs from the request path and runs the worker pool. It
// implements contact.Notifier, quotes.Scheduler, quotes.Syncer and
// installations.Reporter.
type Manager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	store  *Store
	deps   Deps
}

type mailPayload struct {
	JobID string      `json:"jobId"`
	Mail  notify.Mail `json:"mail"`
}

type quotePayload struct {
	JobID   string `json:"jobId"`
	QuoteID int64  `json:"quoteId"`
}

type installationPayload struct {
	JobID          string `json:"jobId"`
	InstallationID int64  `json:"installationId"`
}

// NewManager wires the asynq client and server against the given redis URL.
func NewManager(redisURL string, store *Store, deps Deps) (*Manager, error) {
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if deps.Quotes == nil || deps.Installations == nil || deps.PDF == nil || deps.Mailer == nil {
		return nil, errors.New("missing job dependencies")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			"pdf":      2,
			"mail":     1,
			"boekhoud": 1,
		},
	})

	mux := asynq.NewServeMux()
	m := &Manager{
		client: client,
		server: server,
		mux:    mux,
		store:  store,
		deps:   deps,
	}
	mux.HandleFunc(taskTypeMail, m.handleMail)
	mux.HandleFunc(taskTypeQuotePDF, m.handleQuotePDF)
	mux.HandleFunc(taskTypeCommissioning, m.handleCommissioning)
	mux.HandleFunc(taskTypeBoekhoud, m.handleBoekhoudSync)
	return m, nil
}

// StartWorkers runs the asynq server in the background.
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && err != asynq.ErrServerClosed {
			logging.Error().Err(err).Msg("job server stopped")
		}
	}()
}

// Shutdown stops the worker pool and closes the queue client.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.server.Shutdown()
	if m.deps.Books != nil {
		m.deps.Books.Close(ctx)
	}
	return m.client.Close()
}

// GetRecord returns the state of a job for the admin dashboard.
func (m *Manager) GetRecord(ctx context.Context, jobID string) (*Record, error) {
	return m.store.Get(ctx, jobID)
}

// ContactReceived enqueues the office notification mail for a new message.
func (m *Manager) ContactReceived(ctx context.Context, msg contact.Message) error {
	jobID := uuid.NewString()
	return m.enqueue(ctx, taskTypeMail, "mail", jobID, mailPayload{
		JobID: jobID,
		Mail: notify.Mail{
			To:      m.deps.OfficeEmail,
			Subject: "Nieuw contactbericht van " + msg.Name,
			Body: fmt.Sprintf("Naam: %s\nE-mail: %s\nTelefoon: %s\n\n%s",
				msg.Name, msg.Email, msg.Phone, msg.Message),
		},
	})
}

// QuoteReceived enqueues PDF generation for a fresh quote request.
func (m *Manager) QuoteReceived(ctx context.Context, q quotes.Quote, _ quotes.Estimate) error {
	jobID := uuid.NewString()
	return m.enqueue(ctx, taskTypeQuotePDF, "pdf", jobID, quotePayload{
		JobID:   jobID,
		QuoteID: q.ID,
	})
}

// QuoteAccepted enqueues the bookkeeping push for an accepted quote.
func (m *Manager) QuoteAccepted(ctx context.Context, q quotes.Quote) error {
	jobID := uuid.NewString()
	return m.enqueue(ctx, taskTypeBoekhoud, "boekhoud", jobID, quotePayload{
		JobID:   jobID,
		QuoteID: q.ID,
	})
}

// InstallationRegistered enqueues the commissioning report for a new
// installation.
func (m *Manager) InstallationRegistered(ctx context.Context, inst installations.Installation) error {
	jobID := uuid.NewString()
	return m.enqueue(ctx, taskTypeCommissioning, "pdf", jobID, installationPayload{
		JobID:          jobID,
		InstallationID: inst.ID,
	})
}

func (m *Manager) enqueue(ctx context.Context, taskType, queue, jobID string, payload any) error {
	if err := m.store.Upsert(ctx, &Record{
		JobID:  jobID,
		Type:   taskType,
		Status: StatusQueued,
	}); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	task := asynq.NewTask(taskType, body, asynq.Queue(queue))
	if _, err := m.client.EnqueueContext(ctx, task, asynq.MaxRetry(2)); err != nil {
		return err
	}
	return nil
}

func (m *Manager) handleMail(ctx context.Context, task *asynq.Task) error {
	var payload mailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	_ = m.store.MarkRunning(ctx, payload.JobID)

	if err := m.deps.Mailer.Send(ctx, payload.Mail); err != nil {
		return m.fail(ctx, payload.JobID, "MAIL_FAILED", err)
	}
	return m.store.MarkDone(ctx, payload.JobID, nil)
}

func (m *Manager) handleQuotePDF(ctx context.Context, task *asynq.Task) error {
	var payload quotePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	_ = m.store.MarkRunning(ctx, payload.JobID)

	q, err := m.deps.Quotes.GetByID(ctx, payload.QuoteID)
	if err != nil {
		return m.fail(ctx, payload.JobID, "QUOTE_NOT_FOUND", err)
	}

	// The estimate is reproducible from the stored parameters.
	est, err := quotes.Calculate(q.DwellingArea, q.Insulation, q.ProductLine)
	if err != nil {
		return m.fail(ctx, payload.JobID, "INVALID_QUOTE", err)
	}

	path, err := m.deps.PDF.QuotePDF(ctx, *q, *est)
	if err != nil {
		return m.fail(ctx, payload.JobID, "PDF_FAILED", err)
	}
	if err := m.deps.Quotes.SetPDFPath(ctx, q.ID, path); err != nil {
		return m.fail(ctx, payload.JobID, "DB_FAILED", err)
	}

	mail := notify.Mail{
		To:          q.Email,
		Subject:     "Je offerte " + q.Reference,
		Body:        fmt.Sprintf("Beste %s,\n\nIn de bijlage vind je offerte %s.\n\nMet vriendelijke groet,\nKlimaatdesk", q.Name, q.Reference),
		Attachments: []string{path},
	}
	if err := m.deps.Mailer.Send(ctx, mail); err != nil {
		// The PDF exists and is downloadable from the dashboard; don't retry
		// the whole job for a mail failure.
		logging.Warn().Err(err).Str("reference", q.Reference).Msg("quote mail failed")
	}
	return m.store.MarkDone(ctx, payload.JobID, map[string]string{"pdf": path})
}

func (m *Manager) handleCommissioning(ctx context.Context, task *asynq.Task) error {
	var payload installationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	_ = m.store.MarkRunning(ctx, payload.JobID)

	inst, err := m.deps.Installations.GetByID(ctx, payload.InstallationID)
	if err != nil {
		return m.fail(ctx, payload.JobID, "INSTALLATION_NOT_FOUND", err)
	}
	path, err := m.deps.PDF.CommissioningPDF(ctx, *inst)
	if err != nil {
		return m.fail(ctx, payload.JobID, "PDF_FAILED", err)
	}
	return m.store.MarkDone(ctx, payload.JobID, map[string]string{"pdf": path})
}

func (m *Manager) handleBoekhoudSync(ctx context.Context, task *asynq.Task) error {
	var payload quotePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	_ = m.store.MarkRunning(ctx, payload.JobID)

	if m.deps.Books == nil {
		return m.fail(ctx, payload.JobID, "BOEKHOUD_DISABLED",
			errors.New("bookkeeping API is not configured"))
	}

	q, err := m.deps.Quotes.GetByID(ctx, payload.QuoteID)
	if err != nil {
		return m.fail(ctx, payload.JobID, "QUOTE_NOT_FOUND", err)
	}
	if err := m.deps.Books.SyncQuote(ctx, *q); err != nil {
		return m.fail(ctx, payload.JobID, "BOEKHOUD_FAILED", err)
	}
	return m.store.MarkDone(ctx, payload.JobID, map[string]string{"reference": q.Reference})
}

// fail records the failure and returns the original error so asynq applies
// its retry policy.
func (m *Manager) fail(ctx context.Context, jobID, code string, err error) error {
	if markErr := m.store.MarkFailed(ctx, jobID, &ErrorInfo{
		Code:    code,
		Message: err.Error(),
	}); markErr != nil {
		logging.Warn().Err(markErr).Str("job_id", jobID).Msg("failed to record job failure")
	}
	return err
}
