package quotes

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/klimaatdesk/internal/logging"
)

// Scheduler is implemented by the job layer to generate the quote PDF and
// send the confirmation mail in the background.
type Scheduler interface {
	QuoteReceived(ctx context.Context, q Quote, est Estimate) error
}

// Syncer is implemented by the job layer to push accepted quotes to the
// bookkeeping system. A nil Syncer disables the push.
type Syncer interface {
	QuoteAccepted(ctx context.Context, q Quote) error
}

type submitRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone"`
	DwellingArea int    `json:"dwellingArea" binding:"required"`
	Insulation   string `json:"insulation" binding:"required"`
	ProductLine  string `json:"productLine" binding:"required"`
}

// SubmitHandler returns the handler for POST /api/quotes.
func SubmitHandler(store Store, scheduler Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req submitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "Vul alle velden van de offerte-aanvraag in.",
			})
			return
		}

		est, err := Calculate(req.DwellingArea, req.Insulation, req.ProductLine)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				c.JSON(http.StatusBadRequest, gin.H{
					"code":    "INVALID_INPUT",
					"message": "De ingevulde woninggegevens zijn ongeldig.",
				})
				return
			}
			internalError(c)
			return
		}

		quote := &Quote{
			Reference:     NewReference(time.Now()),
			Name:          strings.TrimSpace(req.Name),
			Email:         strings.TrimSpace(req.Email),
			Phone:         strings.TrimSpace(req.Phone),
			DwellingArea:  req.DwellingArea,
			Insulation:    req.Insulation,
			ProductLine:   req.ProductLine,
			CapacityKW:    est.CapacityKW,
			SubtotalCents: est.SubtotalCents,
			VATCents:      est.VATCents,
			TotalCents:    est.TotalCents,
			Status:        StatusNew,
		}
		if err := store.Insert(c.Request.Context(), quote); err != nil {
			internalError(c)
			return
		}

		if scheduler != nil {
			if err := scheduler.QuoteReceived(c.Request.Context(), *quote, *est); err != nil {
				logging.Warn().Err(err).Str("reference", quote.Reference).Msg("quote job enqueue failed")
			}
		}

		c.JSON(http.StatusCreated, gin.H{
			"reference": quote.Reference,
			"estimate":  est,
			"message":   "Je offerte-aanvraag is ontvangen. Je ontvangt de offerte per e-mail.",
		})
	}
}

// AdminListHandler returns the handler for GET /api/admin/quotes.
func AdminListHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := store.List(c.Request.Context())
		if err != nil {
			internalError(c)
			return
		}
		if list == nil {
			list = []Quote{}
		}
		c.JSON(http.StatusOK, gin.H{"quotes": list})
	}
}

// AdminStatusHandler returns the handler for PUT /api/admin/quotes/:id/status.
// Marking a quote accepted schedules the bookkeeping push.
func AdminStatusHandler(store Store, syncer Syncer) gin.HandlerFunc {
	type statusRequest struct {
		Status string `json:"status" binding:"required"`
	}
	valid := map[string]struct{}{StatusNew: {}, StatusSent: {}, StatusAccepted: {}}

	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "Geef een status op.",
			})
			return
		}
		if _, ok := valid[req.Status]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "Onbekende offertestatus.",
			})
			return
		}
		if err := store.SetStatus(c.Request.Context(), id, req.Status); err != nil {
			respondStoreError(c, err)
			return
		}

		if req.Status == StatusAccepted && syncer != nil {
			quote, err := store.GetByID(c.Request.Context(), id)
			if err == nil {
				if err := syncer.QuoteAccepted(c.Request.Context(), *quote); err != nil {
					logging.Warn().Err(err).Str("reference", quote.Reference).Msg("bookkeeping sync enqueue failed")
				}
			}
		}
		c.JSON(http.StatusOK, gin.H{"message": "Status bijgewerkt."})
	}
}

// AdminPDFHandler returns the handler for GET /api/admin/quotes/:id/pdf,
// streaming the generated quote PDF.
func AdminPDFHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		quote, err := store.GetByID(c.Request.Context(), id)
		if err != nil {
			respondStoreError(c, err)
			return
		}
		if quote.PDFPath == "" {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "PDF_NOT_READY",
				"message": "De offerte-PDF is nog niet gegenereerd.",
			})
			return
		}
		if _, err := os.Stat(quote.PDFPath); err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "PDF_NOT_READY",
				"message": "De offerte-PDF is niet meer beschikbaar.",
			})
			return
		}
		c.Header("Cache-Control", "no-store")
		c.FileAttachment(quote.PDFPath, quote.Reference+".pdf")
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_INPUT",
			"message": "Ongeldig offerte-id.",
		})
		return 0, false
	}
	return id, true
}

func respondStoreError(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "NOT_FOUND",
			"message": "Offerte niet gevonden.",
		})
		return
	}
	internalError(c)
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "INTERNAL_ERROR",
		"message": "Er is een interne fout opgetreden.",
	})
}
