package contact

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/klimaatdesk/internal/logging"
)

// Notifier is implemented by the job layer to fan out a notification mail
// for a new message. A nil Notifier disables notifications.
type Notifier interface {
	ContactReceived(ctx context.Context, m Message) error
}

type submitRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone"`
	Message string `json:"message" binding:"required"`
}

// SubmitHandler returns the handler for POST /api/contact.
func SubmitHandler(store Store, notifier Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req submitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "Vul een naam, geldig e-mailadres en bericht in.",
			})
			return
		}

		msg := &Message{
			Name:    strings.TrimSpace(req.Name),
			Email:   strings.TrimSpace(req.Email),
			Phone:   strings.TrimSpace(req.Phone),
			Message: strings.TrimSpace(req.Message),
		}
		if err := store.Insert(c.Request.Context(), msg); err != nil {
			internalError(c)
			return
		}

		if notifier != nil {
			if err := notifier.ContactReceived(c.Request.Context(), *msg); err != nil {
				// The submission is stored; a lost notification is recoverable
				// from the admin list.
				logging.Warn().Err(err).Int64("contact_id", msg.ID).Msg("contact notification enqueue failed")
			}
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "Bedankt voor je bericht! We nemen zo snel mogelijk contact op.",
		})
	}
}

// AdminListHandler returns the handler for GET /api/admin/contact.
func AdminListHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := store.List(c.Request.Context())
		if err != nil {
			internalError(c)
			return
		}
		if list == nil {
			list = []Message{}
		}
		c.JSON(http.StatusOK, gin.H{"messages": list})
	}
}

// MarkHandledHandler returns the handler for PUT /api/admin/contact/:id/handled.
func MarkHandledHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "Ongeldig bericht-id.",
			})
			return
		}
		if err := store.MarkHandled(c.Request.Context(), id); err != nil {
			if errors.Is(err, ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{
					"code":    "NOT_FOUND",
					"message": "Bericht niet gevonden.",
				})
				return
			}
			internalError(c)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Bericht afgehandeld."})
	}
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "INTERNAL_ERROR",
		"message": "Er is een interne fout opgetreden.",
	})
}
