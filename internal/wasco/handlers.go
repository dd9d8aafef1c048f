package wasco

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/klimaatdesk/internal/logging"
)

// PriceHandler returns the handler for GET /api/admin/prices/:sku. A nil
// client means no portal credentials are configured.
func PriceHandler(client *Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"code":    "PORTAL_DISABLED",
				"message": "De leveranciersportal is niet geconfigureerd.",
			})
			return
		}

		price, err := client.Lookup(c.Request.Context(), c.Param("sku"))
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{
					"code":    "NOT_FOUND",
					"message": "Geen artikel gevonden voor dit artikelnummer.",
				})
			case errors.Is(err, ErrLoginFailed):
				logging.Error().Err(err).Msg("supplier portal rejected credentials")
				c.JSON(http.StatusBadGateway, gin.H{
					"code":    "PORTAL_ERROR",
					"message": "Inloggen bij de leveranciersportal is mislukt.",
				})
			default:
				logging.Warn().Err(err).Str("sku", c.Param("sku")).Msg("supplier price lookup failed")
				c.JSON(http.StatusBadGateway, gin.H{
					"code":    "PORTAL_ERROR",
					"message": "De leveranciersportal is momenteel niet bereikbaar.",
				})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"price": price})
	}
}
