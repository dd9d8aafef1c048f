package reviews

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type submitRequest struct {
	Name   string `json:"name" binding:"required"`
	Email  string `json:"email"`
	Rating int    `json:"rating" binding:"required"`
	Body   string `json:"body" binding:"required"`
}

// SubmitHandler returns the handler for POST /api/reviews/submit.
func SubmitHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req submitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "Vul een naam, beoordeling en tekst in.",
			})
			return
		}
		if req.Rating < 1 || req.Rating > 5 {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "De beoordeling moet tussen 1 en 5 sterren liggen.",
			})
			return
		}

		review := &Review{
			Name:   strings.TrimSpace(req.Name),
			Email:  strings.TrimSpace(req.Email),
			Rating: req.Rating,
			Body:   strings.TrimSpace(req.Body),
		}
		if err := store.Insert(c.Request.Context(), review); err != nil {
			internalError(c)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message": "Bedankt voor je review! Deze wordt eerst beoordeeld voordat hij zichtbaar is.",
		})
	}
}

// ListApprovedHandler returns the handler for GET /api/reviews.
func ListApprovedHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := store.ListApproved(c.Request.Context())
		if err != nil {
			internalError(c)
			return
		}
		if list == nil {
			list = []Review{}
		}
		c.JSON(http.StatusOK, gin.H{"reviews": list})
	}
}

// AdminListHandler returns the handler for GET /api/admin/reviews.
func AdminListHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := store.ListAll(c.Request.Context())
		if err != nil {
			internalError(c)
			return
		}
		if list == nil {
			list = []Review{}
		}
		c.JSON(http.StatusOK, gin.H{"reviews": list})
	}
}

// ApproveHandler returns the handler for PUT /api/admin/reviews/:id/approve.
func ApproveHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		if err := store.SetApproved(c.Request.Context(), id, true); err != nil {
			respondStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Review goedgekeurd."})
	}
}

// DeleteHandler returns the handler for DELETE /api/admin/reviews/:id.
func DeleteHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		if err := store.Delete(c.Request.Context(), id); err != nil {
			respondStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Review verwijderd."})
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_INPUT",
			"message": "Ongeldig review-id.",
		})
		return 0, false
	}
	return id, true
}

func respondStoreError(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "NOT_FOUND",
			"message": "Review niet gevonden.",
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
