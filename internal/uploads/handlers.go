// Package uploads handles customer photo uploads attached to quote requests,
// such as pictures of the boiler room or the fuse box.
package uploads

import (
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/klimaatdesk/internal/logging"
	"github.com/yourusername/klimaatdesk/internal/storage"
)

// Content types accepted from the public site. The type is detected from the
// file content, never from the client-supplied filename or header.
var allowedTypes = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"application/pdf": "pdf",
}

// SubmitHandler returns the handler for POST /api/uploads. maxSize caps the
// accepted file size in bytes.
func SubmitHandler(store *storage.Local, maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		header, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "Selecteer een bestand om te uploaden.",
			})
			return
		}
		if header.Size > maxSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"code":    "FILE_TOO_LARGE",
				"message": "Het bestand is te groot. Maximaal 10 MB.",
			})
			return
		}

		file, err := header.Open()
		if err != nil {
			internalError(c)
			return
		}
		defer file.Close()

		detected, err := mimetype.DetectReader(file)
		if err != nil {
			internalError(c)
			return
		}
		ext, ok := allowedTypes[detected.String()]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "UNSUPPORTED_TYPE",
				"message": "Alleen JPG-, PNG- of PDF-bestanden zijn toegestaan.",
			})
			return
		}

		// DetectReader consumed a prefix of the stream; rewind before storing.
		if _, err := file.Seek(0, 0); err != nil {
			internalError(c)
			return
		}
		name, err := store.Save(file, ext)
		if err != nil {
			logging.Error().Err(err).Msg("upload store failed")
			internalError(c)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"file":    name,
			"message": "Bestand ontvangen.",
		})
	}
}

// AdminDownloadHandler returns the handler for GET /api/admin/uploads/:name.
func AdminDownloadHandler(store *storage.Local) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := strings.TrimSpace(c.Param("name"))
		path, err := store.Path(name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "Ongeldige bestandsnaam.",
			})
			return
		}
		c.Header("Cache-Control", "no-store")
		c.FileAttachment(path, name)
	}
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "INTERNAL_ERROR",
		"message": "Er is een interne fout opgetreden.",
	})
}
