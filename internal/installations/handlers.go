package installations

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/yourusername/klimaatdesk/internal/logging"
)

// Reporter is implemented by the job layer to generate the commissioning
// report PDF in the background. A nil Reporter disables report generation.
type Reporter interface {
	InstallationRegistered(ctx context.Context, i Installation) error
}

type upsertRequest struct {
	CustomerName      string `json:"customerName" binding:"required"`
	Address           string `json:"address" binding:"required"`
	EquipmentModel    string `json:"equipmentModel" binding:"required"`
	SerialNumber      string `json:"serialNumber"`
	InstalledOn       string `json:"installedOn" binding:"required"`
	MaintenanceMonths int    `json:"maintenanceMonths"`
	Notes             string `json:"notes"`
}

func (r *upsertRequest) apply(i *Installation) bool {
	installed, err := time.Parse("2006-01-02", r.InstalledOn)
	if err != nil {
		return false
	}
	if r.MaintenanceMonths < 0 || r.MaintenanceMonths > 60 {
		return false
	}
	i.CustomerName = strings.TrimSpace(r.CustomerName)
	i.Address = strings.TrimSpace(r.Address)
	i.EquipmentModel = strings.TrimSpace(r.EquipmentModel)
	i.SerialNumber = strings.TrimSpace(r.SerialNumber)
	i.InstalledOn = installed
	i.MaintenanceMonths = r.MaintenanceMonths
	if i.MaintenanceMonths == 0 {
		i.MaintenanceMonths = 12
	}
	i.Notes = strings.TrimSpace(r.Notes)
	return true
}

// CreateHandler returns the handler for POST /api/admin/installations.
func CreateHandler(store Store, reporter Reporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req upsertRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidInput(c)
			return
		}

		inst := &Installation{LookupCode: NewLookupCode()}
		if !req.apply(inst) {
			invalidInput(c)
			return
		}
		if err := store.Insert(c.Request.Context(), inst); err != nil {
			internalError(c)
			return
		}

		if reporter != nil {
			if err := reporter.InstallationRegistered(c.Request.Context(), *inst); err != nil {
				logging.Warn().Err(err).Int64("installation_id", inst.ID).Msg("commissioning report enqueue failed")
			}
		}

		c.JSON(http.StatusCreated, gin.H{"installation": inst})
	}
}

// UpdateHandler returns the handler for PUT /api/admin/installations/:id.
func UpdateHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req upsertRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidInput(c)
			return
		}

		inst, err := store.GetByID(c.Request.Context(), id)
		if err != nil {
			respondStoreError(c, err)
			return
		}
		if !req.apply(inst) {
			invalidInput(c)
			return
		}
		if err := store.Update(c.Request.Context(), inst); err != nil {
			respondStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"installation": inst})
	}
}

// DeleteHandler returns the handler for DELETE /api/admin/installations/:id.
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
		c.JSON(http.StatusOK, gin.H{"message": "Installatie verwijderd."})
	}
}

// ListHandler returns the handler for GET /api/admin/installations.
func ListHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := store.List(c.Request.Context())
		if err != nil {
			internalError(c)
			return
		}
		if list == nil {
			list = []Installation{}
		}
		c.JSON(http.StatusOK, gin.H{"installations": list})
	}
}

// QRHandler returns the handler for GET /api/admin/installations/:id/qr. It
// renders the installation's lookup page URL as a PNG suitable for printing
// on the unit sticker. publicBaseURL is the site origin; /lookup/<code> is a
// page there, not an API route.
func QRHandler(store Store, publicBaseURL string) gin.HandlerFunc {
	base := strings.TrimRight(publicBaseURL, "/")

	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		inst, err := store.GetByID(c.Request.Context(), id)
		if err != nil {
			respondStoreError(c, err)
			return
		}

		png, err := qrcode.Encode(base+"/lookup/"+inst.LookupCode, qrcode.Medium, 512)
		if err != nil {
			internalError(c)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/png", png)
	}
}

// PublicLookupHandler returns the handler for GET /api/lookup/:code. It is
// unauthenticated and returns only the sanitized projection; unknown codes
// get a plain 404 without hinting whether the code shape was valid.
func PublicLookupHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := strings.TrimSpace(c.Param("code"))
		if code == "" || len(code) > 32 {
			lookupNotFound(c)
			return
		}
		inst, err := store.GetByLookupCode(c.Request.Context(), code)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				lookupNotFound(c)
				return
			}
			internalError(c)
			return
		}
		c.JSON(http.StatusOK, gin.H{"installation": inst.Public()})
	}
}

func lookupNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"code":    "NOT_FOUND",
		"message": "Geen installatie gevonden voor deze code.",
	})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_INPUT",
			"message": "Ongeldig installatie-id.",
		})
		return 0, false
	}
	return id, true
}

func respondStoreError(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "NOT_FOUND",
			"message": "Installatie niet gevonden.",
		})
		return
	}
	internalError(c)
}

func invalidInput(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    "INVALID_INPUT",
		"message": "Vul alle verplichte installatievelden correct in.",
	})
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "INTERNAL_ERROR",
		"message": "Er is een interne fout opgetreden.",
	})
}
