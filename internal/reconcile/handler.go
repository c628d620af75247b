package reconcile

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/VoidX3D/Anime-Tracker/pkg/models"
)

type Handler struct {
	Reconciler *Reconciler
}

func NewHandler(rec *Reconciler) *Handler {
	return &Handler{Reconciler: rec}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.sync)          // POST /sync
	rg.POST("/parity", h.parity) // POST /sync/parity
}

// RegisterStatusRoutes hangs the single-title status operations off the
// anime resource group.
func (h *Handler) RegisterStatusRoutes(rg *gin.RouterGroup) {
	rg.PUT("/:id/status", h.setStatus)
	rg.DELETE("/:id/status", h.clearStatus)
}

// sync runs the incremental merge over an export file posted as JSON.
func (h *Handler) sync(c *gin.Context) {
	file, err := models.ParseImportFile(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid export file"})
		return
	}

	report, err := h.Reconciler.Reconcile(c.Request.Context(), file)
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "a sync run is already in progress"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed"})
		return
	}

	c.JSON(http.StatusOK, report)
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *Handler) setStatus(c *gin.Context) {
	id, ok := animeID(c)
	if !ok {
		return
	}

	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	status := models.TrackingStatus(req.Status)
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown tracking status"})
		return
	}

	if err := h.Reconciler.SetStatus(c.Request.Context(), id, &status); err != nil {
		if errors.Is(err, ErrNotCataloged) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"anime_id": id, "status": status})
}

func (h *Handler) clearStatus(c *gin.Context) {
	id, ok := animeID(c)
	if !ok {
		return
	}

	if err := h.Reconciler.SetStatus(c.Request.Context(), id, nil); err != nil {
		if errors.Is(err, ErrNotCataloged) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"anime_id": id, "status": nil})
}

func animeID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return 0, false
	}
	return id, true
}

// parity runs the destructive full resync. The confirm flag is required so a
// stray request cannot wipe tracked state.
func (h *Handler) parity(c *gin.Context) {
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "full parity discards statuses not in the file; pass confirm=true",
		})
		return
	}

	file, err := models.ParseImportFile(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid export file"})
		return
	}

	report, err := h.Reconciler.FullParity(c.Request.Context(), file)
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "a sync run is already in progress"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "parity resync failed"})
		return
	}

	c.JSON(http.StatusOK, report)
}
