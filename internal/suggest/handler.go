package suggest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Engine    *Engine
	PageLimit int
}

func NewHandler(engine *Engine, pageLimit int) *Handler {
	return &Handler{Engine: engine, PageLimit: pageLimit}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.recommend) // GET /suggestions
}

func (h *Handler) recommend(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	if limit > h.PageLimit {
		limit = h.PageLimit
	}

	items, err := h.Engine.Recommend(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "recommendations failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}
