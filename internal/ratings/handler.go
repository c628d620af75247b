package ratings

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/VoidX3D/Anime-Tracker/pkg/models"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/rating", h.get)
	rg.PUT("/:id/rating", h.set)
	rg.DELETE("/:id/rating", h.remove)
	rg.PUT("/:id/progress", h.setProgress)
}

type setReq struct {
	Rating          int     `json:"rating"`
	Review          string  `json:"review"`
	WatchedEpisodes int     `json:"watched_episodes"`
	IsRewatching    bool    `json:"is_rewatching"`
	StartedAt       *string `json:"started_at"`
	CompletedAt     *string `json:"completed_at"`
}

func (h *Handler) set(c *gin.Context) {
	id, ok := animeID(c)
	if !ok {
		return
	}

	var req setReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	rating := models.Rating{
		AnimeID:         id,
		Rating:          req.Rating,
		Review:          req.Review,
		WatchedEpisodes: req.WatchedEpisodes,
		IsRewatching:    req.IsRewatching,
		StartedAt:       req.StartedAt,
		CompletedAt:     req.CompletedAt,
	}

	if err := h.Repo.Set(c.Request.Context(), rating); err != nil {
		if errors.Is(err, ErrInvalidRating) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	saved, err := h.Repo.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch saved failed"})
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := animeID(c)
	if !ok {
		return
	}

	rating, err := h.Repo.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if rating == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not rated"})
		return
	}
	c.JSON(http.StatusOK, rating)
}

func (h *Handler) remove(c *gin.Context) {
	id, ok := animeID(c)
	if !ok {
		return
	}

	found, err := h.Repo.Delete(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "not rated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

type progressReq struct {
	WatchedEpisodes int `json:"watched_episodes"`
}

func (h *Handler) setProgress(c *gin.Context) {
	id, ok := animeID(c)
	if !ok {
		return
	}

	var req progressReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.WatchedEpisodes < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "watched_episodes must be >= 0"})
		return
	}

	if err := h.Repo.SetProgress(c.Request.Context(), id, req.WatchedEpisodes); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"anime_id": id, "watched_episodes": req.WatchedEpisodes})
}

func animeID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return 0, false
	}
	return id, true
}
