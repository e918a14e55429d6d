package api

import (
	"net/http"
	"strconv"

	"github.com/article-publishing-api/internal/models"
	"github.com/article-publishing-api/internal/service"
	"github.com/article-publishing-api/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const listCacheControl = "public, max-age=120"

// ArticleHandler handles the public catalog and admin flag endpoints
type ArticleHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewArticleHandler creates a new ArticleHandler
func NewArticleHandler(services *service.Services, log zerolog.Logger) *ArticleHandler {
	return &ArticleHandler{
		services: services,
		log:      log.With().Str("handler", "article").Logger(),
	}
}

// List handles GET /api/articles
func (h *ArticleHandler) List(c *gin.Context) {
	limit, verr := validation.ParseLimit(c.Query("limit"))
	if verr != nil {
		badRequest(c, service.CodeInvalidQuery, verr.Message, nil)
		return
	}

	filter := &models.ArticleFilter{
		Category: c.Query("category"),
		OrderBy:  c.Query("orderBy"),
		Order:    c.Query("order"),
		Limit:    limit,
	}
	if raw := c.Query("destacado"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, service.CodeInvalidQuery, "Invalid destacado parameter", nil)
			return
		}
		filter.Featured = &featured
	}

	articles, err := h.services.Article.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Header("Cache-Control", listCacheControl)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"articles": nonNil(articles),
		"meta": gin.H{
			"count":   len(articles),
			"limit":   filter.Limit,
			"orderBy": filter.OrderBy,
			"order":   filter.Order,
		},
	})
}

// Featured handles GET /api/articles/featured
func (h *ArticleHandler) Featured(c *gin.Context) {
	limit, verr := validation.ParseLimit(c.Query("limit"))
	if verr != nil {
		badRequest(c, service.CodeInvalidQuery, verr.Message, nil)
		return
	}

	articles, err := h.services.Article.Featured(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Header("Cache-Control", listCacheControl)
	c.JSON(http.StatusOK, gin.H{"success": true, "articles": nonNil(articles)})
}

// Get handles GET /api/articles/:id and counts the view
func (h *ArticleHandler) Get(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	article, err := h.services.Article.View(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if article == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "article not found", "code": service.CodeArticleNotFound})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "article": article})
}

// Related handles GET /api/articles/:id/related
func (h *ArticleHandler) Related(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	articles, err := h.services.Article.Related(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "articles": nonNil(articles)})
}

// Like handles POST /api/articles/:id/like
func (h *ArticleHandler) Like(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	likes, err := h.services.Article.Like(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "likes": likes})
}

// Categories handles GET /api/categories
func (h *ArticleHandler) Categories(c *gin.Context) {
	categories, err := h.services.Article.Categories(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if categories == nil {
		categories = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "categories": categories})
}

// AdminList handles GET /admin/articles
func (h *ArticleHandler) AdminList(c *gin.Context) {
	articles, err := h.services.Article.AdminList(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "articles": nonNil(articles)})
}

// AdminGet handles GET /admin/articles/:id
func (h *ArticleHandler) AdminGet(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	article, err := h.services.Article.AdminGet(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if article == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "article not found", "code": service.CodeArticleNotFound})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "article": article})
}

// ToggleFeatured handles POST /admin/toggle-destacado/:id
func (h *ArticleHandler) ToggleFeatured(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	featured, err := h.services.Article.ToggleFeatured(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().Int64("article_id", id).Bool("destacado", featured).Msg("Featured flag toggled")
	c.JSON(http.StatusOK, gin.H{"success": true, "destacado": featured})
}

// ToggleHidden handles POST /admin/toggle-oculto/:id
func (h *ArticleHandler) ToggleHidden(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	hidden, err := h.services.Article.ToggleHidden(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().Int64("article_id", id).Bool("oculto", hidden).Msg("Hidden flag toggled")
	c.JSON(http.StatusOK, gin.H{"success": true, "oculto": hidden})
}

func nonNil(articles []*models.Article) []*models.Article {
	if articles == nil {
		return []*models.Article{}
	}
	return articles
}
