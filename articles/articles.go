package articles

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
	"gorm.io/gorm"

	"hackerthink/analytics"
	"hackerthink/cache"
	"hackerthink/models"
)

type ArticlesModule struct {
	db        *gorm.DB
	analytics *analytics.AnalyticsModule
}

// markdown renderer configured with Goldmark and useful extensions
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithUnsafe(), // articles are staff-authored, raw HTML is allowed
	),
)

func NewArticlesModule(db *gorm.DB, analyticsModule *analytics.AnalyticsModule) *ArticlesModule {
	return &ArticlesModule{db: db, analytics: analyticsModule}
}

func (m *ArticlesModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/articles", m.list)
	router.GET("/articles/:slug", m.get)

	editorGroup := router.Group("/admin/articles")
	editorGroup.Use(m.requireAdmin)
	{
		editorGroup.GET("/", m.listAll)
		editorGroup.POST("/", m.create)
		editorGroup.POST("/:id", m.update)
		editorGroup.DELETE("/:id", m.remove)
	}
}

// requireAdmin gates the editorial endpoints on the session user's role.
func (m *ArticlesModule) requireAdmin(c *gin.Context) {
	session := sessions.Default(c)
	userID := session.Get("user_id")
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		c.Abort()
		return
	}

	var user models.User
	if err := m.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		c.Abort()
		return
	}

	if user.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		c.Abort()
		return
	}

	c.Set("user_id", user.ID)
	c.Next()
}

func (m *ArticlesModule) list(c *gin.Context) {
	var articles []models.Article
	if err := m.db.Where("draft = ?", false).
		Order("created_at DESC").
		Find(&articles).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load articles"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

func (m *ArticlesModule) get(c *gin.Context) {
	slug := c.Param("slug")

	var article models.Article
	if err := m.db.Where("slug = ? AND draft = ?", slug, false).First(&article).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}

	m.analytics.TrackVisit(c, analytics.TargetArticle, int(article.ID))

	c.JSON(http.StatusOK, gin.H{
		"article":      article,
		"content_html": renderMarkdown(article.Content),
	})
}

func (m *ArticlesModule) listAll(c *gin.Context) {
	var articles []models.Article
	if err := m.db.Order("created_at DESC").Find(&articles).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load articles"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

func (m *ArticlesModule) create(c *gin.Context) {
	var request struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
		Content string `json:"content"`
		Draft   bool   `json:"draft"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || request.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	article := models.Article{
		UserID:    c.GetInt("user_id"),
		Title:     request.Title,
		Slug:      m.uniqueSlug(request.Title),
		Summary:   request.Summary,
		Content:   request.Content,
		Draft:     request.Draft,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := m.db.Create(&article).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create article"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"article": article})
}

func (m *ArticlesModule) update(c *gin.Context) {
	articleID := c.Param("id")

	var article models.Article
	if err := m.db.First(&article, articleID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}

	var request struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
		Content string `json:"content"`
		Draft   *bool  `json:"draft"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	oldSlug := article.Slug

	if request.Title != "" {
		article.Title = request.Title
	}
	if request.Summary != "" {
		article.Summary = request.Summary
	}
	if request.Content != "" {
		article.Content = request.Content
	}
	if request.Draft != nil {
		article.Draft = *request.Draft
	}
	article.UpdatedAt = time.Now()

	if err := m.db.Save(&article).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update article"})
		return
	}

	cache.ClearCacheBySlugs("articles", oldSlug, article.Slug)

	c.JSON(http.StatusOK, gin.H{"article": article})
}

func (m *ArticlesModule) remove(c *gin.Context) {
	articleID := c.Param("id")

	var article models.Article
	if err := m.db.First(&article, articleID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}

	if err := m.db.Delete(&article).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete article"})
		return
	}

	cache.ClearCacheBySlugs("articles", article.Slug)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (m *ArticlesModule) uniqueSlug(title string) string {
	base := generateSlug(title)
	slug := base
	for i := 2; ; i++ {
		var count int64
		m.db.Model(&models.Article{}).Where("slug = ?", slug).Count(&count)
		if count == 0 {
			return slug
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func generateSlug(title string) string {
	slug := strings.ToLower(title)
	slug = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		if r == ' ' {
			return '-'
		}
		return -1
	}, slug)

	slug = strings.Trim(slug, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	if slug == "" {
		slug = "article"
	}
	return slug
}

func renderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		// on error, fall back to the raw content so the page still renders
		return content
	}
	return buf.String()
}
