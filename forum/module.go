package forum

import (
	"bytes"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gorm.io/gorm"

	"hackerthink/analytics"
	emailpkg "hackerthink/email"
	"hackerthink/models"
)

// ForumModule is the thin HTTP layer over the Engine: parse request,
// call the engine, shape a JSON response.
type ForumModule struct {
	db        *gorm.DB
	engine    *Engine
	analytics *analytics.AnalyticsModule
}

// markdown renderer for post bodies; raw HTML stays escaped since post
// content is user supplied
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
)

func NewForumModule(db *gorm.DB, analyticsModule *analytics.AnalyticsModule) *ForumModule {
	return &ForumModule{
		db:        db,
		engine:    NewEngine(db),
		analytics: analyticsModule,
	}
}

// Engine exposes the domain engine for other modules and tests.
func (f *ForumModule) Engine() *Engine {
	return f.engine
}

func (f *ForumModule) RegisterRoutes(router *gin.Engine) {
	forumGroup := router.Group("/forum")
	forumGroup.Use(f.currentActor)
	{
		forumGroup.GET("/categories", f.listCategories)
		forumGroup.POST("/categories", f.createCategory)
		forumGroup.POST("/categories/:id", f.updateCategory)
		forumGroup.POST("/categories/:id/reorder", f.reorderCategory)

		forumGroup.GET("/threads", f.listThreads)
		forumGroup.POST("/threads", f.createThread)
		forumGroup.GET("/threads/:id", f.getThread)
		forumGroup.POST("/threads/:id/lock", f.lockThread)
		forumGroup.POST("/threads/:id/sticky", f.stickyThread)
		forumGroup.POST("/threads/:id/solve", f.solveThread)
		forumGroup.GET("/threads/:id/posts", f.listPosts)
		forumGroup.POST("/threads/:id/posts", f.createPost)
		forumGroup.POST("/threads/:id/subscribe", f.subscribe)
		forumGroup.DELETE("/threads/:id/subscribe", f.unsubscribe)
		forumGroup.POST("/threads/:id/bookmark", f.addBookmark)
		forumGroup.DELETE("/threads/:id/bookmark", f.removeBookmark)
		forumGroup.GET("/bookmarks", f.listBookmarks)

		forumGroup.POST("/posts/:id", f.editPost)
		forumGroup.POST("/posts/:id/like", f.likePost)
		forumGroup.DELETE("/posts/:id/like", f.unlikePost)
		forumGroup.POST("/posts/:id/report", f.fileReport)

		forumGroup.GET("/reports", f.listReports)
		forumGroup.POST("/reports/:id/resolve", f.resolveReport)

		forumGroup.GET("/notifications", f.listNotifications)
		forumGroup.GET("/notifications/unread-count", f.unreadCount)
		forumGroup.POST("/notifications/:id/read", f.markRead)

		forumGroup.POST("/admin/users/:id/ban", f.banUser)
		forumGroup.POST("/admin/users/:id/unban", f.unbanUser)
	}
}

// currentActor resolves the actor from session state before any engine
// call. Requests without a valid session proceed as guest.
func (f *ForumModule) currentActor(c *gin.Context) {
	session := sessions.Default(c)
	actor := Guest

	if userID, ok := session.Get("user_id").(int); ok {
		var user models.User
		if err := f.db.First(&user, userID).Error; err == nil {
			actor = Actor{ID: user.ID, Role: user.Role}
		}
	}

	c.Set("actor", actor)
	c.Next()
}

func actorFrom(c *gin.Context) Actor {
	if v, exists := c.Get("actor"); exists {
		if actor, ok := v.(Actor); ok {
			return actor
		}
	}
	return Guest
}

func respondError(c *gin.Context, err error) {
	status := StatusCode(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		// never leak query text or driver detail
		message = "internal server error"
	}
	c.JSON(status, gin.H{"error": message})
}

func paramUint(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func paramInt(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func renderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return content
	}
	return buf.String()
}

func (f *ForumModule) listCategories(c *gin.Context) {
	categories, err := f.engine.ListCategories(actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (f *ForumModule) createCategory(c *gin.Context) {
	var request struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		ParentID    *int   `json:"parent_id"`
		ViewRole    string `json:"view_role"`
		PostRole    string `json:"post_role"`
		ReplyRole   string `json:"reply_role"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || request.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	category, err := f.engine.CreateCategory(actorFrom(c), request.Name, request.Description,
		request.ParentID, request.ViewRole, request.PostRole, request.ReplyRole)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": category})
}

func (f *ForumModule) updateCategory(c *gin.Context) {
	categoryID, ok := paramInt(c, "id")
	if !ok {
		return
	}

	var request struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		ViewRole    string `json:"view_role"`
		PostRole    string `json:"post_role"`
		ReplyRole   string `json:"reply_role"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	category, err := f.engine.UpdateCategory(actorFrom(c), categoryID, request.Name,
		request.Description, request.ViewRole, request.PostRole, request.ReplyRole)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

func (f *ForumModule) reorderCategory(c *gin.Context) {
	categoryID, ok := paramInt(c, "id")
	if !ok {
		return
	}

	var request struct {
		DisplayOrder int `json:"display_order"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := f.engine.ReorderCategory(actorFrom(c), categoryID, request.DisplayOrder); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (f *ForumModule) listThreads(c *gin.Context) {
	categoryID, err := strconv.Atoi(c.Query("category_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category_id is required"})
		return
	}

	threads, err := f.engine.ListThreads(actorFrom(c), categoryID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threads": threads})
}

func (f *ForumModule) createThread(c *gin.Context) {
	var request struct {
		CategoryID int    `json:"category_id"`
		Title      string `json:"title"`
		Body       string `json:"body"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || request.Title == "" || request.Body == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category_id, title and body are required"})
		return
	}

	thread, err := f.engine.CreateThread(actorFrom(c), request.CategoryID, request.Title, request.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"thread": thread})
}

func (f *ForumModule) getThread(c *gin.Context) {
	threadID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	thread, err := f.engine.GetThread(actorFrom(c), threadID)
	if err != nil {
		respondError(c, err)
		return
	}

	f.analytics.TrackVisit(c, analytics.TargetThread, int(thread.ID))

	c.JSON(http.StatusOK, gin.H{"thread": thread})
}

func (f *ForumModule) lockThread(c *gin.Context) {
	threadID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var request struct {
		IsLocked bool `json:"is_locked"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := f.engine.SetLock(actorFrom(c), threadID, request.IsLocked); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (f *ForumModule) stickyThread(c *gin.Context) {
	threadID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var request struct {
		IsSticky bool `json:"is_sticky"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := f.engine.SetSticky(actorFrom(c), threadID, request.IsSticky); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (f *ForumModule) solveThread(c *gin.Context) {
	threadID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var request struct {
		IsSolved     bool  `json:"is_solved"`
		SolvedPostID *uint `json:"solved_post_id"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := f.engine.SetSolved(actorFrom(c), threadID, request.IsSolved, request.SolvedPostID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (f *ForumModule) listPosts(c *gin.Context) {
	threadID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	posts, err := f.engine.ListPosts(actorFrom(c), threadID)
	if err != nil {
		respondError(c, err)
		return
	}

	type postView struct {
		models.Post
		ContentHTML string `json:"content_html"`
	}
	views := make([]postView, len(posts))
	for i, post := range posts {
		views[i] = postView{Post: post, ContentHTML: renderMarkdown(post.Content)}
	}
	c.JSON(http.StatusOK, gin.H{"posts": views})
}

func (f *ForumModule) createPost(c *gin.Context) {
	threadID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var request struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || request.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	post, err := f.engine.CreatePost(actorFrom(c), threadID, request.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"post": post})
}

func (f *ForumModule) editPost(c *gin.Context) {
	postID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var request struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || request.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	post, err := f.engine.EditPost(actorFrom(c), postID, request.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

func (f *ForumModule) subscribe(c *gin.Context) {
	threadID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	if err := f.engine.Subscribe(actorFrom(c), threadID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (f *ForumModule) unsubscribe(c *gin.Context) {
	threadID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	if err := f.engine.Unsubscribe(actorFrom(c), threadID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (f *ForumModule) addBookmark(c *gin.Context) {
	threadID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	if err := f.engine.AddBookmark(actorFrom(c), threadID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (f *ForumModule) removeBookmark(c *gin.Context) {
	threadID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	if err := f.engine.RemoveBookmark(actorFrom(c), threadID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (f *ForumModule) listBookmarks(c *gin.Context) {
	threads, err := f.engine.ListBookmarks(actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threads": threads})
}

func (f *ForumModule) likePost(c *gin.Context) {
	postID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	if err := f.engine.LikePost(actorFrom(c), postID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (f *ForumModule) unlikePost(c *gin.Context) {
	postID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	if err := f.engine.UnlikePost(actorFrom(c), postID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (f *ForumModule) fileReport(c *gin.Context) {
	postID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var request struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || request.Reason == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}

	report, err := f.engine.FileReport(actorFrom(c), postID, request.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"report": report})
}

func (f *ForumModule) listReports(c *gin.Context) {
	reports, err := f.engine.ListReports(actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (f *ForumModule) resolveReport(c *gin.Context) {
	reportID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var request struct {
		Outcome string `json:"outcome"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := f.engine.ResolveReport(actorFrom(c), reportID, request.Outcome); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (f *ForumModule) listNotifications(c *gin.Context) {
	notifications, err := f.engine.ListNotifications(actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	type notificationView struct {
		models.Notification
		Payload NotificationPayload `json:"payload"`
	}
	views := make([]notificationView, len(notifications))
	for i := range notifications {
		views[i] = notificationView{
			Notification: notifications[i],
			Payload:      Payload(&notifications[i]),
		}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": views})
}

func (f *ForumModule) unreadCount(c *gin.Context) {
	count, err := f.engine.UnreadCount(actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func (f *ForumModule) markRead(c *gin.Context) {
	notificationID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	if err := f.engine.MarkRead(actorFrom(c), notificationID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (f *ForumModule) banUser(c *gin.Context) {
	targetID, ok := paramInt(c, "id")
	if !ok {
		return
	}

	var request struct {
		ExpiresAt *time.Time `json:"expires_at"`
		Reason    string     `json:"reason"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := f.engine.BanUser(actorFrom(c), targetID, request.ExpiresAt, request.Reason); err != nil {
		respondError(c, err)
		return
	}

	// best effort: the in-forum notification is the source of truth
	var target models.User
	if err := f.db.First(&target, targetID).Error; err == nil {
		note := "You have been banned from the forum"
		if request.Reason != "" {
			note += ": " + request.Reason
		}
		emailService := emailpkg.NewEmailService()
		if err := emailService.SendModerationEmail(target.Email, note); err != nil {
			log.Printf("Error sending moderation email to %s: %v", target.Email, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (f *ForumModule) unbanUser(c *gin.Context) {
	targetID, ok := paramInt(c, "id")
	if !ok {
		return
	}
	if err := f.engine.UnbanUser(actorFrom(c), targetID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
