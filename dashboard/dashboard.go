package dashboard

import (
	"net/http"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hackerthink/analytics"
	"hackerthink/models"
)

type DashboardModule struct {
	db        *gorm.DB
	analytics *analytics.AnalyticsModule
}

func NewDashboardModule(db *gorm.DB, analyticsModule *analytics.AnalyticsModule) *DashboardModule {
	return &DashboardModule{db: db, analytics: analyticsModule}
}

func (d *DashboardModule) RegisterRoutes(router *gin.Engine) {
	dashboardGroup := router.Group("/dashboard")
	dashboardGroup.Use(d.requireAdmin)
	{
		dashboardGroup.GET("/users", d.listUsers)
		dashboardGroup.POST("/users/:id/role", d.setUserRole)
		dashboardGroup.GET("/stats", d.stats)
		dashboardGroup.GET("/stats/visits", d.visitsByDay)
		dashboardGroup.GET("/stats/top", d.topTargets)
	}
}

func (d *DashboardModule) requireAdmin(c *gin.Context) {
	session := sessions.Default(c)
	userID := session.Get("user_id")
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		c.Abort()
		return
	}

	var user models.User
	if err := d.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		c.Abort()
		return
	}

	if user.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		c.Abort()
		return
	}

	c.Next()
}

func (d *DashboardModule) listUsers(c *gin.Context) {
	var users []models.User
	if err := d.db.Order("created_at DESC").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (d *DashboardModule) setUserRole(c *gin.Context) {
	userID := c.Param("id")

	var request struct {
		Role string `json:"role"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	switch request.Role {
	case models.RoleUser, models.RoleModerator, models.RoleAdmin:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}

	var user models.User
	if err := d.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	user.Role = request.Role
	if err := d.db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update role"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// stats returns the headline counters for the dashboard landing page.
func (d *DashboardModule) stats(c *gin.Context) {
	var userCount, threadCount, postCount, pendingReports int64
	d.db.Model(&models.User{}).Count(&userCount)
	d.db.Model(&models.Thread{}).Count(&threadCount)
	d.db.Model(&models.Post{}).Count(&postCount)
	d.db.Model(&models.Report{}).Where("status = ?", models.ReportPending).Count(&pendingReports)

	c.JSON(http.StatusOK, gin.H{
		"users":           userCount,
		"threads":         threadCount,
		"posts":           postCount,
		"pending_reports": pendingReports,
	})
}

func (d *DashboardModule) visitsByDay(c *gin.Context) {
	days := intQuery(c, "days", 30)

	c.JSON(http.StatusOK, gin.H{"visits": d.analytics.GetVisitsByDay(days)})
}

func (d *DashboardModule) topTargets(c *gin.Context) {
	targetType := c.DefaultQuery("type", analytics.TargetThread)
	days := intQuery(c, "days", 30)
	limit := intQuery(c, "limit", 10)

	c.JSON(http.StatusOK, gin.H{"targets": d.analytics.GetTopTargets(targetType, days, limit)})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	parsed, err := strconv.Atoi(c.Query(name))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
