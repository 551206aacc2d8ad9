package dashboard

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"hackerthink/models"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(&models.User{}, &models.Thread{}, &models.Post{}, &models.Report{})
	return db
}

func setupTestRouter(dashboardModule *DashboardModule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	store := cookie.NewStore([]byte("test-secret"))
	router.Use(sessions.Sessions("test-session", store))

	router.POST("/test/login/:id", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		session := sessions.Default(c)
		session.Set("user_id", id)
		session.Save()
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	dashboardModule.RegisterRoutes(router)
	return router
}

func createTestUser(db *gorm.DB, username, role string) *models.User {
	user := &models.User{
		Username:      username,
		Email:         username + "@example.com",
		PasswordHash:  "hashedpassword",
		Role:          role,
		EmailVerified: true,
		CreatedAt:     time.Now(),
	}
	db.Create(user)
	return user
}

func loginAs(router *gin.Engine, userID int) []*http.Cookie {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/test/login/"+strconv.Itoa(userID), nil)
	router.ServeHTTP(w, req)
	return w.Result().Cookies()
}

func doJSON(router *gin.Engine, method, path string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestDashboard_RequiresAdmin(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewDashboardModule(db, nil))

	mod := createTestUser(db, "mod", models.RoleModerator)

	w := doJSON(router, "GET", "/dashboard/users", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(router, "GET", "/dashboard/users", nil, loginAs(router, mod.ID))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListUsers(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewDashboardModule(db, nil))

	admin := createTestUser(db, "admin", models.RoleAdmin)
	createTestUser(db, "alice", models.RoleUser)

	w := doJSON(router, "GET", "/dashboard/users", nil, loginAs(router, admin.ID))

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Users []models.User `json:"users"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 2, len(response.Users))
}

func TestSetUserRole(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewDashboardModule(db, nil))

	admin := createTestUser(db, "admin", models.RoleAdmin)
	alice := createTestUser(db, "alice", models.RoleUser)
	cookies := loginAs(router, admin.ID)

	w := doJSON(router, "POST", "/dashboard/users/"+strconv.Itoa(alice.ID)+"/role",
		gin.H{"role": models.RoleModerator}, cookies)

	assert.Equal(t, http.StatusOK, w.Code)

	var reloaded models.User
	db.First(&reloaded, alice.ID)
	assert.Equal(t, models.RoleModerator, reloaded.Role)
}

func TestSetUserRole_InvalidRole(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewDashboardModule(db, nil))

	admin := createTestUser(db, "admin", models.RoleAdmin)
	alice := createTestUser(db, "alice", models.RoleUser)

	w := doJSON(router, "POST", "/dashboard/users/"+strconv.Itoa(alice.ID)+"/role",
		gin.H{"role": "overlord"}, loginAs(router, admin.ID))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStats(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewDashboardModule(db, nil))

	admin := createTestUser(db, "admin", models.RoleAdmin)
	db.Create(&models.Thread{CategoryID: 1, UserID: admin.ID, Title: "t", Slug: "t", CreatedAt: time.Now(), LastPostAt: time.Now()})
	db.Create(&models.Report{PostID: 1, UserID: admin.ID, Reason: "spam", Status: models.ReportPending, CreatedAt: time.Now()})

	w := doJSON(router, "GET", "/dashboard/stats", nil, loginAs(router, admin.ID))

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Users          int64 `json:"users"`
		Threads        int64 `json:"threads"`
		PendingReports int64 `json:"pending_reports"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, int64(1), response.Users)
	assert.Equal(t, int64(1), response.Threads)
	assert.Equal(t, int64(1), response.PendingReports)
}

func TestVisitStats_NilAnalytics(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewDashboardModule(db, nil))

	admin := createTestUser(db, "admin", models.RoleAdmin)
	cookies := loginAs(router, admin.ID)

	// Analytics disabled: endpoints answer with empty data, not errors.
	w := doJSON(router, "GET", "/dashboard/stats/visits?days=7", nil, cookies)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, "GET", "/dashboard/stats/top?type=thread", nil, cookies)
	assert.Equal(t, http.StatusOK, w.Code)
}
