package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"hackerthink/models"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(&models.User{})
	return db
}

func setupTestRouter(authModule *AuthModule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	store := cookie.NewStore([]byte("test-secret"))
	router.Use(sessions.Sessions("test-session", store))

	authModule.RegisterRoutes(router)
	return router
}

func createVerifiedUser(db *gorm.DB, email, password string) *models.User {
	// MinCost keeps the test suite fast; production hashing uses a
	// higher cost
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := &models.User{
		Username:      "tester",
		Email:         email,
		PasswordHash:  string(hash),
		Role:          models.RoleUser,
		EmailVerified: true,
		CreatedAt:     time.Now(),
	}
	db.Create(user)
	return user
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRegister_MissingFields(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewAuthModule(db))

	w := doJSON(router, "POST", "/auth/register", gin.H{"username": "alice"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewAuthModule(db))

	createVerifiedUser(db, "alice@example.com", "password")

	w := doJSON(router, "POST", "/auth/register", gin.H{
		"username": "alice2",
		"email":    "alice@example.com",
		"password": "password",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewAuthModule(db))

	createVerifiedUser(db, "alice@example.com", "password")

	w := doJSON(router, "POST", "/auth/register", gin.H{
		"username": "tester",
		"email":    "other@example.com",
		"password": "password",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfirmEmail(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewAuthModule(db))

	user := &models.User{
		Username:               "pending",
		Email:                  "pending@example.com",
		PasswordHash:           "x",
		Role:                   models.RoleUser,
		EmailVerificationToken: "the-token",
	}
	db.Create(user)

	w := doJSON(router, "GET", "/auth/confirm/the-token", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var reloaded models.User
	db.First(&reloaded, user.ID)
	assert.True(t, reloaded.EmailVerified)
	assert.Empty(t, reloaded.EmailVerificationToken)
}

func TestConfirmEmail_BadToken(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewAuthModule(db))

	w := doJSON(router, "GET", "/auth/confirm/wrong", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogin_Success(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewAuthModule(db))

	createVerifiedUser(db, "alice@example.com", "password")

	w := doJSON(router, "POST", "/auth/login", gin.H{
		"email":    "alice@example.com",
		"password": "password",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Result().Cookies())
}

func TestLogin_WrongPassword(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewAuthModule(db))

	createVerifiedUser(db, "alice@example.com", "password")

	w := doJSON(router, "POST", "/auth/login", gin.H{
		"email":    "alice@example.com",
		"password": "nope",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_UnverifiedEmail(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewAuthModule(db))

	user := createVerifiedUser(db, "alice@example.com", "password")
	db.Model(user).Update("email_verified", false)

	w := doJSON(router, "POST", "/auth/login", gin.H{
		"email":    "alice@example.com",
		"password": "password",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe_RequiresSession(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewAuthModule(db))

	w := doJSON(router, "GET", "/auth/me", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe_AfterLogin(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewAuthModule(db))

	user := createVerifiedUser(db, "alice@example.com", "password")

	login := doJSON(router, "POST", "/auth/login", gin.H{
		"email":    "alice@example.com",
		"password": "password",
	})
	assert.Equal(t, http.StatusOK, login.Code)

	req := httptest.NewRequest("GET", "/auth/me", nil)
	for _, c := range login.Result().Cookies() {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		User models.User `json:"user"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, user.ID, response.User.ID)
}

func TestIsAdminEmail(t *testing.T) {
	t.Setenv("ADMIN_EMAILS", "root@example.com, ops@example.com")

	assert.True(t, isAdminEmail("root@example.com"))
	assert.True(t, isAdminEmail("ops@example.com"))
	assert.False(t, isAdminEmail("alice@example.com"))

	t.Setenv("ADMIN_EMAILS", "")
	assert.False(t, isAdminEmail("root@example.com"))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := hashPassword("s3cret")

	assert.NoError(t, err)
	assert.True(t, checkPasswordHash("s3cret", hash))
	assert.False(t, checkPasswordHash("other", hash))
}
