package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Visit target kinds.
const (
	TargetArticle = "article"
	TargetThread  = "thread"
)

// PageEvent is one tracked visit to an article or forum thread.
type PageEvent struct {
	ID         uint      `gorm:"primary_key;autoIncrement"`
	TargetType string    `gorm:"not null;index:idx_event_target"`
	TargetID   int       `gorm:"not null;index:idx_event_target"`
	CookieID   string    `gorm:"not null;index"`
	Event      string    `gorm:"not null;default:'visit'"`
	IP         string    `gorm:"not null"`
	Language   *string   // nullable
	Browser    *string   // nullable
	CreatedAt  time.Time `gorm:"index"`
}

// AnalyticsModule tracks page visits in its own database. A nil
// module is valid and disables tracking.
type AnalyticsModule struct {
	db *gorm.DB
}

func NewAnalyticsModule(db *gorm.DB) *AnalyticsModule {
	if db == nil {
		log.Println("Analytics DB is nil, analytics will be disabled")
		return nil
	}

	if err := db.AutoMigrate(&PageEvent{}); err != nil {
		log.Printf("Error migrating page_events table: %v", err)
		return nil
	}

	log.Println("Analytics module initialized successfully")
	return &AnalyticsModule{db: db}
}

// TrackVisit records a visit. Repeated hits by the same visitor on
// the same target within 30 minutes are counted once.
func (a *AnalyticsModule) TrackVisit(c *gin.Context, targetType string, targetID int) {
	if a == nil || a.db == nil {
		return
	}

	cookieID := a.getOrCreateCookieID(c)

	thirtyMinutesAgo := time.Now().Add(-30 * time.Minute)
	var recentVisit PageEvent
	err := a.db.Where("cookie_id = ? AND target_type = ? AND target_id = ? AND created_at > ?",
		cookieID, targetType, targetID, thirtyMinutesAgo).First(&recentVisit).Error
	if err == nil {
		return
	}

	event := PageEvent{
		TargetType: targetType,
		TargetID:   targetID,
		CookieID:   cookieID,
		Event:      "visit",
		IP:         a.getClientIP(c),
		Language:   a.extractLanguage(c),
		Browser:    a.extractBrowser(c.Request.UserAgent()),
		CreatedAt:  time.Now(),
	}

	// async so tracking never slows the request down
	go func() {
		if err := a.db.Create(&event).Error; err != nil {
			log.Printf("Error saving analytics event: %v", err)
		}
	}()
}

func (a *AnalyticsModule) getOrCreateCookieID(c *gin.Context) string {
	cookieName := "hackerthink_visitor_id"

	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie
	}

	data := time.Now().String() + c.ClientIP() + c.Request.UserAgent()
	hash := sha256.Sum256([]byte(data))
	cookieID := hex.EncodeToString(hash[:])

	c.SetCookie(
		cookieName,
		cookieID,
		60*60*24*365*2, // 2 years
		"/",
		"",
		false,
		true,
	)

	return cookieID
}

func (a *AnalyticsModule) getClientIP(c *gin.Context) string {
	if ip := c.GetHeader("X-Forwarded-For"); ip != "" {
		ips := strings.Split(ip, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}

	if ip := c.GetHeader("CF-Connecting-IP"); ip != "" {
		return ip
	}

	return c.ClientIP()
}

func (a *AnalyticsModule) extractBrowser(userAgent string) *string {
	if userAgent == "" {
		return nil
	}

	ua := strings.ToLower(userAgent)
	var browser string

	switch {
	case strings.Contains(ua, "edg"):
		browser = "Edge"
	case strings.Contains(ua, "chrome") && !strings.Contains(ua, "edg"):
		browser = "Chrome"
	case strings.Contains(ua, "safari") && !strings.Contains(ua, "chrome"):
		browser = "Safari"
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr"):
		browser = "Opera"
	default:
		browser = "Other"
	}

	return &browser
}

func (a *AnalyticsModule) extractLanguage(c *gin.Context) *string {
	acceptLang := c.GetHeader("Accept-Language")
	if acceptLang == "" {
		return nil
	}

	parts := strings.Split(acceptLang, ",")
	if len(parts) > 0 {
		lang := strings.TrimSpace(parts[0])
		lang = strings.Split(lang, ";")[0]
		return &lang
	}

	return nil
}

// DayVisits is the number of visits on one day.
type DayVisits struct {
	Date  string
	Count int64
}

// TargetVisits is the visit count for one article or thread.
type TargetVisits struct {
	TargetID int
	Count    int64
}

// GetVisitCount returns total visits for a single target.
func (a *AnalyticsModule) GetVisitCount(targetType string, targetID int) int64 {
	if a == nil || a.db == nil {
		return 0
	}

	var count int64
	a.db.Model(&PageEvent{}).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Count(&count)
	return count
}

// GetVisitsByDay returns per-day visit counts over the last N days,
// including zero days.
func (a *AnalyticsModule) GetVisitsByDay(days int) []DayVisits {
	if a == nil || a.db == nil {
		return []DayVisits{}
	}

	startDate := time.Now().AddDate(0, 0, -days)

	var results []struct {
		Date  string
		Count int64
	}

	a.db.Model(&PageEvent{}).
		Select("DATE(created_at) as date, COUNT(*) as count").
		Where("created_at >= ?", startDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&results)

	dayVisits := make([]DayVisits, days)
	for i := 0; i < days; i++ {
		date := time.Now().AddDate(0, 0, -(days - 1 - i))
		dayVisits[i] = DayVisits{
			Date:  date.Format("2006-01-02"),
			Count: 0,
		}
	}

	for _, result := range results {
		for i := range dayVisits {
			if dayVisits[i].Date == result.Date {
				dayVisits[i].Count = result.Count
				break
			}
		}
	}

	return dayVisits
}

// GetTopTargets returns the most visited targets of a kind over the
// last N days.
func (a *AnalyticsModule) GetTopTargets(targetType string, days int, limit int) []TargetVisits {
	if a == nil || a.db == nil {
		return []TargetVisits{}
	}

	startDate := time.Now().AddDate(0, 0, -days)

	var results []TargetVisits
	a.db.Model(&PageEvent{}).
		Select("target_id as target_id, COUNT(*) as count").
		Where("target_type = ? AND created_at >= ?", targetType, startDate).
		Group("target_id").
		Order("count DESC").
		Limit(limit).
		Scan(&results)

	return results
}
