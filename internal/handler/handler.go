// Package handler exposes the analytics and timetable services over HTTP.
// All authorization beyond the bearer token/role gate happens upstream; the
// handlers assume validated callers and map domain errors to status codes.
package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"campustrack/internal/analytics"
	"campustrack/internal/attendance"
	"campustrack/internal/auth"
	"campustrack/internal/config"
	"campustrack/internal/store"
	"campustrack/internal/timetable"
)

type Handler struct {
	attendance *attendance.Service
	analytics  *analytics.Service
	snapshot   *analytics.SnapshotCache
	grid       *timetable.Service
	cfg        config.App
}

func New(att *attendance.Service, agg *analytics.Service, snap *analytics.SnapshotCache, grid *timetable.Service, cfg config.App) *Handler {
	return &Handler{attendance: att, analytics: agg, snapshot: snap, grid: grid, cfg: cfg}
}

// fail maps domain errors onto HTTP status codes. Anything not in the
// taxonomy is treated as a caller mistake, matching the strict "no silent
// recovery" propagation policy.
func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, timetable.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, timetable.ErrSlotOccupied):
		status = http.StatusConflict
	case errors.Is(err, timetable.ErrMDCNotConfigured):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// ---------- Auth ----------

type tokenRequest struct {
	UserID       string `json:"user_id" binding:"required"`
	Role         string `json:"role" binding:"required"`
	ProvisionKey string `json:"provision_key" binding:"required"`
}

// IssueToken mints a JWT pair for an already-verified caller. Credential
// verification itself lives in the identity collaborator; this endpoint only
// gates on the shared provisioning key.
func (h *Handler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ProvisionKey != h.cfg.ProvisionKey {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid provision key"})
		return
	}
	if req.Role != auth.RoleAdmin && req.Role != auth.RoleFaculty {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}

	tokens, err := auth.Issue(req.UserID, req.Role, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

// ---------- Analytics ----------

// Overview serves the dashboard snapshot, preferring the worker-maintained
// cache when the caller did not pin a window end.
func (h *Handler) Overview(c *gin.Context) {
	windowEnd, ok := h.parseDate(c, "date")
	if !ok {
		return
	}

	if windowEnd.IsZero() {
		if ov, hit := h.snapshot.Get(c.Request.Context()); hit {
			c.JSON(http.StatusOK, ov)
			return
		}
	}

	ov, err := h.analytics.OverallStats(c.Request.Context(), windowEnd)
	if err != nil {
		h.fail(c, err)
		return
	}
	if windowEnd.IsZero() {
		if err := h.snapshot.Put(c.Request.Context(), ov); err != nil {
			log.Printf("snapshot cache put failed: %v", err)
		}
	}
	c.JSON(http.StatusOK, ov)
}

func (h *Handler) DepartmentBreakdown(c *gin.Context) {
	windowEnd, ok := h.parseDate(c, "date")
	if !ok {
		return
	}
	days := intQuery(c, "days", 0)

	stats, err := h.analytics.DepartmentBreakdown(c.Request.Context(), windowEnd, days)
	if err != nil {
		h.fail(c, err)
		return
	}
	if stats == nil {
		stats = []analytics.DepartmentStat{}
	}
	c.JSON(http.StatusOK, gin.H{"departments": stats})
}

func (h *Handler) WeeklyTrend(c *gin.Context) {
	anchor, ok := h.parseDate(c, "date")
	if !ok {
		return
	}
	weeks := intQuery(c, "weeks", 0)

	buckets, err := h.analytics.WeeklyTrend(c.Request.Context(), weeks, anchor)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"weeks": buckets})
}

func (h *Handler) LowAttendance(c *gin.Context) {
	days := intQuery(c, "days", 0)
	limit := intQuery(c, "limit", 0)

	students, err := h.analytics.LowAttendanceStudents(c.Request.Context(), days, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	if students == nil {
		students = []analytics.LowAttendanceStudent{}
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

// ---------- Attendance ----------

type markRequest struct {
	SubjectID string                 `json:"subject_id" binding:"required"`
	Date      string                 `json:"date"`
	Entries   []attendance.MarkEntry `json:"entries" binding:"required"`
}

// MarkClass records a class marking. The marking faculty is the token
// subject.
func (h *Handler) MarkClass(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var day time.Time
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	claims := auth.ClaimsFrom(c)
	inserted, err := h.attendance.MarkClass(c.Request.Context(), claims.Subject, req.SubjectID, day, req.Entries)
	if err != nil {
		h.fail(c, err)
		return
	}
	markedRecords.Add(float64(inserted))
	c.JSON(http.StatusCreated, gin.H{"inserted": inserted})
}

func (h *Handler) RecentSessions(c *gin.Context) {
	limit := intQuery(c, "limit", 10)

	sessions, err := h.attendance.RecentSessions(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	if sessions == nil {
		sessions = []attendance.ClassSession{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// ---------- helpers ----------

// parseDate reads an optional YYYY-MM-DD query param; second return is false
// when the request was already answered with a 400.
func (h *Handler) parseDate(c *gin.Context, param string) (time.Time, bool) {
	raw := c.Query(param)
	if raw == "" {
		return time.Time{}, true
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": param + " must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return parsed, true
}

func intQuery(c *gin.Context, param string, fallback int) int {
	if v := c.Query(param); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}
