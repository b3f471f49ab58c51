package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"attendly/internal/attendance"
	"attendly/internal/httpmiddleware"
	"attendly/internal/store"
)

// Deps are the collaborators the router serves.
type Deps struct {
	Store       *attendance.Store
	Prefs       *attendance.Preferences
	KV          store.KV
	Log         *zap.Logger
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
}

type handler struct {
	store *attendance.Store
	prefs *attendance.Preferences
	kv    store.KV

	mu        sync.Mutex
	calendars map[string]*attendance.Calendar // per-subject month view
}

// NewRouter builds the local collaborator API.
func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	h := &handler{
		store:     d.Store,
		prefs:     d.Prefs,
		kv:        d.KV,
		calendars: make(map[string]*attendance.Calendar),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(d.Log, "/healthz", "/metrics"))
	if len(d.CORSOrigins) > 0 {
		r.Use(httpmiddleware.CORS(d.CORSOrigins))
	}
	r.Use(httpmiddleware.SecurityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	r.GET("/healthz", h.health)

	v1 := r.Group("/v1", httpmiddleware.RequireReady(d.Store.Loaded))
	v1.GET("/state", h.state)
	v1.POST("/subjects", h.addSubject)
	v1.DELETE("/subjects/:id", h.deleteSubject)
	v1.PUT("/subjects/:id/attendance", h.updateAttendance)
	v1.GET("/subjects/:id/calendar", h.calendar)
	v1.POST("/subjects/:id/calendar/month", h.changeMonth)
	v1.POST("/subjects/:id/calendar/days/:day", h.clickDay)
	v1.PUT("/profile", h.setProfile)
	v1.GET("/mode", h.mode)
	v1.PUT("/mode", h.setMode)
	v1.POST("/mode/toggle", h.toggleMode)

	return r
}

func (h *handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	storageHealthy := h.kv != nil && h.kv.Healthy(ctx)
	loaded := h.store.Loaded()
	code, status := http.StatusOK, "ok"
	if !storageHealthy || !loaded {
		code, status = http.StatusServiceUnavailable, "unavailable"
	}
	c.JSON(code, gin.H{"status": status, "storage": storageHealthy, "loaded": loaded})
}

func (h *handler) state(c *gin.Context) {
	subjects, profile := h.store.Snapshot()
	c.JSON(http.StatusOK, attendance.Envelope{Subjects: subjects, Profile: profile})
}

func (h *handler) addSubject(c *gin.Context) {
	var req struct {
		Name   string  `json:"name" binding:"required"`
		Target float64 `json:"target"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sub, err := h.store.AddSubject(c.Request.Context(), req.Name, req.Target)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *handler) deleteSubject(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.store.Subject(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": attendance.ErrSubjectNotFound.Error()})
		return
	}
	// the UI asks the user; ?confirm=true carries the answer
	confirmed := attendance.ConfirmFunc(func(string) bool { return c.Query("confirm") == "true" })
	removed, err := h.store.DeleteSubject(c.Request.Context(), id, confirmed)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusConflict, gin.H{"error": "confirmation required", "prompt": attendance.DeletePrompt})
		return
	}
	h.mu.Lock()
	delete(h.calendars, id)
	h.mu.Unlock()
	c.Status(http.StatusNoContent)
}

func (h *handler) updateAttendance(c *gin.Context) {
	var req struct {
		Status attendance.Status `json:"status" binding:"required"`
		Date   string            `json:"date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sub, err := h.store.UpdateAttendance(c.Request.Context(), c.Param("id"), req.Status, req.Date)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *handler) setProfile(c *gin.Context) {
	var p attendance.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	saved, err := h.store.SetProfile(c.Request.Context(), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

type calendarView struct {
	Title string            `json:"title"`
	Year  int               `json:"year"`
	Month int               `json:"month"` // 1-12
	Cells []attendance.Cell `json:"cells"`
}

func viewOf(cal *attendance.Calendar) calendarView {
	return calendarView{Title: cal.Title(), Year: cal.Year(), Month: int(cal.Month()), Cells: cal.Grid()}
}

// withCalendar runs fn on the subject's calendar session while holding the session lock.
func (h *handler) withCalendar(c *gin.Context, fn func(cal *attendance.Calendar)) {
	id := c.Param("id")
	if _, ok := h.store.Subject(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": attendance.ErrSubjectNotFound.Error()})
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	cal, ok := h.calendars[id]
	if !ok {
		cal = h.store.Calendar(id)
		h.calendars[id] = cal
	}
	fn(cal)
}

func (h *handler) calendar(c *gin.Context) {
	h.withCalendar(c, func(cal *attendance.Calendar) {
		c.JSON(http.StatusOK, viewOf(cal))
	})
}

func (h *handler) changeMonth(c *gin.Context) {
	var req struct {
		Offset int `json:"offset"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.withCalendar(c, func(cal *attendance.Calendar) {
		cal.ChangeMonth(req.Offset)
		c.JSON(http.StatusOK, viewOf(cal))
	})
}

func (h *handler) clickDay(c *gin.Context) {
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "day must be a number"})
		return
	}
	h.withCalendar(c, func(cal *attendance.Calendar) {
		status, err := cal.ClickDay(c.Request.Context(), day)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"date":   cal.DateKey(day),
			"status": status,
		})
	})
}

func (h *handler) mode(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"mode": h.prefs.Mode()})
}

func (h *handler) setMode(c *gin.Context) {
	var req struct {
		Mode string `json:"mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, ok := attendance.ParseMode(req.Mode)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": `mode must be "dark" or "light"`})
		return
	}
	if err := h.prefs.SetMode(c.Request.Context(), m); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mode": m})
}

func (h *handler) toggleMode(c *gin.Context) {
	m, err := h.prefs.Toggle(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mode": m})
}

func (h *handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, attendance.ErrSubjectNotFound):
		status = http.StatusNotFound
	case errors.Is(err, attendance.ErrInvalidStatus),
		errors.Is(err, attendance.ErrInvalidDate),
		errors.Is(err, attendance.ErrDayOutOfRange):
		status = http.StatusBadRequest
	case errors.Is(err, attendance.ErrNotLoaded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
