package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kilianp07/hres/core/engine"
	"github.com/kilianp07/hres/core/history"
	"github.com/kilianp07/hres/core/model"
	"github.com/kilianp07/hres/infra/logger"
	"github.com/kilianp07/hres/pkg/export"
)

// Engine is the simulation surface used by the handlers.
type Engine interface {
	RunID() string
	Running() bool
	CurrentState() model.State
	History() []model.Sample
	Settings() model.Settings
	PatchSettings(p model.SettingsPatch) model.Settings
	Execute(cmd engine.Command) error
}

// HistoryResponse wraps the buffered samples.
type HistoryResponse struct {
	Count   int            `json:"count"`
	Samples []model.Sample `json:"samples"`
}

type handler struct {
	eng Engine
	log logger.Logger
}

// NewRouter registers every route on a fresh gin engine. A non-empty
// token protects the /api/v1 group.
func NewRouter(eng Engine, token string, log logger.Logger) *gin.Engine {
	if log == nil {
		log = logger.NopLogger{}
	}
	h := &handler{eng: eng, log: log}
	r := gin.New()
	r.Use(requestLogger(log), recovery())

	r.GET("/health", h.health)

	v1 := r.Group("/api/v1")
	if token != "" {
		v1.Use(bearerAuth(token))
	}
	{
		v1.GET("/state", h.state)
		v1.GET("/history", h.history)
		v1.GET("/history/summary", h.summary)
		v1.GET("/settings", h.getSettings)
		v1.PUT("/settings", h.putSettings)
		v1.POST("/control/:command", h.control)
	}
	r.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Not found")
	})
	return r
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "run_id": h.eng.RunID(), "running": h.eng.Running()})
}

func (h *handler) state(c *gin.Context) {
	c.JSON(http.StatusOK, h.eng.CurrentState())
}

// history handles GET /api/v1/history?limit=N&format=csv, returning the
// newest N samples oldest first.
func (h *handler) history(c *gin.Context) {
	samples := h.eng.History()
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a non-negative integer")
			return
		}
		if n < len(samples) {
			samples = samples[len(samples)-n:]
		}
	}
	if c.Query("format") == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Status(http.StatusOK)
		if err := export.WriteCSV(c.Writer, samples); err != nil {
			h.log.Errorf("write csv history: %v", err)
		}
		return
	}
	c.JSON(http.StatusOK, HistoryResponse{Count: len(samples), Samples: samples})
}

func (h *handler) summary(c *gin.Context) {
	c.JSON(http.StatusOK, history.Summarize(h.eng.History()))
}

func (h *handler) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.eng.Settings())
}

func (h *handler) putSettings(c *gin.Context) {
	var p model.SettingsPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if p.Empty() {
		writeError(c, http.StatusBadRequest, "EMPTY_SETTINGS", "no settings field provided")
		return
	}
	c.JSON(http.StatusOK, h.eng.PatchSettings(p))
}

func (h *handler) control(c *gin.Context) {
	cmd, err := engine.ParseCommand(c.Param("command"))
	if err != nil {
		writeError(c, http.StatusNotFound, "UNKNOWN_COMMAND", err.Error())
		return
	}
	if err := h.eng.Execute(cmd); err != nil {
		if errors.Is(err, engine.ErrClosed) {
			writeError(c, http.StatusConflict, "ENGINE_CLOSED", err.Error())
			return
		}
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	h.log.Infof("control %s via api", cmd)
	c.JSON(http.StatusOK, h.eng.CurrentState())
}

func writeError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": code, "message": msg}})
}

func bearerAuth(token string) gin.HandlerFunc {
	want := []byte("Bearer " + token)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader("Authorization"))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid bearer token")
			return
		}
		c.Next()
	}
}

func recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		msg := "An unexpected error occurred"
		if s, ok := recovered.(string); ok {
			msg = s
		}
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", msg)
	})
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if strings.HasPrefix(c.Request.URL.Path, "/health") {
			return
		}
		log.Debugw("http request", map[string]any{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}
