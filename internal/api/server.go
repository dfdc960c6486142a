// Package api exposes the day service over HTTP.
package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/verte-zerg/nutriplan/internal/day"
	"github.com/verte-zerg/nutriplan/internal/model"
)

// Server holds the handler dependencies.
type Server struct {
	svc *day.Service
	log *slog.Logger
}

// NewRouter builds the gin engine serving svc. A nil logger discards logs.
func NewRouter(svc *day.Service, log *slog.Logger) *gin.Engine {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{svc: svc, log: log}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	r.GET("/healthz", s.health)
	r.GET("/nutrients/:name", s.getNutrient)

	days := r.Group("/days/:day")
	{
		days.GET("/windows", s.getWindows)
		days.POST("/plan", s.postPlan)
		days.POST("/partial-plan", s.postPartialPlan)
		days.POST("/meals", s.postMeal)
		days.GET("/score", s.getScore)
		days.GET("/impact", s.getImpact)
	}
	return r
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

// dayParam validates the :day path segment and returns it with its
// midnight in the service clock's location.
func (s *Server) dayParam(c *gin.Context) (string, time.Time, bool) {
	raw := c.Param("day")
	t, err := time.ParseInLocation(model.DayLayout, raw, s.svc.Now().Location())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "day must be YYYY-MM-DD"})
		return "", time.Time{}, false
	}
	return raw, t, true
}

// fail maps service errors to HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	var perr *day.PersistError
	switch {
	case errors.Is(err, day.ErrNoPlan):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, day.ErrUnknownWindow),
		errors.Is(err, model.ErrInvalidTimeOfDay),
		errors.Is(err, model.ErrInvalidContext):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &perr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "change applied but not saved", "day": perr.Day})
	default:
		s.log.Error("request failed", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
