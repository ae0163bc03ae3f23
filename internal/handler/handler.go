package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wheelofnames/internal/apperr"
	"wheelofnames/internal/model"
	"wheelofnames/internal/session"
	"wheelofnames/internal/spin"
)

// HistoryReader serves the pick history.
type HistoryReader interface {
	ListHistory(ctx context.Context, classID string, limit int) ([]model.HistoryEntry, error)
}

// Handler exposes class wheels over HTTP.
type Handler struct {
	wheels       *session.Manager
	history      HistoryReader
	historyLimit int
}

// New builds the HTTP handler. A non-positive historyLimit means 100.
func New(wheels *session.Manager, history HistoryReader, historyLimit int) *Handler {
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &Handler{wheels: wheels, history: history, historyLimit: historyLimit}
}

// Register mounts the class routes on g.
func (h *Handler) Register(g *gin.RouterGroup) {
	c := g.Group("/classes/:classID")

	c.GET("/wheel", h.getWheel)
	c.GET("/wheel/events", h.streamEvents)
	c.GET("/wheel/history", h.listHistory)
	c.POST("/wheel/spin", h.spin)
	c.POST("/wheel/reload", h.reload)
	c.POST("/wheel/return-all", h.returnAll)
	c.POST("/wheel/students/:studentID/return", h.returnStudent)
	c.POST("/wheel/students/:studentID/attendance", h.toggleAttendance)
	c.PUT("/wheel/infinite", h.setInfinite)
	c.PUT("/wheel/activity", h.selectActivity)

	c.GET("/activities", h.listActivities)
	c.POST("/activities", h.createActivity)
	c.PATCH("/activities/:activityID", h.renameActivity)
	c.DELETE("/activities/:activityID", h.deleteActivity)
}

// wheel resolves the class session, answering the request itself on failure.
func (h *Handler) wheel(c *gin.Context) (*session.Session, bool) {
	s, err := h.wheels.Get(c.Request.Context(), c.Param("classID"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) getWheel(c *gin.Context) {
	s, ok := h.wheel(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.View())
}

func (h *Handler) spin(c *gin.Context) {
	plan, err := h.wheels.Spin(c.Request.Context(), c.Param("classID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, plan)
}

func (h *Handler) reload(c *gin.Context) {
	s, ok := h.wheel(c)
	if !ok {
		return
	}
	if err := s.Reload(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

func (h *Handler) returnStudent(c *gin.Context) {
	s, ok := h.wheel(c)
	if !ok {
		return
	}
	if err := s.Return(c.Request.Context(), c.Param("studentID")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

func (h *Handler) returnAll(c *gin.Context) {
	s, ok := h.wheel(c)
	if !ok {
		return
	}
	if err := s.ReturnAll(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

func (h *Handler) toggleAttendance(c *gin.Context) {
	s, ok := h.wheel(c)
	if !ok {
		return
	}
	absent, err := s.ToggleAttendance(c.Request.Context(), c.Param("studentID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"absent": absent, "wheel": s.View()})
}

func (h *Handler) setInfinite(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, ok := h.wheel(c)
	if !ok {
		return
	}
	s.SetInfiniteMode(*req.Enabled)
	c.JSON(http.StatusOK, s.View())
}

func (h *Handler) selectActivity(c *gin.Context) {
	var req struct {
		ActivityID *string `json:"activity_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, ok := h.wheel(c)
	if !ok {
		return
	}
	id := ""
	if req.ActivityID != nil {
		id = *req.ActivityID
	}
	if err := s.SelectActivity(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

func (h *Handler) listActivities(c *gin.Context) {
	s, ok := h.wheel(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": s.Activities()})
}

type activityRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) createActivity(c *gin.Context) {
	var req activityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, ok := h.wheel(c)
	if !ok {
		return
	}
	a, err := s.CreateActivity(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) renameActivity(c *gin.Context) {
	var req activityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, ok := h.wheel(c)
	if !ok {
		return
	}
	a, err := s.RenameActivity(c.Request.Context(), c.Param("activityID"), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) deleteActivity(c *gin.Context) {
	s, ok := h.wheel(c)
	if !ok {
		return
	}
	if err := s.DeleteActivity(c.Request.Context(), c.Param("activityID")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listHistory(c *gin.Context) {
	limit := h.historyLimit
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= limit {
			limit = parsed
		}
	}
	entries, err := h.history.ListHistory(c.Request.Context(), c.Param("classID"), limit)
	if err != nil {
		log.Printf("list history %s: %v", c.Param("classID"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, spin.ErrSpinning):
		status = http.StatusConflict
	case errors.Is(err, spin.ErrEmptyWheel), apperr.IsInvalid(err):
		status = http.StatusBadRequest
	case apperr.IsNotFound(err):
		status = http.StatusNotFound
	case apperr.IsLoad(err):
		status = http.StatusServiceUnavailable
	case apperr.IsPersistence(err):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
