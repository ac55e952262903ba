package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"familytree/internal/model"
	"familytree/internal/service/auth"
	"familytree/internal/service/event"
)

type EventHandler struct {
	eventService *event.Service
	logger       *zap.Logger
}

func NewEventHandler(eventService *event.Service, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		logger:       logger,
	}
}

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	userID, role, ok := actorFrom(c)
	if !ok {
		return
	}

	var req struct {
		Title        string   `json:"title"`
		Description  string   `json:"description"`
		Date         *string  `json:"date"`
		Location     string   `json:"location"`
		Type         string   `json:"type"`
		Status       string   `json:"status"`
		Participants []string `json:"participants"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	date, err := parseOptionalDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in := event.CreateEventInput{
		Title:        req.Title,
		Description:  req.Description,
		Location:     req.Location,
		Type:         req.Type,
		Status:       req.Status,
		Participants: req.Participants,
	}
	if date != nil {
		in.Date = *date
	}

	ev, err := h.eventService.Create(c.Request.Context(), auth.Actor{UserID: userID, Role: role}, in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ev)
}

// UpdateEvent handles PUT /events/:id
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	userID, role, ok := actorFrom(c)
	if !ok {
		return
	}

	var req struct {
		Title        *string   `json:"title"`
		Description  *string   `json:"description"`
		Date         *string   `json:"date"`
		Location     *string   `json:"location"`
		Type         *string   `json:"type"`
		Status       *string   `json:"status"`
		Participants *[]string `json:"participants"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	date, err := parseOptionalDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := event.UpdateEventInput{
		Title:        req.Title,
		Description:  req.Description,
		Date:         date,
		Location:     req.Location,
		Type:         req.Type,
		Status:       req.Status,
		Participants: req.Participants,
	}

	ev, err := h.eventService.Update(c.Request.Context(), auth.Actor{UserID: userID, Role: role}, c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ev)
}

// DeleteEvent handles DELETE /events/:id
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	userID, role, ok := actorFrom(c)
	if !ok {
		return
	}

	if err := h.eventService.Delete(c.Request.Context(), auth.Actor{UserID: userID, Role: role}, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// GetEvent handles GET /events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	ev, err := h.eventService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ev)
}

// ListEvents handles GET /events
func (h *EventHandler) ListEvents(c *gin.Context) {
	f := model.EventFilter{
		Status:         c.Query("status"),
		Type:           c.Query("type"),
		FamilyMemberID: c.Query("family_member_id"),
	}

	var err error
	if f.From, err = parseQueryDate(c, "from"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
		return
	}
	if f.To, err = parseQueryDate(c, "to"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
		return
	}

	events, err := h.eventService.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

func parseQueryDate(c *gin.Context, key string) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	s := v
	return parseOptionalDate(&s)
}
