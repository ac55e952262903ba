package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"familytree/internal/model"
	"familytree/internal/service/timeline"
)

type TimelineHandler struct {
	timelineService *timeline.Service
	logger          *zap.Logger
}

func NewTimelineHandler(timelineService *timeline.Service, logger *zap.Logger) *TimelineHandler {
	return &TimelineHandler{
		timelineService: timelineService,
		logger:          logger,
	}
}

// ListTimeline handles GET /timeline
func (h *TimelineHandler) ListTimeline(c *gin.Context) {
	f := model.TimelineFilter{
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

	entries, err := h.timelineService.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// GetEntry handles GET /timeline/:id
func (h *TimelineHandler) GetEntry(c *gin.Context) {
	entry, err := h.timelineService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// CreateEntry handles POST /timeline
func (h *TimelineHandler) CreateEntry(c *gin.Context) {
	var req struct {
		Title          string   `json:"title"`
		Description    string   `json:"description"`
		Date           *string  `json:"date"`
		Type           string   `json:"type"`
		FamilyMemberID *string  `json:"family_member_id"`
		RelatedMembers []string `json:"related_members"`
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
	in := timeline.CreateEntryInput{
		Title:          req.Title,
		Description:    req.Description,
		Type:           req.Type,
		FamilyMemberID: req.FamilyMemberID,
		RelatedMembers: req.RelatedMembers,
	}
	if date != nil {
		in.Date = *date
	}

	entry, err := h.timelineService.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// UpdateEntry handles PUT /timeline/:id
func (h *TimelineHandler) UpdateEntry(c *gin.Context) {
	var req struct {
		Title          *string   `json:"title"`
		Description    *string   `json:"description"`
		Date           *string   `json:"date"`
		Type           *string   `json:"type"`
		FamilyMemberID *string   `json:"family_member_id"`
		ClearMember    bool      `json:"clear_member"`
		RelatedMembers *[]string `json:"related_members"`
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

	in := timeline.UpdateEntryInput{
		Title:          req.Title,
		Description:    req.Description,
		Date:           date,
		Type:           req.Type,
		FamilyMemberID: req.FamilyMemberID,
		ClearMember:    req.ClearMember,
		RelatedMembers: req.RelatedMembers,
	}

	entry, err := h.timelineService.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// DeleteEntry handles DELETE /timeline/:id
func (h *TimelineHandler) DeleteEntry(c *gin.Context) {
	if err := h.timelineService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
