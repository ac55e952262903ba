package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"familytree/internal/service/family"
)

type MemberHandler struct {
	familyService *family.Service
	logger        *zap.Logger
}

func NewMemberHandler(familyService *family.Service, logger *zap.Logger) *MemberHandler {
	return &MemberHandler{
		familyService: familyService,
		logger:        logger,
	}
}

type memberRequest struct {
	Name         string   `json:"name"`
	BirthDate    *string  `json:"birth_date"`
	WeddingDate  *string  `json:"wedding_date"`
	DeathDate    *string  `json:"death_date"`
	SpouseID     *string  `json:"spouse_id"`
	Relationship string   `json:"relationship"`
	Biography    string   `json:"biography"`
	Occupation   string   `json:"occupation"`
	Location     string   `json:"location"`
	ProfileImage string   `json:"profile_image"`
	UserID       *string  `json:"user_id"`
	Parents      []string `json:"parents"`
	Children     []string `json:"children"`
}

func (r memberRequest) toInput() (family.MemberInput, error) {
	in := family.MemberInput{
		Name:         r.Name,
		SpouseID:     r.SpouseID,
		Relationship: r.Relationship,
		Biography:    r.Biography,
		Occupation:   r.Occupation,
		Location:     r.Location,
		ProfileImage: r.ProfileImage,
		UserID:       r.UserID,
		Parents:      r.Parents,
		Children:     r.Children,
	}

	var err error
	if in.BirthDate, err = parseOptionalDate(r.BirthDate); err != nil {
		return in, err
	}
	if in.WeddingDate, err = parseOptionalDate(r.WeddingDate); err != nil {
		return in, err
	}
	if in.DeathDate, err = parseOptionalDate(r.DeathDate); err != nil {
		return in, err
	}
	return in, nil
}

// CreateMember handles POST /members
func (h *MemberHandler) CreateMember(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	in, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.familyService.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, m)
}

// UpdateMember handles PUT /members/:id
func (h *MemberHandler) UpdateMember(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	in, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.familyService.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

// DeleteMember handles DELETE /members/:id
func (h *MemberHandler) DeleteMember(c *gin.Context) {
	if err := h.familyService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// GetMember handles GET /members/:id
func (h *MemberHandler) GetMember(c *gin.Context) {
	m, err := h.familyService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

// ListMembers handles GET /members
func (h *MemberHandler) ListMembers(c *gin.Context) {
	members, err := h.familyService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// parseOptionalDate accepts RFC3339 timestamps and plain dates.
func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, *s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
