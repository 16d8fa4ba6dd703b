package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"chimeralens/api/internal/models"
)

type templateRequest struct {
	Name       string         `json:"name" binding:"required"`
	ImageURL   string         `json:"imageUrl" binding:"required,url"`
	ModelKey   string         `json:"modelKey" binding:"required"`
	Parameters map[string]any `json:"parameters"`
	Tags       []string       `json:"tags"`
}

type templateResponse struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	ImageURL   string         `json:"imageUrl"`
	ModelKey   string         `json:"modelKey"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Tags       []string       `json:"tags"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func (h HandlerSet) CreateTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Model keys are not validated here; a template may reference a key the
	// registry only learns about later. Resolution happens at generation time.
	template, err := h.templates.Create(c.Request.Context(), models.HairstyleTemplate{
		Name:       req.Name,
		ImageURL:   req.ImageURL,
		ModelKey:   req.ModelKey,
		Parameters: req.Parameters,
		Tags:       req.Tags,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("create template failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusCreated, toTemplateResponse(template))
}

// ListTemplates accepts an optional comma-separated "tags" query parameter;
// templates carrying any of the named tags match.
func (h HandlerSet) ListTemplates(c *gin.Context) {
	limit, offset := pageParams(c)
	templates, err := h.templates.List(c.Request.Context(), splitTags(c.Query("tags")), limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("list templates failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	items := make([]templateResponse, 0, len(templates))
	for _, template := range templates {
		items = append(items, toTemplateResponse(template))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) GetTemplate(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	template, err := h.templates.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeRepoError(c, err, "get template")
		return
	}
	c.JSON(http.StatusOK, toTemplateResponse(template))
}

func (h HandlerSet) DeleteTemplate(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.templates.SoftDelete(c.Request.Context(), id); err != nil {
		h.writeRepoError(c, err, "delete template")
		return
	}
	c.Status(http.StatusNoContent)
}

// splitTags parses a comma-separated tag filter, dropping blanks.
func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}

func toTemplateResponse(template models.HairstyleTemplate) templateResponse {
	return templateResponse{
		ID:         template.ID,
		Name:       template.Name,
		ImageURL:   template.ImageURL,
		ModelKey:   template.ModelKey,
		Parameters: template.Parameters,
		Tags:       template.Tags,
		CreatedAt:  template.CreatedAt,
	}
}
