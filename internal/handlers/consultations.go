package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chimeralens/api/internal/generation"
	"chimeralens/api/internal/models"
)

const maxSourceImageBytes = 16 << 20

type consultationResponse struct {
	ID        int64     `json:"id"`
	ClientID  int64     `json:"clientId"`
	StylistID int64     `json:"stylistId"`
	Status    string    `json:"status"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
}

type createConsultationRequest struct {
	ClientID int64 `json:"clientId" binding:"required"`
}

func (h HandlerSet) CreateConsultation(c *gin.Context) {
	stylist, ok := currentStylist(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The client must belong to the caller's salon before anything hangs
	// off it.
	if _, err := h.clients.GetForSalon(c.Request.Context(), req.ClientID, stylist.SalonID); err != nil {
		h.writeRepoError(c, err, "resolve client")
		return
	}

	consultation, err := h.consultations.Create(c.Request.Context(), models.Consultation{
		ClientID:  req.ClientID,
		StylistID: stylist.ID,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("create consultation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusCreated, toConsultationResponse(consultation))
}

// CreateQuickConsultation backs the walk-in flow: a throwaway client plus a
// TEMPORARY consultation in one call.
func (h HandlerSet) CreateQuickConsultation(c *gin.Context) {
	stylist, ok := currentStylist(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	clientName := fmt.Sprintf("Walk-in Client - %s", time.Now().Format("15:04:05"))
	consultation, err := h.consultations.CreateQuick(c.Request.Context(), stylist.SalonID, stylist.ID, clientName)
	if err != nil {
		h.log.Error().Err(err).Msg("quick consultation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusCreated, toConsultationResponse(consultation))
}

func (h HandlerSet) ListConsultations(c *gin.Context) {
	stylist, ok := currentStylist(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit, offset := pageParams(c)
	consultations, err := h.consultations.ListBySalon(c.Request.Context(), stylist.SalonID, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("list consultations failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	items := make([]consultationResponse, 0, len(consultations))
	for _, consultation := range consultations {
		items = append(items, toConsultationResponse(consultation))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) GetConsultation(c *gin.Context) {
	stylist, ok := currentStylist(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	consultation, err := h.consultations.GetForSalon(c.Request.Context(), id, stylist.SalonID)
	if err != nil {
		h.writeRepoError(c, err, "get consultation")
		return
	}

	images, err := h.generatedImages.ListByConsultation(c.Request.Context(), consultation.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("list generated images failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	imageItems := make([]generatedImageResponse, 0, len(images))
	for _, image := range images {
		imageItems = append(imageItems, toGeneratedImageResponse(image))
	}

	c.JSON(http.StatusOK, gin.H{
		"consultation":    toConsultationResponse(consultation),
		"generatedImages": imageItems,
	})
}

type updateConsultationRequest struct {
	Status *string   `json:"status"`
	Tags   *[]string `json:"tags"`
}

// UpdateConsultation applies a partial update: status (TEMPORARY or SAVED)
// and the tag set can each be changed independently.
func (h HandlerSet) UpdateConsultation(c *gin.Context) {
	stylist, ok := currentStylist(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req updateConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status == nil && req.Tags == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing_to_update"})
		return
	}

	if req.Status != nil {
		status := models.ConsultationStatus(*req.Status)
		if status != models.ConsultationStatusTemporary && status != models.ConsultationStatusSaved {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_status"})
			return
		}
		if err := h.consultations.UpdateStatus(c.Request.Context(), id, stylist.SalonID, status); err != nil {
			h.writeRepoError(c, err, "update consultation status")
			return
		}
	}

	if req.Tags != nil {
		if _, err := h.consultations.UpdateTags(c.Request.Context(), id, stylist.SalonID, *req.Tags); err != nil {
			h.writeRepoError(c, err, "update consultation tags")
			return
		}
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) DeleteConsultation(c *gin.Context) {
	stylist, ok := currentStylist(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.consultations.SoftDelete(c.Request.Context(), id, stylist.SalonID); err != nil {
		h.writeRepoError(c, err, "delete consultation")
		return
	}
	c.Status(http.StatusNoContent)
}

type generatedImageResponse struct {
	ID             int64     `json:"id"`
	ConsultationID int64     `json:"consultationId"`
	ImageURL       string    `json:"imageUrl"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (h HandlerSet) ListGeneratedImages(c *gin.Context) {
	stylist, ok := currentStylist(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if _, err := h.consultations.GetForSalon(c.Request.Context(), id, stylist.SalonID); err != nil {
		h.writeRepoError(c, err, "get consultation")
		return
	}

	images, err := h.generatedImages.ListByConsultation(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Msg("list generated images failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	items := make([]generatedImageResponse, 0, len(images))
	for _, image := range images {
		items = append(items, toGeneratedImageResponse(image))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GenerateImage runs the full generation pipeline for one consultation:
// multipart source photo plus templateId, with optional per-call option
// overrides as a JSON object in the "options" field.
func (h HandlerSet) GenerateImage(c *gin.Context) {
	stylist, ok := currentStylist(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	templateID, err := parseFormInt64(c, "templateId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "template_id_required"})
		return
	}

	var options map[string]any
	if raw := c.PostForm("options"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &options); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_options"})
			return
		}
	}

	sourceImage, err := readSourceImage(c)
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	image, err := h.generationService.Generate(c.Request.Context(), generation.GenerateInput{
		ConsultationID: id,
		SalonID:        stylist.SalonID,
		StylistID:      stylist.ID,
		SourceImage:    sourceImage,
		TemplateID:     templateID,
		Options:        options,
	})
	if err != nil {
		h.writeGenerationError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toGeneratedImageResponse(image))
}

func (h HandlerSet) writeGenerationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, generation.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, generation.ErrMissingSourceImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_image_required"})
	case errors.Is(err, generation.ErrContentPolicy):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "content_policy_violation", "message": err.Error()})
	case errors.Is(err, generation.ErrGenerationTimedOut):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "generation_timed_out", "message": err.Error()})
	case errors.Is(err, generation.ErrGenerationFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "generation_failed", "message": err.Error()})
	case errors.Is(err, generation.ErrUpstreamUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream_unavailable", "message": err.Error()})
	default:
		h.log.Error().Err(err).Msg("generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

func readSourceImage(c *gin.Context) ([]byte, error) {
	file, header, err := c.Request.FormFile("sourceImage")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if header.Size > maxSourceImageBytes {
		return nil, fmt.Errorf("source image too large")
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSourceImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read source image: %w", err)
	}
	if len(data) > maxSourceImageBytes {
		return nil, fmt.Errorf("source image too large")
	}
	return data, nil
}

func parseFormInt64(c *gin.Context, field string) (int64, error) {
	raw := c.PostForm(field)
	if raw == "" {
		return 0, fmt.Errorf("%s required", field)
	}
	var v int64
	if _, err := fmt.Sscan(raw, &v); err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", field)
	}
	return v, nil
}

func toConsultationResponse(consultation models.Consultation) consultationResponse {
	return consultationResponse{
		ID:        consultation.ID,
		ClientID:  consultation.ClientID,
		StylistID: consultation.StylistID,
		Status:    string(consultation.Status),
		Tags:      consultation.Tags,
		CreatedAt: consultation.CreatedAt,
	}
}

func toGeneratedImageResponse(image models.GeneratedImage) generatedImageResponse {
	return generatedImageResponse{
		ID:             image.ID,
		ConsultationID: image.ConsultationID,
		ImageURL:       image.ImageURL,
		CreatedAt:      image.CreatedAt,
	}
}
