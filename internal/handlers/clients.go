package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chimeralens/api/internal/models"
	"chimeralens/api/internal/repository"
)

type clientRequest struct {
	Name  string  `json:"name" binding:"required"`
	Phone *string `json:"phone"`
	Email *string `json:"email"`
	Notes *string `json:"notes"`
}

type clientResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h HandlerSet) CreateClient(c *gin.Context) {
	stylist, ok := currentStylist(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client, err := h.clients.Create(c.Request.Context(), models.Client{
		SalonID: stylist.SalonID,
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Notes:   req.Notes,
	})
	if err != nil {
		h.log.Error().Err(err).Int64("salon_id", stylist.SalonID).Msg("create client failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusCreated, toClientResponse(client))
}

func (h HandlerSet) ListClients(c *gin.Context) {
	stylist, ok := currentStylist(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit, offset := pageParams(c)
	clients, err := h.clients.ListBySalon(c.Request.Context(), stylist.SalonID, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Int64("salon_id", stylist.SalonID).Msg("list clients failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	items := make([]clientResponse, 0, len(clients))
	for _, client := range clients {
		items = append(items, toClientResponse(client))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) GetClient(c *gin.Context) {
	stylist, ok := currentStylist(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	client, err := h.clients.GetForSalon(c.Request.Context(), id, stylist.SalonID)
	if err != nil {
		h.writeRepoError(c, err, "get client")
		return
	}
	c.JSON(http.StatusOK, toClientResponse(client))
}

func (h HandlerSet) UpdateClient(c *gin.Context) {
	stylist, ok := currentStylist(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.clients.Update(c.Request.Context(), models.Client{
		ID:      id,
		SalonID: stylist.SalonID,
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Notes:   req.Notes,
	})
	if err != nil {
		h.writeRepoError(c, err, "update client")
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteClient is salon-owner only; the role gate sits in the route setup.
func (h HandlerSet) DeleteClient(c *gin.Context) {
	stylist, ok := currentStylist(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.clients.SoftDelete(c.Request.Context(), id, stylist.SalonID); err != nil {
		h.writeRepoError(c, err, "delete client")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) writeRepoError(c *gin.Context, err error, op string) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	h.log.Error().Err(err).Str("op", op).Msg("repository error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}

func toClientResponse(client models.Client) clientResponse {
	return clientResponse{
		ID:        client.ID,
		Name:      client.Name,
		Phone:     client.Phone,
		Email:     client.Email,
		Notes:     client.Notes,
		CreatedAt: client.CreatedAt,
	}
}
