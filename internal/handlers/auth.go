package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chimeralens/api/internal/middleware"
	"chimeralens/api/internal/models"
	"chimeralens/api/internal/security"
	"chimeralens/api/internal/service"
)

type signupRequest struct {
	SalonName string `json:"salonName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Name      string `json:"name" binding:"required"`
}

type authResponse struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	DeviceID     string          `json:"deviceId"`
	Stylist      stylistResponse `json:"stylist"`
}

type stylistResponse struct {
	ID        int64     `json:"id"`
	SalonID   int64     `json:"salonId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h HandlerSet) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authService.Signup(c.Request.Context(), service.SignupInput{
		SalonName: req.SalonName,
		Email:     req.Email,
		Password:  req.Password,
		Name:      req.Name,
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, service.ErrEmailTaken) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	sendAuthResponse(c, result)
}

type createStylistRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

// CreateStylist lets a salon owner add a staff account; the route gate
// restricts it to the salon role.
func (h HandlerSet) CreateStylist(c *gin.Context) {
	owner, ok := currentStylist(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createStylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stylist, err := h.authService.CreateStaff(c.Request.Context(), service.CreateStaffInput{
		SalonID:  owner.SalonID,
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.log.Error().Err(err).Msg("create stylist failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusCreated, toStylistResponse(stylist))
}

type loginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		DeviceID:   req.DeviceID,
		DeviceName: req.DeviceName,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}
		h.log.Error().Err(err).Msg("login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	sendAuthResponse(c, result)
}

type refreshRequest struct {
	StylistID    int64  `json:"stylistId" binding:"required"`
	RefreshToken string `json:"refreshToken" binding:"required"`
	DeviceID     string `json:"deviceId"`
}

func (h HandlerSet) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), service.RefreshInput{
		StylistID:    req.StylistID,
		RefreshToken: req.RefreshToken,
		DeviceID:     req.DeviceID,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_refresh_token"})
			return
		}
		h.log.Error().Err(err).Msg("refresh failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	sendAuthResponse(c, result)
}

func (h HandlerSet) Logout(c *gin.Context) {
	claimsVal, exists := c.Get(middleware.ContextClaims)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	claims, ok := claimsVal.(security.AccessClaims)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_claims"})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims.SessionID); err != nil {
		h.log.Error().Err(err).Msg("logout failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) Me(c *gin.Context) {
	stylist, ok := currentStylist(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, toStylistResponse(stylist))
}

func sendAuthResponse(c *gin.Context, result service.AuthResult) {
	c.JSON(http.StatusOK, authResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		DeviceID:     result.DeviceID,
		Stylist:      toStylistResponse(result.Stylist),
	})
}

func toStylistResponse(stylist models.Stylist) stylistResponse {
	return stylistResponse{
		ID:        stylist.ID,
		SalonID:   stylist.SalonID,
		Email:     stylist.Email,
		Name:      stylist.Name,
		Role:      string(stylist.Role),
		CreatedAt: stylist.CreatedAt,
	}
}
