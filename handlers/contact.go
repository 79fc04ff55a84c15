package handlers

import (
	"net/http"
	"strings"

	"mira-backend/logger"
	"mira-backend/middleware"
	"mira-backend/models"
	"mira-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ContactHandler struct {
	DB *gorm.DB
	// Notify sends the contact emails. It must not block.
	Notify func(utils.ContactEmail)
}

func NewContactHandler(db *gorm.DB) *ContactHandler {
	return &ContactHandler{
		DB: db,
		Notify: func(m utils.ContactEmail) {
			utils.SendContactNotification(m)
			utils.SendContactConfirmation(m)
		},
	}
}

func (h *ContactHandler) SendMessage(c *gin.Context) {
	var req struct {
		FirstName string `json:"first_name" binding:"required,max=100,singleline"`
		LastName  string `json:"last_name" binding:"required,max=100,singleline"`
		Email     string `json:"email" binding:"required,email"`
		Message   string `json:"message" binding:"required,max=5000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	msg := models.ContactMessage{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     normalizeEmail(req.Email),
		Message:   strings.TrimSpace(req.Message),
		IPAddress: c.ClientIP(),
	}
	if userID, ok := middleware.UserID(c); ok {
		msg.UserID = &userID
	}

	if err := h.DB.WithContext(c.Request.Context()).Create(&msg).Error; err != nil {
		respondInternal(c, "Failed to send message. Please try again later.", err)
		return
	}
	logger.WithCtx(c.Request.Context()).Info("contact message stored", "message_id", msg.ID)

	if h.Notify != nil {
		h.Notify(utils.ContactEmail{
			FirstName: msg.FirstName,
			LastName:  msg.LastName,
			Email:     msg.Email,
			Message:   msg.Message,
		})
	}

	utils.Success(c, http.StatusOK, "Message sent. We will get back to you soon.", gin.H{"message_id": msg.ID})
}
