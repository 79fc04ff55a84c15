package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"mira-backend/models"
	"mira-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ReviewHandler struct {
	DB *gorm.DB
}

// GetReviews lists the approved reviews of ?product_id=, newest first.
func (h *ReviewHandler) GetReviews(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Query("product_id"), 10, 64)
	if err != nil || productID == 0 {
		utils.Error(c, http.StatusBadRequest, "product_id required")
		return
	}

	reviews := []models.Review{}
	err = h.DB.WithContext(c.Request.Context()).
		Where("product_id = ? AND is_approved = ?", productID, true).
		Order("created_at DESC, id DESC").
		Find(&reviews).Error
	if err != nil {
		respondInternal(c, "Failed to fetch reviews", err)
		return
	}
	utils.OK(c, reviews)
}

// CreateReview stores a review. Reviews are published without moderation.
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	var req struct {
		ProductID    uint   `json:"product_id" binding:"required"`
		ReviewerName string `json:"reviewer_name" binding:"required,max=100"`
		Rating       int    `json:"rating" binding:"required,min=1,max=5"`
		Comment      string `json:"comment" binding:"required,max=2000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if strings.TrimSpace(req.ReviewerName) == "" || strings.TrimSpace(req.Comment) == "" {
		utils.Error(c, http.StatusBadRequest, "Validation failed", "reviewer_name and comment must not be blank")
		return
	}

	db := h.DB.WithContext(c.Request.Context())
	var product models.Product
	if err := db.Select("id").First(&product, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(c, http.StatusNotFound, "Product not found")
			return
		}
		respondInternal(c, "Failed to create review", err)
		return
	}

	review := models.Review{
		ProductID:    req.ProductID,
		ReviewerName: strings.TrimSpace(req.ReviewerName),
		Rating:       req.Rating,
		Comment:      strings.TrimSpace(req.Comment),
		IsApproved:   true,
	}
	if err := db.Create(&review).Error; err != nil {
		respondInternal(c, "Failed to create review", err)
		return
	}
	utils.Success(c, http.StatusCreated, "Review submitted", gin.H{"id": review.ID})
}

func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.Error(c, http.StatusBadRequest, "Review ID required")
		return
	}

	res := h.DB.WithContext(c.Request.Context()).Delete(&models.Review{}, id)
	if res.Error != nil {
		respondInternal(c, "Failed to delete review", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(c, http.StatusNotFound, "Review not found")
		return
	}
	utils.Success(c, http.StatusOK, "Review deleted", nil)
}
