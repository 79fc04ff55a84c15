package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"mira-backend/firebase"
	"mira-backend/logger"
	"mira-backend/models"
	"mira-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 12
	maxPageSize     = 100
)

type ProductHandler struct {
	DB      *gorm.DB
	Storage firebase.StorageClient
}

func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// GetProducts lists active products with optional category, search and
// discount filters, paginated.
func (h *ProductHandler) GetProducts(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}

	query := h.DB.WithContext(c.Request.Context()).Model(&models.Product{}).Where("is_active = ?", true)
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if d := c.Query("discounted"); d == "1" || d == "true" {
		query = query.Where("is_discount = ?", true)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondInternal(c, "Failed to fetch products", err)
		return
	}

	products := []models.Product{}
	err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		respondInternal(c, "Failed to fetch products", err)
		return
	}

	utils.OK(c, gin.H{
		"products": products,
		"total":    total,
		"page":     page,
		"limit":    limit,
		"pages":    int(math.Ceil(float64(total) / float64(limit))),
	})
}

// GetProduct looks an active product up by numeric id or slug.
func (h *ProductHandler) GetProduct(c *gin.Context) {
	key := c.Param("id")
	query := h.DB.WithContext(c.Request.Context()).Where("is_active = ?", true)
	if id, err := strconv.ParseUint(key, 10, 64); err == nil {
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("slug = ?", key)
	}

	var product models.Product
	if err := query.First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(c, http.StatusNotFound, "Product not found")
			return
		}
		respondInternal(c, "Failed to fetch product", err)
		return
	}
	utils.OK(c, product)
}

type productInput struct {
	Name          *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Slug          *string          `json:"slug" binding:"omitempty,max=200"`
	Description   *string          `json:"description"`
	Category      *string          `json:"category" binding:"omitempty,max=100"`
	Price         *decimal.Decimal `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price"`
	IsDiscount    *bool            `json:"is_discount"`
	Stock         *int             `json:"stock" binding:"omitempty,min=0"`
	IsActive      *bool            `json:"is_active"`
	ImageURL      *string          `json:"image_url"`
}

func (in productInput) validate() string {
	if in.Price != nil && in.Price.IsNegative() {
		return "price must not be negative"
	}
	if in.DiscountPrice != nil && in.DiscountPrice.IsNegative() {
		return "discount_price must not be negative"
	}
	return ""
}

// apply copies the set fields onto p.
func (in productInput) apply(p *models.Product) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Slug != nil {
		p.Slug = models.Slugify(*in.Slug)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.Price != nil {
		p.Price = in.Price.Round(2)
	}
	if in.DiscountPrice != nil {
		p.DiscountPrice = in.DiscountPrice.Round(2)
	}
	if in.IsDiscount != nil {
		p.IsDiscount = *in.IsDiscount
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if in.ImageURL != nil {
		p.ImageURL = *in.ImageURL
	}
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var in productInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" || in.Price == nil {
		utils.Error(c, http.StatusBadRequest, "Validation failed", "name and price are required")
		return
	}
	if msg := in.validate(); msg != "" {
		utils.Error(c, http.StatusBadRequest, "Validation failed", msg)
		return
	}

	product := models.Product{IsActive: true}
	in.apply(&product)
	if product.IsDiscount && !product.DiscountPrice.IsPositive() {
		utils.Error(c, http.StatusBadRequest, "Validation failed", "discount_price is required for discounted products")
		return
	}

	if err := h.DB.WithContext(c.Request.Context()).Create(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
			utils.Error(c, http.StatusConflict, "A product with this slug already exists")
			return
		}
		respondInternal(c, "Failed to create product", err)
		return
	}
	utils.Success(c, http.StatusCreated, "Product created", product)
}

func (h *ProductHandler) findProduct(c *gin.Context) (*models.Product, bool) {
	var product models.Product
	if err := h.DB.WithContext(c.Request.Context()).First(&product, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(c, http.StatusNotFound, "Product not found")
			return nil, false
		}
		respondInternal(c, "Failed to fetch product", err)
		return nil, false
	}
	return &product, true
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	product, ok := h.findProduct(c)
	if !ok {
		return
	}

	var in productInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	if msg := in.validate(); msg != "" {
		utils.Error(c, http.StatusBadRequest, "Validation failed", msg)
		return
	}
	in.apply(product)
	if product.IsDiscount && !product.DiscountPrice.IsPositive() {
		utils.Error(c, http.StatusBadRequest, "Validation failed", "discount_price is required for discounted products")
		return
	}

	if err := h.DB.WithContext(c.Request.Context()).Save(product).Error; err != nil {
		respondInternal(c, "Failed to update product", err)
		return
	}
	utils.Success(c, http.StatusOK, "Product updated", product)
}

// DeleteProduct soft-deletes the product. Cart lines pointing at it stop
// showing up in carts.
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	product, ok := h.findProduct(c)
	if !ok {
		return
	}

	if err := h.DB.WithContext(c.Request.Context()).Delete(product).Error; err != nil {
		respondInternal(c, "Failed to delete product", err)
		return
	}
	h.deleteStoredImage(c, product.ImageURL)
	utils.Success(c, http.StatusOK, "Product deleted successfully", nil)
}

// deleteStoredImage removes an image we uploaded earlier. Foreign URLs and
// storage errors are ignored.
func (h *ProductHandler) deleteStoredImage(c *gin.Context, imageURL string) {
	if h.Storage == nil || imageURL == "" {
		return
	}
	objectPath, err := firebase.ObjectPath(imageURL)
	if err != nil {
		return
	}
	if err := h.Storage.DeleteFile(c.Request.Context(), objectPath); err != nil {
		logger.WithCtx(c.Request.Context()).Warn("failed to delete product image", "url", imageURL, "error", err)
	}
}

func (h *ProductHandler) setImage(c *gin.Context, product *models.Product, url string) {
	old := product.ImageURL
	if err := h.DB.WithContext(c.Request.Context()).Model(product).Update("image_url", url).Error; err != nil {
		respondInternal(c, "Failed to save product image", err)
		return
	}
	if old != url {
		h.deleteStoredImage(c, old)
	}
	utils.Success(c, http.StatusOK, "Image uploaded", gin.H{"image_url": url})
}

// UploadProductImage stores the multipart "image" file and points the
// product at it, removing the previous upload.
func (h *ProductHandler) UploadProductImage(c *gin.Context) {
	product, ok := h.findProduct(c)
	if !ok {
		return
	}
	if h.Storage == nil {
		utils.Error(c, http.StatusServiceUnavailable, "Image storage is not configured")
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "Image file required")
		return
	}
	if err := utils.ValidateFileUpload(fh); err != nil {
		utils.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	file, err := fh.Open()
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	url, err := h.Storage.UploadProductImage(c.Request.Context(), file, fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		respondInternal(c, "Failed to upload image", err)
		return
	}
	h.setImage(c, product, url)
}

// ImportProductImage copies an image from a public URL into storage.
func (h *ProductHandler) ImportProductImage(c *gin.Context) {
	product, ok := h.findProduct(c)
	if !ok {
		return
	}
	if h.Storage == nil {
		utils.Error(c, http.StatusServiceUnavailable, "Image storage is not configured")
		return
	}

	var req struct {
		URL string `json:"url" binding:"required,url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	url, err := h.Storage.ImportProductImage(c.Request.Context(), req.URL, product.ID)
	if err != nil {
		logger.WithCtx(c.Request.Context()).Warn("image import failed", "url", req.URL, "error", err)
		utils.Error(c, http.StatusBadRequest, "Failed to import image")
		return
	}
	h.setImage(c, product, url)
}
