package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/oksasatya/go-ddd-ecommerce/internal/application"
	"github.com/oksasatya/go-ddd-ecommerce/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/apperror"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/response"
)

const maxImageSize = 5 << 20

type ProductHandler struct {
	Svc *application.ProductService
}

func NewProductHandler(svc *application.ProductService) *ProductHandler {
	return &ProductHandler{Svc: svc}
}

type createProductRequest struct {
	SKU         *string          `json:"sku" binding:"omitempty,max=64"`
	Name        string           `json:"name" binding:"required,max=200"`
	Description string           `json:"description" binding:"max=2000"`
	Price       *decimal.Decimal `json:"price" binding:"required,money"`
	Stock       int              `json:"stock" binding:"gte=0"`
	Images      []string         `json:"images" binding:"omitempty,dive,url"`
	Category    string           `json:"category" binding:"required,max=100"`
}

func (r createProductRequest) input() application.ProductInput {
	in := application.ProductInput{
		SKU:         r.SKU,
		Name:        r.Name,
		Description: r.Description,
		Stock:       r.Stock,
		Images:      r.Images,
		Category:    r.Category,
	}
	if r.Price != nil {
		in.Price = *r.Price
	}
	return in
}

// bulkProductItem is not validated at bind time; invalid rows are counted as failed.
type bulkProductItem struct {
	SKU         *string         `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Images      []string        `json:"images"`
	Category    string          `json:"category"`
}

type updateProductRequest struct {
	SKU         *string          `json:"sku" binding:"omitempty,max=64"`
	Name        *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string          `json:"description" binding:"omitempty,max=2000"`
	Price       *decimal.Decimal `json:"price" binding:"omitempty,money"`
	Stock       *int             `json:"stock" binding:"omitempty,gte=0"`
	Images      *[]string        `json:"images"`
	Category    *string          `json:"category" binding:"omitempty,min=1,max=100"`
	IsActive    *bool            `json:"isActive"`
}

type productInfoRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,max=100"`
}

func (h *ProductHandler) List(c *gin.Context) {
	page, err := h.Svc.List(c.Request.Context(), application.ListParams{
		Page:     queryInt(c, "page", 1),
		Limit:    queryInt(c, "limit", 10),
		Search:   c.Query("search"),
		Category: c.Query("category"),
		SortBy:   c.Query("sortBy"),
		Order:    c.Query("order"),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, page, "products retrieved successfully")
}

func (h *ProductHandler) Get(c *gin.Context) {
	p, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, p, "product retrieved successfully")
}

func (h *ProductHandler) Categories(c *gin.Context) {
	cats, err := h.Svc.Categories(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, cats, "categories retrieved successfully")
}

func (h *ProductHandler) Featured(c *gin.Context) {
	ps, err := h.Svc.Featured(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, ps, "featured products retrieved successfully")
}

func (h *ProductHandler) Search(c *gin.Context) {
	ps, err := h.Svc.Search(c.Request.Context(), c.Query("q"), queryInt(c, "size", 10))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, ps, "search results")
}

func (h *ProductHandler) Info(c *gin.Context) {
	var req productInfoRequest
	if !bindJSON(c, &req) {
		return
	}
	info, err := h.Svc.Info(c.Request.Context(), req.IDs)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, info, "product info retrieved successfully")
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req createProductRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.Svc.Create(c.Request.Context(), middleware.Actor(c), req.input())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusCreated, p, "product created successfully")
}

func (h *ProductHandler) BulkCreate(c *gin.Context) {
	var items []bulkProductItem
	if !bindJSON(c, &items) {
		return
	}
	inputs := make([]application.ProductInput, 0, len(items))
	for _, it := range items {
		inputs = append(inputs, application.ProductInput(it))
	}
	res, err := h.Svc.BulkCreate(c.Request.Context(), middleware.Actor(c), inputs)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusCreated, res, "bulk upload completed")
}

func (h *ProductHandler) Update(c *gin.Context) {
	var req updateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.Svc.Update(c.Request.Context(), middleware.Actor(c), c.Param("id"), application.ProductPatch(req))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, p, "product updated successfully")
}

func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), middleware.Actor(c), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	response.OK[any](c, http.StatusOK, nil, "product deleted successfully")
}

// UploadImage expects a multipart form with the file under "image".
func (h *ProductHandler) UploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageSize+1<<20)
	fh, err := c.FormFile("image")
	if err != nil {
		_ = c.Error(apperror.Validation("image file is required"))
		return
	}
	if fh.Size > maxImageSize {
		_ = c.Error(apperror.Validation("image must be at most 5MB"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		_ = c.Error(apperror.Internal("read upload failed", err))
		return
	}
	defer f.Close()

	p, err := h.Svc.UploadImage(c.Request.Context(), middleware.Actor(c), c.Param("id"), fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, p, "image uploaded successfully")
}
