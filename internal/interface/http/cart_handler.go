package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-ecommerce/internal/application"
	"github.com/oksasatya/go-ddd-ecommerce/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/response"
)

type CartHandler struct {
	Svc *application.CartService
}

func NewCartHandler(svc *application.CartService) *CartHandler {
	return &CartHandler{Svc: svc}
}

type cartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,qty"`
}

func (h *CartHandler) Get(c *gin.Context) {
	cart, err := h.Svc.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, cart, "cart retrieved successfully")
}

func (h *CartHandler) Add(c *gin.Context) {
	var req cartItemRequest
	if !bindJSON(c, &req) {
		return
	}
	cart, err := h.Svc.AddItem(c.Request.Context(), middleware.UserID(c), req.ProductID, req.Quantity)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, cart, "item added to cart")
}

func (h *CartHandler) Update(c *gin.Context) {
	var req cartItemRequest
	if !bindJSON(c, &req) {
		return
	}
	cart, err := h.Svc.UpdateItem(c.Request.Context(), middleware.UserID(c), req.ProductID, req.Quantity)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, cart, "cart updated")
}

func (h *CartHandler) Remove(c *gin.Context) {
	cart, err := h.Svc.RemoveItem(c.Request.Context(), middleware.UserID(c), c.Param("productId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, cart, "item removed from cart")
}

func (h *CartHandler) Clear(c *gin.Context) {
	cart, err := h.Svc.Clear(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, cart, "cart cleared")
}
