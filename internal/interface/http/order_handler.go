package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-ecommerce/internal/application"
	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	"github.com/oksasatya/go-ddd-ecommerce/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/response"
)

type OrderHandler struct {
	Svc *application.OrderService
}

func NewOrderHandler(svc *application.OrderService) *OrderHandler {
	return &OrderHandler{Svc: svc}
}

type shippingAddressRequest struct {
	Street  string `json:"street" binding:"required,max=200"`
	City    string `json:"city" binding:"required,max=100"`
	State   string `json:"state" binding:"required,max=100"`
	Country string `json:"country" binding:"required,max=100"`
	ZipCode string `json:"zipCode" binding:"required,max=20"`
}

type createOrderRequest struct {
	ShippingAddress shippingAddressRequest `json:"shippingAddress" binding:"required"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending processing shipped delivered cancelled"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	o, err := h.Svc.Create(c.Request.Context(), middleware.UserID(c), entity.ShippingAddress(req.ShippingAddress))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusCreated, o, "order created successfully")
}

func (h *OrderHandler) List(c *gin.Context) {
	page, err := h.Svc.List(c.Request.Context(), middleware.UserID(c),
		queryInt(c, "page", 1), queryInt(c, "limit", 10), c.Query("status"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, page, "orders retrieved successfully")
}

func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.Svc.Get(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, o, "order retrieved successfully")
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	o, err := h.Svc.Cancel(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, o, "order cancelled successfully")
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	o, err := h.Svc.UpdateStatus(c.Request.Context(), middleware.Actor(c), c.Param("id"), entity.OrderStatus(req.Status))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, o, "order status updated successfully")
}
