package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	repo "github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/response"
)

const healthTimeout = 2 * time.Second

type HealthHandler struct {
	Store repo.Store
	Cache repo.Cache
}

func NewHealthHandler(store repo.Store, cache repo.Cache) *HealthHandler {
	return &HealthHandler{Store: store, Cache: cache}
}

type healthStatus struct {
	Store string `json:"store"`
	Cache string `json:"cache"`
}

func upDown(err error) string {
	if err != nil {
		return "down"
	}
	return "up"
}

// Check reports 503 when the store is down. A cache outage is reported but does
// not fail the check.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	storeErr := h.Store.Ping(ctx)
	st := healthStatus{Store: upDown(storeErr), Cache: upDown(h.Cache.Ping(ctx))}
	if storeErr != nil {
		response.Abort(c, http.StatusServiceUnavailable, "service unavailable", st, nil)
		return
	}
	response.OK(c, http.StatusOK, st, "ok")
}
