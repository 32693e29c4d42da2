package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-ecommerce/pkg/apperror"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/validation"
)

// bindJSON decodes and validates the body into req. On failure it pushes a
// validation error for ErrorHandler and returns false.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(apperror.Validation("invalid payload").WithDetails(validation.ToDetails(err)))
		return false
	}
	return true
}

// queryInt returns def when the parameter is absent or not a number.
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
