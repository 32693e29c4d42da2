package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-ecommerce/internal/application"
	"github.com/oksasatya/go-ddd-ecommerce/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/response"
)

type MFAHandler struct {
	Svc *application.MFAService
}

func NewMFAHandler(svc *application.MFAService) *MFAHandler {
	return &MFAHandler{Svc: svc}
}

type mfaTokenRequest struct {
	Token string `json:"token" binding:"required,len=6,numeric"`
}

type mfaSecondFactorRequest struct {
	Token      string `json:"token" binding:"required_without=BackupCode,omitempty,len=6,numeric"`
	BackupCode string `json:"backupCode" binding:"required_without=Token,omitempty,len=8"`
}

func (h *MFAHandler) Enable(c *gin.Context) {
	setup, err := h.Svc.Enable(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, setup, "MFA setup initiated, verify a token to enable it")
}

func (h *MFAHandler) VerifyAndEnable(c *gin.Context) {
	var req mfaTokenRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Svc.VerifyAndEnable(c.Request.Context(), middleware.UserID(c), req.Token); err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"mfaEnabled": true}, "MFA enabled successfully")
}

func (h *MFAHandler) Disable(c *gin.Context) {
	var req mfaSecondFactorRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Svc.Disable(c.Request.Context(), middleware.UserID(c), req.Token, req.BackupCode); err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"mfaEnabled": false}, "MFA disabled successfully")
}

func (h *MFAHandler) Verify(c *gin.Context) {
	var req mfaSecondFactorRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Svc.Verify(c.Request.Context(), middleware.UserID(c), req.Token, req.BackupCode); err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"verified": true}, "MFA token verified")
}
