package httpapi

import (
	"context"
	"net/http"

	"github.com/eamcap/authcore"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthService is the slice of [authcore.Engine] the REST surface drives.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*authcore.TokenPair, error)
	Register(ctx context.Context, req authcore.RegisterRequest) (*authcore.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*authcore.RefreshResult, error)
	Authenticate(ctx context.Context, accessToken string) (*authcore.Principal, error)
	Logout(ctx context.Context)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
	CurrentAccount(ctx context.Context) (*authcore.AccountSummary, error)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

type handler struct {
	auth   AuthService
	logger *zap.Logger
}

func (h *handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, msgBadRequest)
		return
	}

	pair, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, pair)
}

func (h *handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, msgBadRequest)
		return
	}

	pair, err := h.auth.Register(c.Request.Context(), authcore.RegisterRequest{
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		Role:       req.Role,
		Department: req.Department,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, pair)
}

func (h *handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, msgBadRequest)
		return
	}

	res, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, res)
}

func (h *handler) Logout(c *gin.Context) {
	h.auth.Logout(c.Request.Context())
	Success(c, nil)
}

func (h *handler) Me(c *gin.Context) {
	summary, err := h.auth.CurrentAccount(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, summary)
}

func (h *handler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, msgBadRequest)
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), req.OldPassword, req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}
	Success(c, nil)
}
