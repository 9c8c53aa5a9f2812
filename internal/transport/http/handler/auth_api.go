package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appsvc "warbler/internal/app"
	"warbler/internal/transport/http/middleware"
	"warbler/internal/transport/http/response"
)

// AuthAPIHandler serves token-based auth for programmatic clients. Browser
// clients go through PageHandler and the session store instead.
type AuthAPIHandler struct {
	auth *appsvc.AuthService
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email,max=128"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

func NewAuthAPIHandler(auth *appsvc.AuthService) *AuthAPIHandler {
	return &AuthAPIHandler{auth: auth}
}

func (h *AuthAPIHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	user, err := h.auth.Signup(appsvc.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, appsvc.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, appsvc.ErrUsernameTaken):
			response.Error(c, http.StatusBadRequest, response.CodeUsernameTaken, err.Error())
		case errors.Is(err, appsvc.ErrEmailTaken):
			response.Error(c, http.StatusBadRequest, response.CodeEmailTaken, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "register failed")
		}
		return
	}

	token, err := h.auth.IssueToken(user)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "issue token failed")
		return
	}

	response.OK(c, gin.H{
		"token": token,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

func (h *AuthAPIHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	user, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, appsvc.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, appsvc.ErrInvalidCredential):
			response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "login failed")
		}
		return
	}

	token, err := h.auth.IssueToken(user)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "issue token failed")
		return
	}

	response.OK(c, gin.H{
		"token": token,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

func (h *AuthAPIHandler) Me(c *gin.Context) {
	actor := middleware.CurrentIdentity(c)
	if actor == nil {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	user, err := h.auth.GetUserByID(actor.UserID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "fetch current user failed")
		return
	}
	if user == nil {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found")
		return
	}

	response.OK(c, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}
