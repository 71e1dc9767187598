package handler

import (
	"net/http"

	"github.com/BloggingApp/megablog/internal/dto"
	"github.com/BloggingApp/megablog/internal/session"
	"github.com/gin-gonic/gin"
)

func (h *Handler) authSignUp(c *gin.Context) {
	var input dto.SignUpRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewBasicResponse(false, err.Error()))
		return
	}

	sess := session.New("")
	user, err := h.services.CreateAccount(c.Request.Context(), sess, input.Email, input.Password, input.DisplayName)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.AuthResponse{User: user, Token: sess.Token()})
}

func (h *Handler) authLogin(c *gin.Context) {
	var input dto.LoginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewBasicResponse(false, err.Error()))
		return
	}

	sess := session.New("")
	user, err := h.services.Login(c.Request.Context(), sess, input.Email, input.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AuthResponse{User: user, Token: sess.Token()})
}

func (h *Handler) authLogout(c *gin.Context) {
	if !h.services.Logout(c.Request.Context(), h.getSessionFromRequest(c)) {
		c.JSON(http.StatusInternalServerError, dto.NewBasicResponse(false, "failed to log out"))
		return
	}

	c.JSON(http.StatusOK, dto.NewBasicResponse(true, "logged out"))
}

func (h *Handler) authMe(c *gin.Context) {
	c.JSON(http.StatusOK, h.getUserFromRequest(c))
}

func (h *Handler) authForgotPassword(c *gin.Context) {
	var input dto.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewBasicResponse(false, err.Error()))
		return
	}

	if _, err := h.services.SendPasswordResetEmail(c.Request.Context(), input.Email); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewBasicResponse(true, "password reset email sent"))
}

func (h *Handler) authResetPassword(c *gin.Context) {
	var input dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewBasicResponse(false, err.Error()))
		return
	}

	if _, err := h.services.ConfirmPasswordReset(c.Request.Context(), input.Code, input.NewPassword); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewBasicResponse(true, "password has been reset"))
}
