package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/layer-3/gatekeeper/core"
	"github.com/layer-3/gatekeeper/service"
)

const emailSentDetail = "An email sent to your account, you have 5 minutes to verify."

// AuthHandlers contains HTTP handlers for user and auth endpoints
type AuthHandlers struct {
	authService   *service.AuthService
	logger        logr.Logger
	secureCookies bool
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, logger logr.Logger, secureCookies bool) *AuthHandlers {
	return &AuthHandlers{
		authService:   authService,
		logger:        logger,
		secureCookies: secureCookies,
	}
}

type createUserRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

type updateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

type userResponse struct {
	PublicID    string `json:"public_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

// CreateUser registers an inactive account and mails a verification link
func (h *AuthHandlers) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, core.ErrInvalidInput)
		return
	}

	id, err := h.authService.Register(c.Request.Context(), core.NewUser{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"detail":    emailSentDetail,
		"public_id": id,
	})
}

// ReadUser returns the caller's own profile
func (h *AuthHandlers) ReadUser(c *gin.Context) {
	user, err := h.authService.GetUser(c.Request.Context(), tokenFrom(c), c.Param("public_id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, userResponse{
		PublicID:    user.ID,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Email:       user.Email,
		IsActive:    user.Active,
		IsSuperuser: user.Superuser,
	})
}

// UpdateUser changes the caller's names
func (h *AuthHandlers) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, core.ErrInvalidInput)
		return
	}

	err := h.authService.UpdateProfile(c.Request.Context(), tokenFrom(c), c.Param("public_id"), req.FirstName, req.LastName)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"detail": "The user updated successfully."})
}

// DeleteUser removes the account that owns the refresh token
func (h *AuthHandlers) DeleteUser(c *gin.Context) {
	if err := h.authService.DeleteUser(c.Request.Context(), tokenFrom(c), c.Param("public_id")); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"detail": "The user deleted successfully."})
}

// ResetPassword starts a password change and mails a confirmation link
func (h *AuthHandlers) ResetPassword(c *gin.Context) {
	err := h.authService.RequestPasswordReset(
		c.Request.Context(),
		tokenFrom(c),
		c.Param("public_id"),
		c.PostForm("old_password"),
		c.PostForm("new_password"),
	)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"detail": emailSentDetail})
}

// ConfirmResetPassword applies a pending password change
func (h *AuthHandlers) ConfirmResetPassword(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		h.fail(c, core.ErrInvalidInput)
		return
	}

	if err := h.authService.ConfirmPasswordReset(c.Request.Context(), token, c.Param("public_id")); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"detail": "The password changed successfully."})
}

// Login handles the login request
func (h *AuthHandlers) Login(c *gin.Context) {
	result, err := h.authService.Login(
		c.Request.Context(),
		c.Query("device"),
		c.PostForm("email"),
		c.PostForm("password"),
	)
	if err != nil {
		h.fail(c, err)
		return
	}

	if result.Pending {
		c.JSON(http.StatusOK, gin.H{"detail": emailSentDetail})
		return
	}

	body := gin.H{
		"detail":    "The user authenticated successfully",
		"public_id": result.UserID,
	}
	switch result.Device {
	case core.DeviceWeb:
		h.setTokenCookie(c, accessCookie, result.AccessToken)
		h.setTokenCookie(c, refreshCookie, result.RefreshToken)
	default:
		body["access_token"] = result.AccessToken
		body["refresh_token"] = result.RefreshToken
	}
	c.JSON(http.StatusOK, body)
}

// Verify activates an account from the emailed link
func (h *AuthHandlers) Verify(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		h.fail(c, core.ErrInvalidInput)
		return
	}

	if err := h.authService.Verify(c.Request.Context(), token); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"detail": "The user activated successfully"})
}

// RefreshToken issues a new access token
func (h *AuthHandlers) RefreshToken(c *gin.Context) {
	device, access, err := h.authService.Refresh(c.Request.Context(), c.Query("device"), tokenFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	body := gin.H{"detail": "The access token refreshed successfully"}
	if device == core.DeviceWeb {
		h.setTokenCookie(c, accessCookie, access)
	} else {
		body["access_token"] = access
	}
	c.JSON(http.StatusOK, body)
}

func (h *AuthHandlers) setTokenCookie(c *gin.Context, name, value string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, 0, "/", "", h.secureCookies, true)
}

func (h *AuthHandlers) fail(c *gin.Context, err error) {
	if statusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(err, "request failed", "path", c.FullPath())
	}
	abortWithError(c, err)
}
