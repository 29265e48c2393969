package http

import (
	"fmt"
	"net/http"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
	"coursebundler/internal/core/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users  ports.UserService
	auth   services.AuthService
	cookie CookieConfig
}

func NewUserHandler(users ports.UserService, auth services.AuthService, cookie CookieConfig) *UserHandler {
	return &UserHandler{
		users:  users,
		auth:   auth,
		cookie: cookie,
	}
}

type registerRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" form:"oldPassword"`
	NewPassword string `json:"newPassword" form:"newPassword"`
}

type updateProfileRequest struct {
	Name  string `json:"name" form:"name"`
	Email string `json:"email" form:"email"`
}

type emailRequest struct {
	Email string `json:"email" form:"email"`
}

type passwordRequest struct {
	Password string `json:"password" form:"password"`
}

type courseIDRequest struct {
	ID string `json:"id" form:"id"`
}

// sendToken issues a session for user, sets the cookie and writes the user.
func (h *UserHandler) sendToken(c *gin.Context, user *domain.User, message string, status int) {
	token, expiresAt, err := h.auth.IssueToken(user.ID)
	if err != nil {
		c.Error(fmt.Errorf("failed to issue session: %w", err))
		return
	}
	h.cookie.set(c, token, expiresAt)
	c.JSON(status, gin.H{
		"success": true,
		"message": message,
		"user":    user,
	})
}

func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	bindForm(c, &req)
	trim(&req.Name, &req.Email)

	avatar, closeFile := formUpload(c, "file")
	defer closeFile()

	user, err := h.users.Register(c.Request.Context(), ports.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Avatar:   avatar,
	})
	if err != nil {
		c.Error(err)
		return
	}
	h.sendToken(c, user, "Registered successfully", http.StatusCreated)
}

func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	bindForm(c, &req)
	trim(&req.Email)

	user, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.Error(err)
		return
	}
	h.sendToken(c, user, fmt.Sprintf("Welcome back, %s", user.Name), http.StatusOK)
}

func (h *UserHandler) Logout(c *gin.Context) {
	h.cookie.clear(c)
	ok(c, http.StatusOK, "Logged out successfully")
}

func (h *UserHandler) GetMyProfile(c *gin.Context) {
	user, err := h.users.GetProfile(c.Request.Context(), currentUserID(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    user,
	})
}

func (h *UserHandler) DeleteMyProfile(c *gin.Context) {
	if err := h.users.DeleteProfile(c.Request.Context(), currentUserID(c)); err != nil {
		c.Error(err)
		return
	}
	h.cookie.clear(c)
	ok(c, http.StatusOK, "Profile Deleted successfully")
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	bindForm(c, &req)

	if err := h.users.ChangePassword(c.Request.Context(), currentUserID(c), req.OldPassword, req.NewPassword); err != nil {
		c.Error(err)
		return
	}
	ok(c, http.StatusOK, "Password changed successfully")
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	bindForm(c, &req)
	trim(&req.Name, &req.Email)

	if err := h.users.UpdateProfile(c.Request.Context(), currentUserID(c), req.Name, req.Email); err != nil {
		c.Error(err)
		return
	}
	ok(c, http.StatusOK, "Profile Updated successfully")
}

func (h *UserHandler) UpdateProfilePicture(c *gin.Context) {
	avatar, closeFile := formUpload(c, "file")
	defer closeFile()

	if err := h.users.UpdateProfilePicture(c.Request.Context(), currentUserID(c), avatar); err != nil {
		c.Error(err)
		return
	}
	ok(c, http.StatusOK, "Profile Picture Updated successfully")
}

func (h *UserHandler) ForgotPassword(c *gin.Context) {
	var req emailRequest
	bindForm(c, &req)
	trim(&req.Email)

	if err := h.users.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		c.Error(err)
		return
	}
	ok(c, http.StatusOK, fmt.Sprintf("Reset Token has been sent to %s", req.Email))
}

func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req passwordRequest
	bindForm(c, &req)

	if err := h.users.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		c.Error(err)
		return
	}
	ok(c, http.StatusOK, "Password changed successfully")
}

func (h *UserHandler) AddToPlaylist(c *gin.Context) {
	var req courseIDRequest
	bindForm(c, &req)

	if err := h.users.AddToPlaylist(c.Request.Context(), currentUserID(c), domain.CourseID(req.ID)); err != nil {
		c.Error(err)
		return
	}
	ok(c, http.StatusOK, "Added to playlist")
}

func (h *UserHandler) RemoveFromPlaylist(c *gin.Context) {
	courseID := domain.CourseID(c.Query("id"))
	if err := h.users.RemoveFromPlaylist(c.Request.Context(), currentUserID(c), courseID); err != nil {
		c.Error(err)
		return
	}
	ok(c, http.StatusOK, "Removed from playlist")
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"users":   users,
	})
}

func (h *UserHandler) UpdateUserRole(c *gin.Context) {
	if err := h.users.ToggleRole(c.Request.Context(), domain.UserID(c.Param("id"))); err != nil {
		c.Error(err)
		return
	}
	ok(c, http.StatusOK, "Role updated")
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.users.DeleteUser(c.Request.Context(), domain.UserID(c.Param("id"))); err != nil {
		c.Error(err)
		return
	}
	ok(c, http.StatusOK, "User Deleted")
}
