package middleware

import (
	"context"
	"fmt"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/services"
	"coursebundler/pkg/errors"
	"coursebundler/pkg/logger"
	"coursebundler/pkg/tracing"

	"github.com/gin-gonic/gin"
)

const (
	contextUserKey   = "user"
	contextUserIDKey = "user_id"
)

// UserLoader resolves the account behind a session.
type UserLoader interface {
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)
}

func notLoggedIn() *errors.AppError {
	return errors.NewUnauthenticatedError("Not Logged In")
}

// AuthMiddleware authenticates the session cookie and loads the current user.
func AuthMiddleware(authService services.AuthService, users UserLoader, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.Error(notLoggedIn())
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			c.Error(notLoggedIn().WithContext("reason", err.Error()))
			c.Abort()
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.Error(notLoggedIn().WithContext("reason", err.Error()))
			c.Abort()
			return
		}

		c.Set(contextUserKey, user)
		c.Set(contextUserIDKey, user.ID)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), string(user.ID)))
		tracing.AddSpanAttributes(c.Request.Context(), tracing.UserIDKey.String(string(user.ID)))
		c.Next()
	}
}

// CurrentUser returns the user stored by AuthMiddleware, or nil.
func CurrentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}

// RequireRole rejects users whose role differs from role.
func RequireRole(role domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.Error(notLoggedIn())
			c.Abort()
			return
		}
		if user.Role != role {
			c.Error(errors.NewForbiddenError(fmt.Sprintf("%s is not allowed to access this resource", user.Role)))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSubscriber admits admins and users with an active subscription.
func RequireSubscriber() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.Error(notLoggedIn())
			c.Abort()
			return
		}
		if !user.IsAdmin() && !user.Subscription.IsActive() {
			c.Error(errors.NewForbiddenError("Only Subscribers can access this resource"))
			c.Abort()
			return
		}
		c.Next()
	}
}
