package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker/internal/constants"
	apierrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/services"
	"go.uber.org/zap"
)

// UserResolver looks up the user behind a verified session.
type UserResolver interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// RequireAuth lets only sessions that completed OTP verification through.
// Anyone else is sent back to the login page without a message.
func RequireAuth(users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		email, _ := session.Get(constants.SessionKeyUserEmail).(string)
		if email == "" {
			c.Redirect(http.StatusSeeOther, "/")
			c.Abort()
			return
		}

		user, err := users.GetUserByEmail(c.Request.Context(), email)
		if err != nil {
			if !errors.Is(err, services.ErrUserNotFound) {
				apierrors.InternalError(c, err)
				c.Abort()
				return
			}

			// The account is gone, drop the stale marker.
			session.Delete(constants.SessionKeyUserEmail)
			if err := session.Save(); err != nil {
				zap.L().Warn("Failed to save session", zap.Error(err))
			}
			c.Redirect(http.StatusSeeOther, "/")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyUserEmail, user.Email)
		c.Next()
	}
}

// RequirePendingOTP lets through sessions that passed the password check
// and still have to enter their code.
func RequirePendingOTP() gin.HandlerFunc {
	return func(c *gin.Context) {
		email, _ := sessions.Default(c).Get(constants.SessionKeyPendingEmail).(string)
		if email == "" {
			c.Redirect(http.StatusSeeOther, "/")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyPendingEmail, email)
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

// GetUserEmail retrieves the current user's email from context
func GetUserEmail(c *gin.Context) string {
	return c.GetString(constants.ContextKeyUserEmail)
}

// GetPendingEmail retrieves the email awaiting OTP verification
func GetPendingEmail(c *gin.Context) string {
	return c.GetString(constants.ContextKeyPendingEmail)
}
