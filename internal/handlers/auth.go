package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker/internal/constants"
	apierrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/middleware"
	"github.com/yukikurage/task-tracker/internal/services"
	"github.com/yukikurage/task-tracker/internal/utils"
)

// otpDigitFields are the indexes of the otp0..otp5 form inputs.
var otpDigitFields = []int{0, 1, 2, 3, 4, 5}

// AuthHandler coordinates the login, registration and OTP pages.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

type credentialsForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

// Index renders the login and registration forms.
func (h *AuthHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"error": c.Query("error"),
	})
}

// Register creates an account and sends the first code.
func (h *AuthHandler) Register(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBind(&form); err != nil {
		apierrors.RedirectWithError(c, "/", constants.MsgInvalidInput)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	h.startOTP(c, user.Email)
}

// Login checks the password and sends a code.
func (h *AuthHandler) Login(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBind(&form); err != nil {
		apierrors.RedirectWithError(c, "/", constants.MsgInvalidCredentials)
		return
	}

	user, err := h.authService.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	h.startOTP(c, user.Email)
}

// startOTP moves the session into the pending state for email.
func (h *AuthHandler) startOTP(c *gin.Context, email string) {
	session := sessions.Default(c)
	session.Delete(constants.SessionKeyUserEmail)
	session.Set(constants.SessionKeyPendingEmail, email)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, fmt.Errorf("failed to save session: %w", err))
		return
	}

	c.Redirect(http.StatusSeeOther, "/otp")
}

// OTPPage renders the code entry form.
func (h *AuthHandler) OTPPage(c *gin.Context) {
	email, _ := sessions.Default(c).Get(constants.SessionKeyPendingEmail).(string)
	renderOTPPage(c, http.StatusOK, email, c.Query("error"))
}

// ResendOTP issues a new code for the pending email.
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	if err := h.authService.ResendOTP(c.Request.Context(), middleware.GetPendingEmail(c)); err != nil {
		if errors.Is(err, services.ErrMailDelivery) {
			apierrors.RedirectWithError(c, "/otp", constants.MsgMailFailed)
			return
		}
		respondAuthError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/otp")
}

// VerifyOTP checks the entered code and authenticates the session.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	session := sessions.Default(c)
	email, _ := session.Get(constants.SessionKeyPendingEmail).(string)

	digits := make([]string, 0, len(otpDigitFields))
	for _, i := range otpDigitFields {
		digits = append(digits, c.PostForm(fmt.Sprintf("otp%d", i)))
	}

	if err := h.authService.VerifyOTP(c.Request.Context(), email, utils.JoinOTPDigits(digits)); err != nil {
		switch {
		case errors.Is(err, services.ErrNoSession):
			c.Redirect(http.StatusSeeOther, "/")
		case errors.Is(err, services.ErrInvalidOrExpiredOTP):
			renderOTPPage(c, http.StatusOK, email, constants.MsgInvalidOTP)
		default:
			apierrors.InternalError(c, err)
		}
		return
	}

	session.Delete(constants.SessionKeyPendingEmail)
	session.Set(constants.SessionKeyUserEmail, email)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, fmt.Errorf("failed to save session: %w", err))
		return
	}

	c.Redirect(http.StatusSeeOther, "/dashboard")
}

// Logout removes the verified marker from the session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Delete(constants.SessionKeyUserEmail)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, fmt.Errorf("failed to save session: %w", err))
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

func renderOTPPage(c *gin.Context, status int, email, message string) {
	c.HTML(status, "otp.html", gin.H{
		"email":  email,
		"error":  message,
		"digits": otpDigitFields,
	})
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		apierrors.RedirectWithError(c, "/", constants.MsgInvalidInput)
	case errors.Is(err, services.ErrDuplicateEmail):
		apierrors.RedirectWithError(c, "/", constants.MsgEmailRegistered)
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.RedirectWithError(c, "/", constants.MsgInvalidCredentials)
	case errors.Is(err, services.ErrMailDelivery):
		apierrors.RedirectWithError(c, "/", constants.MsgMailFailed)
	case errors.Is(err, services.ErrNoSession):
		c.Redirect(http.StatusSeeOther, "/")
	default:
		apierrors.InternalError(c, err)
	}
}
