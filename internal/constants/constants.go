package constants

import "time"

// Session
const (
	SessionCookieName = "tasktracker_session"
	SessionMaxAge     = 86400 * 7 // 7 days

	// SessionKeyPendingEmail marks an email that passed the password check
	// but has not verified its OTP yet.
	SessionKeyPendingEmail = "otp_email"
	// SessionKeyUserEmail marks an email that completed OTP verification.
	SessionKeyUserEmail = "user_email"
)

// Context keys set by middleware
const (
	ContextKeyUserID       = "user_id"
	ContextKeyUserEmail    = "user_email"
	ContextKeyPendingEmail = "otp_email"
	ContextKeyRequestID    = "request_id"
)

const HeaderRequestID = "X-Request-ID"

// OTP
const (
	OTPLength     = 6
	OTPMin        = 100000
	OTPMax        = 999999
	DefaultOTPTTL = 5 * time.Minute
)

// Tasks
const (
	DueDateLayout       = "2006-01-02"
	MaxTaskTitleLength  = 255
	MaxAIGeneratedTasks = 20
)

// Due date policies applied when a due date cannot be parsed
const (
	DueDatePolicyFallback = "fallback"
	DueDatePolicyReject   = "reject"
)

// Flash messages shown on rendered pages
const (
	MsgInvalidCredentials = "Invalid Credentials"
	MsgEmailRegistered    = "Email already registered"
	MsgInvalidInput       = "Please enter a valid email and password"
	MsgInvalidOTP         = "Invalid or expired OTP"
	MsgMailFailed         = "Failed to send verification email"
	MsgTaskNotFound       = "Task not found"
	MsgTitleRequired      = "Title is required"
	MsgTitleTooLong       = "Title must be at most 255 characters"
	MsgTextRequired       = "Please describe the tasks to add"
	MsgInvalidDueDate     = "Due date must use the YYYY-MM-DD format"
	MsgAIUnavailable      = "Task generation is not configured"
	MsgAIFailed           = "Could not generate tasks from the text"
	MsgInternal           = "Something went wrong, please try again"
)
