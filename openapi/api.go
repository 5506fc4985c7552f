package openapi

import (
	"net/http"
	"strings"

	"github.com/tech-arch1tect/barae/config"
	"github.com/tech-arch1tect/barae/services/auth"
	"github.com/tech-arch1tect/barae/session"
)

const (
	tagAuth   = "auth"
	tagSystem = "system"
	cookieKey = "sessionCookie"
)

type messageResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty" doc:"EMAIL_NOT_VERIFIED when sign-in is refused for an unverified account"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type statusResponse struct {
	Status bool `json:"status"`
}

type rateLimitedResponse struct {
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter" doc:"seconds until a new code may be requested"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

type authResponse struct {
	Redirect bool       `json:"redirect"`
	Token    *string    `json:"token"`
	User     *auth.User `json:"user"`
}

type sessionResponse struct {
	Session *session.UserSession `json:"session"`
	User    *auth.User           `json:"user"`
}

type verifiedResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type signUpBody struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe *bool  `json:"rememberMe"`
}

type signInBody struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe *bool  `json:"rememberMe"`
}

type sendOTPBody struct {
	Email string `json:"email"`
	Type  string `json:"type" doc:"email-verification, sign-in or forget-password"`
}

type checkOTPBody struct {
	Email string `json:"email"`
	Type  string `json:"type"`
	OTP   string `json:"otp"`
}

type otpBody struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type emailBody struct {
	Email string `json:"email"`
}

type resetOTPBody struct {
	Email    string `json:"email"`
	OTP      string `json:"otp"`
	Password string `json:"password"`
}

type requestResetBody struct {
	Email      string `json:"email"`
	RedirectTo string `json:"redirectTo,omitempty"`
}

type resetBody struct {
	NewPassword string `json:"newPassword"`
	Token       string `json:"token"`
}

type changePasswordBody struct {
	CurrentPassword     string `json:"currentPassword"`
	NewPassword         string `json:"newPassword"`
	RevokeOtherSessions bool   `json:"revokeOtherSessions,omitempty"`
}

type revokeSessionBody struct {
	ID string `json:"id"`
}

type updateUserBody struct {
	Name string `json:"name"`
}

type deleteUserBody struct {
	Password string `json:"password"`
}

type updateUserResponse struct {
	Status bool       `json:"status"`
	User   *auth.User `json:"user"`
}

// Build documents every public route of the service.
func Build(cfg *config.Config) *Document {
	doc := New(cfg.App.Name+" API", "1.0.0").
		Description("Authentication and account endpoints.").
		Tag(tagAuth, "Accounts, sessions, verification codes and password reset").
		Tag(tagSystem, "Health and API documentation").
		CookieAuth(cookieKey, cfg.Session.Name)

	doc.Operation(http.MethodGet, "/health").Summary("Health check").Tags(tagSystem).
		Response(http.StatusOK, healthResponse{}, "Database reachable").
		Response(http.StatusServiceUnavailable, healthResponse{}, "Database unreachable").
		Add()

	p := strings.TrimSuffix(cfg.Auth.PublicPath, "/")
	documentCustom(doc, p)
	documentIdentity(doc, p)

	return doc
}

func documentCustom(doc *Document, p string) {
	doc.Operation(http.MethodPost, p+"/resend-verification").Summary("Resend the email verification link").Tags(tagAuth).
		Security(cookieKey).
		Response(http.StatusOK, successResponse{}, "Link sent").
		Response(http.StatusBadRequest, errorResponse{}, "Email already verified").
		Response(http.StatusUnauthorized, errorResponse{}, "Not authenticated").
		Response(http.StatusNotFound, errorResponse{}, "User not found").
		Add()

	doc.Operation(http.MethodGet, p+"/verify-email").Summary("Verify an email address with a link token").Tags(tagAuth).
		Query("token", "token from the verification link", true).
		Response(http.StatusOK, verifiedResponse{}, "Email verified").
		Response(http.StatusBadRequest, errorResponse{}, "Missing, invalid or expired token").
		Response(http.StatusNotFound, errorResponse{}, "User not found").
		Add()

	doc.Operation(http.MethodPost, p+"/email-otp/send-verification-otp").Summary("Send a one-time code").Tags(tagAuth).
		Body(sendOTPBody{}).
		Response(http.StatusOK, successResponse{}, "Code issued").
		Response(http.StatusTooManyRequests, rateLimitedResponse{}, "A code was sent less than a cooldown ago").
		Add()
}

func documentIdentity(doc *Document, p string) {
	doc.Operation(http.MethodPost, p+"/sign-up/email").Summary("Create an account").Tags(tagAuth).
		Body(signUpBody{}).
		Response(http.StatusOK, authResponse{}, "Account created").
		Response(http.StatusBadRequest, messageResponse{}, "Invalid input").
		Response(http.StatusUnprocessableEntity, messageResponse{}, "Email already registered").
		Add()

	doc.Operation(http.MethodPost, p+"/sign-in/email").Summary("Sign in with email and password").Tags(tagAuth).
		Body(signInBody{}).
		Response(http.StatusOK, authResponse{}, "Signed in").
		Response(http.StatusUnauthorized, messageResponse{}, "Invalid email or password").
		Response(http.StatusForbidden, messageResponse{}, "Email not verified").
		Add()

	doc.Operation(http.MethodPost, p+"/sign-out").Summary("Sign out").Tags(tagAuth).
		Response(http.StatusOK, successResponse{}, "Signed out").
		Add()

	doc.Operation(http.MethodGet, p+"/get-session").Summary("Current session").Tags(tagAuth).
		Response(http.StatusOK, sessionResponse{}, "Session and user, or null").
		Add()

	doc.Operation(http.MethodPost, p+"/email-otp/check-verification-otp").Summary("Check a code without consuming it").Tags(tagAuth).
		Body(checkOTPBody{}).
		Response(http.StatusOK, successResponse{}, "Code valid").
		Response(http.StatusBadRequest, messageResponse{}, "Invalid or expired code").
		Add()

	doc.Operation(http.MethodPost, p+"/email-otp/verify-email").Summary("Verify an email address with a code").Tags(tagAuth).
		Body(otpBody{}).
		Response(http.StatusOK, authResponse{}, "Verified and signed in").
		Response(http.StatusBadRequest, messageResponse{}, "Invalid or expired code").
		Add()

	doc.Operation(http.MethodPost, p+"/sign-in/email-otp").Summary("Sign in with a code").Tags(tagAuth).
		Body(otpBody{}).
		Response(http.StatusOK, authResponse{}, "Signed in").
		Response(http.StatusBadRequest, messageResponse{}, "Invalid or expired code").
		Add()

	for _, path := range []string{"/email-otp/request-password-reset", "/forget-password/email-otp"} {
		doc.Operation(http.MethodPost, p+path).Summary("Send a password reset code").Tags(tagAuth).
			Body(emailBody{}).
			Response(http.StatusOK, successResponse{}, "Code issued").
			Response(http.StatusTooManyRequests, rateLimitedResponse{}, "Requested again inside the cooldown").
			Add()
	}

	doc.Operation(http.MethodPost, p+"/email-otp/reset-password").Summary("Reset the password with a code").Tags(tagAuth).
		Body(resetOTPBody{}).
		Response(http.StatusOK, successResponse{}, "Password changed").
		Response(http.StatusBadRequest, messageResponse{}, "Invalid or expired code").
		Add()

	doc.Operation(http.MethodPost, p+"/request-password-reset").Summary("Send a password reset link").Tags(tagAuth).
		Body(requestResetBody{}).
		Response(http.StatusOK, statusResponse{}, "Link sent when the account exists").
		Add()

	doc.Operation(http.MethodPost, p+"/reset-password").Summary("Reset the password with a link token").Tags(tagAuth).
		Body(resetBody{}).
		Response(http.StatusOK, statusResponse{}, "Password changed").
		Response(http.StatusBadRequest, messageResponse{}, "Invalid or expired token").
		Add()

	doc.Operation(http.MethodPost, p+"/change-password").Summary("Change the password").Tags(tagAuth).
		Security(cookieKey).Body(changePasswordBody{}).
		Response(http.StatusOK, authResponse{}, "Password changed").
		Response(http.StatusBadRequest, messageResponse{}, "Invalid password").
		Add()

	doc.Operation(http.MethodGet, p+"/list-sessions").Summary("List active sessions").Tags(tagAuth).
		Security(cookieKey).
		Response(http.StatusOK, []session.UserSession{}, "Active sessions").
		Add()

	doc.Operation(http.MethodPost, p+"/revoke-session").Summary("Revoke a session").Tags(tagAuth).
		Security(cookieKey).Body(revokeSessionBody{}).
		Response(http.StatusOK, statusResponse{}, "Revoked").
		Response(http.StatusNotFound, messageResponse{}, "Session not found").
		Add()

	doc.Operation(http.MethodPost, p+"/revoke-other-sessions").Summary("Revoke every other session").Tags(tagAuth).
		Security(cookieKey).
		Response(http.StatusOK, statusResponse{}, "Revoked").
		Add()

	doc.Operation(http.MethodPost, p+"/update-user").Summary("Change the display name").Tags(tagAuth).
		Security(cookieKey).Body(updateUserBody{}).
		Response(http.StatusOK, updateUserResponse{}, "Updated").
		Response(http.StatusBadRequest, messageResponse{}, "Validation failed").
		Add()

	doc.Operation(http.MethodPost, p+"/delete-user").Summary("Delete the account").Tags(tagAuth).
		Security(cookieKey).Body(deleteUserBody{}).
		Response(http.StatusOK, successResponse{}, "Account deleted and signed out").
		Response(http.StatusBadRequest, messageResponse{}, "Invalid password").
		Add()
}
